package together

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
)

const adapterName = "together"

const structuredTemperature float32 = 0.1

// Adapter runs inference against TogetherAI through its OpenAI-compatible
// endpoint. It is the secondary tier and handles text modes only.
type Adapter struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// New builds the TogetherAI adapter with the same chain layout as the
// primary tier, so the orchestrator can swap tiers without caring which
// backend answered.
func New(ctx context.Context, cfg config.TogetherConfig) (*Adapter, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Adapter{chatModel: chatModel, chain: runnable}, nil
}

// Name 返回适配器标识。
func (a *Adapter) Name() string {
	return adapterName
}

// Supports reports which inference modes this backend can serve. Image input
// is not offered on this tier.
func (a *Adapter) Supports(mode provider.Mode) bool {
	return mode == provider.ModeSymptom || mode == provider.ModeChat
}

// Infer dispatches one request to the matching call path.
func (a *Adapter) Infer(ctx context.Context, req provider.Request) (*provider.Result, error) {
	switch req.Mode {
	case provider.ModeSymptom:
		return a.analyzeSymptoms(ctx, req)
	case provider.ModeChat:
		return a.converse(ctx, req)
	default:
		return nil, provider.NewError(adapterName, provider.KindMalformed, fmt.Errorf("unsupported mode %q", req.Mode))
	}
}

// InferStream streams a conversational reply through the compiled chain.
func (a *Adapter) InferStream(ctx context.Context, req provider.Request) (*schema.StreamReader[*schema.Message], error) {
	if req.Mode != provider.ModeChat {
		return nil, provider.NewError(adapterName, provider.KindMalformed, fmt.Errorf("streaming only supports chat mode, got %q", req.Mode))
	}

	stream, err := a.chain.Stream(ctx, a.buildChainInput(req))
	if err != nil {
		return nil, provider.Classify(adapterName, err)
	}
	return stream, nil
}

func (a *Adapter) analyzeSymptoms(ctx context.Context, req provider.Request) (*provider.Result, error) {
	messages := []*schema.Message{
		schema.SystemMessage(provider.SymptomSystemPrompt()),
		schema.UserMessage(provider.SymptomUserPrompt(req.Text)),
	}

	response, err := a.chatModel.Generate(ctx, messages, model.WithTemperature(structuredTemperature))
	if err != nil {
		return nil, provider.Classify(adapterName, err)
	}

	analysis, err := provider.DecodeAnalysis(adapterName, response.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[together] symptom analysis produced %d diagnoses", len(analysis.PotentialDiagnoses))
	return &provider.Result{Analysis: analysis}, nil
}

func (a *Adapter) converse(ctx context.Context, req provider.Request) (*provider.Result, error) {
	response, err := a.chain.Invoke(ctx, a.buildChainInput(req))
	if err != nil {
		return nil, provider.Classify(adapterName, err)
	}

	log.Printf("[together] generated chat reply, length=%d", len(response.Content))
	return &provider.Result{Reply: response.Content}, nil
}

func (a *Adapter) buildChainInput(req provider.Request) map[string]any {
	return map[string]any{
		"system":  provider.ChatSystemPrompt(req),
		"history": buildHistoryMessages(req.History),
		"query":   req.Text,
	}
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	const historyLimit = 10

	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if len(turns) > historyLimit {
		startIdx = len(turns) - historyLimit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Speaker {
		case chat.SpeakerUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.SpeakerAssistant:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}

	return history
}
