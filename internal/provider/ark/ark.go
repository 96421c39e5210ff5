package ark

import (
	"context"
	"encoding/base64"
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

const adapterName = "ark"

// structuredTemperature keeps JSON-contract replies near deterministic.
const structuredTemperature float32 = 0.1

// Adapter runs inference against Volcengine Ark. It is the primary tier and
// the only one that accepts image input.
type Adapter struct {
	chatModel   model.ChatModel
	visionModel model.ChatModel
	chain       compose.Runnable[map[string]any, *schema.Message]
}

// New builds the Ark adapter. The conversational path is a compiled
// template+model chain; symptom and vision paths call the model directly
// because their prompts carry structured or multimodal content.
func New(ctx context.Context, cfg config.AIConfig) (*Adapter, error) {
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

	adapter := &Adapter{
		chatModel: chatModel,
		chain:     runnable,
	}

	if cfg.VisionEnabled() {
		if cfg.VisionModel == cfg.Model {
			adapter.visionModel = chatModel
		} else {
			visionModel, err := cfg.NewVisionModel(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to create vision model: %w", err)
			}
			adapter.visionModel = visionModel
		}
	}

	return adapter, nil
}

// Name 返回适配器标识。
func (a *Adapter) Name() string {
	return adapterName
}

// ChatModel 返回底层的聊天模型，供其他链复用。
func (a *Adapter) ChatModel() model.ChatModel {
	return a.chatModel
}

// Supports reports which inference modes this backend can serve.
func (a *Adapter) Supports(mode provider.Mode) bool {
	switch mode {
	case provider.ModeSymptom, provider.ModeChat:
		return true
	case provider.ModeVision:
		return a.visionModel != nil
	default:
		return false
	}
}

// Infer dispatches one request to the matching Ark call path.
func (a *Adapter) Infer(ctx context.Context, req provider.Request) (*provider.Result, error) {
	switch req.Mode {
	case provider.ModeSymptom:
		return a.analyzeSymptoms(ctx, req)
	case provider.ModeChat:
		return a.converse(ctx, req)
	case provider.ModeVision:
		return a.describeImage(ctx, req)
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

	log.Printf("[ark] symptom analysis produced %d diagnoses", len(analysis.PotentialDiagnoses))
	return &provider.Result{Analysis: analysis}, nil
}

func (a *Adapter) converse(ctx context.Context, req provider.Request) (*provider.Result, error) {
	response, err := a.chain.Invoke(ctx, a.buildChainInput(req))
	if err != nil {
		return nil, provider.Classify(adapterName, err)
	}

	log.Printf("[ark] generated chat reply, length=%d", len(response.Content))
	return &provider.Result{Reply: response.Content}, nil
}

func (a *Adapter) describeImage(ctx context.Context, req provider.Request) (*provider.Result, error) {
	if a.visionModel == nil {
		return nil, provider.NewError(adapterName, provider.KindUnreachable, fmt.Errorf("vision model not configured"))
	}
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, provider.NewError(adapterName, provider.KindMalformed, fmt.Errorf("vision request without image payload"))
	}

	encoded := base64.StdEncoding.EncodeToString(req.Image.Data)
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.Image.MIMEType, encoded)

	messages := []*schema.Message{
		schema.SystemMessage(provider.VisionSystemPrompt()),
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{
					Type: schema.ChatMessagePartTypeText,
					Text: provider.VisionUserPrompt(req.Image.Question),
				},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:      dataURL,
						MIMEType: req.Image.MIMEType,
						Detail:   schema.ImageURLDetailAuto,
					},
				},
			},
		},
	}

	response, err := a.visionModel.Generate(ctx, messages, model.WithTemperature(structuredTemperature))
	if err != nil {
		return nil, provider.Classify(adapterName, err)
	}

	result, err := provider.DecodeVision(adapterName, response.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[ark] image analysis produced %d findings", len(result.Findings.VisualFindings))
	return &provider.Result{Vision: result}, nil
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
