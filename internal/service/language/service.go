package language

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
)

// Service detects the language of patient text and corrects spelling through
// a model when one is available. Correction is best-effort: with no model, or
// a failing one, text passes through unchanged.
type Service struct {
	corrector compose.Runnable[map[string]any, *schema.Message]
	locales   locale.Store
}

// NewService builds the language pass. chatModel may be nil, which disables
// correction but keeps detection.
func NewService(ctx context.Context, chatModel model.ChatModel, locales locale.Store) (*Service, error) {
	svc := &Service{locales: locales}

	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(correctorSystemPrompt),
		schema.UserMessage(correctorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile corrector chain: %w", err)
	}

	svc.corrector = runnable
	return svc, nil
}

// CorrectionEnabled 返回是否可以调用大模型进行拼写纠正。
func (s *Service) CorrectionEnabled() bool {
	return s != nil && s.corrector != nil
}

// Process detects the input language and applies best-effort spelling
// correction. DetectedLanguage is always populated, falling back to the
// declared hint and then to English when detection is unsure.
func (s *Service) Process(ctx context.Context, rawText, declaredLanguage string) diagnosis.CorrectedInput {
	raw := strings.TrimSpace(rawText)

	result := diagnosis.CorrectedInput{
		OriginalText:     raw,
		CorrectedText:    raw,
		DetectedLanguage: s.resolveLanguage(raw, declaredLanguage),
	}

	if raw == "" || !s.CorrectionEnabled() {
		return result
	}

	msg, err := s.corrector.Invoke(ctx, map[string]any{"text": raw})
	if err != nil {
		log.Printf("[language] corrector invoke failed, passing text through: %v", err)
		return result
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return result
	}

	payload, err := parseCorrectorOutput(msg.Content)
	if err != nil {
		log.Printf("[language] corrector output parse failed, passing text through: %v", err)
		return result
	}

	corrected := strings.TrimSpace(payload.Corrected)
	if corrected == "" {
		return result
	}

	result.CorrectedText = corrected
	if corrected != raw {
		result.Interpretations = cleanInterpretations(payload.Interpretations)
	}
	return result
}

// Detect exposes package-level detection as a method, so the service can
// stand in wherever a detector is expected.
func (s *Service) Detect(text string) (string, bool) {
	return Detect(text)
}

// Detect returns the ISO 639-1 code for the text and whether the guess is
// trustworthy.
func Detect(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return locale.DefaultCode, false
	}

	info := whatlanggo.Detect(trimmed)
	code := info.Lang.Iso6391()
	if code == "" {
		return locale.DefaultCode, false
	}
	return code, info.IsReliable()
}

func (s *Service) resolveLanguage(raw, declared string) string {
	detected, reliable := Detect(raw)
	if reliable {
		return detected
	}

	if declared = locale.Normalize(declared); declared != "" {
		if _, ok := s.locales.FindByCode(declared); ok {
			return declared
		}
	}

	return detected
}

// parseCorrectorOutput 解析大模型返回的 JSON。
func parseCorrectorOutput(content string) (*correctorPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &correctorPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func cleanInterpretations(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type correctorPayload struct {
	Corrected       string   `json:"corrected"`
	Interpretations []string `json:"interpretations"`
}

const correctorSystemPrompt = "You are a meticulous medical scribe. Fix spelling and typing mistakes in the patient's text without changing its meaning, language, or level of detail. Output only a JSON object with fields: corrected (the fixed text) and interpretations (a list of strings, one per term you had to guess, formatted as \"original -> corrected\"). If nothing needs fixing, return the text unchanged with an empty list. Never add medical advice."

const correctorUserPrompt = "Patient text:\n{text}"
