package local

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/analysis/triage"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
)

const adapterName = "local"

// Adapter is the last fallback tier. It runs the keyword triage table, never
// touches the network, and never fails, so the chain above it can lose every
// upstream and the pipeline still answers.
type Adapter struct{}

// New returns the deterministic local tier.
func New() *Adapter {
	return &Adapter{}
}

// Name 返回适配器标识。
func (a *Adapter) Name() string {
	return adapterName
}

// Supports reports text modes only; image input needs a real vision backend.
func (a *Adapter) Supports(mode provider.Mode) bool {
	return mode == provider.ModeSymptom || mode == provider.ModeChat
}

// Infer serves symptom and chat requests without error. Vision requests are
// the one rejection, and the dispatcher never routes them here.
func (a *Adapter) Infer(ctx context.Context, req provider.Request) (*provider.Result, error) {
	switch req.Mode {
	case provider.ModeSymptom:
		return &provider.Result{Analysis: a.analyzeSymptoms(req)}, nil
	case provider.ModeChat:
		return &provider.Result{Reply: a.converse(req)}, nil
	default:
		return nil, provider.NewError(adapterName, provider.KindMalformed, fmt.Errorf("unsupported mode %q", req.Mode))
	}
}

func (a *Adapter) analyzeSymptoms(req provider.Request) *diagnosis.AnalysisResult {
	diagnoses := triage.Assess(req.Text)
	if len(diagnoses) == 0 {
		diagnoses = []diagnosis.Diagnosis{consultationFallback()}
	}

	warnings := triage.RedFlags(req.Text)
	warnings = append(warnings, standingWarnings...)

	log.Printf("[local] triage produced %d diagnoses", len(diagnoses))
	return &diagnosis.AnalysisResult{
		PotentialDiagnoses: diagnoses,
		AnalysisMethod:     adapterName,
		Recommendations:    append([]string(nil), standingRecommendations...),
		Warnings:           warnings,
	}
}

func (a *Adapter) converse(req provider.Request) string {
	if req.Language != "" && req.Language != "en" {
		return fallbackReply(req.Language)
	}

	matches := triage.Assess(req.Text)
	if len(matches) == 0 {
		return "I'd like to help. Could you describe your symptoms in more detail, including when they started and how severe they feel? If anything feels urgent, please contact a healthcare professional right away."
	}

	var b strings.Builder
	b.WriteString("Based on what you describe, this could be ")
	for i, m := range matches {
		if i > 0 {
			if i == len(matches)-1 {
				b.WriteString(" or ")
			} else {
				b.WriteString(", ")
			}
		}
		b.WriteString(strings.ToLower(m.Condition))
	}
	b.WriteString(". ")
	if first := matches[0]; len(first.ImmediateActions) > 0 {
		b.WriteString(first.ImmediateActions[0])
		b.WriteString(". ")
	}
	for _, warning := range triage.RedFlags(req.Text) {
		b.WriteString(warning)
		b.WriteString(" ")
	}
	b.WriteString("I am a limited offline assistant, so please see a healthcare professional for a proper evaluation.")
	return b.String()
}

func consultationFallback() diagnosis.Diagnosis {
	return diagnosis.Diagnosis{
		Condition:   "Medical Consultation Required",
		Confidence:  50,
		Severity:    diagnosis.SeverityUnknown,
		Description: "Please consult a healthcare professional for proper diagnosis and treatment.",
		ImmediateActions: []string{
			"Schedule a doctor appointment",
			"Monitor your symptoms",
			"Keep a symptom diary",
		},
		WhenToSeekHelp: "Seek immediate medical attention if symptoms are severe or concerning.",
	}
}

var standingRecommendations = []string{
	"Always consult with a healthcare professional for proper diagnosis",
	"Keep track of your symptoms and their progression",
	"Follow any prescribed treatment plans",
	"Maintain a healthy lifestyle with proper diet and exercise",
}

var standingWarnings = []string{
	"This analysis is for educational purposes only and should not replace professional medical advice",
	"If symptoms are severe or concerning, seek immediate medical attention",
	"Do not self-diagnose or self-treat serious medical conditions",
}

// fallbackReplies mirrors the languages the assistant can apologize in
// without a model. Unlisted languages fall back to English.
var fallbackReplies = map[string]string{
	"en": "I apologize, but I'm having trouble processing your request right now. Please try again or consult a healthcare professional for immediate assistance.",
	"es": "Me disculpo, pero estoy teniendo problemas para procesar su solicitud en este momento. Por favor, inténtelo de nuevo o consulte a un profesional de la salud para asistencia inmediata.",
	"fr": "Je m'excuse, mais j'ai des difficultés à traiter votre demande en ce moment. Veuillez réessayer ou consulter un professionnel de la santé pour une assistance immédiate.",
	"de": "Es tut mir leid, aber ich habe derzeit Probleme, Ihre Anfrage zu verarbeiten. Bitte versuchen Sie es erneut oder konsultieren Sie einen medizinischen Fachmann für sofortige Hilfe.",
	"hi": "मैं क्षमा चाहता हूं, लेकिन मुझे आपके अनुरोध को संसाधित करने में समस्या हो रही है। कृपया पुनः प्रयास करें या तत्काल सहायता के लिए स्वास्थ्य पेशेवर से परामर्श करें।",
	"zh": "很抱歉，我现在处理您的请求时遇到了问题。请重试或咨询医疗专业人员以获得即时帮助。",
	"ja": "申し訳ございませんが、現在リクエストの処理に問題があります。もう一度お試しいただくか、即座の支援のために医療専門家にご相談ください。",
	"ar": "أعتذر، لكنني أواجه مشكلة في معالجة طلبك الآن. يرجى المحاولة مرة أخرى أو استشارة متخصص في الرعاية الصحية للحصول على مساعدة فورية.",
	"pt": "Peço desculpas, mas estou tendo problemas para processar sua solicitação agora. Por favor, tente novamente ou consulte um profissional de saúde para assistência imediata.",
	"ru": "Приношу извинения, но у меня возникли проблемы с обработкой вашего запроса. Пожалуйста, попробуйте еще раз или обратитесь к медицинскому работнику для немедленной помощи.",
}

func fallbackReply(language string) string {
	if reply, ok := fallbackReplies[language]; ok {
		return reply
	}
	return fallbackReplies["en"]
}
