package vision

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
)

// replyTemplate holds the section headers for one conversational language.
// introWithTopic expects the topic the analysis addressed as its only verb.
type replyTemplate struct {
	intro           string
	introWithTopic  string
	findings        string
	conditions      string
	recommendations string
	urgent          string
	consult         string
	fallback        string
}

var replyTemplates = map[string]replyTemplate{
	"en": {
		intro:           "Based on my analysis of your image, here's what I found:",
		introWithTopic:  "Based on my analysis of your image and your question about %s, here's what I found:",
		findings:        "Visual findings:",
		conditions:      "Potential conditions identified:",
		recommendations: "Recommendations:",
		urgent:          "⚠️ URGENT: Please seek immediate medical attention if you experience:",
		consult:         "Please consult a healthcare professional for proper diagnosis and treatment.",
		fallback:        "I've analyzed your image, but I need more information to provide a complete assessment. Please describe your symptoms and concerns in detail.",
	},
	"es": {
		intro:           "Basándome en mi análisis de su imagen, esto es lo que encontré:",
		introWithTopic:  "Basándome en mi análisis de su imagen y su pregunta sobre %s, esto es lo que encontré:",
		findings:        "Hallazgos visuales:",
		conditions:      "Condiciones potenciales identificadas:",
		recommendations: "Recomendaciones:",
		urgent:          "⚠️ URGENTE: Busque atención médica inmediata si experimenta:",
		consult:         "Por favor, consulte a un profesional de la salud para un diagnóstico y tratamiento adecuados.",
		fallback:        "He analizado su imagen, pero necesito más información para proporcionar una evaluación completa. Por favor, describa sus síntomas y preocupaciones en detalle.",
	},
	"fr": {
		intro:           "Basé sur mon analyse de votre image, voici ce que j'ai trouvé:",
		introWithTopic:  "Basé sur mon analyse de votre image et votre question sur %s, voici ce que j'ai trouvé:",
		findings:        "Trouvailles visuelles:",
		conditions:      "Conditions potentielles identifiées:",
		recommendations: "Recommandations:",
		urgent:          "⚠️ URGENT: Veuillez consulter immédiatement un médecin si vous ressentez:",
		consult:         "Veuillez consulter un professionnel de la santé pour un diagnostic et un traitement appropriés.",
		fallback:        "J'ai analysé votre image, mais j'ai besoin de plus d'informations pour fournir une évaluation complète. Veuillez décrire vos symptômes et préoccupations en détail.",
	},
	"hi": {
		intro:           "आपकी छवि के विश्लेषण के आधार पर, यहाँ मैंने क्या पाया:",
		introWithTopic:  "आपकी छवि के विश्लेषण के आधार पर और %s के बारे में आपके प्रश्न के आधार पर, यहाँ मैंने क्या पाया:",
		findings:        "दृश्य निष्कर्ष:",
		conditions:      "पहचानी गई संभावित स्थितियां:",
		recommendations: "सिफारिशें:",
		urgent:          "⚠️ तत्काल: यदि आप अनुभव करते हैं तो तुरंत चिकित्सा सहायता लें:",
		consult:         "उचित निदान और उपचार के लिए कृपया स्वास्थ्य पेशेवर से परामर्श करें।",
		fallback:        "मैंने आपकी छवि का विश्लेषण किया है, लेकिन पूर्ण मूल्यांकन प्रदान करने के लिए मुझे अधिक जानकारी की आवश्यकता है। कृपया अपने लक्षणों और चिंताओं का विस्तार से वर्णन करें।",
	},
	"zh": {
		intro:           "根据我对您图像的分析，以下是我的发现:",
		introWithTopic:  "根据我对您图像的分析以及您关于%s的问题，以下是我的发现:",
		findings:        "视觉发现:",
		conditions:      "识别的潜在状况:",
		recommendations: "建议:",
		urgent:          "⚠️ 紧急: 如果您出现以下症状，请立即就医:",
		consult:         "请咨询医疗专业人员以获得正确的诊断和治疗。",
		fallback:        "我已经分析了您的图像，但需要更多信息来提供完整的评估。请详细描述您的症状和担忧。",
	},
}

// composeReply 把结构化分析结果翻译成指定语言的对话回复。
// 没有任何发现时退回到请求补充描述的兜底文案。
func composeReply(result *vision.Result, language string) string {
	template, ok := replyTemplates[language]
	if !ok {
		template = replyTemplates[locale.DefaultCode]
	}

	findings := result.Findings
	if emptyFindings(findings) {
		return template.fallback
	}

	var b strings.Builder
	if topic := strings.TrimSpace(result.Summary); topic != "" {
		fmt.Fprintf(&b, template.introWithTopic, topic)
	} else {
		b.WriteString(template.intro)
	}
	b.WriteString("\n\n")

	if len(findings.VisualFindings) > 0 {
		b.WriteString(template.findings)
		b.WriteString("\n")
		for _, finding := range findings.VisualFindings {
			b.WriteString("• ")
			b.WriteString(finding)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(findings.PotentialConditions) > 0 {
		b.WriteString(template.conditions)
		b.WriteString("\n")
		for _, condition := range findings.PotentialConditions {
			fmt.Fprintf(&b, "• %s (Confidence: %d%%, Severity: %s)\n",
				condition.Condition, condition.Confidence, condition.Severity)
			if condition.Description != "" {
				b.WriteString("  ")
				b.WriteString(condition.Description)
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	if len(result.Recommendations) > 0 {
		b.WriteString(template.recommendations)
		b.WriteString("\n")
		for _, rec := range result.Recommendations {
			b.WriteString("• ")
			b.WriteString(rec)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(findings.ImmediateActions) > 0 {
		b.WriteString(template.urgent)
		b.WriteString("\n")
		for _, action := range findings.ImmediateActions {
			b.WriteString("• ")
			b.WriteString(action)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(template.consult)
	return b.String()
}

func emptyFindings(f vision.Findings) bool {
	return len(f.VisualFindings) == 0 &&
		len(f.PotentialConditions) == 0 &&
		len(f.RecommendedTests) == 0 &&
		len(f.ImmediateActions) == 0 &&
		f.WhenToSeekHelp == ""
}
