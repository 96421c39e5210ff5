package source

import (
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

// traditionalCatalog 是内置的传统疗法目录，在所有外部来源都拿不到
// 自然疗法数据时兜底。键按声明顺序匹配病症名的子串。
var traditionalCatalog = []struct {
	key      string
	remedies []medicine.Remedy
}{
	{"headache", []medicine.Remedy{
		{
			Name:          "Peppermint Oil",
			Description:   "Traditional remedy for tension headaches",
			Usage:         "Apply diluted peppermint oil to temples and forehead",
			Effectiveness: "Moderate effectiveness for tension headaches",
			Source:        "Traditional Medicine - Europe",
		},
		{
			Name:          "Ginger Tea",
			Description:   "Natural anti-inflammatory for headache relief",
			Usage:         "Steep fresh ginger in hot water, drink 2-3 times daily",
			Effectiveness: "Good for migraine and tension headaches",
			Source:        "Traditional Medicine - Asia",
		},
		{
			Name:          "Lavender Oil",
			Description:   "Calming essential oil for headache relief",
			Usage:         "Inhale lavender oil or apply to temples",
			Effectiveness: "Effective for stress-related headaches",
			Source:        "Traditional Medicine - Mediterranean",
		},
	}},
	{"fever", []medicine.Remedy{
		{
			Name:          "Willow Bark Tea",
			Description:   "Natural fever reducer containing salicin",
			Usage:         "Steep willow bark in hot water, drink 2-3 times daily",
			Effectiveness: "Moderate effectiveness for fever reduction",
			Source:        "Traditional Medicine - Global",
		},
		{
			Name:          "Elderberry Syrup",
			Description:   "Immune-boosting traditional remedy",
			Usage:         "Take 1-2 teaspoons daily during illness",
			Effectiveness: "Good for immune support and fever",
			Source:        "Traditional Medicine - Europe",
		},
		{
			Name:          "Cool Compress",
			Description:   "Traditional physical therapy for fever",
			Usage:         "Apply cool, damp cloth to forehead and body",
			Effectiveness: "Immediate relief for fever symptoms",
			Source:        "Traditional Medicine - Global",
		},
	}},
	{"cough", []medicine.Remedy{
		{
			Name:          "Honey and Lemon",
			Description:   "Traditional cough remedy with antibacterial properties",
			Usage:         "Mix 1 tablespoon honey with lemon juice, take as needed",
			Effectiveness: "Excellent for soothing cough and sore throat",
			Source:        "Traditional Medicine - Global",
		},
		{
			Name:          "Thyme Tea",
			Description:   "Natural expectorant for cough relief",
			Usage:         "Steep thyme in hot water, drink 2-3 times daily",
			Effectiveness: "Good for productive coughs",
			Source:        "Traditional Medicine - Mediterranean",
		},
		{
			Name:          "Steam Inhalation",
			Description:   "Traditional therapy for respiratory symptoms",
			Usage:         "Inhale steam with eucalyptus oil for 10-15 minutes",
			Effectiveness: "Immediate relief for cough and congestion",
			Source:        "Traditional Medicine - Global",
		},
	}},
	{"stomach", []medicine.Remedy{
		{
			Name:          "Ginger Root",
			Description:   "Traditional remedy for nausea and stomach upset",
			Usage:         "Chew fresh ginger or drink ginger tea",
			Effectiveness: "Excellent for nausea and digestive issues",
			Source:        "Traditional Medicine - Asia",
		},
		{
			Name:          "Peppermint Tea",
			Description:   "Natural digestive aid and stomach soother",
			Usage:         "Steep peppermint leaves in hot water, drink after meals",
			Effectiveness: "Good for indigestion and stomach pain",
			Source:        "Traditional Medicine - Europe",
		},
		{
			Name:          "Chamomile Tea",
			Description:   "Calming herb for stomach inflammation",
			Usage:         "Steep chamomile flowers in hot water, drink 2-3 times daily",
			Effectiveness: "Effective for stomach inflammation and pain",
			Source:        "Traditional Medicine - Mediterranean",
		},
	}},
	{"pain", []medicine.Remedy{
		{
			Name:          "Arnica Gel",
			Description:   "Traditional remedy for muscle and joint pain",
			Usage:         "Apply arnica gel to affected area 2-3 times daily",
			Effectiveness: "Good for muscle pain and bruising",
			Source:        "Traditional Medicine - Europe",
		},
		{
			Name:          "Turmeric",
			Description:   "Natural anti-inflammatory for pain relief",
			Usage:         "Mix turmeric with warm milk or take as supplement",
			Effectiveness: "Moderate effectiveness for chronic pain",
			Source:        "Traditional Medicine - India",
		},
		{
			Name:          "Epsom Salt Bath",
			Description:   "Traditional therapy for muscle pain relief",
			Usage:         "Dissolve 2 cups Epsom salt in warm bath, soak for 20 minutes",
			Effectiveness: "Immediate relief for muscle pain and tension",
			Source:        "Traditional Medicine - Global",
		},
	}},
}

// defaultRemedies apply to any condition the catalog has no entry for.
var defaultRemedies = []medicine.Remedy{
	{
		Name:          "Rest and Hydration",
		Description:   "Fundamental traditional healing practice",
		Usage:         "Get adequate rest and drink plenty of fluids",
		Effectiveness: "Essential for recovery from any illness",
		Source:        "Traditional Medicine - Global",
	},
	{
		Name:          "Warm Compress",
		Description:   "Traditional therapy for various conditions",
		Usage:         "Apply warm, damp cloth to affected area",
		Effectiveness: "Good for pain relief and inflammation",
		Source:        "Traditional Medicine - Global",
	},
}

// CommonRemedies returns the built-in traditional remedies for a condition.
// The result is a copy, so callers may append to it freely.
func CommonRemedies(condition string) []medicine.Remedy {
	lowered := strings.ToLower(condition)
	for _, entry := range traditionalCatalog {
		if strings.Contains(lowered, entry.key) {
			return append([]medicine.Remedy(nil), entry.remedies...)
		}
	}
	return append([]medicine.Remedy(nil), defaultRemedies...)
}
