package medicine

import "time"

// Medicine describes one drug entry coming back from a formulary or
// prescription source. Fields the upstream omitted stay empty.
type Medicine struct {
	Name        string `json:"name"`
	BrandName   string `json:"brand_name,omitempty"`
	Dosage      string `json:"dosage,omitempty"`
	Warnings    string `json:"warnings,omitempty"`
	SideEffects string `json:"side_effects,omitempty"`
	Indications string `json:"indications,omitempty"`
	Source      string `json:"source"`
	Type        string `json:"type,omitempty"`
}

// Remedy describes one traditional or natural remedy entry.
type Remedy struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Usage         string `json:"usage,omitempty"`
	Effectiveness string `json:"effectiveness,omitempty"`
	Source        string `json:"source"`
}

// Article describes one biomedical literature reference.
type Article struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	PubDate  string   `json:"pub_date,omitempty"`
	Source   string   `json:"source"`
}

// RecommendationSet merges every category of recommendation gathered for one
// condition. APISources lists only the sources that returned usable data, so
// a partial outage shows up as a shorter list, not an error.
type RecommendationSet struct {
	Condition             string     `json:"condition"`
	OTCMedicines          []Medicine `json:"otc_medicines,omitempty"`
	PrescriptionMedicines []Medicine `json:"prescription_medicines,omitempty"`
	NaturalRemedies       []Remedy   `json:"natural_remedies,omitempty"`
	MedicalLiterature     []Article  `json:"medical_literature,omitempty"`
	APISources            []string   `json:"api_sources"`
	LastUpdated           time.Time  `json:"last_updated"`
	TotalRecommendations  int        `json:"total_recommendations"`
}

// Empty reports whether the set carries no recommendations at all.
func (s *RecommendationSet) Empty() bool {
	if s == nil {
		return true
	}
	return len(s.OTCMedicines) == 0 && len(s.PrescriptionMedicines) == 0 &&
		len(s.NaturalRemedies) == 0 && len(s.MedicalLiterature) == 0
}
