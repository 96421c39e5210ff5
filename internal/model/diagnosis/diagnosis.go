package diagnosis

import (
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

// Severity grades how urgently a condition needs medical attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// ParseSeverity normalizes a free-form provider severity. Anything it does not
// recognize becomes SeverityUnknown rather than an error.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "mild":
		return SeverityLow
	case "moderate", "medium":
		return SeverityModerate
	case "high", "severe":
		return SeverityHigh
	case "critical", "emergency":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

// Order places severities on a comparable scale, highest urgency first.
func (s Severity) Order() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ClampConfidence bounds a provider-reported confidence into [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Diagnosis is one ranked condition candidate. Condition is unique within a
// single response; optional fields stay empty when the provider omitted them.
type Diagnosis struct {
	Condition        string                      `json:"condition"`
	Confidence       int                         `json:"confidence"`
	Severity         Severity                    `json:"severity"`
	Description      string                      `json:"description,omitempty"`
	ImmediateActions []string                    `json:"immediate_actions,omitempty"`
	WhenToSeekHelp   string                      `json:"when_to_seek_help,omitempty"`
	Recommendations  *medicine.RecommendationSet `json:"medicine_recommendations,omitempty"`
}

// CorrectedInput records what the language pass did to the raw symptom text.
// CorrectedText equals OriginalText when no correction was possible.
type CorrectedInput struct {
	OriginalText     string   `json:"original_text"`
	CorrectedText    string   `json:"corrected_text"`
	DetectedLanguage string   `json:"detected_language"`
	Interpretations  []string `json:"interpretations,omitempty"`
}

// AnalysisResult is the top-level symptom analysis response. It is built per
// request and never persisted.
type AnalysisResult struct {
	PotentialDiagnoses []Diagnosis     `json:"potential_diagnoses"`
	AnalysisMethod     string          `json:"analysis_method"`
	CorrectedSymptoms  *CorrectedInput `json:"corrected_symptoms,omitempty"`
	Recommendations    []string        `json:"recommendations,omitempty"`
	Warnings           []string        `json:"warnings,omitempty"`
	BestMatch          *Diagnosis      `json:"best_match,omitempty"`
	DiagnosisCount     int             `json:"diagnosis_count"`
}
