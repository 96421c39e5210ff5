package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
)

// ExtractJSON pulls the JSON object out of a model reply. Models wrap their
// output in prose or ```json fences often enough that we take everything
// between the first '{' and the last '}'.
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("missing json object")
	}
	return trimmed[start : end+1], nil
}

type correctionPayload struct {
	Original        string   `json:"original"`
	Corrected       string   `json:"corrected"`
	Interpretations []string `json:"interpretations"`
}

type diagnosisPayload struct {
	Condition        string   `json:"condition"`
	Confidence       float64  `json:"confidence"`
	Severity         string   `json:"severity"`
	Description      string   `json:"description"`
	ImmediateActions []string `json:"immediate_actions"`
	WhenToSeekHelp   string   `json:"when_to_seek_help"`
}

type analysisPayload struct {
	AnalysisMethod     string             `json:"analysis_method"`
	CorrectedSymptoms  string             `json:"corrected_symptoms"`
	SymptomCorrections *correctionPayload `json:"symptom_corrections"`
	PotentialDiagnoses []diagnosisPayload `json:"potential_diagnoses"`
	Recommendations    []string           `json:"recommendations"`
	Warnings           []string           `json:"warnings"`
}

// DecodeAnalysis normalizes a symptom-mode model reply into the canonical
// schema: confidences clamped, severities defaulted, entries without a
// condition dropped, duplicate conditions collapsed to their first mention.
// A reply without a single usable diagnosis is a malformed response so the
// fallback chain can move on.
func DecodeAnalysis(adapter, content string) (*diagnosis.AnalysisResult, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, NewError(adapter, KindMalformed, err)
	}

	payload := &analysisPayload{}
	if err := json.Unmarshal([]byte(raw), payload); err != nil {
		return nil, NewError(adapter, KindMalformed, err)
	}

	seen := make(map[string]bool, len(payload.PotentialDiagnoses))
	diagnoses := make([]diagnosis.Diagnosis, 0, len(payload.PotentialDiagnoses))
	for _, entry := range payload.PotentialDiagnoses {
		condition := strings.TrimSpace(entry.Condition)
		if condition == "" {
			continue
		}
		key := strings.ToLower(condition)
		if seen[key] {
			continue
		}
		seen[key] = true

		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Condition:        condition,
			Confidence:       diagnosis.ClampConfidence(int(entry.Confidence)),
			Severity:         diagnosis.ParseSeverity(entry.Severity),
			Description:      strings.TrimSpace(entry.Description),
			ImmediateActions: cleanList(entry.ImmediateActions),
			WhenToSeekHelp:   strings.TrimSpace(entry.WhenToSeekHelp),
		})
	}

	if len(diagnoses) == 0 {
		return nil, NewError(adapter, KindMalformed, fmt.Errorf("no usable diagnoses in reply"))
	}

	result := &diagnosis.AnalysisResult{
		PotentialDiagnoses: diagnoses,
		AnalysisMethod:     adapter,
		Recommendations:    cleanList(payload.Recommendations),
		Warnings:           cleanList(payload.Warnings),
	}

	if corr := payload.SymptomCorrections; corr != nil && strings.TrimSpace(corr.Corrected) != "" {
		result.CorrectedSymptoms = &diagnosis.CorrectedInput{
			OriginalText:    strings.TrimSpace(corr.Original),
			CorrectedText:   strings.TrimSpace(corr.Corrected),
			Interpretations: cleanList(corr.Interpretations),
		}
	} else if corrected := strings.TrimSpace(payload.CorrectedSymptoms); corrected != "" {
		result.CorrectedSymptoms = &diagnosis.CorrectedInput{CorrectedText: corrected}
	}

	return result, nil
}

type visionAnalysisPayload struct {
	VisualFindings      []string           `json:"visual_findings"`
	PotentialConditions []diagnosisPayload `json:"potential_conditions"`
	RecommendedTests    []string           `json:"recommended_tests"`
	ImmediateActions    []string           `json:"immediate_actions"`
	WhenToSeekHelp      string             `json:"when_to_seek_help"`
}

type visionPayload struct {
	AnalysisMethod     string                `json:"analysis_method"`
	UserQueryAddressed string                `json:"user_query_addressed"`
	ImageAnalysis      visionAnalysisPayload `json:"image_analysis"`
	Recommendations    []string              `json:"recommendations"`
	Warnings           []string              `json:"warnings"`
	SafetyAlerts       []string              `json:"safety_alerts"`
}

// DecodeVision normalizes a vision-mode model reply. Safety alerts merge into
// warnings so callers deal with a single list.
func DecodeVision(adapter, content string) (*vision.Result, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, NewError(adapter, KindMalformed, err)
	}

	payload := &visionPayload{}
	if err := json.Unmarshal([]byte(raw), payload); err != nil {
		return nil, NewError(adapter, KindMalformed, err)
	}

	conditions := make([]diagnosis.Diagnosis, 0, len(payload.ImageAnalysis.PotentialConditions))
	for _, entry := range payload.ImageAnalysis.PotentialConditions {
		condition := strings.TrimSpace(entry.Condition)
		if condition == "" {
			continue
		}
		conditions = append(conditions, diagnosis.Diagnosis{
			Condition:        condition,
			Confidence:       diagnosis.ClampConfidence(int(entry.Confidence)),
			Severity:         diagnosis.ParseSeverity(entry.Severity),
			Description:      strings.TrimSpace(entry.Description),
			ImmediateActions: cleanList(entry.ImmediateActions),
			WhenToSeekHelp:   strings.TrimSpace(entry.WhenToSeekHelp),
		})
	}

	warnings := cleanList(payload.Warnings)
	warnings = append(warnings, cleanList(payload.SafetyAlerts)...)

	return &vision.Result{
		AnalysisMethod:  adapter,
		Summary:         strings.TrimSpace(payload.UserQueryAddressed),
		Recommendations: cleanList(payload.Recommendations),
		Warnings:        warnings,
		Findings: vision.Findings{
			VisualFindings:      cleanList(payload.ImageAnalysis.VisualFindings),
			PotentialConditions: conditions,
			RecommendedTests:    cleanList(payload.ImageAnalysis.RecommendedTests),
			ImmediateActions:    cleanList(payload.ImageAnalysis.ImmediateActions),
			WhenToSeekHelp:      strings.TrimSpace(payload.ImageAnalysis.WhenToSeekHelp),
		},
	}, nil
}

func cleanList(items []string) []string {
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
