package vision

import (
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
)

// ImageRequest carries one uploaded medical image through validation and
// dispatch. Data is read once and must not be retained after the call.
type ImageRequest struct {
	Data      []byte `json:"-"`
	MIMEType  string `json:"mime_type"`
	Filename  string `json:"filename,omitempty"`
	Question  string `json:"question,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ByteLength returns the payload size in bytes.
func (r *ImageRequest) ByteLength() int {
	return len(r.Data)
}

// Findings is the structured outcome of a vision analysis.
type Findings struct {
	VisualFindings      []string              `json:"visual_findings,omitempty"`
	PotentialConditions []diagnosis.Diagnosis `json:"potential_conditions,omitempty"`
	RecommendedTests    []string              `json:"recommended_tests,omitempty"`
	ImmediateActions    []string              `json:"immediate_actions,omitempty"`
	WhenToSeekHelp      string                `json:"when_to_seek_help,omitempty"`
}

// Result pairs the structured findings with the conversational reply folded
// into the owning chat session.
type Result struct {
	AnalysisMethod   string   `json:"analysis_method"`
	Summary          string   `json:"summary"`
	Findings         Findings `json:"image_analysis"`
	Recommendations  []string `json:"recommendations,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	DetectedLanguage string   `json:"detected_language,omitempty"`
}
