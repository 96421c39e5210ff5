package ranking

import (
	"errors"
	"sort"

	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
)

// ErrNoDiagnoses marks the explicit no-diagnosis terminal state. Callers
// surface it as its own message instead of an empty-but-successful list.
var ErrNoDiagnoses = errors.New("no diagnoses produced")

// Sort orders candidates by confidence descending. The sort is stable so
// equal-confidence entries keep the order their provider emitted them in.
func Sort(diagnoses []diagnosis.Diagnosis) {
	sort.SliceStable(diagnoses, func(i, j int) bool {
		return diagnoses[i].Confidence > diagnoses[j].Confidence
	})
}

// Finalize ranks the result in place and derives best match and count.
// BestMatch aliases the first element so later enrichment of the top
// diagnosis stays visible through it.
func Finalize(result *diagnosis.AnalysisResult) error {
	if result == nil || len(result.PotentialDiagnoses) == 0 {
		return ErrNoDiagnoses
	}

	Sort(result.PotentialDiagnoses)
	result.BestMatch = &result.PotentialDiagnoses[0]
	result.DiagnosisCount = len(result.PotentialDiagnoses)
	return nil
}

// Truncate keeps at most max diagnoses after ranking. Zero or negative max
// means no limit.
func Truncate(result *diagnosis.AnalysisResult, max int) {
	if result == nil || max <= 0 || len(result.PotentialDiagnoses) <= max {
		return
	}
	result.PotentialDiagnoses = result.PotentialDiagnoses[:max]
	result.DiagnosisCount = len(result.PotentialDiagnoses)
}
