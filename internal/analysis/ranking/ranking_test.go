package ranking

import (
	"errors"
	"testing"

	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

func TestFinalizeSortsDescendingStable(t *testing.T) {
	result := &diagnosis.AnalysisResult{
		PotentialDiagnoses: []diagnosis.Diagnosis{
			{Condition: "Tension Headache", Confidence: 40},
			{Condition: "Migraine", Confidence: 70},
			{Condition: "Cluster Headache", Confidence: 70},
			{Condition: "Sinusitis", Confidence: 55},
		},
	}

	if err := Finalize(result); err != nil {
		t.Fatalf("Finalize err: %v", err)
	}

	got := make([]string, 0, len(result.PotentialDiagnoses))
	for _, d := range result.PotentialDiagnoses {
		got = append(got, d.Condition)
	}
	want := []string{"Migraine", "Cluster Headache", "Sinusitis", "Tension Headache"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}

	if result.BestMatch == nil || result.BestMatch.Condition != "Migraine" {
		t.Fatalf("unexpected best match: %+v", result.BestMatch)
	}
	if result.DiagnosisCount != 4 {
		t.Fatalf("unexpected diagnosis count: %d", result.DiagnosisCount)
	}
}

func TestFinalizeBestMatchTracksEnrichment(t *testing.T) {
	result := &diagnosis.AnalysisResult{
		PotentialDiagnoses: []diagnosis.Diagnosis{
			{Condition: "Migraine", Confidence: 70},
		},
	}
	if err := Finalize(result); err != nil {
		t.Fatalf("Finalize err: %v", err)
	}

	result.PotentialDiagnoses[0].Recommendations = &medicine.RecommendationSet{Condition: "Migraine"}
	if result.BestMatch.Recommendations == nil {
		t.Fatal("expected best match to alias the top diagnosis")
	}
}

func TestFinalizeEmpty(t *testing.T) {
	err := Finalize(&diagnosis.AnalysisResult{})
	if !errors.Is(err, ErrNoDiagnoses) {
		t.Fatalf("expected ErrNoDiagnoses, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	result := &diagnosis.AnalysisResult{
		PotentialDiagnoses: []diagnosis.Diagnosis{
			{Condition: "A", Confidence: 90},
			{Condition: "B", Confidence: 80},
			{Condition: "C", Confidence: 70},
		},
	}
	if err := Finalize(result); err != nil {
		t.Fatalf("Finalize err: %v", err)
	}

	Truncate(result, 2)
	if len(result.PotentialDiagnoses) != 2 || result.DiagnosisCount != 2 {
		t.Fatalf("unexpected truncation: %+v", result)
	}
	if result.BestMatch.Condition != "A" {
		t.Fatalf("best match lost after truncation: %+v", result.BestMatch)
	}

	Truncate(result, 0)
	if len(result.PotentialDiagnoses) != 2 {
		t.Fatal("zero max must mean no limit")
	}
}
