package triage

import (
	"testing"

	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
)

func TestAssessHeadacheAndFever(t *testing.T) {
	matches := Assess("I have a headache, fever and a stiff neck")
	if len(matches) < 2 {
		t.Fatalf("expected headache and fever rules to match, got %d matches", len(matches))
	}

	conditions := make(map[string]diagnosis.Diagnosis, len(matches))
	for _, m := range matches {
		conditions[m.Condition] = m
		if m.Confidence < 0 || m.Confidence > 100 {
			t.Fatalf("confidence out of range for %s: %d", m.Condition, m.Confidence)
		}
	}

	if _, ok := conditions["Tension Headache"]; !ok {
		t.Fatal("expected Tension Headache match")
	}
	if _, ok := conditions["Viral Infection"]; !ok {
		t.Fatal("expected Viral Infection match")
	}
}

func TestAssessChestPainIsCritical(t *testing.T) {
	matches := Assess("crushing chest pain and shortness of breath")
	if len(matches) < 2 {
		t.Fatalf("expected two critical matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Severity != diagnosis.SeverityCritical {
			t.Fatalf("expected critical severity for %s, got %s", m.Condition, m.Severity)
		}
	}
}

func TestAssessMultipleHitsBoostConfidence(t *testing.T) {
	single := Assess("I have a cough")
	double := Assess("I have a cough and a sore throat")
	if len(single) != 1 || len(double) != 1 {
		t.Fatalf("expected one respiratory match in each, got %d and %d", len(single), len(double))
	}
	if double[0].Confidence <= single[0].Confidence {
		t.Fatalf("expected extra keyword to raise confidence: %d vs %d", double[0].Confidence, single[0].Confidence)
	}
	if double[0].Confidence > 85 {
		t.Fatalf("expected local confidence ceiling, got %d", double[0].Confidence)
	}
}

func TestAssessNoMatch(t *testing.T) {
	if matches := Assess("my houseplant looks unwell"); matches != nil {
		t.Fatalf("expected no matches, got %+v", matches)
	}
	if matches := Assess("   "); matches != nil {
		t.Fatalf("expected no matches for blank input, got %+v", matches)
	}
}

func TestRedFlagsDeduplicate(t *testing.T) {
	warnings := RedFlags("slurred speech and face drooping after he passed out")
	if len(warnings) != 2 {
		t.Fatalf("expected stroke sign collapsed to one line plus consciousness, got %v", warnings)
	}
}

func TestRedFlagsEmpty(t *testing.T) {
	if warnings := RedFlags("mild cough since yesterday"); warnings != nil {
		t.Fatalf("expected no red flags, got %v", warnings)
	}
}
