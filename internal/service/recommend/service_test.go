package recommend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/z-clinic/backend/internal/analysis/ranking"
	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
	"github.com/zhouzirui/z-clinic/backend/internal/service/recommend"
)

// fakeSources answers every catalog interface from canned fixtures.
type fakeSources struct {
	otc            []medicine.Medicine
	otcErr         error
	rx             []medicine.Medicine
	rxErr          error
	traditional    []medicine.Remedy
	traditionalErr error
	practices      []medicine.Remedy
	practicesErr   error
	herbs          []medicine.Remedy
	herbsErr       error
	articles       []medicine.Article
	articlesErr    error
}

func (f *fakeSources) SearchOTCMedicines(ctx context.Context, condition string) ([]medicine.Medicine, error) {
	return f.otc, f.otcErr
}

func (f *fakeSources) SearchHerbalSupplements(ctx context.Context, condition string) ([]medicine.Remedy, error) {
	return f.herbs, f.herbsErr
}

func (f *fakeSources) SearchPrescriptionMedicines(ctx context.Context, condition string) ([]medicine.Medicine, error) {
	return f.rx, f.rxErr
}

func (f *fakeSources) TraditionalMedicine(ctx context.Context, condition string) ([]medicine.Remedy, error) {
	return f.traditional, f.traditionalErr
}

func (f *fakeSources) HealthPractices(ctx context.Context, condition string) ([]medicine.Remedy, error) {
	return f.practices, f.practicesErr
}

func (f *fakeSources) SearchLiterature(ctx context.Context, condition string) ([]medicine.Article, error) {
	return f.articles, f.articlesErr
}

func newService(f *fakeSources) *recommend.Service {
	cfg := config.SourceConfig{BranchTimeout: 5 * time.Second}
	return recommend.NewService(f, f, f, f, cfg)
}

func TestAggregateMergesAllSources(t *testing.T) {
	sources := &fakeSources{
		otc:         []medicine.Medicine{{Name: "Ibuprofen", Source: "FDA Drug Database"}},
		rx:          []medicine.Medicine{{Name: "Sumatriptan", Source: "RxNav Prescription Database"}},
		traditional: []medicine.Remedy{{Name: "Ginger", Source: "WHO GHO Traditional Medicine - Asia"}},
		articles:    []medicine.Article{{Title: "Migraine review", Source: "PubMed Medical Literature"}},
	}

	set, err := newService(sources).Aggregate(context.Background(), "headache")
	if err != nil {
		t.Fatalf("Aggregate err: %v", err)
	}

	wantSources := []string{
		"FDA Drug Database",
		"RxNav Prescription Database",
		"WHO GHO Global Health Data",
		"PubMed Medical Literature",
	}
	if len(set.APISources) != len(wantSources) {
		t.Fatalf("APISources = %v, want %v", set.APISources, wantSources)
	}
	for i := range wantSources {
		if set.APISources[i] != wantSources[i] {
			t.Fatalf("APISources[%d] = %q, want %q", i, set.APISources[i], wantSources[i])
		}
	}
	if set.TotalRecommendations != 4 {
		t.Fatalf("TotalRecommendations = %d, want 4", set.TotalRecommendations)
	}
	if set.Condition != "headache" || set.LastUpdated.IsZero() {
		t.Fatalf("metadata not stamped: %+v", set)
	}
}

func TestAggregatePartialFailureShrinksSources(t *testing.T) {
	sources := &fakeSources{
		otc:         []medicine.Medicine{{Name: "Ibuprofen", Source: "FDA Drug Database"}},
		rxErr:       errors.New("rxnav down"),
		traditional: []medicine.Remedy{{Name: "Ginger", Source: "WHO GHO Traditional Medicine - Asia"}},
	}

	set, err := newService(sources).Aggregate(context.Background(), "headache")
	if err == nil {
		t.Fatal("expected partial failure error")
	}
	if set == nil {
		t.Fatal("partial failure must still return a set")
	}

	// PubMed returned nothing and RxNav failed, so neither may be listed.
	want := []string{"FDA Drug Database", "WHO GHO Global Health Data"}
	if len(set.APISources) != len(want) || set.APISources[0] != want[0] || set.APISources[1] != want[1] {
		t.Fatalf("APISources = %v, want %v", set.APISources, want)
	}
	if len(set.PrescriptionMedicines) != 0 {
		t.Fatalf("failed branch leaked data: %v", set.PrescriptionMedicines)
	}
}

func TestAggregateNaturalFallsBackToCatalog(t *testing.T) {
	sources := &fakeSources{
		traditionalErr: errors.New("gho down"),
		practicesErr:   errors.New("gho down"),
		herbsErr:       errors.New("fda down"),
	}

	set, err := newService(sources).Aggregate(context.Background(), "rare syndrome")
	if err == nil {
		t.Fatal("expected error from failed remedy sources")
	}
	if len(set.NaturalRemedies) == 0 {
		t.Fatal("builtin catalog should backfill natural remedies")
	}
	if set.NaturalRemedies[0].Name != "Rest and Hydration" {
		t.Fatalf("unexpected fallback remedy %q", set.NaturalRemedies[0].Name)
	}
	if len(set.APISources) != 0 {
		t.Fatalf("builtin catalog must not count as an API source, got %v", set.APISources)
	}
}

func TestAggregateDeduplicatesRemedies(t *testing.T) {
	sources := &fakeSources{
		traditional: []medicine.Remedy{
			{Name: "Ginger", Source: "WHO GHO Traditional Medicine - Asia"},
			{Name: "Ginger", Source: "WHO GHO Traditional Medicine - Asia"},
		},
		herbs: []medicine.Remedy{
			{Name: "Ginger", Source: "FDA Dietary Supplement Database"},
		},
	}

	set, err := newService(sources).Aggregate(context.Background(), "nausea")
	if err != nil {
		t.Fatalf("Aggregate err: %v", err)
	}

	// The same name from a different source is a distinct entry.
	if len(set.NaturalRemedies) != 2 {
		t.Fatalf("got %d remedies, want 2 after dedup: %v", len(set.NaturalRemedies), set.NaturalRemedies)
	}
}

func TestAggregateBlankCondition(t *testing.T) {
	set, err := newService(&fakeSources{}).Aggregate(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Aggregate err: %v", err)
	}
	if set != nil {
		t.Fatalf("blank condition should yield no set, got %+v", set)
	}
}

func TestEnrichAttachesToTopDiagnoses(t *testing.T) {
	sources := &fakeSources{
		otc: []medicine.Medicine{{Name: "Ibuprofen", Source: "FDA Drug Database"}},
	}
	svc := newService(sources)

	result := &diagnosis.AnalysisResult{
		PotentialDiagnoses: []diagnosis.Diagnosis{
			{Condition: "Migraine", Confidence: 80},
			{Condition: "Tension Headache", Confidence: 60},
			{Condition: "Sinusitis", Confidence: 40},
		},
	}
	if err := ranking.Finalize(result); err != nil {
		t.Fatalf("Finalize err: %v", err)
	}

	svc.Enrich(context.Background(), result, 2)

	if result.PotentialDiagnoses[0].Recommendations == nil ||
		result.PotentialDiagnoses[1].Recommendations == nil {
		t.Fatal("top diagnoses should carry recommendations")
	}
	if result.PotentialDiagnoses[2].Recommendations != nil {
		t.Fatal("third diagnosis is past the cap and must stay bare")
	}
	if result.BestMatch.Recommendations == nil {
		t.Fatal("best match should reflect the enriched leader")
	}
}
