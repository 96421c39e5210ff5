package inference_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	inference "github.com/zhouzirui/z-clinic/backend/internal/service/inference"
)

type fakeAdapter struct {
	name   string
	modes  []provider.Mode
	result *provider.Result
	err    error
	calls  int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Supports(mode provider.Mode) bool {
	for _, m := range f.modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (f *fakeAdapter) Infer(ctx context.Context, req provider.Request) (*provider.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func symptomResult(method string, confidences ...int) *provider.Result {
	diagnoses := make([]diagnosis.Diagnosis, 0, len(confidences))
	for i, c := range confidences {
		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Condition:  method + "-condition-" + string(rune('a'+i)),
			Confidence: c,
			Severity:   diagnosis.SeverityModerate,
		})
	}
	return &provider.Result{Analysis: &diagnosis.AnalysisResult{
		PotentialDiagnoses: diagnoses,
		AnalysisMethod:     method,
	}}
}

func testConfig() config.ProviderConfig {
	return config.ProviderConfig{Timeout: 5 * time.Second, Retries: 0}
}

func TestAnalyzeFallsBackToNextAdapter(t *testing.T) {
	primary := &fakeAdapter{
		name:  "ark",
		modes: []provider.Mode{provider.ModeSymptom, provider.ModeChat},
		err:   provider.NewError("ark", provider.KindUnreachable, errors.New("connection refused")),
	}
	secondary := &fakeAdapter{
		name:   "together",
		modes:  []provider.Mode{provider.ModeSymptom, provider.ModeChat},
		result: symptomResult("together", 40, 75),
	}

	svc := inference.NewService([]provider.Adapter{primary, secondary}, testConfig())

	result, err := svc.Analyze(context.Background(), diagnosis.CorrectedInput{
		OriginalText:     "hedache",
		CorrectedText:    "headache",
		DetectedLanguage: "en",
	})
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}

	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("unexpected call counts: primary=%d secondary=%d", primary.calls, secondary.calls)
	}
	if result.AnalysisMethod != "together" {
		t.Fatalf("expected fallback provider to win, got %s", result.AnalysisMethod)
	}
	if result.PotentialDiagnoses[0].Confidence != 75 {
		t.Fatalf("expected ranked output, got %+v", result.PotentialDiagnoses)
	}
	if result.BestMatch == nil || result.BestMatch.Confidence != 75 {
		t.Fatalf("unexpected best match: %+v", result.BestMatch)
	}
	if result.DiagnosisCount != 2 {
		t.Fatalf("unexpected count: %d", result.DiagnosisCount)
	}
}

func TestAnalyzeStampsPipelineCorrections(t *testing.T) {
	adapter := &fakeAdapter{
		name:   "ark",
		modes:  []provider.Mode{provider.ModeSymptom},
		result: symptomResult("ark", 60),
	}
	svc := inference.NewService([]provider.Adapter{adapter}, testConfig())

	corrected := diagnosis.CorrectedInput{
		OriginalText:     "hedache and nausia",
		CorrectedText:    "headache and nausea",
		DetectedLanguage: "en",
		Interpretations:  []string{"hedache -> headache"},
	}
	result, err := svc.Analyze(context.Background(), corrected)
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}

	got := result.CorrectedSymptoms
	if got == nil {
		t.Fatal("expected corrected symptoms stamped")
	}
	if got.OriginalText != corrected.OriginalText || got.CorrectedText != corrected.CorrectedText {
		t.Fatalf("unexpected corrections: %+v", got)
	}
	if got.DetectedLanguage != "en" || len(got.Interpretations) != 1 {
		t.Fatalf("unexpected correction metadata: %+v", got)
	}
}

func TestConverseReturnsWinningAdapter(t *testing.T) {
	primary := &fakeAdapter{
		name:  "ark",
		modes: []provider.Mode{provider.ModeChat},
		err:   provider.NewError("ark", provider.KindAuth, errors.New("401 unauthorized")),
	}
	secondary := &fakeAdapter{
		name:   "together",
		modes:  []provider.Mode{provider.ModeChat},
		result: &provider.Result{Reply: "Please rest and stay hydrated."},
	}

	svc := inference.NewService([]provider.Adapter{primary, secondary}, config.ProviderConfig{Timeout: 5 * time.Second, Retries: 2})

	reply, name, err := svc.Converse(context.Background(), provider.Request{Text: "I feel feverish"})
	if err != nil {
		t.Fatalf("Converse err: %v", err)
	}
	if reply == "" || name != "together" {
		t.Fatalf("unexpected reply %q from %q", reply, name)
	}
	if primary.calls != 1 {
		t.Fatalf("auth failures must not retry, got %d calls", primary.calls)
	}
}

func TestTimeoutIsRetriedThenFallsBack(t *testing.T) {
	flaky := &fakeAdapter{
		name:  "ark",
		modes: []provider.Mode{provider.ModeSymptom},
		err:   provider.NewError("ark", provider.KindTimeout, context.DeadlineExceeded),
	}
	steady := &fakeAdapter{
		name:   "local",
		modes:  []provider.Mode{provider.ModeSymptom},
		result: symptomResult("local", 50),
	}

	svc := inference.NewService([]provider.Adapter{flaky, steady}, config.ProviderConfig{Timeout: 5 * time.Second, Retries: 1})

	result, err := svc.Analyze(context.Background(), diagnosis.CorrectedInput{CorrectedText: "fever"})
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if flaky.calls != 2 {
		t.Fatalf("expected one retry on timeout, got %d calls", flaky.calls)
	}
	if result.AnalysisMethod != "local" {
		t.Fatalf("expected local fallback, got %s", result.AnalysisMethod)
	}
}

func TestAnalyzeExhausted(t *testing.T) {
	broken := &fakeAdapter{
		name:  "ark",
		modes: []provider.Mode{provider.ModeSymptom},
		err:   provider.NewError("ark", provider.KindUnreachable, errors.New("down")),
	}
	svc := inference.NewService([]provider.Adapter{broken}, testConfig())

	_, err := svc.Analyze(context.Background(), diagnosis.CorrectedInput{CorrectedText: "fever"})
	if !errors.Is(err, inference.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestDescribeWithoutVisionAdapter(t *testing.T) {
	textOnly := &fakeAdapter{name: "local", modes: []provider.Mode{provider.ModeSymptom, provider.ModeChat}}
	svc := inference.NewService([]provider.Adapter{textOnly}, testConfig())

	if svc.VisionCapable() {
		t.Fatal("expected no vision capability")
	}
	_, err := svc.Describe(context.Background(), provider.Request{})
	if !errors.Is(err, inference.ErrNoVisionAdapter) {
		t.Fatalf("expected ErrNoVisionAdapter, got %v", err)
	}
}

func TestConverseStreamUnavailableWithoutStreamers(t *testing.T) {
	plain := &fakeAdapter{
		name:   "local",
		modes:  []provider.Mode{provider.ModeChat},
		result: &provider.Result{Reply: "hello"},
	}
	svc := inference.NewService([]provider.Adapter{plain}, testConfig())

	_, _, err := svc.ConverseStream(context.Background(), provider.Request{Text: "hi"})
	if !errors.Is(err, inference.ErrStreamingUnavailable) {
		t.Fatalf("expected ErrStreamingUnavailable, got %v", err)
	}
}
