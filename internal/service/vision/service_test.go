package vision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
)

type stubAnalyzer struct {
	capable bool
	result  *vision.Result
	err     error
	calls   int
	lastReq provider.Request
}

func (a *stubAnalyzer) VisionCapable() bool {
	return a.capable
}

func (a *stubAnalyzer) Describe(_ context.Context, req provider.Request) (*vision.Result, error) {
	a.calls++
	a.lastReq = req
	return a.result, a.err
}

type recordedTurn struct {
	sessionID string
	text      string
	language  string
}

type recordingStore struct {
	userTurns      []recordedTurn
	assistantTurns []recordedTurn
	err            error
}

func (s *recordingStore) AppendUserTurn(sessionID, text, language string) (chat.Session, error) {
	if s.err != nil {
		return chat.Session{}, s.err
	}
	s.userTurns = append(s.userTurns, recordedTurn{sessionID, text, language})
	return chat.Session{ID: sessionID}, nil
}

func (s *recordingStore) AppendAssistantTurn(sessionID, text, language string) (chat.Session, error) {
	if s.err != nil {
		return chat.Session{}, s.err
	}
	s.assistantTurns = append(s.assistantTurns, recordedTurn{sessionID, text, language})
	return chat.Session{ID: sessionID}, nil
}

type stubDetector struct {
	code string
	ok   bool
}

func (d stubDetector) Detect(string) (string, bool) {
	return d.code, d.ok
}

func TestValidateRejectsEmptyUpload(t *testing.T) {
	svc := NewService(&stubAnalyzer{capable: true}, nil, nil, config.ImageConfig{})

	err := svc.Validate(&vision.ImageRequest{Filename: "scan.png"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonEmptyInput {
		t.Fatalf("want empty_input rejection, got %v", err)
	}
	if verr.Message != "No image file provided" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestValidateChecksFormatBeforeSize(t *testing.T) {
	svc := NewService(&stubAnalyzer{capable: true}, nil, nil, config.ImageConfig{MaxBytes: 1 << 20})

	// Oversized and misnamed at once: the format problem wins.
	req := &vision.ImageRequest{
		Data:     make([]byte, 2<<20),
		Filename: "malware.exe",
		MIMEType: "application/octet-stream",
	}
	err := svc.Validate(req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonUnsupportedFormat {
		t.Fatalf("want unsupported_format rejection, got %v", err)
	}
	if verr.Message != "Invalid image format. Please upload a valid image file." {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestValidateRejectsOversizedUpload(t *testing.T) {
	svc := NewService(&stubAnalyzer{capable: true}, nil, nil, config.ImageConfig{MaxBytes: 1 << 20})

	req := &vision.ImageRequest{
		Data:     make([]byte, 1<<20+1),
		Filename: "scan.jpg",
		MIMEType: "image/jpeg",
	}
	err := svc.Validate(req)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonTooLarge {
		t.Fatalf("want too_large rejection, got %v", err)
	}
	if verr.Message != "Image file is too large. Maximum size is 1MB" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestValidateNormalizesMIMEType(t *testing.T) {
	svc := NewService(&stubAnalyzer{capable: true}, nil, nil, config.ImageConfig{})

	cases := []struct {
		name     string
		mimeType string
		filename string
		want     string
	}{
		{"jpg alias", "image/jpg", "a.jpg", "image/jpeg"},
		{"parameters stripped", "image/png; charset=binary", "a.png", "image/png"},
		{"uppercase", "IMAGE/WEBP", "a.webp", "image/webp"},
		{"extension fallback", "", "photo.PNG", "image/png"},
		{"octet-stream defers to extension", "application/octet-stream", "scan.tiff", "image/tiff"},
	}
	for _, tc := range cases {
		req := &vision.ImageRequest{Data: []byte("img"), MIMEType: tc.mimeType, Filename: tc.filename}
		if err := svc.Validate(req); err != nil {
			t.Fatalf("%s: unexpected rejection: %v", tc.name, err)
		}
		if req.MIMEType != tc.want {
			t.Fatalf("%s: normalized to %q, want %q", tc.name, req.MIMEType, tc.want)
		}
	}
}

func TestDefaultSizeLimit(t *testing.T) {
	svc := NewService(&stubAnalyzer{capable: true}, nil, nil, config.ImageConfig{})
	if svc.MaxBytes() != 10<<20 {
		t.Fatalf("default limit = %d, want 10MB", svc.MaxBytes())
	}
}

func TestAnalyzeRejectsBeforeDispatch(t *testing.T) {
	analyzer := &stubAnalyzer{capable: true}
	svc := NewService(analyzer, nil, nil, config.ImageConfig{MaxBytes: 1 << 20})

	_, err := svc.Analyze(context.Background(), vision.ImageRequest{
		Data:     make([]byte, 1<<20+1),
		Filename: "scan.jpg",
	})
	if err == nil {
		t.Fatal("oversized upload must be rejected")
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer called %d times before validation passed", analyzer.calls)
	}
}

func TestAnalyzeDegradesWithoutVisionAdapter(t *testing.T) {
	analyzer := &stubAnalyzer{capable: false}
	store := &recordingStore{}
	svc := NewService(analyzer, store, nil, config.ImageConfig{})

	result, err := svc.Analyze(context.Background(), vision.ImageRequest{
		Data:      []byte("img"),
		Filename:  "scan.png",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if analyzer.calls != 0 {
		t.Fatal("incapable analyzer must not be dispatched to")
	}
	if result.AnalysisMethod != "unavailable" {
		t.Fatalf("analysis method = %q", result.AnalysisMethod)
	}
	if len(result.Recommendations) == 0 || result.Recommendations[0] != "Please use text-based symptom analysis instead" {
		t.Fatalf("unexpected recommendations %v", result.Recommendations)
	}
	if result.DetectedLanguage != "en" {
		t.Fatalf("detected language = %q", result.DetectedLanguage)
	}
	// The folded reply falls back to asking for a text description.
	if len(store.assistantTurns) != 1 || !strings.HasPrefix(store.assistantTurns[0].text, "I've analyzed your image") {
		t.Fatalf("unexpected assistant turns %v", store.assistantTurns)
	}
}

func TestAnalyzeFoldsExchangeIntoSession(t *testing.T) {
	analyzer := &stubAnalyzer{
		capable: true,
		result: &vision.Result{
			AnalysisMethod: "ark",
			Summary:        "posible infección de la herida",
			Findings: vision.Findings{
				VisualFindings: []string{"Área enrojecida e inflamada"},
				PotentialConditions: []diagnosis.Diagnosis{{
					Condition:   "Celulitis",
					Confidence:  70,
					Severity:    diagnosis.SeverityModerate,
					Description: "Infección bacteriana de la piel",
				}},
				ImmediateActions: []string{"Fiebre alta"},
			},
			Recommendations: []string{"Mantenga la zona limpia"},
		},
	}
	store := &recordingStore{}
	svc := NewService(analyzer, store, stubDetector{code: "es", ok: true}, config.ImageConfig{})

	result, err := svc.Analyze(context.Background(), vision.ImageRequest{
		Data:      []byte("img"),
		Filename:  "herida.jpg",
		Question:  "¿está infectado?",
		SessionID: "sess-7",
	})
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if result.DetectedLanguage != "es" {
		t.Fatalf("detected language = %q", result.DetectedLanguage)
	}
	if analyzer.lastReq.Mode != provider.ModeVision || analyzer.lastReq.Language != "es" {
		t.Fatalf("unexpected dispatch request %+v", analyzer.lastReq)
	}
	if analyzer.lastReq.Image == nil || analyzer.lastReq.Image.MIMEType != "image/jpeg" {
		t.Fatalf("image not forwarded with normalized type: %+v", analyzer.lastReq.Image)
	}

	if len(store.userTurns) != 1 || len(store.assistantTurns) != 1 {
		t.Fatalf("want one exchange, got %d/%d turns", len(store.userTurns), len(store.assistantTurns))
	}
	user := store.userTurns[0]
	if user.sessionID != "sess-7" || user.language != "es" || user.text != "[Image Upload] ¿está infectado?" {
		t.Fatalf("unexpected user turn %+v", user)
	}
	reply := store.assistantTurns[0].text
	for _, want := range []string{
		"su pregunta sobre posible infección de la herida",
		"Hallazgos visuales:",
		"• Celulitis (Confidence: 70%, Severity: moderate)",
		"  Infección bacteriana de la piel",
		"⚠️ URGENTE",
	} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply missing %q:\n%s", want, reply)
		}
	}
	if !strings.HasSuffix(reply, "Por favor, consulte a un profesional de la salud para un diagnóstico y tratamiento adecuados.") {
		t.Fatalf("reply must end with the consult line:\n%s", reply)
	}
}

func TestAnalyzeWithoutQuestionUsesPlaceholder(t *testing.T) {
	analyzer := &stubAnalyzer{
		capable: true,
		result: &vision.Result{
			AnalysisMethod: "ark",
			Findings:       vision.Findings{VisualFindings: []string{"Mild redness"}},
		},
	}
	store := &recordingStore{}
	svc := NewService(analyzer, store, stubDetector{code: "es", ok: true}, config.ImageConfig{})

	if _, err := svc.Analyze(context.Background(), vision.ImageRequest{
		Data:      []byte("img"),
		Filename:  "scan.png",
		SessionID: "sess-2",
	}); err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if store.userTurns[0].text != "[Image Upload] Medical image uploaded" {
		t.Fatalf("unexpected user turn %q", store.userTurns[0].text)
	}
	// Without a question there is nothing to detect a language from.
	if store.userTurns[0].language != "en" {
		t.Fatalf("language = %q, want en", store.userTurns[0].language)
	}
}

func TestAnalyzeSurvivesSessionWriteFailure(t *testing.T) {
	analyzer := &stubAnalyzer{
		capable: true,
		result: &vision.Result{
			AnalysisMethod: "ark",
			Findings:       vision.Findings{VisualFindings: []string{"Mild redness"}},
		},
	}
	store := &recordingStore{err: errors.New("session not found")}
	svc := NewService(analyzer, store, nil, config.ImageConfig{})

	result, err := svc.Analyze(context.Background(), vision.ImageRequest{
		Data:      []byte("img"),
		Filename:  "scan.png",
		SessionID: "gone",
	})
	if err != nil || result == nil {
		t.Fatalf("analysis must survive a session write failure: %v", err)
	}
}

func TestAnalyzePropagatesDispatchFailure(t *testing.T) {
	analyzer := &stubAnalyzer{capable: true, err: errors.New("upstream down")}
	svc := NewService(analyzer, nil, nil, config.ImageConfig{})

	if _, err := svc.Analyze(context.Background(), vision.ImageRequest{
		Data:     []byte("img"),
		Filename: "scan.png",
	}); err == nil {
		t.Fatal("dispatch failure must surface")
	}
}

func TestComposeReplySectionOrder(t *testing.T) {
	result := &vision.Result{
		Findings: vision.Findings{
			VisualFindings:      []string{"Localized swelling"},
			PotentialConditions: []diagnosis.Diagnosis{{Condition: "Sprain", Confidence: 60, Severity: diagnosis.SeverityLow}},
			ImmediateActions:    []string{"Severe pain"},
		},
		Recommendations: []string{"Rest and elevate"},
	}

	reply := composeReply(result, "en")
	if !strings.HasPrefix(reply, "Based on my analysis of your image, here's what I found:") {
		t.Fatalf("unexpected intro:\n%s", reply)
	}
	order := []string{"Visual findings:", "Potential conditions identified:", "Recommendations:", "⚠️ URGENT"}
	last := -1
	for _, section := range order {
		idx := strings.Index(reply, section)
		if idx < 0 || idx < last {
			t.Fatalf("section %q missing or out of order:\n%s", section, reply)
		}
		last = idx
	}
}

func TestComposeReplyUnknownLanguageFallsBackToEnglish(t *testing.T) {
	result := &vision.Result{
		Findings: vision.Findings{VisualFindings: []string{"Mild redness"}},
	}
	reply := composeReply(result, "de")
	if !strings.Contains(reply, "Visual findings:") {
		t.Fatalf("unsupported language must fall back to English:\n%s", reply)
	}
}

func TestComposeReplyFallbackWhenNoFindings(t *testing.T) {
	result := &vision.Result{Recommendations: []string{"Please use text-based symptom analysis instead"}}
	reply := composeReply(result, "zh")
	if reply != replyTemplates["zh"].fallback {
		t.Fatalf("want zh fallback, got:\n%s", reply)
	}
}
