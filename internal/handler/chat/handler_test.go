package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/local"
	chatservice "github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	reportservice "github.com/zhouzirui/z-clinic/backend/internal/service/report"
)

func setupRouter(t *testing.T, reportSvc *reportservice.Service) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	chatSvc := chatservice.NewService(config.SessionConfig{})
	t.Cleanup(chatSvc.Close)

	inferenceSvc := inference.NewService([]provider.Adapter{local.New()}, config.ProviderConfig{})

	handler := New(chatSvc, inferenceSvc, reportSvc)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func postChat(t *testing.T, r *chi.Mux, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeChatResponse(t *testing.T, resp *httptest.ResponseRecorder) chatResponse {
	t.Helper()

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode chat response: %v", err)
	}
	return out
}

func TestChatRequiresMessage(t *testing.T) {
	r, _ := setupRouter(t, nil)

	resp := postChat(t, r, map[string]string{"message": "   "})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatCreatesSessionAndReplies(t *testing.T) {
	r, _ := setupRouter(t, nil)

	out := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message": "I have a pounding headache and feel dizzy",
	}))

	if out.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if out.Response == "" {
		t.Fatal("expected a non-empty reply")
	}
	if out.DetectedLanguage != "en" {
		t.Fatalf("expected English detection, got %q", out.DetectedLanguage)
	}
	if out.State != string(chat.StateIdle) {
		t.Fatalf("expected idle state after a full exchange, got %q", out.State)
	}
}

func TestChatContinuesSession(t *testing.T) {
	r, _ := setupRouter(t, nil)

	first := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message": "I have had a sore throat and a runny nose since Monday",
	}))

	second := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message":    "The sore throat is getting worse at night",
		"session_id": first.SessionID,
	}))
	if second.SessionID != first.SessionID {
		t.Fatalf("expected session %s to continue, got %s", first.SessionID, second.SessionID)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+first.SessionID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var info sessionInfoResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode session info: %v", err)
	}
	if info.TurnCount != 4 {
		t.Fatalf("expected 4 turns, got %d", info.TurnCount)
	}
	if info.DetectedLanguage != "en" {
		t.Fatalf("expected remembered language en, got %q", info.DetectedLanguage)
	}
}

func TestChatUnknownSessionStartsFresh(t *testing.T) {
	r, _ := setupRouter(t, nil)

	out := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message":    "I feel short of breath when climbing stairs",
		"session_id": "gone-for-good",
	}))

	if out.SessionID == "" || out.SessionID == "gone-for-good" {
		t.Fatalf("expected a fresh session id, got %q", out.SessionID)
	}
}

func TestSessionInfoNotFound(t *testing.T) {
	r, _ := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/does-not-exist", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestTranscriptExport(t *testing.T) {
	r, _ := setupRouter(t, nil)

	out := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message": "My lower back hurts after lifting boxes",
	}))

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+out.SessionID+"/transcript", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		SessionID string      `json:"session_id"`
		Turns     []chat.Turn `json:"turns"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if payload.SessionID != out.SessionID {
		t.Fatalf("expected session %s, got %s", out.SessionID, payload.SessionID)
	}
	if len(payload.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(payload.Turns))
	}
	if payload.Turns[0].Speaker != chat.SpeakerUser || payload.Turns[1].Speaker != chat.SpeakerAssistant {
		t.Fatalf("unexpected speaker order: %s, %s", payload.Turns[0].Speaker, payload.Turns[1].Speaker)
	}
}

func TestReportUnavailableWithoutService(t *testing.T) {
	r, _ := setupRouter(t, nil)

	out := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message": "I get heartburn after every meal",
	}))

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+out.SessionID+"/report", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestReportDownload(t *testing.T) {
	r, _ := setupRouter(t, reportservice.NewService())

	out := decodeChatResponse(t, postChat(t, r, map[string]string{
		"message": "I have an itchy rash on both arms",
	}))

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/"+out.SessionID+"/report", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code == http.StatusServiceUnavailable {
		t.Skip("no usable font on this host")
	}
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "consultation-"+out.SessionID) {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF body")
	}
}
