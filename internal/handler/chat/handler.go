// Package chat 暴露问诊会话的 REST 接口。
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	chatservice "github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	languageservice "github.com/zhouzirui/z-clinic/backend/internal/service/language"
	reportservice "github.com/zhouzirui/z-clinic/backend/internal/service/report"
	"github.com/zhouzirui/z-clinic/backend/pkg/utils"
)

// Handler 处理问诊对话与会话查询。
type Handler struct {
	chatSvc   *chatservice.Service
	inference *inference.Service
	report    *reportservice.Service
}

// New 创建问诊处理器。report 可为 nil，此时报告下载返回 503。
func New(chatSvc *chatservice.Service, inferenceSvc *inference.Service, reportSvc *reportservice.Service) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		inference: inferenceSvc,
		report:    reportSvc,
	}
}

// RegisterRoutes 注册会话相关的路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/sessions/{sessionID}", h.handleSessionInfo)
	r.Get("/chat/sessions/{sessionID}/transcript", h.handleTranscript)
	r.Get("/chat/sessions/{sessionID}/report", h.handleReport)
}

type chatResponse struct {
	Response         string `json:"response"`
	SessionID        string `json:"session_id"`
	DetectedLanguage string `json:"detected_language"`
	State            string `json:"state"`
}

// handleChat 处理一轮对话：登记用户发言，生成医生回复，再落回会话。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	session, _ := h.chatSvc.Resolve(payload.SessionID)
	detected, _ := languageservice.Detect(message)

	session, err := h.chatSvc.AppendUserTurn(session.ID, message, detected)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	// The snapshot already contains the new user turn; history for the model
	// stops just before it.
	history := session.Turns[:len(session.Turns)-1]

	reply, _, err := h.inference.Converse(r.Context(), provider.Request{
		Text:     message,
		Language: detected,
		History:  history,
	})
	if err != nil {
		log.Printf("[chat] reply generation failed session=%s: %v", session.ID, err)
		utils.RespondError(w, http.StatusInternalServerError, "An error occurred while generating a reply. Please try again.")
		return
	}

	state := session.State
	if snapshot, err := h.chatSvc.AppendAssistantTurn(session.ID, reply, detected); err != nil {
		log.Printf("[chat] failed to record assistant turn session=%s: %v", session.ID, err)
	} else {
		state = snapshot.State
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Response:         reply,
		SessionID:        session.ID,
		DetectedLanguage: detected,
		State:            string(state),
	})
}

type sessionInfoResponse struct {
	SessionID        string     `json:"session_id"`
	State            chat.State `json:"state"`
	CreatedAt        time.Time  `json:"created_at"`
	LastActiveAt     time.Time  `json:"last_active_at"`
	TurnCount        int        `json:"turn_count"`
	DetectedLanguage string     `json:"detected_language,omitempty"`
}

// handleSessionInfo 返回会话元数据，不含对话内容。
func (h *Handler) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionInfoResponse{
		SessionID:        session.ID,
		State:            session.State,
		CreatedAt:        session.CreatedAt,
		LastActiveAt:     session.LastActiveAt,
		TurnCount:        session.TurnCount(),
		DetectedLanguage: session.LastDetectedLanguage,
	})
}

// handleTranscript 导出完整对话记录。
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.chatSvc.Transcript(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// handleReport 把会话渲染成 PDF 下载。
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	if h.report == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "Report generation is not available")
		return
	}

	data, err := h.report.Transcript(session)
	if errors.Is(err, reportservice.ErrFontUnavailable) {
		utils.RespondError(w, http.StatusServiceUnavailable, "Report generation is not available on this host")
		return
	}
	if err != nil {
		log.Printf("[chat] report rendering failed session=%s: %v", session.ID, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to render session report")
		return
	}

	utils.RespondPDF(w, fmt.Sprintf("consultation-%s.pdf", session.ID), data)
}

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (chat.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.Info(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return chat.Session{}, false
	}
	return session, true
}
