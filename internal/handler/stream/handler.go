package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	chatservice "github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	languageservice "github.com/zhouzirui/z-clinic/backend/internal/service/language"
	"github.com/zhouzirui/z-clinic/backend/pkg/utils"
)

// Handler streams consultation replies via Server-Sent Events
type Handler struct {
	chatSvc       *chatservice.Service
	inference     *inference.Service
	streamEnabled bool
}

// New creates a new stream handler
func New(chatSvc *chatservice.Service, inferenceSvc *inference.Service, streamEnabled bool) *Handler {
	return &Handler{
		chatSvc:       chatSvc,
		inference:     inferenceSvc,
		streamEnabled: streamEnabled,
	}
}

// RegisterRoutes 注册流式对话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	if err := h.streamReply(r.Context(), w, flusher, payload.SessionID, message); err != nil {
		log.Printf("[stream] error handling request: %v", err)
	}
}

func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID, message string) error {
	session, _ := h.chatSvc.Resolve(sessionID)

	detected, _ := languageservice.Detect(message)

	snapshot, err := h.chatSvc.AppendUserTurn(session.ID, message, detected)
	if err != nil {
		h.sendSSEError(w, flusher, "Session not found")
		return fmt.Errorf("save user turn failed: %w", err)
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: session.ID,
	})

	// The snapshot already contains the new user turn; history for the
	// model stops just before it.
	history := snapshot.Turns[:len(snapshot.Turns)-1]

	response, err := h.dispatchReply(ctx, w, flusher, session.ID, provider.Request{
		Text:     message,
		Language: detected,
		History:  history,
	})
	if err != nil {
		h.sendSSEError(w, flusher, "An error occurred while generating a reply. Please try again.")
		return fmt.Errorf("reply generation failed: %w", err)
	}

	if _, err := h.chatSvc.AppendAssistantTurn(session.ID, response, detected); err != nil {
		log.Printf("[stream] save assistant turn failed: %v", err)
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: session.ID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for session=%s language=%s", session.ID, detected)
	return nil
}

func (h *Handler) dispatchReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, req provider.Request) (string, error) {
	if !h.streamEnabled {
		return h.singleReply(ctx, w, flusher, sessionID, req)
	}

	stream, _, err := h.inference.ConverseStream(ctx, req)
	if errors.Is(err, inference.ErrStreamingUnavailable) {
		return h.singleReply(ctx, w, flusher, sessionID, req)
	}
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})

	return response.Content, nil
}

func (h *Handler) singleReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, req provider.Request) (string, error) {
	reply, _, err := h.inference.Converse(ctx, req)
	if err != nil {
		return "", err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply,
	})

	return reply, nil
}

// sendSSE sends a Server-Sent Event
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
