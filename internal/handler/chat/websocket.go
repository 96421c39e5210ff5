package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	chatservice "github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	languageservice "github.com/zhouzirui/z-clinic/backend/internal/service/language"
)

// WebSocketHandler WebSocket实时问诊处理器
type WebSocketHandler struct {
	chatSvc       *chatservice.Service
	inference     *inference.Service
	streamEnabled bool
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, inferenceSvc *inference.Service, streamEnabled bool) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:       chatSvc,
		inference:     inferenceSvc,
		streamEnabled: streamEnabled,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage 配置消息
type ConfigMessage struct {
	Language string `json:"language"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	sessionID string
	// language is the client-declared code, used when detection on a
	// single message is unreliable.
	language string
}

func newConnectionState(session chat.Session) *connectionState {
	return &connectionState{
		sessionID: session.ID,
		language:  session.LastDetectedLanguage,
	}
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if h.chatSvc == nil {
		http.Error(w, "chat service unavailable", http.StatusServiceUnavailable)
		return
	}

	session, err := h.chatSvc.Info(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	state := newConnectionState(session)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.sendInfo(conn, sessionID, map[string]any{
		"type":     "connected",
		"state":    session.State,
		"language": state.language,
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(conn, "session mismatch")
				continue
			}

			h.handleMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "config":
		h.handleConfigMessage(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}
	if text.Text == "" {
		return
	}

	if err := h.processUserText(ctx, conn, state, text.Text); err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *WebSocketHandler) processUserText(ctx context.Context, conn *websocket.Conn, state *connectionState, userText string) error {
	if h.inference == nil {
		return errors.New("inference service unavailable")
	}

	language := h.resolveLanguage(state, userText)

	session, err := h.chatSvc.AppendUserTurn(state.sessionID, userText, language)
	if err != nil {
		return fmt.Errorf("save user turn failed: %w", err)
	}

	h.sendInfo(conn, state.sessionID, map[string]any{
		"type":     "user",
		"text":     userText,
		"language": language,
	})

	// The snapshot already contains the new user turn; history for the
	// model stops just before it.
	history := session.Turns[:len(session.Turns)-1]

	responseText, err := h.generateReply(ctx, conn, state, provider.Request{
		Text:     userText,
		Language: language,
		History:  history,
	})
	if err != nil {
		return err
	}

	if _, err := h.chatSvc.AppendAssistantTurn(state.sessionID, responseText, language); err != nil {
		log.Printf("[websocket] save assistant turn failed: %v", err)
	}

	return nil
}

// resolveLanguage 按消息检测语言，检测不可靠时回退到客户端声明的语言。
func (h *WebSocketHandler) resolveLanguage(state *connectionState, userText string) string {
	code, reliable := languageservice.Detect(userText)
	if !reliable && state.language != "" {
		return state.language
	}
	return code
}

func (h *WebSocketHandler) generateReply(ctx context.Context, conn *websocket.Conn, state *connectionState, req provider.Request) (string, error) {
	if !h.streamEnabled {
		return h.generateSingleReply(ctx, conn, state, req)
	}

	stream, _, err := h.inference.ConverseStream(ctx, req)
	if errors.Is(err, inference.ErrStreamingUnavailable) {
		return h.generateSingleReply(ctx, conn, state, req)
	}
	if err != nil {
		return "", fmt.Errorf("reply streaming failed: %w", err)
	}
	defer stream.Close()

	var chunks []*schema.Message
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("reply stream recv failed: %w", recvErr)
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendInfo(conn, state.sessionID, map[string]any{
				"type": "ai_delta",
				"text": chunk.Content,
			})
		}
	}

	merged, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("concat reply chunks failed: %w", err)
	}

	text := merged.Content
	h.sendInfo(conn, state.sessionID, map[string]any{
		"type":    "ai",
		"text":    text,
		"isFinal": true,
	})

	return text, nil
}

func (h *WebSocketHandler) generateSingleReply(ctx context.Context, conn *websocket.Conn, state *connectionState, req provider.Request) (string, error) {
	reply, _, err := h.inference.Converse(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}

	h.sendInfo(conn, state.sessionID, map[string]any{
		"type":    "ai",
		"text":    reply,
		"isFinal": true,
	})

	return reply, nil
}

func (h *WebSocketHandler) handleConfigMessage(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}

	if cfg.Language != "" {
		state.language = locale.Normalize(cfg.Language)
	}

	log.Printf("[websocket] config applied session=%s language=%s", state.sessionID, state.language)

	h.sendInfo(conn, state.sessionID, map[string]any{
		"type":     "config",
		"language": state.language,
	})
}

func (h *WebSocketHandler) sendInfo(conn *websocket.Conn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write info failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
