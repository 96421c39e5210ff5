// Package system 暴露健康检查与语言目录接口。
package system

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	chatservice "github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	"github.com/zhouzirui/z-clinic/backend/pkg/utils"
)

// Handler 处理健康检查与语言目录
type Handler struct {
	inference *inference.Service
	chatSvc   *chatservice.Service
	locales   locale.Store
}

// New 创建系统处理器
func New(inferenceSvc *inference.Service, chatSvc *chatservice.Service, locales locale.Store) *Handler {
	return &Handler{
		inference: inferenceSvc,
		chatSvc:   chatSvc,
		locales:   locales,
	}
}

// RegisterRoutes 注册系统路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/languages", h.handleLanguages)
}

type healthResponse struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	Providers      []string `json:"providers"`
	Vision         bool     `json:"vision"`
	ActiveSessions int      `json:"active_sessions"`
}

type languagesResponse struct {
	Success   bool            `json:"success"`
	Languages []locale.Locale `json:"languages"`
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		Message:        "Medical Symptoms-to-Diagnosis Agent is running",
		Providers:      h.inference.AdapterNames(),
		Vision:         h.inference.VisionCapable(),
		ActiveSessions: h.chatSvc.Count(),
	})
}

// handleLanguages 列出支持的语言
func (h *Handler) handleLanguages(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, languagesResponse{
		Success:   true,
		Languages: h.locales.List(),
	})
}
