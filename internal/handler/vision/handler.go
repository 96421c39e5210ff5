// Package vision 暴露医学图像分析的 REST 接口。
package vision

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
	visionservice "github.com/zhouzirui/z-clinic/backend/internal/service/vision"
	"github.com/zhouzirui/z-clinic/backend/pkg/utils"
)

// Handler 处理图像上传与格式查询。
type Handler struct {
	svc *visionservice.Service
}

// New 创建图像处理器
func New(svc *visionservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册图像路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/image/analyze", h.handleAnalyze)
	r.Get("/image/formats", h.handleFormats)
}

type analyzeResponse struct {
	ChatResponse     string         `json:"chat_response"`
	SessionID        string         `json:"session_id,omitempty"`
	DetectedLanguage string         `json:"detected_language"`
	Findings         *vision.Result `json:"findings"`
}

type formatsResponse struct {
	Success          bool     `json:"success"`
	SupportedFormats []string `json:"supported_formats"`
	MaxFileSizeMB    int64    `json:"max_file_size_mb"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	// Read one byte past the ceiling so oversized uploads keep the exact
	// size error instead of a silent truncation.
	data, err := io.ReadAll(io.LimitReader(file, h.svc.MaxBytes()+1))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to read image upload")
		return
	}

	req := vision.ImageRequest{
		Data:      data,
		MIMEType:  header.Header.Get("Content-Type"),
		Filename:  header.Filename,
		Question:  r.FormValue("question"),
		SessionID: r.FormValue("session_id"),
	}

	result, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		var verr *visionservice.ValidationError
		if errors.As(err, &verr) {
			utils.RespondError(w, http.StatusBadRequest, verr.Message)
			return
		}
		log.Printf("[vision] analyze failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "An error occurred during image analysis. Please try again.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, analyzeResponse{
		ChatResponse:     h.svc.ChatReply(result),
		SessionID:        req.SessionID,
		DetectedLanguage: result.DetectedLanguage,
		Findings:         result,
	})
}

func (h *Handler) handleFormats(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, formatsResponse{
		Success:          true,
		SupportedFormats: h.svc.SupportedFormats(),
		MaxFileSizeMB:    h.svc.MaxBytes() >> 20,
	})
}
