// Package analyze 暴露症状分析入口。
package analyze

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-clinic/backend/internal/analysis/ranking"
	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	languageservice "github.com/zhouzirui/z-clinic/backend/internal/service/language"
	"github.com/zhouzirui/z-clinic/backend/internal/service/recommend"
	"github.com/zhouzirui/z-clinic/backend/pkg/utils"
)

// minSymptomRunes is the shortest input worth sending through the pipeline.
const minSymptomRunes = 3

// Handler 串联语言处理、推理与用药建议三个阶段。
type Handler struct {
	language  *languageservice.Service
	inference *inference.Service
	recommend *recommend.Service
	cfg       config.AnalysisConfig
}

// New 创建症状分析处理器。
func New(languageSvc *languageservice.Service, inferenceSvc *inference.Service, recommendSvc *recommend.Service, cfg config.AnalysisConfig) *Handler {
	return &Handler{
		language:  languageSvc,
		inference: inferenceSvc,
		recommend: recommendSvc,
		cfg:       cfg,
	}
}

// RegisterRoutes 注册症状分析路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)
}

// handleAnalyze 处理一次症状分析请求。
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Symptoms string `json:"symptoms"`
		Language string `json:"language"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symptoms := strings.TrimSpace(payload.Symptoms)
	if msg, ok := h.validateSymptoms(symptoms); !ok {
		utils.RespondError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	corrected := h.language.Process(ctx, symptoms, payload.Language)

	result, err := h.inference.Analyze(ctx, corrected)
	if err != nil {
		log.Printf("[analyze] analysis failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "An error occurred during symptom analysis. Please try again.")
		return
	}

	ranking.Truncate(result, h.cfg.MaxDiagnosesReturned)
	h.recommend.Enrich(ctx, result, h.cfg.MaxRecommendedDiagnoses)

	utils.RespondJSON(w, http.StatusOK, result)
}

// validateSymptoms 检查输入长度边界，返回给用户的提示信息。
func (h *Handler) validateSymptoms(symptoms string) (string, bool) {
	if symptoms == "" {
		return "Please enter your symptoms", false
	}

	runes := utf8.RuneCountInString(symptoms)
	if runes < minSymptomRunes {
		return "Please provide more detailed symptoms", false
	}
	if max := h.cfg.MaxSymptomsLength; max > 0 && runes > max {
		return fmt.Sprintf("Symptoms must be at most %d characters", max), false
	}
	return "", true
}
