// Package vision 负责医学图像的校验、分发与会话集成。
// 图像字节只在单次请求内使用，分析完成后立即丢弃。
package vision

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	"github.com/zhouzirui/z-clinic/backend/internal/model/vision"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
)

// ValidationReason classifies why an upload was rejected.
type ValidationReason string

const (
	ReasonEmptyInput        ValidationReason = "empty_input"
	ReasonUnsupportedFormat ValidationReason = "unsupported_format"
	ReasonTooLarge          ValidationReason = "too_large"
)

// ValidationError rejects an upload before any network work happens.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// supportedExtensions is the published upload whitelist.
var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"}

var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

var supportedMIME = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
	"image/bmp":  "image/bmp",
	"image/tiff": "image/tiff",
	"image/webp": "image/webp",
}

// Analyzer dispatches a vision request to whichever adapter can serve it.
type Analyzer interface {
	VisionCapable() bool
	Describe(ctx context.Context, req provider.Request) (*vision.Result, error)
}

// SessionStore folds an image exchange into an existing conversation.
type SessionStore interface {
	AppendUserTurn(sessionID, text, language string) (chat.Session, error)
	AppendAssistantTurn(sessionID, text, language string) (chat.Session, error)
}

// Detector guesses the language of the accompanying question.
type Detector interface {
	Detect(text string) (string, bool)
}

// Service 校验上传的医学图像并交给视觉适配器分析。
type Service struct {
	inference Analyzer
	sessions  SessionStore
	detector  Detector
	maxBytes  int64
}

// NewService 创建图像分析服务。sessions 与 detector 可为 nil，
// 此时跳过会话集成或语言检测。
func NewService(inference Analyzer, sessions SessionStore, detector Detector, cfg config.ImageConfig) *Service {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Service{
		inference: inference,
		sessions:  sessions,
		detector:  detector,
		maxBytes:  maxBytes,
	}
}

// SupportedFormats returns the accepted file extensions.
func (s *Service) SupportedFormats() []string {
	return append([]string(nil), supportedExtensions...)
}

// MaxBytes returns the upload size ceiling.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// ChatReply renders the findings as the conversational reply shown to the
// patient, in the language the analysis detected.
func (s *Service) ChatReply(result *vision.Result) string {
	return composeReply(result, result.DetectedLanguage)
}

// Validate rejects uploads the analyzers cannot use. Format is checked
// before size, so an oversized .exe reports the format problem. On success
// the request's MIMEType is normalized.
func (s *Service) Validate(req *vision.ImageRequest) error {
	if req.ByteLength() == 0 {
		return &ValidationError{
			Reason:  ReasonEmptyInput,
			Message: "No image file provided",
		}
	}

	mimeType, ok := resolveMIME(req)
	if !ok {
		return &ValidationError{
			Reason:  ReasonUnsupportedFormat,
			Message: "Invalid image format. Please upload a valid image file.",
		}
	}
	req.MIMEType = mimeType

	if int64(req.ByteLength()) > s.maxBytes {
		return &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("Image file is too large. Maximum size is %dMB", s.maxBytes>>20),
		}
	}
	return nil
}

// Analyze validates the upload, dispatches it, and folds the outcome into
// the owning session when one was named. Without a vision-capable adapter a
// degraded result explains the situation instead of failing.
func (s *Service) Analyze(ctx context.Context, req vision.ImageRequest) (*vision.Result, error) {
	if err := s.Validate(&req); err != nil {
		return nil, err
	}

	language := locale.DefaultCode
	if s.detector != nil && strings.TrimSpace(req.Question) != "" {
		if code, ok := s.detector.Detect(req.Question); ok {
			language = code
		}
	}

	var result *vision.Result
	if !s.inference.VisionCapable() {
		result = degradedResult()
	} else {
		var err error
		result, err = s.inference.Describe(ctx, provider.Request{
			Mode:     provider.ModeVision,
			Text:     req.Question,
			Language: language,
			Image:    &req,
		})
		if err != nil {
			return nil, err
		}
	}
	result.DetectedLanguage = language

	if req.SessionID != "" && s.sessions != nil {
		s.foldIntoSession(req.SessionID, req.Question, result, language)
	}
	return result, nil
}

// foldIntoSession 把图像上传与分析回复写成一轮对话。写入失败只记日志，
// 不影响分析结果返回。
func (s *Service) foldIntoSession(sessionID, question string, result *vision.Result, language string) {
	upload := "Medical image uploaded"
	if q := strings.TrimSpace(question); q != "" {
		upload = q
	}
	if _, err := s.sessions.AppendUserTurn(sessionID, "[Image Upload] "+upload, language); err != nil {
		log.Printf("[vision] session %s user turn rejected: %v", sessionID, err)
		return
	}
	if _, err := s.sessions.AppendAssistantTurn(sessionID, composeReply(result, language), language); err != nil {
		log.Printf("[vision] session %s assistant turn rejected: %v", sessionID, err)
	}
}

func degradedResult() *vision.Result {
	return &vision.Result{
		AnalysisMethod: "unavailable",
		Summary:        "No vision-capable provider is configured for image analysis.",
		Recommendations: []string{
			"Please use text-based symptom analysis instead",
		},
		Warnings: []string{
			"Always consult healthcare professionals for accurate diagnosis",
		},
	}
}

// resolveMIME normalizes the declared content type, falling back to the
// filename extension when the type is missing.
func resolveMIME(req *vision.ImageRequest) (string, bool) {
	declared := strings.ToLower(strings.TrimSpace(req.MIMEType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		canonical, ok := supportedMIME[declared]
		return canonical, ok
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	canonical, ok := extensionMIME[ext]
	return canonical, ok
}
