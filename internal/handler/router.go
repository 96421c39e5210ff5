package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/handler/analyze"
	"github.com/zhouzirui/z-clinic/backend/internal/handler/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/handler/stream"
	"github.com/zhouzirui/z-clinic/backend/internal/handler/system"
	"github.com/zhouzirui/z-clinic/backend/internal/handler/vision"
	middlewarePkg "github.com/zhouzirui/z-clinic/backend/internal/middleware"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	chatservice "github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	languageservice "github.com/zhouzirui/z-clinic/backend/internal/service/language"
	"github.com/zhouzirui/z-clinic/backend/internal/service/recommend"
	reportservice "github.com/zhouzirui/z-clinic/backend/internal/service/report"
	visionservice "github.com/zhouzirui/z-clinic/backend/internal/service/vision"
)

// Services carries the wired core services the router exposes.
type Services struct {
	Language      *languageservice.Service
	Inference     *inference.Service
	Recommend     *recommend.Service
	Chat          *chatservice.Service
	Vision        *visionservice.Service
	Report        *reportservice.Service
	Locales       locale.Store
	Analysis      config.AnalysisConfig
	StreamEnabled bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svcs Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	analyzeHandler := analyze.New(svcs.Language, svcs.Inference, svcs.Recommend, svcs.Analysis)
	chatHandler := chat.New(svcs.Chat, svcs.Inference, svcs.Report)
	wsHandler := chat.NewWebSocketHandler(svcs.Chat, svcs.Inference, svcs.StreamEnabled)
	streamHandler := stream.New(svcs.Chat, svcs.Inference, svcs.StreamEnabled)
	systemHandler := system.New(svcs.Inference, svcs.Chat, svcs.Locales)

	r.Route("/api", func(api chi.Router) {
		analyzeHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
		streamHandler.RegisterRoutes(api)
		systemHandler.RegisterRoutes(api)

		// Register image routes if the vision service is available
		if svcs.Vision != nil {
			visionHandler := vision.New(svcs.Vision)
			visionHandler.RegisterRoutes(api)
		}
	})

	return r
}
