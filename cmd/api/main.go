package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/handler"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/ark"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/local"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/together"
	"github.com/zhouzirui/z-clinic/backend/internal/service/chat"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	"github.com/zhouzirui/z-clinic/backend/internal/service/language"
	"github.com/zhouzirui/z-clinic/backend/internal/service/recommend"
	"github.com/zhouzirui/z-clinic/backend/internal/service/report"
	"github.com/zhouzirui/z-clinic/backend/internal/service/vision"
	"github.com/zhouzirui/z-clinic/backend/internal/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize locale catalog and chat session store
	localeStore := locale.NewMemoryStore(locale.Seed())
	chatService := chat.NewService(cfg.Session)
	defer chatService.Close()

	// Build the provider chain: Ark first, TogetherAI second, and the local
	// knowledge base as the always-on last resort.
	var adapters []provider.Adapter
	var arkAdapter *ark.Adapter

	if cfg.AI.Enabled() {
		arkAdapter, err = ark.New(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize Ark adapter: %v", err)
			log.Println("continuing without Ark - 请检查 Ark 模型相关环境变量")
		} else {
			adapters = append(adapters, arkAdapter)
			log.Println("Ark adapter initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 Ark 适配器初始化")
	}

	if cfg.Together.Enabled() {
		togetherAdapter, err := together.New(ctx, cfg.Together)
		if err != nil {
			log.Printf("warning: failed to initialize TogetherAI adapter: %v", err)
			log.Println("continuing without TogetherAI - 请检查 Together 相关环境变量")
		} else {
			adapters = append(adapters, togetherAdapter)
			log.Println("TogetherAI adapter initialized successfully")
		}
	} else {
		log.Println("TogetherAI 凭证未配置，跳过 TogetherAI 适配器初始化")
	}

	adapters = append(adapters, local.New())

	inferenceService := inference.NewService(adapters, cfg.Provider)
	log.Printf("inference adapters: %v", inferenceService.AdapterNames())

	// The spelling corrector shares the Ark chat model when one exists.
	var correctorModel model.ChatModel
	if arkAdapter != nil {
		correctorModel = arkAdapter.ChatModel()
	}
	languageService, err := language.NewService(ctx, correctorModel, localeStore)
	if err != nil {
		log.Printf("warning: failed to initialize spelling corrector: %v", err)
		log.Println("continuing with language detection only")
		languageService, _ = language.NewService(ctx, nil, localeStore)
	} else if languageService.CorrectionEnabled() {
		log.Println("Spelling corrector enabled")
	} else {
		log.Println("Spelling corrector disabled, language detection only")
	}

	// Initialize recommendation sources
	fdaClient := source.NewFDAClient(cfg.Sources)
	rxnavClient := source.NewRxNavClient(cfg.Sources)
	ghoClient := source.NewGHOClient(cfg.Sources)
	pubmedClient := source.NewPubMedClient(cfg.Sources)
	recommendService := recommend.NewService(fdaClient, rxnavClient, ghoClient, pubmedClient, cfg.Sources)

	visionService := vision.NewService(inferenceService, chatService, languageService, cfg.Image)
	reportService := report.NewService()

	router := handler.NewRouter(handler.Services{
		Language:      languageService,
		Inference:     inferenceService,
		Recommend:     recommendService,
		Chat:          chatService,
		Vision:        visionService,
		Report:        reportService,
		Locales:       localeStore,
		Analysis:      cfg.Analysis,
		StreamEnabled: cfg.AI.StreamResponse,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Z Clinic backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
