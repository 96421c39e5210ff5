package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Together TogetherConfig
	Provider ProviderConfig
	Sources  SourceConfig
	Analysis AnalysisConfig
	Session  SessionConfig
	Image    ImageConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	together, err := loadTogetherConfig()
	if err != nil {
		return nil, err
	}

	provider, err := loadProviderConfig()
	if err != nil {
		return nil, err
	}

	sources, err := loadSourceConfig()
	if err != nil {
		return nil, err
	}

	analysis, err := loadAnalysisConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	image, err := loadImageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Together: together,
		Provider: provider,
		Sources:  sources,
		Analysis: analysis,
		Session:  session,
		Image:    image,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述首选大模型（Ark）相关配置。
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	VisionModel    string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// VisionEnabled 表示是否可以处理图像请求。
func (c AIConfig) VisionEnabled() bool {
	return c.Enabled() && c.VisionModel != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	return c.newModel(ctx, c.Model)
}

// NewVisionModel 创建处理图像输入的模型实例。
func (c AIConfig) NewVisionModel(ctx context.Context) (model.ChatModel, error) {
	if !c.VisionEnabled() {
		return nil, fmt.Errorf("vision model not configured, set ARK_VISION_MODEL")
	}
	return c.newModel(ctx, c.VisionModel)
}

func (c AIConfig) newModel(ctx context.Context, modelID string) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       modelID,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	modelID := strings.TrimSpace(os.Getenv("Model"))

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          modelID,
		VisionModel:    getEnvOrDefault("ARK_VISION_MODEL", modelID),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
	}, nil
}

// TogetherConfig 描述备用模型（TogetherAI，OpenAI 兼容接口）相关配置。
type TogetherConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float32
	MaxTokens   *int
}

// Enabled 表示备用模型是否可用。
func (c TogetherConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c TogetherConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("TogetherAI 配置缺失，需要 TOGETHER_API_KEY 与 TOGETHER_MODEL")
	}

	cfg := &openai.ChatModelConfig{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}

	return openai.NewChatModel(ctx, cfg)
}

func loadTogetherConfig() (TogetherConfig, error) {
	temperature, err := parseOptionalFloat32Env("TOGETHER_TEMPERATURE")
	if err != nil {
		return TogetherConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("TOGETHER_MAX_TOKENS")
	if err != nil {
		return TogetherConfig{}, err
	}

	return TogetherConfig{
		APIKey:      strings.TrimSpace(os.Getenv("TOGETHER_API_KEY")),
		Model:       getEnvOrDefault("TOGETHER_MODEL", "meta-llama/Llama-3.3-70B-Instruct-Turbo"),
		BaseURL:     getEnvOrDefault("TOGETHER_BASE_URL", "https://api.together.xyz/v1"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// ProviderConfig 描述模型调用链的公共参数。
type ProviderConfig struct {
	Timeout time.Duration
	Retries int
}

func loadProviderConfig() (ProviderConfig, error) {
	timeoutSeconds := 45
	if override, err := parseOptionalIntEnv("PROVIDER_TIMEOUT_SECONDS"); err != nil {
		return ProviderConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	retries := 1
	if override, err := parseOptionalIntEnv("PROVIDER_RETRIES"); err != nil {
		return ProviderConfig{}, err
	} else if override != nil && *override >= 0 {
		retries = *override
	}

	return ProviderConfig{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Retries: retries,
	}, nil
}

// SourceConfig 描述外部医学数据源相关配置。
type SourceConfig struct {
	FDABaseURL    string
	FDAAPIKey     string
	RxNavBaseURL  string
	GHOBaseURL    string
	PubMedBaseURL string
	PubMedAPIKey  string
	// Timeout 限制单次上游请求，BranchTimeout 限制一整类数据源的聚合分支。
	Timeout       time.Duration
	BranchTimeout time.Duration
}

func loadSourceConfig() (SourceConfig, error) {
	timeoutSeconds := 15
	if override, err := parseOptionalIntEnv("SOURCE_TIMEOUT_SECONDS"); err != nil {
		return SourceConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	branchSeconds := 30
	if override, err := parseOptionalIntEnv("SOURCE_BRANCH_TIMEOUT_SECONDS"); err != nil {
		return SourceConfig{}, err
	} else if override != nil && *override > 0 {
		branchSeconds = *override
	}

	return SourceConfig{
		FDABaseURL:    getEnvOrDefault("FDA_BASE_URL", "https://api.fda.gov/drug"),
		FDAAPIKey:     strings.TrimSpace(os.Getenv("FDA_API_KEY")),
		RxNavBaseURL:  getEnvOrDefault("RXNAV_BASE_URL", "https://rxnav.nlm.nih.gov/REST"),
		GHOBaseURL:    getEnvOrDefault("GHO_BASE_URL", "https://ghoapi.azureedge.net/api"),
		PubMedBaseURL: getEnvOrDefault("PUBMED_BASE_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"),
		PubMedAPIKey:  strings.TrimSpace(os.Getenv("PUBMED_API_KEY")),
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		BranchTimeout: time.Duration(branchSeconds) * time.Second,
	}, nil
}

// AnalysisConfig 描述症状分析的输入与输出边界。
type AnalysisConfig struct {
	MaxSymptomsLength       int
	MaxDiagnosesReturned    int
	MaxRecommendedDiagnoses int
}

func loadAnalysisConfig() (AnalysisConfig, error) {
	maxLength := 1000
	if override, err := parseOptionalIntEnv("MAX_SYMPTOMS_LENGTH"); err != nil {
		return AnalysisConfig{}, err
	} else if override != nil && *override > 0 {
		maxLength = *override
	}

	maxReturned := 5
	if override, err := parseOptionalIntEnv("MAX_DIAGNOSES_RETURNED"); err != nil {
		return AnalysisConfig{}, err
	} else if override != nil && *override > 0 {
		maxReturned = *override
	}

	maxRecommended := 3
	if override, err := parseOptionalIntEnv("MAX_RECOMMENDED_DIAGNOSES"); err != nil {
		return AnalysisConfig{}, err
	} else if override != nil && *override >= 0 {
		maxRecommended = *override
	}

	return AnalysisConfig{
		MaxSymptomsLength:       maxLength,
		MaxDiagnosesReturned:    maxReturned,
		MaxRecommendedDiagnoses: maxRecommended,
	}, nil
}

// SessionConfig 描述会话生命周期相关配置。
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	idleMinutes := 30
	if override, err := parseOptionalIntEnv("SESSION_IDLE_TIMEOUT_MINUTES"); err != nil {
		return SessionConfig{}, err
	} else if override != nil && *override > 0 {
		idleMinutes = *override
	}

	sweepMinutes := 5
	if override, err := parseOptionalIntEnv("SESSION_SWEEP_INTERVAL_MINUTES"); err != nil {
		return SessionConfig{}, err
	} else if override != nil && *override > 0 {
		sweepMinutes = *override
	}

	return SessionConfig{
		IdleTimeout:   time.Duration(idleMinutes) * time.Minute,
		SweepInterval: time.Duration(sweepMinutes) * time.Minute,
	}, nil
}

// ImageConfig 描述医学图像上传限制。
type ImageConfig struct {
	MaxBytes int64
}

func loadImageConfig() (ImageConfig, error) {
	maxMB := 10
	if override, err := parseOptionalIntEnv("MAX_IMAGE_MB"); err != nil {
		return ImageConfig{}, err
	} else if override != nil && *override > 0 {
		maxMB = *override
	}

	return ImageConfig{MaxBytes: int64(maxMB) * 1024 * 1024}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
