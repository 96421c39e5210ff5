package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/z-clinic/backend/internal/analysis/triage"
	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/locale"
	"github.com/zhouzirui/z-clinic/backend/internal/provider"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/ark"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/local"
	"github.com/zhouzirui/z-clinic/backend/internal/provider/together"
	"github.com/zhouzirui/z-clinic/backend/internal/service/inference"
	"github.com/zhouzirui/z-clinic/backend/internal/service/language"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	text := flag.String("text", "", "待分析的症状文本")
	declared := flag.String("lang", "", "声明的语言代码，留空则自动检测")
	full := flag.Bool("full", false, "使用完整提供方链(需要远端凭证)，默认仅本地规则")
	asJSON := flag.Bool("json", false, "以JSON输出完整分析结果")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	symptoms := strings.TrimSpace(*text)
	if symptoms == "" && flag.NArg() > 0 {
		symptoms = strings.Join(flag.Args(), " ")
	}
	if symptoms == "" {
		flag.Usage()
		log.Fatal("请通过 -text 提供症状文本")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	localeStore := locale.NewMemoryStore(locale.Seed())
	languageSvc, err := language.NewService(ctx, nil, localeStore)
	if err != nil {
		log.Fatalf("语言服务初始化失败: %v", err)
	}

	inferenceSvc := inference.NewService(buildAdapters(ctx, cfg, *full), cfg.Provider)
	log.Printf("推理适配器: %v", inferenceSvc.AdapterNames())

	corrected := languageSvc.Process(ctx, symptoms, *declared)
	log.Printf("检测语言: %s", corrected.DetectedLanguage)

	result, err := inferenceSvc.Analyze(ctx, corrected)
	if err != nil {
		log.Fatalf("症状分析失败: %v", err)
	}

	if *asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("序列化结果失败: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	printResult(result)

	if flags := triage.RedFlags(corrected.CorrectedText); len(flags) > 0 {
		fmt.Println("红色警报:")
		for _, flagLine := range flags {
			fmt.Printf("  !! %s\n", flagLine)
		}
	}
}

// buildAdapters 组装推理链条。默认只用本地规则引擎，-full 时加入远端适配器。
func buildAdapters(ctx context.Context, cfg *config.Config, full bool) []provider.Adapter {
	var adapters []provider.Adapter

	if full {
		if cfg.AI.Enabled() {
			arkAdapter, err := ark.New(ctx, cfg.AI)
			if err != nil {
				log.Printf("[WARN] Ark 适配器初始化失败: %v", err)
			} else {
				adapters = append(adapters, arkAdapter)
			}
		}
		if cfg.Together.Enabled() {
			togetherAdapter, err := together.New(ctx, cfg.Together)
			if err != nil {
				log.Printf("[WARN] TogetherAI 适配器初始化失败: %v", err)
			} else {
				adapters = append(adapters, togetherAdapter)
			}
		}
	}

	return append(adapters, local.New())
}

func printResult(result *diagnosis.AnalysisResult) {
	fmt.Printf("分析方式: %s\n", result.AnalysisMethod)
	fmt.Printf("候选诊断 (%d):\n", result.DiagnosisCount)
	for i, d := range result.PotentialDiagnoses {
		fmt.Printf("  %d. %s (置信度 %d%%, 严重程度 %s)\n", i+1, d.Condition, d.Confidence, d.Severity)
		if d.Description != "" {
			fmt.Printf("     %s\n", d.Description)
		}
	}
	if result.BestMatch != nil {
		fmt.Printf("最佳匹配: %s\n", result.BestMatch.Condition)
	}
	if len(result.Recommendations) > 0 {
		fmt.Println("建议:")
		for _, rec := range result.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Println("注意事项:")
		for _, warning := range result.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}
}
