// Package recommend 并行聚合多个外部医学数据源，为诊断候选补充
// 用药与疗法建议。单个数据源失败只会让结果变薄，不会让整体失败。
package recommend

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/diagnosis"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
	"github.com/zhouzirui/z-clinic/backend/internal/source"
)

// Source labels as they appear in the api_sources response field.
const (
	sourceFDA    = "FDA Drug Database"
	sourceRxNav  = "RxNav Prescription Database"
	sourceGHO    = "WHO GHO Global Health Data"
	sourcePubMed = "PubMed Medical Literature"
)

const defaultBranchTimeout = 30 * time.Second

// DrugCatalog serves OTC drug labels and dietary supplement lookups.
type DrugCatalog interface {
	SearchOTCMedicines(ctx context.Context, condition string) ([]medicine.Medicine, error)
	SearchHerbalSupplements(ctx context.Context, condition string) ([]medicine.Remedy, error)
}

// PrescriptionCatalog resolves prescription drug concepts.
type PrescriptionCatalog interface {
	SearchPrescriptionMedicines(ctx context.Context, condition string) ([]medicine.Medicine, error)
}

// HealthObservatory serves global health indicator data.
type HealthObservatory interface {
	TraditionalMedicine(ctx context.Context, condition string) ([]medicine.Remedy, error)
	HealthPractices(ctx context.Context, condition string) ([]medicine.Remedy, error)
}

// LiteratureIndex searches biomedical publications.
type LiteratureIndex interface {
	SearchLiterature(ctx context.Context, condition string) ([]medicine.Article, error)
}

// Service 按类别并发拉取推荐数据并合并为一个 RecommendationSet。
type Service struct {
	drugs         DrugCatalog
	prescriptions PrescriptionCatalog
	observatory   HealthObservatory
	literature    LiteratureIndex
	branchTimeout time.Duration
}

// NewService 创建推荐聚合服务。
func NewService(drugs DrugCatalog, prescriptions PrescriptionCatalog, observatory HealthObservatory, literature LiteratureIndex, cfg config.SourceConfig) *Service {
	timeout := cfg.BranchTimeout
	if timeout <= 0 {
		timeout = defaultBranchTimeout
	}
	return &Service{
		drugs:         drugs,
		prescriptions: prescriptions,
		observatory:   observatory,
		literature:    literature,
		branchTimeout: timeout,
	}
}

// Aggregate fans out to every recommendation source for one condition and
// merges whatever came back. The returned set is usable even when err is
// non-nil: err only records which branches failed, and APISources already
// lists just the sources that delivered data. A nil set means the request
// context died before anything could be gathered.
func (s *Service) Aggregate(ctx context.Context, condition string) (*medicine.RecommendationSet, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, nil
	}

	set := &medicine.RecommendationSet{Condition: condition}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     *multierror.Error
		labelSet = make(map[string]struct{})
	)

	// Each branch owns exactly one field of set, so only the label and
	// error bookkeeping needs the mutex.
	branch := func(fetch func(context.Context) ([]string, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, s.branchTimeout)
			defer cancel()

			labels, err := fetch(branchCtx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
			}
			for _, label := range labels {
				labelSet[label] = struct{}{}
			}
		}()
	}

	branch(func(ctx context.Context) ([]string, error) {
		medicines, err := s.drugs.SearchOTCMedicines(ctx, condition)
		if err != nil {
			return nil, fmt.Errorf("otc medicines: %w", err)
		}
		set.OTCMedicines = medicines
		if len(medicines) == 0 {
			return nil, nil
		}
		return []string{sourceFDA}, nil
	})

	branch(func(ctx context.Context) ([]string, error) {
		medicines, err := s.prescriptions.SearchPrescriptionMedicines(ctx, condition)
		if err != nil {
			return nil, fmt.Errorf("prescription medicines: %w", err)
		}
		set.PrescriptionMedicines = medicines
		if len(medicines) == 0 {
			return nil, nil
		}
		return []string{sourceRxNav}, nil
	})

	branch(func(ctx context.Context) ([]string, error) {
		remedies, labels, err := s.gatherNaturalRemedies(ctx, condition)
		set.NaturalRemedies = remedies
		return labels, err
	})

	branch(func(ctx context.Context) ([]string, error) {
		articles, err := s.literature.SearchLiterature(ctx, condition)
		if err != nil {
			return nil, fmt.Errorf("medical literature: %w", err)
		}
		set.MedicalLiterature = articles
		if len(articles) == 0 {
			return nil, nil
		}
		return []string{sourcePubMed}, nil
	})

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := errs.ErrorOrNil(); err != nil {
		log.Printf("[recommend] degraded sources for %q: %v", condition, err)
	}

	sources := make([]string, 0, len(labelSet))
	for _, label := range []string{sourceFDA, sourceRxNav, sourceGHO, sourcePubMed} {
		if _, ok := labelSet[label]; ok {
			sources = append(sources, label)
		}
	}
	set.APISources = sources
	set.LastUpdated = time.Now()
	set.TotalRecommendations = len(set.OTCMedicines) + len(set.PrescriptionMedicines) +
		len(set.NaturalRemedies) + len(set.MedicalLiterature)

	return set, errs.ErrorOrNil()
}

// Enrich attaches recommendation sets to the leading diagnoses in place.
// maxDiagnoses caps how many candidates get the full fan-out. Partial source
// failures are already logged by Aggregate and never block the analysis.
func (s *Service) Enrich(ctx context.Context, result *diagnosis.AnalysisResult, maxDiagnoses int) {
	if result == nil || maxDiagnoses <= 0 {
		return
	}
	for i := range result.PotentialDiagnoses {
		if i == maxDiagnoses || ctx.Err() != nil {
			return
		}
		if set, _ := s.Aggregate(ctx, result.PotentialDiagnoses[i].Condition); set != nil {
			result.PotentialDiagnoses[i].Recommendations = set
		}
	}
}

// gatherNaturalRemedies 依次查询 WHO GHO 传统医学、健康实践与 FDA 草本
// 补充剂，三路都落空时退回内置目录。内置目录不算 API 来源。
func (s *Service) gatherNaturalRemedies(ctx context.Context, condition string) ([]medicine.Remedy, []string, error) {
	var (
		remedies []medicine.Remedy
		labels   []string
		errs     *multierror.Error
	)

	traditional, err := s.observatory.TraditionalMedicine(ctx, condition)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("gho traditional medicine: %w", err))
	}
	practices, err := s.observatory.HealthPractices(ctx, condition)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("gho health practices: %w", err))
	}
	if len(traditional)+len(practices) > 0 {
		labels = append(labels, sourceGHO)
	}
	remedies = append(remedies, traditional...)
	remedies = append(remedies, practices...)

	herbs, err := s.drugs.SearchHerbalSupplements(ctx, condition)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("fda herbal supplements: %w", err))
	} else if len(herbs) > 0 {
		labels = append(labels, sourceFDA)
		remedies = append(remedies, herbs...)
	}

	remedies = dedupRemedies(remedies)
	if len(remedies) == 0 {
		remedies = source.CommonRemedies(condition)
	}
	return remedies, labels, errs.ErrorOrNil()
}

// dedupRemedies drops repeats by name and source, keeping first appearance.
func dedupRemedies(remedies []medicine.Remedy) []medicine.Remedy {
	if len(remedies) < 2 {
		return remedies
	}
	seen := make(map[string]struct{}, len(remedies))
	out := remedies[:0]
	for _, remedy := range remedies {
		key := strings.ToLower(remedy.Name) + "|" + remedy.Source
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, remedy)
	}
	return out
}
