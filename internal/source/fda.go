package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

const (
	fdaOTCLimit        = 10
	fdaBroadLimit      = 20
	fdaBroadKeep       = 5
	fdaSupplementLimit = 5
)

// FDAClient 查询 openFDA 药品标签接口。
type FDAClient struct {
	restClient
	baseURL string
	apiKey  string
}

// NewFDAClient 构建 FDA 标签库客户端。
func NewFDAClient(cfg config.SourceConfig) *FDAClient {
	return &FDAClient{
		restClient: restClient{httpClient: &http.Client{Timeout: cfg.Timeout}},
		baseURL:    strings.TrimRight(cfg.FDABaseURL, "/"),
		apiKey:     cfg.FDAAPIKey,
	}
}

type fdaLabelResponse struct {
	Results []fdaLabel `json:"results"`
}

type fdaLabel struct {
	OpenFDA                 fdaOpenFDA `json:"openfda"`
	DosageAndAdministration []string   `json:"dosage_and_administration"`
	Warnings                []string   `json:"warnings"`
	AdverseReactions        []string   `json:"adverse_reactions"`
	IndicationsAndUsage     []string   `json:"indications_and_usage"`
}

type fdaOpenFDA struct {
	GenericName []string `json:"generic_name"`
	BrandName   []string `json:"brand_name"`
}

// SearchOTCMedicines looks up over the counter products for the condition.
// Every synonym variant is queried and the hits are merged; when none of the
// targeted queries matches anything a broad OTC sample stands in, so the
// caller still has something to show.
func (c *FDAClient) SearchOTCMedicines(ctx context.Context, condition string) ([]medicine.Medicine, error) {
	var (
		medicines []medicine.Medicine
		seen      = make(map[string]struct{})
		errs      *multierror.Error
	)

	for _, term := range searchTerms(condition, otcTerms) {
		labels, err := c.searchLabels(ctx, fmt.Sprintf("openfda.product_type:%q AND (%s)", "OTC", term), fdaOTCLimit)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("term %q: %w", term, err))
			continue
		}
		for _, label := range labels {
			med := parseFDALabel(label, "OTC")
			key := strings.ToLower(med.Name + "|" + med.BrandName)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			medicines = append(medicines, med)
		}
	}

	if len(medicines) > 0 {
		return medicines, nil
	}

	broad, err := c.broadOTCSearch(ctx)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("broad search: %w", err))
		return nil, errs.ErrorOrNil()
	}
	return broad, nil
}

// SearchHerbalSupplements pulls dietary supplement labels matching the
// condition. These feed the natural remedy list rather than the OTC one.
func (c *FDAClient) SearchHerbalSupplements(ctx context.Context, condition string) ([]medicine.Remedy, error) {
	search := fmt.Sprintf("openfda.product_type:%q AND (%s)", "Dietary Supplement", strings.ToLower(strings.TrimSpace(condition)))
	labels, err := c.searchLabels(ctx, search, fdaSupplementLimit)
	if err != nil {
		return nil, err
	}

	remedies := make([]medicine.Remedy, 0, len(labels))
	for _, label := range labels {
		remedies = append(remedies, medicine.Remedy{
			Name:          firstOr(label.OpenFDA.GenericName, "Herbal Supplement"),
			Description:   "Natural herbal supplement",
			Usage:         "Follow label instructions",
			Effectiveness: "Traditional use",
			Source:        "FDA Dietary Supplement Database",
		})
	}
	return remedies, nil
}

// broadOTCSearch 在定向查询全部落空时退回到无条件的 OTC 样本。
func (c *FDAClient) broadOTCSearch(ctx context.Context) ([]medicine.Medicine, error) {
	labels, err := c.searchLabels(ctx, fmt.Sprintf("openfda.product_type:%q", "OTC"), fdaBroadLimit)
	if err != nil {
		return nil, err
	}

	medicines := make([]medicine.Medicine, 0, fdaBroadKeep)
	for _, label := range labels {
		medicines = append(medicines, parseFDALabel(label, "OTC"))
		if len(medicines) == fdaBroadKeep {
			break
		}
	}
	return medicines, nil
}

func (c *FDAClient) searchLabels(ctx context.Context, search string, limit int) ([]fdaLabel, error) {
	query := url.Values{}
	query.Set("search", search)
	query.Set("limit", strconv.Itoa(limit))
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	var payload fdaLabelResponse
	if err := c.getJSON(ctx, c.baseURL+"/label.json", query, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// parseFDALabel condenses one label document into a Medicine. Verbose
// sections are cut at fieldLimit characters.
func parseFDALabel(label fdaLabel, medicineType string) medicine.Medicine {
	return medicine.Medicine{
		Name:        firstOr(label.OpenFDA.GenericName, "Unknown"),
		BrandName:   firstOr(label.OpenFDA.BrandName, "Unknown"),
		Dosage:      sectionOr(label.DosageAndAdministration, "Consult healthcare provider for dosage"),
		Warnings:    sectionOr(label.Warnings, "Read label carefully and consult healthcare provider"),
		SideEffects: sectionOr(label.AdverseReactions, "Consult healthcare provider for side effects"),
		Indications: sectionOr(label.IndicationsAndUsage, "Consult healthcare provider for proper use"),
		Source:      "FDA Drug Database",
		Type:        medicineType,
	}
}

func sectionOr(sections []string, fallback string) string {
	if len(sections) == 0 || sections[0] == "" {
		return fallback
	}
	return truncateField(sections[0])
}
