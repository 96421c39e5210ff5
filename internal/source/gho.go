package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

const ghoIndicatorPage = 200

// GHOClient 查询 WHO Global Health Observatory 的 OData 指标接口。
// 接口不支持按病症过滤，只能整页拉取指标后在本地匹配名称。
type GHOClient struct {
	restClient
	baseURL string
}

// NewGHOClient 构建 WHO GHO 客户端。
func NewGHOClient(cfg config.SourceConfig) *GHOClient {
	return &GHOClient{
		restClient: restClient{httpClient: &http.Client{Timeout: cfg.Timeout}},
		baseURL:    strings.TrimRight(cfg.GHOBaseURL, "/"),
	}
}

type ghoIndicatorResponse struct {
	Value []ghoIndicator `json:"value"`
}

// ghoIndicator carries the fields the indicator listing may expose. Value,
// Location and Comments are only present on some feeds, so all of them
// tolerate absence.
type ghoIndicator struct {
	IndicatorName string `json:"IndicatorName"`
	Value         any    `json:"Value"`
	Location      string `json:"Location"`
	Comments      string `json:"Comments"`
}

var (
	traditionalKeywords = []string{"traditional", "herbal", "medicine", "remedy", "natural"}
	practiceKeywords    = []string{"treatment", "practice", "care", "health"}
	remedyNameKeywords  = []string{
		"traditional medicine", "herbal", "natural remedy",
		"medicinal plant", "folk medicine", "indigenous medicine",
	}
)

// TraditionalMedicine returns indicators that look like traditional or
// herbal medicine entries for the condition.
func (c *GHOClient) TraditionalMedicine(ctx context.Context, condition string) ([]medicine.Remedy, error) {
	indicators, err := c.listIndicators(ctx)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(condition)
	var remedies []medicine.Remedy
	for _, item := range indicators {
		name := strings.ToLower(item.IndicatorName)
		if !strings.Contains(name, lowered) || !containsAny(name, traditionalKeywords) {
			continue
		}
		if remedy, ok := parseTraditionalIndicator(item, condition); ok {
			remedies = append(remedies, remedy)
		}
	}
	return remedies, nil
}

// HealthPractices returns treatment and care practice indicators matching
// the condition.
func (c *GHOClient) HealthPractices(ctx context.Context, condition string) ([]medicine.Remedy, error) {
	indicators, err := c.listIndicators(ctx)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(condition)
	var practices []medicine.Remedy
	for _, item := range indicators {
		name := strings.ToLower(item.IndicatorName)
		if !strings.Contains(name, lowered) || !containsAny(name, practiceKeywords) {
			continue
		}
		location := locationOr(item.Location)
		description := item.Comments
		if description == "" {
			description = "Health practice from " + location
		}
		practices = append(practices, medicine.Remedy{
			Name:          item.IndicatorName,
			Description:   description,
			Usage:         "Global health practice for " + condition,
			Effectiveness: assessEffectiveness(item.Value),
			Source:        "WHO GHO Health Practices - " + location,
		})
	}
	return practices, nil
}

func (c *GHOClient) listIndicators(ctx context.Context) ([]ghoIndicator, error) {
	query := url.Values{}
	query.Set("$format", "json")
	query.Set("$top", strconv.Itoa(ghoIndicatorPage))

	var payload ghoIndicatorResponse
	if err := c.getJSON(ctx, c.baseURL+"/Indicator", query, &payload); err != nil {
		return nil, err
	}
	return payload.Value, nil
}

// parseTraditionalIndicator 从指标名里提取疗法名称，提取不到则跳过该条。
func parseTraditionalIndicator(item ghoIndicator, condition string) (medicine.Remedy, bool) {
	name, ok := extractRemedyName(item.IndicatorName)
	if !ok {
		return medicine.Remedy{}, false
	}

	location := locationOr(item.Location)
	description := item.Comments
	if description == "" {
		description = "Traditional medicine practice from " + location
	}
	return medicine.Remedy{
		Name:          name,
		Description:   description,
		Usage:         "Traditional remedy for " + condition,
		Effectiveness: assessEffectiveness(item.Value),
		Source:        "WHO GHO Traditional Medicine - " + location,
	}, true
}

// extractRemedyName guesses the remedy name embedded in an indicator title.
// Titles like "Ginger herbal medicine - coverage" yield the words before the
// medicine keyword; otherwise the text before the first dash stands in.
func extractRemedyName(indicatorName string) (string, bool) {
	lowered := strings.ToLower(indicatorName)
	if !containsAny(lowered, remedyNameKeywords) {
		return "", false
	}

	parts := strings.Fields(indicatorName)
	for i, part := range parts {
		switch strings.ToLower(part) {
		case "medicine", "remedy", "herbal":
			if i > 0 {
				return strings.Join(parts[:i], " "), true
			}
		}
	}

	head, _, _ := strings.Cut(indicatorName, "-")
	head = strings.TrimSpace(head)
	if head == "" {
		return "", false
	}
	return head, true
}

// assessEffectiveness grades a numeric indicator value; non numeric values
// only confirm that data exists.
func assessEffectiveness(value any) string {
	v, ok := value.(float64)
	if !ok {
		return "Effectiveness data available from WHO GHO"
	}
	switch {
	case v > 80:
		return "High effectiveness based on WHO GHO data"
	case v > 60:
		return "Moderate effectiveness based on WHO GHO data"
	case v > 40:
		return "Some effectiveness based on WHO GHO data"
	default:
		return "Limited effectiveness based on WHO GHO data"
	}
}

func locationOr(location string) string {
	if location == "" {
		return "Unknown"
	}
	return location
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
