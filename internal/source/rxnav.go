package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

// RxNavClient 查询 NLM RxNav 的处方药目录。
type RxNavClient struct {
	restClient
	baseURL string
}

// NewRxNavClient 构建 RxNav 客户端。
func NewRxNavClient(cfg config.SourceConfig) *RxNavClient {
	return &RxNavClient{
		restClient: restClient{httpClient: &http.Client{Timeout: cfg.Timeout}},
		baseURL:    strings.TrimRight(cfg.RxNavBaseURL, "/"),
	}
}

type rxnavDrugsResponse struct {
	DrugGroup rxnavDrugGroup `json:"drugGroup"`
}

type rxnavDrugGroup struct {
	ConceptGroup []rxnavConceptGroup `json:"conceptGroup"`
}

type rxnavConceptGroup struct {
	Concept []rxnavConcept `json:"concept"`
}

type rxnavConcept struct {
	Name    string `json:"name"`
	Synonym string `json:"synonym"`
}

// SearchPrescriptionMedicines resolves the condition's synonym variants
// against RxNav drug concepts. RxNav carries no dosing or safety text, so
// those fields point the reader at a clinician.
func (c *RxNavClient) SearchPrescriptionMedicines(ctx context.Context, condition string) ([]medicine.Medicine, error) {
	var (
		medicines []medicine.Medicine
		seen      = make(map[string]struct{})
		errs      *multierror.Error
	)

	for _, term := range searchTerms(condition, prescriptionTerms) {
		query := url.Values{}
		query.Set("name", term)
		query.Set("allsrc", "1")

		var payload rxnavDrugsResponse
		if err := c.getJSON(ctx, c.baseURL+"/drugs.json", query, &payload); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("term %q: %w", term, err))
			continue
		}

		for _, group := range payload.DrugGroup.ConceptGroup {
			for _, concept := range group.Concept {
				if concept.Name == "" {
					continue
				}
				key := strings.ToLower(concept.Name)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				medicines = append(medicines, parseRxNavConcept(concept))
			}
		}
	}

	if len(medicines) == 0 && errs != nil {
		return nil, errs.ErrorOrNil()
	}
	return medicines, nil
}

func parseRxNavConcept(concept rxnavConcept) medicine.Medicine {
	brand := concept.Synonym
	if brand == "" {
		brand = "Unknown"
	}
	return medicine.Medicine{
		Name:        concept.Name,
		BrandName:   brand,
		Dosage:      "Consult healthcare provider for dosage",
		Warnings:    "Prescription medication - use as directed",
		SideEffects: "Consult healthcare provider for side effects",
		Source:      "RxNav Prescription Database",
		Type:        "Prescription",
	}
}
