package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
)

func testSourceConfig(baseURL string) config.SourceConfig {
	return config.SourceConfig{
		FDABaseURL:    baseURL,
		RxNavBaseURL:  baseURL,
		GHOBaseURL:    baseURL,
		PubMedBaseURL: baseURL,
		Timeout:       5 * time.Second,
	}
}

func TestSearchOTCMedicinesParsesAndDeduplicates(t *testing.T) {
	longDosage := strings.Repeat("x", 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("search"), `openfda.product_type:"OTC"`) {
			t.Errorf("unexpected search query %q", r.URL.Query().Get("search"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{
			"openfda": {"generic_name": ["IBUPROFEN"], "brand_name": ["Advil"]},
			"dosage_and_administration": ["` + longDosage + `"],
			"indications_and_usage": ["Pain relief"]
		}]}`))
	}))
	defer server.Close()

	client := NewFDAClient(testSourceConfig(server.URL))
	medicines, err := client.SearchOTCMedicines(context.Background(), "headache")
	if err != nil {
		t.Fatalf("SearchOTCMedicines err: %v", err)
	}

	// Every synonym query returns the same label, so one entry survives.
	if len(medicines) != 1 {
		t.Fatalf("got %d medicines, want 1", len(medicines))
	}
	med := medicines[0]
	if med.Name != "IBUPROFEN" || med.BrandName != "Advil" {
		t.Fatalf("unexpected medicine %+v", med)
	}
	if !strings.HasSuffix(med.Dosage, "...") || len([]rune(med.Dosage)) != fieldLimit+3 {
		t.Fatalf("dosage not truncated: %d chars", len(med.Dosage))
	}
	if med.Warnings != "Read label carefully and consult healthcare provider" {
		t.Fatalf("missing warnings default, got %q", med.Warnings)
	}
	if med.Source != "FDA Drug Database" || med.Type != "OTC" {
		t.Fatalf("unexpected source/type %q/%q", med.Source, med.Type)
	}
}

func TestSearchOTCMedicinesFallsBackToBroadSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		if search == `openfda.product_type:"OTC"` {
			// Broad sample query returns more labels than the keep limit.
			var labels []string
			for i := 0; i < 8; i++ {
				labels = append(labels, `{"openfda": {"generic_name": ["DRUG `+string(rune('A'+i))+`"]}}`)
			}
			w.Write([]byte(`{"results": [` + strings.Join(labels, ",") + `]}`))
			return
		}
		// Targeted queries find nothing; openFDA reports that as 404.
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "NOT_FOUND"}}`))
	}))
	defer server.Close()

	client := NewFDAClient(testSourceConfig(server.URL))
	medicines, err := client.SearchOTCMedicines(context.Background(), "headache")
	if err != nil {
		t.Fatalf("SearchOTCMedicines err: %v", err)
	}
	if len(medicines) != fdaBroadKeep {
		t.Fatalf("got %d medicines from broad search, want %d", len(medicines), fdaBroadKeep)
	}
}

func TestSearchOTCMedicinesReportsTotalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewFDAClient(testSourceConfig(server.URL))
	if _, err := client.SearchOTCMedicines(context.Background(), "headache"); err == nil {
		t.Fatal("expected error when every query fails")
	}
}

func TestSearchHerbalSupplements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		if !strings.Contains(search, `openfda.product_type:"Dietary Supplement"`) {
			t.Errorf("unexpected search query %q", search)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"openfda": {"generic_name": ["ECHINACEA"]}},
			{"openfda": {}}
		]}`))
	}))
	defer server.Close()

	client := NewFDAClient(testSourceConfig(server.URL))
	remedies, err := client.SearchHerbalSupplements(context.Background(), "cough")
	if err != nil {
		t.Fatalf("SearchHerbalSupplements err: %v", err)
	}
	if len(remedies) != 2 {
		t.Fatalf("got %d remedies, want 2", len(remedies))
	}
	if remedies[0].Name != "ECHINACEA" {
		t.Fatalf("remedies[0].Name = %q", remedies[0].Name)
	}
	if remedies[1].Name != "Herbal Supplement" {
		t.Fatalf("missing default name, got %q", remedies[1].Name)
	}
	if remedies[0].Source != "FDA Dietary Supplement Database" {
		t.Fatalf("unexpected source %q", remedies[0].Source)
	}
}
