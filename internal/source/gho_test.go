package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func ghoTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$format") != "json" {
			t.Errorf("$format = %q, want json", r.URL.Query().Get("$format"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": [
			{"IndicatorName": "Ginger herbal remedy for headache", "Value": 85, "Location": "South-East Asia"},
			{"IndicatorName": "Care coverage for headache disorders"},
			{"IndicatorName": "Blood pressure prevalence"},
			{"IndicatorName": "Natural remedy awareness for headache"}
		]}`))
	}))
}

func TestTraditionalMedicineFiltersIndicators(t *testing.T) {
	server := ghoTestServer(t)
	defer server.Close()

	client := NewGHOClient(testSourceConfig(server.URL))
	remedies, err := client.TraditionalMedicine(context.Background(), "headache")
	if err != nil {
		t.Fatalf("TraditionalMedicine err: %v", err)
	}

	// The ginger indicator names a remedy; the awareness indicator yields
	// "Natural" via the keyword scan; the rest never match.
	if len(remedies) != 2 {
		t.Fatalf("got %d remedies, want 2", len(remedies))
	}
	if remedies[0].Name != "Ginger" {
		t.Fatalf("remedies[0].Name = %q, want Ginger", remedies[0].Name)
	}
	if remedies[0].Effectiveness != "High effectiveness based on WHO GHO data" {
		t.Fatalf("unexpected effectiveness %q", remedies[0].Effectiveness)
	}
	if remedies[0].Source != "WHO GHO Traditional Medicine - South-East Asia" {
		t.Fatalf("unexpected source %q", remedies[0].Source)
	}
	if remedies[0].Usage != "Traditional remedy for headache" {
		t.Fatalf("unexpected usage %q", remedies[0].Usage)
	}
}

func TestHealthPracticesKeepFullIndicatorName(t *testing.T) {
	server := ghoTestServer(t)
	defer server.Close()

	client := NewGHOClient(testSourceConfig(server.URL))
	practices, err := client.HealthPractices(context.Background(), "headache")
	if err != nil {
		t.Fatalf("HealthPractices err: %v", err)
	}

	if len(practices) != 1 {
		t.Fatalf("got %d practices, want 1", len(practices))
	}
	got := practices[0]
	if got.Name != "Care coverage for headache disorders" {
		t.Fatalf("practice name = %q", got.Name)
	}
	if got.Description != "Health practice from Unknown" {
		t.Fatalf("missing location default, got %q", got.Description)
	}
	if got.Effectiveness != "Effectiveness data available from WHO GHO" {
		t.Fatalf("unexpected effectiveness %q", got.Effectiveness)
	}
}

func TestExtractRemedyName(t *testing.T) {
	if name, ok := extractRemedyName("Ginger herbal remedy - coverage"); !ok || name != "Ginger" {
		t.Fatalf("got %q/%v, want Ginger", name, ok)
	}
	if name, ok := extractRemedyName("Folk medicine availability"); !ok || name != "Folk" {
		t.Fatalf("got %q/%v, want Folk", name, ok)
	}
	if _, ok := extractRemedyName("Blood pressure prevalence"); ok {
		t.Fatal("expected no remedy name for unrelated indicator")
	}
}

func TestAssessEffectiveness(t *testing.T) {
	if got := assessEffectiveness(float64(65)); got != "Moderate effectiveness based on WHO GHO data" {
		t.Fatalf("got %q", got)
	}
	if got := assessEffectiveness(float64(10)); got != "Limited effectiveness based on WHO GHO data" {
		t.Fatalf("got %q", got)
	}
	if got := assessEffectiveness("survey"); got != "Effectiveness data available from WHO GHO" {
		t.Fatalf("got %q", got)
	}
	if got := assessEffectiveness(nil); got != "Effectiveness data available from WHO GHO" {
		t.Fatalf("got %q", got)
	}
}
