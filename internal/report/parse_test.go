package report

import (
	"errors"
	"testing"

	"go-catfood-scanner/pkg/models"
)

func TestParseReport_Fenced(t *testing.T) {
	raw := "```json\n" + `{
  "tags": ["grain-free", " high-protein "],
  "safety": "No risky ingredients found.",
  "nutrient": "Balanced.",
  "additives": ["Taurine", ""],
  "ingredients": ["Chicken", "Salmon oil"],
  "percentage": true,
  "percentData": {"protein": 42.5, "Fat": 18, "moisture": null, "sugar": 3}
}` + "\n```"

	report, err := parseReport(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(report.Tags) != 2 || report.Tags[1] != "high-protein" {
		t.Errorf("Expected trimmed tags, got %v", report.Tags)
	}
	if len(report.Additives) != 1 {
		t.Errorf("Expected blank additive dropped, got %v", report.Additives)
	}
	if !report.Percentage {
		t.Error("Expected percentage to be true")
	}
	if v := report.PercentData[models.NutrientProtein]; v == nil || *v != 42.5 {
		t.Errorf("Expected protein 42.5, got %v", v)
	}
	if v := report.PercentData[models.NutrientFat]; v == nil || *v != 18 {
		t.Errorf("Expected case-insensitive fat key, got %v", v)
	}
	if report.PercentData[models.NutrientMoisture] != nil {
		t.Error("Expected moisture to be nil")
	}
	if _, ok := report.PercentData["sugar"]; ok {
		t.Error("Expected unknown nutrient key to be dropped")
	}
	if len(report.PercentData) != len(models.NutrientKeys) {
		t.Errorf("Expected all %d nutrient keys, got %d", len(models.NutrientKeys), len(report.PercentData))
	}
}

func TestParseReport_SurroundingText(t *testing.T) {
	raw := `Here is the report: {"safety": "ok", "ingredients": ["Duck"]} Hope it helps.`
	report, err := parseReport(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Safety != "ok" || report.Ingredients[0] != "Duck" {
		t.Errorf("Unexpected report %+v", report)
	}
	if report.Tags == nil || report.Additives == nil {
		t.Error("Expected empty lists rather than nil")
	}
}

func TestParseReport_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no object", "I cannot help with that."},
		{"broken json", `{"safety": "ok",`},
		{"empty object", `{}`},
		{"wrong types", `{"tags": "grain-free"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseReport(tt.raw); !errors.Is(err, ErrMalformedReport) {
				t.Errorf("Expected ErrMalformedReport, got %v", err)
			}
		})
	}
}
