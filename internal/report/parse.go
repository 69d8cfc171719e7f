package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go-catfood-scanner/pkg/models"
)

// ErrMalformedReport is returned when the model answer is not a usable report
var ErrMalformedReport = errors.New("report: malformed model response")

type wireReport struct {
	Tags        []string            `json:"tags"`
	Safety      string              `json:"safety"`
	Nutrient    string              `json:"nutrient"`
	Additives   []string            `json:"additives"`
	Ingredients []string            `json:"ingredients"`
	Percentage  bool                `json:"percentage"`
	PercentData map[string]*float64 `json:"percentData"`
}

// parseReport extracts the JSON object from a model answer. Code fences and
// text around the object are ignored; unknown nutrient keys are dropped and
// missing ones are set to nil.
func parseReport(raw string) (models.AIReport, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return models.AIReport{}, fmt.Errorf("%w: no JSON object", ErrMalformedReport)
	}

	var wire wireReport
	if err := json.Unmarshal([]byte(text[start:end+1]), &wire); err != nil {
		return models.AIReport{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if strings.TrimSpace(wire.Safety) == "" && strings.TrimSpace(wire.Nutrient) == "" &&
		len(wire.Ingredients) == 0 && len(wire.Additives) == 0 {
		return models.AIReport{}, fmt.Errorf("%w: empty report", ErrMalformedReport)
	}

	percent := make(map[models.NutrientKey]*float64, len(models.NutrientKeys))
	for _, key := range models.NutrientKeys {
		percent[key] = nil
	}
	for k, v := range wire.PercentData {
		key := models.NutrientKey(strings.ToLower(strings.TrimSpace(k)))
		if _, known := percent[key]; known {
			percent[key] = v
		}
	}

	return models.AIReport{
		Tags:        cleanList(wire.Tags),
		Safety:      strings.TrimSpace(wire.Safety),
		Nutrient:    strings.TrimSpace(wire.Nutrient),
		Additives:   cleanList(wire.Additives),
		Ingredients: cleanList(wire.Ingredients),
		Percentage:  wire.Percentage,
		PercentData: percent,
	}, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
