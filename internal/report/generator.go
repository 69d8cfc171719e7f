package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/pkg/models"

	"github.com/sirupsen/logrus"
)

// TextModel completes a prompt with text
type TextModel interface {
	GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ErrModelUnavailable is returned when no language model is configured
var ErrModelUnavailable = errors.New("report: no language model configured")

// Unavailable is the TextModel used when no API key is set. Every call fails.
type Unavailable struct{}

func (Unavailable) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return "", ErrModelUnavailable
}

// Generator turns label text into an AIReport using a language model
type Generator struct {
	model TextModel
}

// NewGenerator creates a generator on top of model
func NewGenerator(model TextModel) *Generator {
	return &Generator{model: model}
}

// Generate asks the model for a report and parses its JSON answer
func (g *Generator) Generate(ctx context.Context, req models.ReportRequest) (models.AIReport, error) {
	if strings.TrimSpace(req.IngredientsText) == "" {
		return models.AIReport{}, fmt.Errorf("ingredients text is empty")
	}

	raw, err := g.model.GenerateText(ctx, buildPrompt(req.IngredientsText), req.MaxTokens)
	if err != nil {
		return models.AIReport{}, err
	}

	report, err := parseReport(raw)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"response_chars": len(raw),
		}).WithError(err).Warn("Model returned an unusable report")
		return models.AIReport{}, err
	}
	return report, nil
}

func buildPrompt(ingredientsText string) string {
	keys := make([]string, 0, len(models.NutrientKeys))
	for _, k := range models.NutrientKeys {
		keys = append(keys, string(k))
	}

	return fmt.Sprintf(`You review cat food labels. The text below was read from a package by OCR and may contain errors.

Label text:
"""
%s
"""

Answer with one JSON object and nothing else:
{
  "tags": ["short descriptive tags, e.g. grain-free, high-protein"],
  "safety": "one paragraph on ingredients that are risky for cats, or that none were found",
  "nutrient": "one paragraph assessing the nutritional balance",
  "additives": ["each additive exactly as named on the label"],
  "ingredients": ["each main ingredient exactly as named on the label"],
  "percentage": true if the label states a guaranteed analysis in percent, else false,
  "percentData": {%s}
}
percentData keys are %s; use a number for stated percentages and null otherwise.`,
		ingredientsText, percentTemplate(keys), strings.Join(keys, ", "))
}

func percentTemplate(keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`"%s": number or null`, k))
	}
	return strings.Join(parts, ", ")
}
