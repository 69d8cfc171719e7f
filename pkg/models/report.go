package models

// NutrientKey names a guaranteed-analysis entry of a report
type NutrientKey string

const (
	NutrientProtein      NutrientKey = "protein"
	NutrientFat          NutrientKey = "fat"
	NutrientCarbohydrate NutrientKey = "carbohydrate"
	NutrientFiber        NutrientKey = "fiber"
	NutrientAsh          NutrientKey = "ash"
	NutrientMoisture     NutrientKey = "moisture"
	NutrientCalcium      NutrientKey = "calcium"
	NutrientPhosphorus   NutrientKey = "phosphorus"
)

// NutrientKeys lists every key a report's PercentData may carry, in display order
var NutrientKeys = []NutrientKey{
	NutrientProtein,
	NutrientFat,
	NutrientCarbohydrate,
	NutrientFiber,
	NutrientAsh,
	NutrientMoisture,
	NutrientCalcium,
	NutrientPhosphorus,
}

// AIReport is the generated nutrition report for an ingredients label.
// A nil entry in PercentData means the label did not state that nutrient.
type AIReport struct {
	Tags        []string                 `json:"tags"`
	Safety      string                   `json:"safety"`
	Nutrient    string                   `json:"nutrient"`
	Additives   []string                 `json:"additives"`
	Ingredients []string                 `json:"ingredients"`
	Percentage  bool                     `json:"percentage"`
	PercentData map[NutrientKey]*float64 `json:"percent_data"`
}

// ReportRequest is the input of a report generation call
type ReportRequest struct {
	IngredientsText string `json:"ingredients_text"`
	MaxTokens       int    `json:"max_tokens"`
}

// SaveReportRequest persists a generated report against a catalogue item
type SaveReportRequest struct {
	TargetItemID    string                   `json:"target_item_id"`
	IngredientsText string                   `json:"ingredients_text"`
	Tags            []string                 `json:"tags"`
	Additives       []string                 `json:"additives"`
	Ingredients     []string                 `json:"ingredients"`
	Safety          string                   `json:"safety"`
	Nutrient        string                   `json:"nutrient"`
	Percentage      bool                     `json:"percentage"`
	PercentData     map[NutrientKey]*float64 `json:"percent_data"`
}

// NewSaveReportRequest builds a save request from a generated report
func NewSaveReportRequest(itemID, ingredientsText string, report AIReport) SaveReportRequest {
	return SaveReportRequest{
		TargetItemID:    itemID,
		IngredientsText: ingredientsText,
		Tags:            report.Tags,
		Additives:       report.Additives,
		Ingredients:     report.Ingredients,
		Safety:          report.Safety,
		Nutrient:        report.Nutrient,
		Percentage:      report.Percentage,
		PercentData:     report.PercentData,
	}
}
