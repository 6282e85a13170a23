package openai

import "strings"

// modelPrice holds USD prices per 1000 tokens.
type modelPrice struct {
	Input  float64
	Output float64
}

const fallbackModel = "gpt-4"

// Estimation assumes a 70/30 input/output token split.
const (
	inputShare  = 0.7
	outputShare = 0.3
)

var modelPrices = map[string]modelPrice{
	"gpt-4":         {Input: 0.03, Output: 0.06},
	"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
	"gpt-4o":        {Input: 0.005, Output: 0.015},
	"gpt-4o-mini":   {Input: 0.00015, Output: 0.0006},
	"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},
}

// NormalizeModel lowercases the model name and falls back to the default
// when the model has no price table entry.
func NormalizeModel(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if _, ok := modelPrices[normalized]; ok {
		return normalized
	}
	return fallbackModel
}

// EstimateCost computes a blended USD cost for the given token count. This
// is an estimate for display, not billing authority. Unknown models use the
// gpt-4 table entry.
func EstimateCost(tokens int, model string) float64 {
	price, ok := modelPrices[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		price = modelPrices[fallbackModel]
	}
	perThousand := inputShare*price.Input + outputShare*price.Output
	return float64(tokens) / 1000 * perThousand
}
