package billing

import (
	"math"
	"strconv"
	"strings"
)

const megabyte = 1 << 20

// Base credit cost per operation type. Unknown operations bill at 1 credit.
var operationCosts = map[string]float64{
	"basic_api_call":         1,
	"advanced_api_call":      5,
	"image_processing":       10,
	"video_processing":       50,
	"large_file_processing":  50,
	"data_export":            25,
	"premium_feature_access": 100,
	"bulk_operation":         200,
	"ai_analysis":            15,
	"text_processing":        2,
	"data_transformation":    8,
}

var complexityMultipliers = map[string]float64{
	"simple":   1.0,
	"standard": 1.5,
	"complex":  2.5,
	"advanced": 4.0,
}

// CostBreakdown itemizes every factor that produced a charge so callers can
// show the math to end users.
type CostBreakdown struct {
	OperationType        string         `json:"operation_type"`
	BaseCost             float64        `json:"base_cost"`
	SizeMultiplier       float64        `json:"size_multiplier"`
	ComplexityMultiplier float64        `json:"complexity_multiplier"`
	QuantityMultiplier   float64        `json:"quantity_multiplier"`
	PriorityMultiplier   float64        `json:"priority_multiplier"`
	TotalMultiplier      float64        `json:"total_multiplier"`
	FinalCost            float64        `json:"final_cost"`
	ParametersUsed       map[string]any `json:"parameters_used"`
}

// BaseCost returns the flat cost of an operation type before multipliers.
func BaseCost(operationType string) float64 {
	if cost, ok := operationCosts[strings.TrimSpace(operationType)]; ok {
		return cost
	}
	return 1
}

// CalculateCost prices one operation: base cost times the size, complexity,
// quantity, and priority multipliers, floored at the operation's minimum,
// then rounded up to the nearest 0.1 credit.
func CalculateCost(operationType string, params map[string]any) float64 {
	base := BaseCost(operationType)
	multiplier := sizeMultiplier(params) *
		complexityMultiplier(params) *
		quantityMultiplier(params) *
		priorityMultiplier(params)
	cost := math.Max(base*multiplier, minimumCost(operationType))
	return roundUpTenth(cost)
}

// CostForBreakdown explains the same calculation CalculateCost performs.
func CostForBreakdown(operationType string, params map[string]any) CostBreakdown {
	size := sizeMultiplier(params)
	complexity := complexityMultiplier(params)
	quantity := quantityMultiplier(params)
	priority := priorityMultiplier(params)
	return CostBreakdown{
		OperationType:        strings.TrimSpace(operationType),
		BaseCost:             BaseCost(operationType),
		SizeMultiplier:       size,
		ComplexityMultiplier: complexity,
		QuantityMultiplier:   quantity,
		PriorityMultiplier:   priority,
		TotalMultiplier:      size * complexity * quantity * priority,
		FinalCost:            CalculateCost(operationType, params),
		ParametersUsed:       relevantParams(params),
	}
}

// VolumeDiscountPercent returns the monthly volume discount tier as a whole
// percentage.
func VolumeDiscountPercent(monthlyCredits float64) int {
	switch {
	case monthlyCredits <= 1000:
		return 0
	case monthlyCredits <= 5000:
		return 5
	case monthlyCredits <= 15000:
		return 10
	case monthlyCredits <= 50000:
		return 15
	default:
		return 20
	}
}

func sizeMultiplier(params map[string]any) float64 {
	size, ok := paramInt(params, "file_size")
	if !ok {
		size, ok = paramInt(params, "data_size")
	}
	if !ok {
		return 1.0
	}
	switch {
	case size <= megabyte:
		return 1.0
	case size <= 10*megabyte:
		return 2.0
	case size <= 100*megabyte:
		return 5.0
	default:
		return 10.0
	}
}

func complexityMultiplier(params map[string]any) float64 {
	complexity := strings.ToLower(paramString(params, "complexity"))
	if complexity == "" {
		return 1.0
	}
	if multiplier, ok := complexityMultipliers[complexity]; ok {
		return multiplier
	}
	return 1.0
}

// Bulk batches get a volume discount past 10 items; the multiplier scales
// with quantity itself rather than being a flat rate.
func quantityMultiplier(params map[string]any) float64 {
	quantity, ok := paramInt(params, "quantity")
	if !ok || quantity < 1 {
		quantity = 1
	}
	qty := float64(quantity)
	switch {
	case quantity <= 10:
		return qty
	case quantity <= 100:
		return qty * 0.9
	case quantity <= 1000:
		return qty * 0.8
	default:
		return qty * 0.7
	}
}

func priorityMultiplier(params map[string]any) float64 {
	switch strings.ToLower(paramString(params, "priority")) {
	case "low":
		return 0.8
	case "high":
		return 1.5
	case "urgent", "immediate":
		return 2.0
	default:
		return 1.0
	}
}

func minimumCost(operationType string) float64 {
	switch strings.TrimSpace(operationType) {
	case "premium_feature_access":
		return 100
	case "bulk_operation":
		return 50
	case "ai_analysis":
		return 5
	default:
		return 0.1
	}
}

func roundUpTenth(cost float64) float64 {
	return math.Ceil(cost*10) / 10
}

func relevantParams(params map[string]any) map[string]any {
	used := map[string]any{}
	for _, key := range []string{"file_size", "data_size", "complexity", "quantity", "priority"} {
		if value, ok := params[key]; ok && value != nil {
			used[key] = value
		}
	}
	return used
}

func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if value, ok := params[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func paramInt(params map[string]any, key string) (int64, bool) {
	if params == nil {
		return 0, false
	}
	switch value := params[key].(type) {
	case int:
		return int64(value), true
	case int64:
		return value, true
	case float64:
		return int64(value), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
