package expert

import (
	"context"
	"log/slog"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
)

// Budget-level per-night price ranges in VND.
var levelPriceRanges = map[string]struct{ Min, Max int64 }{
	convo.BudgetThrifty: {0, 800_000},
	convo.BudgetMid:     {500_000, 2_500_000},
	convo.BudgetLuxury:  {2_000_000, 50_000_000},
}

const budgetParserSystemPrompt = `Extract a VND per-night hotel price filter from the Vietnamese phrase.
Return ONLY JSON: {"min_price": int, "max_price": int}. Use 0 for an unset bound.`

// ParseBudget runs the pattern cascade over a budget phrase and returns a
// price filter map with min_price/max_price keys (possibly both zero). The
// parse is idempotent: feeding a previously parsed phrase changes nothing.
// The LLM fallback only fires when no pattern matched and a client exists.
func ParseBudget(ctx context.Context, phrase string, client llm.Client) map[string]int64 {
	filter := map[string]int64{"min_price": 0, "max_price": 0}

	if _, rng := intent.ExtractBudget(phrase); rng.Min > 0 || rng.Max > 0 {
		filter["min_price"] = rng.Min
		filter["max_price"] = rng.Max
		return filter
	}
	if level := intent.ExtractBudgetLevel(phrase); level != "" {
		r := levelPriceRanges[level]
		filter["min_price"] = r.Min
		filter["max_price"] = r.Max
		return filter
	}

	if client == nil {
		return filter
	}
	obj, err := client.ExtractJSON(ctx, phrase, budgetParserSystemPrompt)
	if err != nil {
		slog.Warn("expert: budget LLM parse failed", "error", err)
		return filter
	}
	if v, ok := asInt64(obj["min_price"]); ok {
		filter["min_price"] = v
	}
	if v, ok := asInt64(obj["max_price"]); ok {
		filter["max_price"] = v
	}
	return filter
}

// LevelPriceRange exposes the per-level range for other components.
func LevelPriceRange(level string) (min, max int64, ok bool) {
	r, found := levelPriceRanges[level]
	return r.Min, r.Max, found
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
