package aggregate

import (
	"fmt"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
)

const (
	// fallbackImage renders when a record has no photo.
	fallbackImage = "https://placehold.co/400x300?text=TravelGO"

	maxDescription = 160
)

// internal fields never shipped to the UI.
var strippedFields = []string{"embedding", "score", "_id"}

// CleanRecords strips internal fields and normalizes display helpers on a
// copy of each record.
func CleanRecords(records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, cleanOne(r, false))
	}
	return out
}

// CleanSpots cleans spot records (rating already on the 0–5 scale).
func CleanSpots(records []map[string]any) []map[string]any {
	return CleanRecords(records)
}

// CleanHotels cleans hotel records, halving the stored 0–10 rating for
// display.
func CleanHotels(records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, cleanOne(r, true))
	}
	return out
}

func cleanOne(r map[string]any, halveRating bool) map[string]any {
	cleaned := make(map[string]any, len(r))
	for k, v := range r {
		cleaned[k] = v
	}
	for _, f := range strippedFields {
		delete(cleaned, f)
	}

	if rating, ok := asFloat(cleaned["rating"]); ok && rating > 0 {
		if halveRating {
			rating /= 2
			cleaned["rating"] = rating
		}
		cleaned["rating_display"] = fmt.Sprintf("⭐%.1f/5", rating)
	}
	if price, ok := asFloat(cleaned["price"]); ok && price > 0 {
		cleaned["price_display"] = expert.FormatVND(int64(price)) + "/đêm"
	}
	if img, _ := cleaned["image"].(string); img == "" {
		cleaned["image"] = fallbackImage
	}
	if desc, ok := cleaned["description"].(string); ok {
		cleaned["description"] = Truncate(desc, maxDescription)
	}
	return cleaned
}

// SynthesizeCost builds a detailed cost record when no cost expert ran:
// per-night accommodation from the top-3 hotel average (or the level
// default), daily costs scaled by duration and people count.
func SynthesizeCost(hotels []map[string]any, duration, people int, level string) map[string]any {
	var perNight int64
	n := 0
	for _, h := range hotels {
		if n == 3 {
			break
		}
		if price, ok := asFloat(h["price"]); ok && price > 0 {
			perNight += int64(price)
			n++
		}
	}
	if n > 0 {
		perNight /= int64(n)
	}

	b := expert.EstimateCost(duration, people, level, perNight)
	if duration <= 0 {
		duration = 3
	}
	return map[string]any{
		"type":           "costs",
		"currency":       "VND",
		"accommodation":  b.Accommodation,
		"food":           b.Food,
		"transport":      b.Transport,
		"activities":     b.Activities,
		"total":          b.Total,
		"per_person":     b.PerPerson,
		"daily_estimate": b.Total / int64(duration),
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Truncate shortens a string for summaries, rune-safe.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
