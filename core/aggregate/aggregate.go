// Package aggregate turns expert results into display replies and UI
// payloads: per-intent formatting for single results, fixed-order section
// assembly for multi-intent turns.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
)

// Stage names in assembly order.
const (
	StageDiscovery = "discovery"
	StageSpots     = "spots"
	StageHotels    = "hotels"
	StageFood      = "food"
	StageItinerary = "itinerary"
	StageCost      = "cost"
)

// StageOrder is the fixed section order for assembly and streaming.
var StageOrder = []string{StageDiscovery, StageSpots, StageHotels, StageFood, StageItinerary, StageCost}

// Section is one formatted block of a reply.
type Section struct {
	Stage  string
	Reply  string
	UIType chunk.UIType
	UIData map[string]any
}

// FormatStage renders the results of one pipeline stage into a section.
// Nil means the stage produced nothing displayable.
func FormatStage(stage string, results []*expert.Result) *Section {
	records, summaries := collect(results)
	if len(records) == 0 && len(summaries) == 0 {
		return nil
	}

	switch stage {
	case StageSpots:
		return spotSection(records)
	case StageHotels:
		return hotelSection(records)
	case StageFood:
		return foodSection(records, summaries)
	case StageItinerary:
		return itinerarySection(records)
	case StageCost:
		return costSection(records)
	default:
		return discoverySection(records, summaries)
	}
}

// Assemble merges sections into one reply for the unary path. Streaming
// sends sections individually, so no header is added there.
func Assemble(sections []*Section, header string) (*string, chunk.UIType, map[string]any) {
	var parts []string
	if header != "" {
		parts = append(parts, header)
	}
	merged := map[string]any{}
	uiType := chunk.UIText

	count := 0
	for _, s := range sections {
		if s == nil {
			continue
		}
		count++
		parts = append(parts, s.Reply)
		uiType = s.UIType
		for k, v := range s.UIData {
			merged[k] = v
		}
	}
	if count > 1 {
		uiType = chunk.UIComprehensive
	}
	reply := strings.Join(parts, "\n\n")
	return &reply, uiType, merged
}

func collect(results []*expert.Result) ([]map[string]any, []string) {
	var records []map[string]any
	var summaries []string
	for _, r := range results {
		if r == nil || !r.Success {
			continue
		}
		records = append(records, r.Data...)
		if r.Summary != "" {
			summaries = append(summaries, r.Summary)
		}
	}
	return records, summaries
}

func spotSection(records []map[string]any) *Section {
	records = CleanSpots(records)
	if len(records) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("📍 **Địa điểm gợi ý:**\n")
	for i, r := range records {
		fmt.Fprintf(&sb, "%d. **%v**", i+1, r["name"])
		if rd, ok := r["rating_display"].(string); ok {
			sb.WriteString(" " + rd)
		}
		sb.WriteString("\n")
	}
	return &Section{
		Stage:  StageSpots,
		Reply:  sb.String(),
		UIType: chunk.UISpotCards,
		UIData: map[string]any{"spots": records},
	}
}

func hotelSection(records []map[string]any) *Section {
	records = CleanHotels(records)
	if len(records) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("🏨 **Khách sạn phù hợp:**\n")
	for i, r := range records {
		fmt.Fprintf(&sb, "%d. **%v**", i+1, r["name"])
		if pd, ok := r["price_display"].(string); ok {
			sb.WriteString(" — " + pd)
		}
		sb.WriteString("\n")
	}
	return &Section{
		Stage:  StageHotels,
		Reply:  sb.String(),
		UIType: chunk.UIHotelCards,
		UIData: map[string]any{
			"hotels":  records,
			"actions": []map[string]any{{"label": "Đặt phòng", "action": "book_hotel"}},
		},
	}
}

func foodSection(records []map[string]any, summaries []string) *Section {
	// Regional-specialty fallback records carry dish names, not eateries.
	for _, r := range records {
		if r["type"] == "regional_specialty" {
			reply := "🍜 **Đặc sản địa phương:** "
			if dishes, ok := r["dishes"].([]string); ok {
				reply += strings.Join(dishes, ", ")
			} else if len(summaries) > 0 {
				reply = "🍜 " + summaries[0]
			}
			return &Section{Stage: StageFood, Reply: reply, UIType: chunk.UIFoodCards, UIData: map[string]any{"specialties": r}}
		}
	}

	records = CleanRecords(records)
	if len(records) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("🍜 **Quán ăn ngon:**\n")
	for i, r := range records {
		fmt.Fprintf(&sb, "%d. **%v**\n", i+1, r["name"])
	}
	return &Section{
		Stage:  StageFood,
		Reply:  sb.String(),
		UIType: chunk.UIFoodCards,
		UIData: map[string]any{"foods": records},
	}
}

func itinerarySection(records []map[string]any) *Section {
	for _, r := range records {
		if r["days"] == nil {
			continue
		}
		reply := renderItineraryRecord(r)
		if adjusted, _ := r["auto_adjusted"].(bool); adjusted {
			reply += "\n✅ Đã tự động điều chỉnh lịch trình cho hợp khung giờ."
		}
		return &Section{
			Stage:  StageItinerary,
			Reply:  reply,
			UIType: chunk.UIItinerary,
			UIData: map[string]any{"itinerary": r, "slots": []string{"morning", "noon", "afternoon", "evening"}},
		}
	}
	return nil
}

func costSection(records []map[string]any) *Section {
	for _, r := range records {
		if r["type"] != "costs" {
			continue
		}
		var sb strings.Builder
		sb.WriteString("💰 **Chi phí ước tính:**\n")
		writeCostLine(&sb, "Khách sạn", r["accommodation"])
		writeCostLine(&sb, "Ăn uống", r["food"])
		writeCostLine(&sb, "Di chuyển", r["transport"])
		writeCostLine(&sb, "Vui chơi", r["activities"])
		writeCostLine(&sb, "**Tổng**", r["total"])
		writeCostLine(&sb, "Mỗi người", r["per_person"])
		return &Section{
			Stage:  StageCost,
			Reply:  sb.String(),
			UIType: chunk.UICostBreakdown,
			UIData: map[string]any{"costs": r},
		}
	}
	return nil
}

func discoverySection(records []map[string]any, summaries []string) *Section {
	if len(summaries) == 0 {
		return nil
	}
	return &Section{
		Stage:  StageDiscovery,
		Reply:  strings.Join(summaries, "\n\n"),
		UIType: chunk.UIText,
		UIData: map[string]any{"records": CleanRecords(records)},
	}
}

func renderItineraryRecord(r map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓️ **Lịch trình %v ngày tại %v:**\n", r["duration"], r["location"])
	days, _ := r["days"].([]map[string]any)
	if days == nil {
		if raw, ok := r["days"].([]any); ok {
			for _, d := range raw {
				if m, ok := d.(map[string]any); ok {
					days = append(days, m)
				}
			}
		}
	}
	for _, day := range days {
		fmt.Fprintf(&sb, "\n**Ngày %v:**", day["day"])
		if title, ok := day["title"].(string); ok && title != "" {
			fmt.Fprintf(&sb, " %s", title)
		}
		sb.WriteString("\n")
		for _, actRaw := range toList(day["activities"]) {
			act, ok := actRaw.(map[string]any)
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "- %v: %v\n", act["time"], act["activity"])
		}
	}
	return sb.String()
}

func writeCostLine(sb *strings.Builder, label string, v any) {
	switch n := v.(type) {
	case int64:
		fmt.Fprintf(sb, "- %s: %s\n", label, expert.FormatVND(n))
	case float64:
		fmt.Fprintf(sb, "- %s: %s\n", label, expert.FormatVND(int64(n)))
	}
}

func toList(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	}
	return nil
}
