package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/weather"
)

// defaultDuration is used when the duration parameter is absent or invalid.
const defaultDuration = 3

const itinerarySystemPrompt = `You design Vietnamese travel itineraries.
Return ONLY JSON: {"days": [{"day": int, "title": string,
"activities": [{"time": "HH:MM", "activity": string, "location": string, "type": string}],
"meals": [string], "hotel": string}]}.
Rules: every location must be inside the given destination; never repeat a
spot across days; mix categories within a day (sightseeing, food, leisure).`

// ItineraryExpert composes a day-by-day plan with the LLM, grounded in the
// discovery results injected by the dispatcher, and synthesizes a simple
// plan when the LLM is unavailable.
type ItineraryExpert struct {
	llm     llm.Client
	weather weather.Service // nil skips the forecast preamble
}

// NewItineraryExpert builds the expert. Both clients may be nil.
func NewItineraryExpert(client llm.Client, ws weather.Service) *ItineraryExpert {
	return &ItineraryExpert{llm: client, weather: ws}
}

func (e *ItineraryExpert) Type() planner.TaskType { return planner.TaskCreateItinerary }

func (e *ItineraryExpert) Execute(ctx context.Context, _ string, params map[string]any, c *convo.Context) (*Result, error) {
	location := paramString(params, "location")
	if location == "" && c != nil {
		location = c.Destination
	}
	duration := paramInt(params, "duration")
	if duration <= 0 {
		duration = defaultDuration
	}

	spots := paramRecords(params, "spots_data")
	foods := paramRecords(params, "food_data")
	hotels := paramRecords(params, "hotel_data")

	days, summary := e.generate(ctx, location, duration, params, spots, foods, hotels)
	if len(days) == 0 {
		days = synthesizeDays(location, duration, spots, foods)
		summary = fmt.Sprintf("Lịch trình %d ngày tại %s", duration, location)
	}

	record := map[string]any{
		"type":     "itinerary",
		"location": location,
		"duration": duration,
		"days":     days,
	}
	if start := paramString(params, "start_date"); start != "" {
		record["start_date"] = start
	}
	return &Result{
		Data:     []map[string]any{record},
		Summary:  summary,
		Metadata: map[string]any{"location": location, "duration": duration},
	}, nil
}

// generate asks the LLM for the plan. An empty result means fall back.
func (e *ItineraryExpert) generate(ctx context.Context, location string, duration int, params map[string]any, spots, foods, hotels []map[string]any) ([]map[string]any, string) {
	if e.llm == nil {
		return nil, ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Destination: %s. Days: %d.\n", location, duration)
	if people := paramInt(params, "people_count"); people > 0 {
		fmt.Fprintf(&sb, "Travelers: %d.\n", people)
	}
	if budget := paramInt64(params, "budget"); budget > 0 {
		fmt.Fprintf(&sb, "Budget: %s total.\n", FormatVND(budget))
	}
	if interests := paramStrings(params, "interests"); len(interests) > 0 {
		fmt.Fprintf(&sb, "Interests: %s.\n", strings.Join(interests, ", "))
	}
	if preamble := e.weatherPreamble(ctx, location, paramString(params, "start_date"), duration); preamble != "" {
		sb.WriteString(preamble)
	}
	writeNames(&sb, "Available spots", spots)
	writeNames(&sb, "Recommended food", foods)
	writeNames(&sb, "Hotel options", hotels)

	obj, err := e.llm.ExtractJSON(ctx, sb.String(), itinerarySystemPrompt)
	if err != nil {
		slog.Warn("expert: itinerary LLM failed, synthesizing", "error", err)
		return nil, ""
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, ""
	}
	var parsed struct {
		Days []map[string]any `json:"days"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Days) == 0 {
		return nil, ""
	}
	return parsed.Days, fmt.Sprintf("Lịch trình %d ngày tại %s", duration, location)
}

func (e *ItineraryExpert) weatherPreamble(ctx context.Context, location, startDate string, days int) string {
	if e.weather == nil || startDate == "" {
		return ""
	}
	forecast, err := e.weather.GetWeather(ctx, location, startDate, days)
	if err != nil {
		slog.Debug("expert: weather unavailable for itinerary", "error", err)
		return ""
	}
	return "Weather constraints:\n" + weather.BuildWeatherResponse(forecast) + "\n"
}

func writeNames(sb *strings.Builder, label string, records []map[string]any) {
	if len(records) == 0 {
		return
	}
	sb.WriteString(label + ": ")
	var names []string
	for _, r := range records {
		if name, ok := r["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	sb.WriteString(strings.Join(names, "; ") + "\n")
}

// synthesizeDays deals spots round-robin across days, three per day, with
// one food suggestion each. Index-based, no LLM involved.
func synthesizeDays(location string, duration int, spots, foods []map[string]any) []map[string]any {
	times := []string{"08:00", "14:00", "19:00"}
	days := make([]map[string]any, 0, duration)

	spotIdx := 0
	for d := 1; d <= duration; d++ {
		var activities []map[string]any
		for slot := 0; slot < 3 && spotIdx < len(spots); slot++ {
			spot := spots[spotIdx]
			spotIdx++
			activities = append(activities, map[string]any{
				"time":     times[slot],
				"activity": spot["name"],
				"location": location,
				"type":     "sightseeing",
			})
		}
		day := map[string]any{
			"day":        d,
			"title":      fmt.Sprintf("Ngày %d tại %s", d, location),
			"activities": activities,
		}
		if len(foods) > 0 {
			if name, ok := foods[(d-1)%len(foods)]["name"].(string); ok {
				day["meals"] = []string{name}
			}
		}
		days = append(days, day)
	}
	return days
}
