package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

// Extractor produces one intent record per turn.
type Extractor struct {
	llm     llm.Client // nil disables the LLM path
	aliases *store.Aliases
}

// NewExtractor builds an extractor. A nil LLM client is allowed; extraction
// then uses pre-checks and the regex fallback only.
func NewExtractor(client llm.Client, aliases *store.Aliases) *Extractor {
	if aliases == nil {
		aliases = store.NewAliases()
	}
	return &Extractor{llm: client, aliases: aliases}
}

const extractionSystemPrompt = `You are an intent extraction engine for a Vietnamese travel assistant.
Return ONLY a JSON object with these fields:
{
  "primary_intent": one of [greeting, farewell, thanks, chitchat, plan_trip, show_itinerary, find_spot, find_hotel, find_food, book_hotel, calculate_cost, update_people_count, get_place_details, get_location_tips, get_location_details, get_distance, get_directions, get_weather_forecast, more_spots, more_hotels, more_food, get_detail, general_qa],
  "sub_intents": [additional intents, excluding the primary],
  "location": "destination name or null",
  "duration": integer days or null,
  "budget": integer VND or null,
  "budget_level": "thrifty" | "mid" | "luxury" | null,
  "people_count": integer or null,
  "companion_type": "solo" | "couple" | "family" | "friends" | "business" | null,
  "interests": [tags],
  "keywords": [salient query words],
  "flow_action": "continue" | "finalize" | "back" | "cancel" | null,
  "context_relation": "new_topic" | "continuation" | "refinement" | "reference",
  "confidence": 0..1
}
Inference rules: "với bạn gái/người yêu" → people_count=2, companion_type=couple; "gia đình" → people_count=4, companion_type=family; "một mình" → people_count=1, companion_type=solo; "3 ngày 2 đêm" → duration=3; "cuối tuần" → duration=2; "1 tuần" → duration=7.
Null means the utterance does not mention the slot; never guess.`

// Extract runs the cascade: pre-checks, LLM, regex fallback. The returned
// record has context slots merged in.
func (e *Extractor) Extract(ctx context.Context, utterance string, c *convo.Context) *Record {
	start := time.Now()

	rec := Precheck(utterance)
	path := "precheck"

	if rec == nil && e.llm != nil {
		if llmRec, err := e.extractLLM(ctx, utterance, c); err == nil {
			rec = llmRec
			path = "llm"
		} else {
			slog.Warn("intent: LLM extraction failed, using regex fallback", "error", err)
		}
	}
	if rec == nil {
		rec = Fallback(utterance)
		path = "fallback"
	}

	if rec.Location == "" {
		if info, ok := e.aliases.Normalize(utterance); ok {
			rec.Location = info.Name
		}
	}
	rec.MergeContext(c)

	slog.Debug("intent: extracted",
		"path", path,
		"primary", rec.PrimaryIntent,
		"sub_intents", rec.SubIntents,
		"location", rec.Location,
		"confidence", rec.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec
}

func (e *Extractor) extractLLM(ctx context.Context, utterance string, c *convo.Context) (*Record, error) {
	prompt := buildExtractionPrompt(utterance, c)
	obj, err := e.llm.ExtractJSON(ctx, prompt, extractionSystemPrompt)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON to coerce the loose map into the record.
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	rec := &Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	if !validIntent(rec.PrimaryIntent) {
		fallback := Fallback(utterance)
		slog.Warn("intent: LLM returned unknown label, falling back",
			"label", rec.PrimaryIntent, "fallback", fallback.PrimaryIntent)
		return fallback, nil
	}
	if rec.Confidence == 0 {
		rec.Confidence = 0.8
	}

	// Regex slot extraction backfills anything the model left null.
	ApplySlots(rec, utterance)
	return rec, nil
}

func buildExtractionPrompt(utterance string, c *convo.Context) string {
	var sb strings.Builder
	sb.WriteString("Current conversation state:\n")
	if c != nil {
		if c.Destination != "" {
			sb.WriteString("- destination: " + c.Destination + "\n")
		}
		if c.Duration > 0 {
			sb.WriteString("- duration_days: " + strconv.Itoa(c.Duration) + "\n")
		}
		sb.WriteString("- workflow_state: " + string(c.State()) + "\n")
		if n := len(c.ChatHistory); n > 0 {
			sb.WriteString("Recent messages:\n")
			for _, msg := range c.ChatHistory[max(0, n-4):] {
				sb.WriteString("  " + msg.Role + ": " + msg.Content + "\n")
			}
		}
	}
	sb.WriteString("\nUser utterance: " + utterance)
	return sb.String()
}

var validIntents = map[string]bool{
	Greeting: true, Farewell: true, Thanks: true, Chitchat: true,
	PlanTrip: true, ShowItinerary: true, FindSpot: true, FindHotel: true,
	FindFood: true, BookHotel: true, CalculateCost: true,
	UpdatePeopleCount: true, GetPlaceDetails: true, GetLocationTips: true,
	GetLocationDetails: true, GetDistance: true, GetDirections: true,
	GetWeatherForecast: true, MoreSpots: true, MoreHotels: true,
	MoreFood: true, GetDetail: true, GeneralQA: true,
}

func validIntent(label string) bool { return validIntents[label] }
