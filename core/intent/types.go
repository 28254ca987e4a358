// Package intent turns a raw user utterance into a structured intent record,
// inheriting missing slots from the conversation context. Extraction cascades
// through high-confidence pattern pre-checks, an LLM JSON call, and a regex
// fallback.
package intent

import (
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
)

// Intent labels form a closed set.
const (
	Greeting           = "greeting"
	Farewell           = "farewell"
	Thanks             = "thanks"
	Chitchat           = "chitchat"
	PlanTrip           = "plan_trip"
	ShowItinerary      = "show_itinerary"
	FindSpot           = "find_spot"
	FindHotel          = "find_hotel"
	FindFood           = "find_food"
	BookHotel          = "book_hotel"
	CalculateCost      = "calculate_cost"
	UpdatePeopleCount  = "update_people_count"
	GetPlaceDetails    = "get_place_details"
	GetLocationTips    = "get_location_tips"
	GetLocationDetails = "get_location_details"
	GetDistance        = "get_distance"
	GetDirections      = "get_directions"
	GetWeatherForecast = "get_weather_forecast"
	MoreSpots          = "more_spots"
	MoreHotels         = "more_hotels"
	MoreFood           = "more_food"
	GetDetail          = "get_detail"
	GeneralQA          = "general_qa"
)

// Flow actions signal builder navigation.
const (
	FlowContinue = "continue"
	FlowFinalize = "finalize"
	FlowBack     = "back"
	FlowCancel   = "cancel"
)

// Context relations describe how the utterance relates to prior turns.
const (
	RelationNewTopic     = "new_topic"
	RelationContinuation = "continuation"
	RelationRefinement   = "refinement"
	RelationReference    = "reference"
)

// Record is the structured intent extracted for one turn. It is never
// persisted beyond the turn, but its slots may promote into the Context.
type Record struct {
	PrimaryIntent string   `json:"primary_intent"`
	SubIntents    []string `json:"sub_intents,omitempty"`

	Location      string   `json:"location,omitempty"`
	Duration      int      `json:"duration,omitempty"`
	Budget        int64    `json:"budget,omitempty"`
	BudgetLevel   string   `json:"budget_level,omitempty"`
	PeopleCount   int      `json:"people_count,omitempty"`
	CompanionType string   `json:"companion_type,omitempty"`
	Interests     []string `json:"interests,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`

	// SelectedHotelName is populated by the booking pre-check.
	SelectedHotelName string `json:"selected_hotel_name,omitempty"`

	FlowAction      string  `json:"flow_action,omitempty"`
	ContextRelation string  `json:"context_relation,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// precedence ranks conflicting detections; lower index wins.
var precedence = []string{
	BookHotel,
	CalculateCost,
	ShowItinerary,
	UpdatePeopleCount,
	GetPlaceDetails,
	GetLocationTips,
	FindHotel,
	FindSpot,
	FindFood,
	PlanTrip,
	Greeting,
	Chitchat,
}

// ResolvePrecedence picks the winning label out of several detections.
func ResolvePrecedence(detected []string) string {
	if len(detected) == 0 {
		return GeneralQA
	}
	best := detected[0]
	bestRank := rank(best)
	for _, d := range detected[1:] {
		if r := rank(d); r < bestRank {
			best, bestRank = d, r
		}
	}
	return best
}

func rank(label string) int {
	for i, p := range precedence {
		if p == label {
			return i
		}
	}
	return len(precedence)
}

// HasSub reports whether a sub-intent is present on the record.
func (r *Record) HasSub(label string) bool {
	for _, s := range r.SubIntents {
		if s == label {
			return true
		}
	}
	return false
}

// DropSub removes a sub-intent label in place.
func (r *Record) DropSub(label string) {
	out := r.SubIntents[:0]
	for _, s := range r.SubIntents {
		if s != label {
			out = append(out, s)
		}
	}
	r.SubIntents = out
}

// MergeContext inherits missing slots from the context. A freshly extracted
// destination or duration overrides; everything else fills gaps only.
func (r *Record) MergeContext(c *convo.Context) {
	if c == nil {
		return
	}
	if r.Location == "" {
		r.Location = c.Destination
	}
	if r.Duration == 0 {
		r.Duration = c.Duration
	}
	if r.Budget == 0 {
		r.Budget = c.Budget
	}
	if r.BudgetLevel == "" {
		r.BudgetLevel = c.BudgetLevel
	}
	if r.PeopleCount == 0 {
		r.PeopleCount = c.PeopleCount
	}
	if r.CompanionType == "" {
		r.CompanionType = c.CompanionType
	}
	if len(r.Interests) == 0 {
		r.Interests = c.Interests
	}
}
