// Package chunk defines the response envelope streamed to the session layer.
// Every turn, unary or streaming, produces a sequence of Chunks; the final
// chunk always carries StatusComplete.
package chunk

import "encoding/json"

// Status indicates the delivery state of a chunk within a turn.
type Status string

const (
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
	StatusBlocked  Status = "blocked"
)

// UIType selects the client-side rendering for a chunk's UIData payload.
type UIType string

const (
	UINone              UIType = "none"
	UIText              UIType = "text"
	UIGreeting          UIType = "greeting"
	UIChitchat          UIType = "chitchat"
	UIThanks            UIType = "thanks"
	UIFarewell          UIType = "farewell"
	UIOptions           UIType = "options"
	UIHotelCards        UIType = "hotel_cards"
	UISpotCards         UIType = "spot_cards"
	UIFoodCards         UIType = "food_cards"
	UIItinerary         UIType = "itinerary"
	UIItineraryBuilder  UIType = "itinerary_builder"
	UIItineraryDisplay  UIType = "itinerary_display"
	UIBooking           UIType = "booking"
	UIBookingPrompt     UIType = "booking_prompt"
	UIComprehensive     UIType = "comprehensive"
	UICost              UIType = "cost"
	UICostBreakdown     UIType = "cost_breakdown"
	UIDistanceInfo      UIType = "distance_info"
	UISpotDetail        UIType = "spot_detail"
	UIHotelDetail       UIType = "hotel_detail"
	UIFoodDetail        UIType = "food_detail"
	UITips              UIType = "tips"
	UIMonthSelector     UIType = "month_selector"
	UISpotSelectorTable UIType = "spot_selector_table"
	UISpotSelectorUpd   UIType = "spot_selector_update"
	UIError             UIType = "error"
)

// Entities is the slot snapshot attached to chunk metadata.
type Entities struct {
	Destination   string   `json:"destination,omitempty"`
	Duration      int      `json:"duration,omitempty"`
	PeopleCount   int      `json:"people_count,omitempty"`
	Budget        int64    `json:"budget,omitempty"`
	BudgetLevel   string   `json:"budget_level,omitempty"`
	Interests     []string `json:"interests,omitempty"`
	CompanionType string   `json:"companion_type,omitempty"`
}

// Metadata describes how a chunk was produced: the intent actually used
// after re-ranking, the extracted entities, and the workflow position.
type Metadata struct {
	Intent          string   `json:"intent"`
	SubIntents      []string `json:"sub_intents,omitempty"`
	Entities        Entities `json:"entities"`
	Confidence      float64  `json:"confidence"`
	WorkflowState   string   `json:"workflow_state"`
	FlowAction      string   `json:"flow_action,omitempty"`
	ContextRelation string   `json:"context_relation,omitempty"`
}

// Chunk is the unit of output streamed to the caller.
type Chunk struct {
	// Reply is markdown intended for direct display.
	Reply string `json:"reply"`

	// UIType selects the ui_data schema.
	UIType UIType `json:"ui_type"`

	// UIData is the type-specific payload (cards, selectors, breakdowns).
	UIData map[string]any `json:"ui_data,omitempty"`

	Status Status `json:"status"`

	Metadata *Metadata `json:"metadata,omitempty"`

	// Context is the serialized conversation context snapshot at emission
	// time, to be persisted by the caller.
	Context json.RawMessage `json:"context,omitempty"`

	ExecutionTimeMs int64 `json:"execution_time_ms,omitempty"`
}

// Partial builds a partial chunk with the given reply and UI payload.
func Partial(reply string, ui UIType, data map[string]any) *Chunk {
	return &Chunk{Reply: reply, UIType: ui, UIData: data, Status: StatusPartial}
}

// Complete builds the terminal chunk of a turn. Reply may be empty.
func Complete(reply string, ui UIType, data map[string]any) *Chunk {
	return &Chunk{Reply: reply, UIType: ui, UIData: data, Status: StatusComplete}
}

// Error builds an error chunk with a display message.
func Error(msg string) *Chunk {
	return &Chunk{Reply: msg, UIType: UIError, Status: StatusError}
}

// Blocked builds a flow-violation chunk with action buttons.
func Blocked(msg string, actions []map[string]any) *Chunk {
	data := map[string]any{}
	if len(actions) > 0 {
		data["actions"] = actions
	}
	return &Chunk{Reply: msg, UIType: UIOptions, UIData: data, Status: StatusBlocked}
}
