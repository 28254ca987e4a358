// Package convo holds the per-session conversation context: extracted slots,
// selections, recent-result caches, the itinerary builder sub-state and the
// workflow position. The context is owned by the session layer and passed by
// reference into the core for exactly one turn at a time.
package convo

import (
	"time"
)

// WorkflowState is the position in the traveler pipeline.
type WorkflowState string

const (
	StateInitial         WorkflowState = "INITIAL"
	StateGatheringInfo   WorkflowState = "GATHERING_INFO"
	StateChoosingSpots   WorkflowState = "CHOOSING_SPOTS"
	StateChoosingHotel   WorkflowState = "CHOOSING_HOTEL"
	StateReadyToFinalize WorkflowState = "READY_TO_FINALIZE"
	StateCostEstimation  WorkflowState = "COST_ESTIMATION"
	StateFinalized       WorkflowState = "FINALIZED"
)

// Budget levels map onto fixed per-night price ranges in the hotel expert.
const (
	BudgetThrifty = "thrifty"
	BudgetMid     = "mid"
	BudgetLuxury  = "luxury"
)

// Companion types recognized by the intent extractor.
const (
	CompanionSolo     = "solo"
	CompanionCouple   = "couple"
	CompanionFamily   = "family"
	CompanionFriends  = "friends"
	CompanionBusiness = "business"
)

// maxRecent bounds the per-category recent-result caches used for
// reference resolution ("the first hotel", "this place").
const maxRecent = 10

// maxHistory bounds the chat history ring.
const maxHistory = 20

// ChatMessage is one entry of the bounded chat history ring.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SpotSelection is a spot the user committed to, with its day assignment.
// A copy survives builder reset so finalize can rebuild from it.
type SpotSelection struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Day         int     `json:"day"`
	Category    string  `json:"category,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lng         float64 `json:"lng,omitempty"`
	Image       string  `json:"image,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

// BuilderState is the interactive itinerary builder sub-dialog state.
// It has no back-pointer to the Context; the orchestrator reads both
// from the same owner.
type BuilderState struct {
	Location    string `json:"location"`
	TotalDays   int    `json:"total_days"`
	CurrentDay  int    `json:"current_day"`
	StartDate   string `json:"start_date,omitempty"`

	// DaysPlan maps day number to the ordered spot records chosen for it.
	DaysPlan map[int][]map[string]any `json:"days_plan"`

	// AvailableSpots is the bounded candidate list offered during the loop.
	AvailableSpots []map[string]any `json:"available_spots,omitempty"`

	WaitingForStartDate      bool `json:"waiting_for_start_date"`
	WaitingForMonthSelection bool `json:"waiting_for_month_selection"`
	AutoGenerateMode         bool `json:"auto_generate_mode"`
}

// ItineraryDay is one day of a finalized plan.
type ItineraryDay struct {
	Day   int              `json:"day"`
	Title string           `json:"title,omitempty"`
	Spots []map[string]any `json:"spots"`
}

// Itinerary is the finalized day-by-day plan.
type Itinerary struct {
	Location      string           `json:"location"`
	Duration      int              `json:"duration"`
	StartDate     string           `json:"start_date,omitempty"`
	Days          []ItineraryDay   `json:"days"`
	EstimatedCost int64            `json:"estimated_cost,omitempty"`
	Verification  map[string]any   `json:"verification,omitempty"`
	BudgetWarning string           `json:"budget_warning,omitempty"`
}

// Context is the per-session mutable record.
type Context struct {
	SessionID string `json:"session_id,omitempty"`

	// Slots.
	Destination   string   `json:"destination,omitempty"`
	Duration      int      `json:"duration,omitempty"`
	StartDate     string   `json:"start_date,omitempty"`
	Budget        int64    `json:"budget,omitempty"`
	BudgetLevel   string   `json:"budget_level,omitempty"`
	PeopleCount   int      `json:"people_count,omitempty"`
	CompanionType string   `json:"companion_type,omitempty"`
	Interests     []string `json:"interests,omitempty"`

	// Selections.
	SelectedHotel      map[string]any  `json:"selected_hotel,omitempty"`
	SelectedHotelPrice int64           `json:"selected_hotel_price,omitempty"`
	SelectedSpots      []SpotSelection `json:"selected_spots,omitempty"`
	SelectedSpotIDs    []string        `json:"selected_spot_ids,omitempty"`

	// Recent results (bounded, for reference resolution and "more" offsets).
	LastSpots  []map[string]any `json:"last_spots,omitempty"`
	LastHotels []map[string]any `json:"last_hotels,omitempty"`
	LastFoods  []map[string]any `json:"last_foods,omitempty"`

	Builder       *BuilderState `json:"itinerary_builder,omitempty"`
	LastItinerary *Itinerary    `json:"last_itinerary,omitempty"`

	Workflow        WorkflowState `json:"workflow_state,omitempty"`
	LastIntent      string        `json:"last_intent,omitempty"`
	AnsweredIntents []string      `json:"answered_intents,omitempty"`
	ChatHistory     []ChatMessage `json:"chat_history,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// extra preserves unknown fields across serialize/restore cycles.
	extra map[string]any
}

// New returns a fresh context in the INITIAL state.
func New(sessionID string) *Context {
	return &Context{
		SessionID: sessionID,
		Workflow:  StateInitial,
	}
}

// State returns the workflow state, defaulting to INITIAL.
func (c *Context) State() WorkflowState {
	if c.Workflow == "" {
		return StateInitial
	}
	return c.Workflow
}

// AppendHistory pushes a message onto the bounded chat history ring.
func (c *Context) AppendHistory(role, content string) {
	c.ChatHistory = append(c.ChatHistory, ChatMessage{Role: role, Content: content})
	if len(c.ChatHistory) > maxHistory {
		c.ChatHistory = c.ChatHistory[len(c.ChatHistory)-maxHistory:]
	}
}

// CacheSpots replaces the recent-spot cache, bounded at maxRecent.
func (c *Context) CacheSpots(spots []map[string]any) {
	c.LastSpots = bound(spots)
}

// CacheHotels replaces the recent-hotel cache, bounded at maxRecent.
func (c *Context) CacheHotels(hotels []map[string]any) {
	c.LastHotels = bound(hotels)
}

// CacheFoods replaces the recent-food cache, bounded at maxRecent.
func (c *Context) CacheFoods(foods []map[string]any) {
	c.LastFoods = bound(foods)
}

func bound(records []map[string]any) []map[string]any {
	if len(records) > maxRecent {
		return records[:maxRecent]
	}
	return records
}

// HasSpotID reports whether a spot id was already offered or selected.
func (c *Context) HasSpotID(id string) bool {
	for _, s := range c.SelectedSpotIDs {
		if s == id {
			return true
		}
	}
	return false
}

// AddSpotID records a spot id in the dedup set.
func (c *Context) AddSpotID(id string) {
	if id == "" || c.HasSpotID(id) {
		return
	}
	c.SelectedSpotIDs = append(c.SelectedSpotIDs, id)
}

// MarkAnswered records an intent as satisfied so follow-up turns do not
// re-ask for its slots.
func (c *Context) MarkAnswered(intent string) {
	for _, a := range c.AnsweredIntents {
		if a == intent {
			return
		}
	}
	c.AnsweredIntents = append(c.AnsweredIntents, intent)
}

// IsAnswered reports whether an intent was already satisfied this session.
func (c *Context) IsAnswered(intent string) bool {
	for _, a := range c.AnsweredIntents {
		if a == intent {
			return true
		}
	}
	return false
}

// NewBuilder initializes the itinerary builder sub-state for a destination.
func NewBuilder(location string, totalDays int) *BuilderState {
	return &BuilderState{
		Location:   location,
		TotalDays:  totalDays,
		CurrentDay: 1,
		DaysPlan:   make(map[int][]map[string]any),
	}
}

// SpotIDs returns the union of spot ids across the builder's day plan.
func (b *BuilderState) SpotIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for day := 1; day <= b.TotalDays; day++ {
		for _, spot := range b.DaysPlan[day] {
			if id, ok := spot["id"].(string); ok && id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
