// Package verify validates a day-by-day itinerary against time-of-day
// rules and an optional LLM critic, then repairs error-severity issues in
// place.
package verify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
)

// Slot is one of six time-of-day buckets.
type Slot string

const (
	SlotEarlyMorning Slot = "early_morning" // 05–07
	SlotMorning      Slot = "morning"       // 07–11
	SlotMidday       Slot = "midday"        // 11–14
	SlotAfternoon    Slot = "afternoon"     // 14–17
	SlotEvening      Slot = "evening"       // 17–21
	SlotNight        Slot = "night"         // 21–24
)

// Severity of a detected issue.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// IssueTimeOfDayMismatch is the only rule-phase issue type.
const IssueTimeOfDayMismatch = "time_of_day_mismatch"

// Issue is one verification finding.
type Issue struct {
	Day           int    `json:"day"`
	SpotID        string `json:"spot_id,omitempty"`
	SpotName      string `json:"spot_name"`
	Type          string `json:"type"`
	Problem       string `json:"problem"`
	Severity      string `json:"severity"`
	CurrentSlot   Slot   `json:"current_slot,omitempty"`
	ExpectedSlots []Slot `json:"expected_slots,omitempty"`
	SuggestedSlot Slot   `json:"suggested_slot,omitempty"`
}

// Report is the outcome of a verification pass.
type Report struct {
	Verdict string  `json:"verdict"` // pass, warning, fail
	Issues  []Issue `json:"issues,omitempty"`
	Fixed   bool    `json:"fixed,omitempty"`
}

// SlotOf buckets a "HH:MM" time string. Unparseable times land in morning.
func SlotOf(timeStr string) Slot {
	hour := 9
	if idx := strings.IndexByte(timeStr, ':'); idx > 0 {
		if h, err := strconv.Atoi(strings.TrimSpace(timeStr[:idx])); err == nil {
			hour = h
		}
	} else if h, err := strconv.Atoi(strings.TrimSpace(timeStr)); err == nil {
		hour = h
	}
	switch {
	case hour >= 5 && hour < 7:
		return SlotEarlyMorning
	case hour < 11:
		return SlotMorning
	case hour < 14:
		return SlotMidday
	case hour < 17:
		return SlotAfternoon
	case hour < 21:
		return SlotEvening
	default:
		return SlotNight
	}
}

// slotTimes maps each slot to the representative time auto-fix assigns.
var slotTimes = map[Slot]string{
	SlotEarlyMorning: "06:00",
	SlotMorning:      "09:00",
	SlotMidday:       "12:00",
	SlotAfternoon:    "15:00",
	SlotEvening:      "19:00",
	SlotNight:        "21:30",
}

// categorySlots constrains activity categories to allowed slots.
var categorySlots = map[string][]Slot{
	"night_market": {SlotEvening, SlotNight},
	"bar":          {SlotEvening, SlotNight},
	"nightlife":    {SlotEvening, SlotNight},
	"sunset":       {SlotAfternoon, SlotEvening},
	"sunrise":      {SlotEarlyMorning, SlotMorning},
}

// nameSlots constrains activities by name substring, checked on the
// lowercased name. Ordered so more specific patterns win.
var nameSlots = []struct {
	substr string
	slots  []Slot
}{
	{"chợ đêm", []Slot{SlotEvening, SlotNight}},
	{"phố đêm", []Slot{SlotEvening, SlotNight}},
	{"night market", []Slot{SlotEvening, SlotNight}},
	{"hoàng hôn", []Slot{SlotAfternoon, SlotEvening}},
	{"sunset", []Slot{SlotAfternoon, SlotEvening}},
	{"bình minh", []Slot{SlotEarlyMorning, SlotMorning}},
	{"sunrise", []Slot{SlotEarlyMorning, SlotMorning}},
}

// Verifier runs the dual-phase check.
type Verifier struct {
	llm llm.Client // nil disables the critic phase
}

// New builds a verifier. The LLM client may be nil.
func New(client llm.Client) *Verifier {
	return &Verifier{llm: client}
}

// VerifyRules runs the rule phase only. Empty days are ignored.
func (v *Verifier) VerifyRules(it *convo.Itinerary) []Issue {
	var issues []Issue
	for _, day := range it.Days {
		for _, spot := range day.Spots {
			name := spotName(spot)
			if name == "" {
				continue
			}
			cur := SlotOf(stringField(spot, "time"))

			if expected := patternSlots(spot); len(expected) > 0 && !slotAllowed(cur, expected) {
				issues = append(issues, Issue{
					Day:           day.Day,
					SpotID:        stringField(spot, "id"),
					SpotName:      name,
					Type:          IssueTimeOfDayMismatch,
					Problem:       fmt.Sprintf("%s được xếp vào khung %s nhưng chỉ phù hợp %s", name, cur, joinSlots(expected)),
					Severity:      SeverityError,
					CurrentSlot:   cur,
					ExpectedSlots: expected,
					SuggestedSlot: expected[0],
				})
				continue
			}

			if best := bestVisitSlots(spot); len(best) > 0 && !slotAllowed(cur, best) {
				issues = append(issues, Issue{
					Day:           day.Day,
					SpotID:        stringField(spot, "id"),
					SpotName:      name,
					Type:          IssueTimeOfDayMismatch,
					Problem:       fmt.Sprintf("%s thường đẹp nhất vào %s", name, joinSlots(best)),
					Severity:      SeverityWarning,
					CurrentSlot:   cur,
					ExpectedSlots: best,
					SuggestedSlot: best[0],
				})
			}
		}
	}
	return issues
}

// patternSlots returns the allowed slots from the category and name tables.
func patternSlots(spot map[string]any) []Slot {
	if cat := strings.ToLower(stringField(spot, "category")); cat != "" {
		if slots, ok := categorySlots[cat]; ok {
			return slots
		}
	}
	lower := strings.ToLower(spotName(spot))
	for _, p := range nameSlots {
		if strings.Contains(lower, p.substr) {
			return p.slots
		}
	}
	return nil
}

// bestVisitSlots reads the record's own best_visit_time list.
func bestVisitSlots(spot map[string]any) []Slot {
	raw, ok := spot["best_visit_time"]
	if !ok {
		return nil
	}
	var slots []Slot
	appendSlot := func(s string) {
		switch Slot(strings.ToLower(strings.TrimSpace(s))) {
		case SlotEarlyMorning, SlotMorning, SlotMidday, SlotAfternoon, SlotEvening, SlotNight:
			slots = append(slots, Slot(strings.ToLower(strings.TrimSpace(s))))
		}
	}
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			appendSlot(s)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				appendSlot(s)
			}
		}
	case string:
		appendSlot(v)
	}
	return slots
}

func slotAllowed(cur Slot, allowed []Slot) bool {
	for _, s := range allowed {
		if s == cur {
			return true
		}
	}
	return false
}

func joinSlots(slots []Slot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func spotName(spot map[string]any) string {
	if name := stringField(spot, "name"); name != "" {
		return name
	}
	return stringField(spot, "activity")
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
