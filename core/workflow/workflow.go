// Package workflow enforces the traveler pipeline: discovery, spot
// selection, hotel selection, then cost and finalization. It gates intents
// that lack preconditions and trims greedy multi-intent turns down to the
// stage the pipeline is actually in.
package workflow

import (
	"regexp"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
)

// Violation describes a gated intent: the reply prompts for the missing
// precondition instead of running the blocked task.
type Violation struct {
	Intent  string
	Message string
	UIType  chunk.UIType
	Actions []string
}

// Guard applies the state-guard matrix. It returns nil when the intent may
// proceed in the current state.
func Guard(rec *intent.Record, c *convo.Context) *Violation {
	switch rec.PrimaryIntent {
	case intent.CalculateCost:
		switch c.State() {
		case convo.StateChoosingHotel, convo.StateReadyToFinalize, convo.StateFinalized, convo.StateCostEstimation:
		default:
			// Auto-selection from recent hotels is allowed, so only a
			// turn with no hotel signal at all is blocked.
			if c.SelectedHotel == nil && len(c.LastHotels) == 0 {
				return &Violation{
					Intent:  rec.PrimaryIntent,
					Message: "Bạn chưa chọn khách sạn nên mình chưa tính được chi phí. Bạn muốn tìm khách sạn trước không?",
					UIType:  chunk.UIOptions,
					Actions: []string{"Tìm khách sạn", "Xem lịch trình"},
				}
			}
		}
	case intent.FindHotel, intent.MoreHotels:
		if destination(rec, c) == "" {
			return &Violation{
				Intent:  rec.PrimaryIntent,
				Message: "Bạn muốn tìm khách sạn ở đâu? Cho mình biết điểm đến nhé.",
				UIType:  chunk.UIOptions,
				Actions: []string{"Đà Nẵng", "Đà Lạt", "Phú Quốc"},
			}
		}
	case intent.FindFood, intent.MoreFood:
		if destination(rec, c) == "" {
			return &Violation{
				Intent:  rec.PrimaryIntent,
				Message: "Bạn muốn tìm quán ăn ở khu vực nào?",
				UIType:  chunk.UIOptions,
				Actions: []string{"Đà Nẵng", "Huế", "Hà Nội"},
			}
		}
	}
	return nil
}

func destination(rec *intent.Record, c *convo.Context) string {
	if rec.Location != "" {
		return rec.Location
	}
	return c.Destination
}

// builderBypass lists intents that interrupt the builder dialog without
// cancelling it.
var builderBypass = map[string]bool{
	intent.CalculateCost:      true,
	intent.GetDistance:        true,
	intent.GetDirections:      true,
	intent.GetWeatherForecast: true,
	intent.ShowItinerary:      true,
	intent.BookHotel:          true,
	intent.GetLocationTips:    true,
	intent.GetPlaceDetails:    true,
}

var (
	foodTokenRegex = regexp.MustCompile(`ăn|quán|món|đặc sản|nhà hàng|food`)

	backtrackRegex = regexp.MustCompile(`thêm địa điểm|thêm điểm|đổi địa điểm|sửa lịch trình|chỉnh lịch trình|thêm chỗ chơi|bỏ bớt địa điểm`)
)

// Decision is the outcome of flow control for one turn.
type Decision struct {
	// RouteToBuilder short-circuits the turn into the builder's
	// continuation handler.
	RouteToBuilder bool

	// Backtrack reopens spot selection from the finalized itinerary.
	Backtrack bool
}

// Apply runs the anti-greedy rules after extraction and before planning.
// It mutates rec.SubIntents in place and may transition the context state.
func Apply(rec *intent.Record, c *convo.Context, utterance string) Decision {
	state := c.State()

	if c.Builder != nil && state != convo.StateFinalized &&
		(state == convo.StateChoosingSpots || state == convo.StateGatheringInfo) &&
		!builderBypass[rec.PrimaryIntent] {
		return Decision{RouteToBuilder: true}
	}

	if rec.PrimaryIntent == intent.PlanTrip && state == convo.StateInitial {
		rec.DropSub(intent.FindHotel)
		rec.DropSub(intent.FindFood)
	}

	if state == convo.StateChoosingHotel {
		if !foodTokenRegex.MatchString(strings.ToLower(utterance)) {
			rec.DropSub(intent.FindFood)
		}
		if backtrackRegex.MatchString(strings.ToLower(utterance)) {
			Backtrack(c)
			return Decision{Backtrack: true, RouteToBuilder: c.Builder != nil}
		}
	}

	return Decision{}
}

// Backtrack reopens spot selection. When finalize cleared the builder, it is
// rebuilt from the last itinerary so selections are not lost.
func Backtrack(c *convo.Context) {
	if c.Builder == nil && c.LastItinerary != nil {
		b := convo.NewBuilder(c.LastItinerary.Location, c.LastItinerary.Duration)
		for _, day := range c.LastItinerary.Days {
			b.DaysPlan[day.Day] = append(b.DaysPlan[day.Day], day.Spots...)
		}
		b.CurrentDay = 1
		c.Builder = b
	}
	c.Workflow = convo.StateChoosingSpots
}

// StartPlanning transitions INITIAL into spot selection once the trip frame
// (location, duration) is known.
func StartPlanning(c *convo.Context, location string, days int) {
	c.Destination = location
	if days > 0 {
		c.Duration = days
	}
	c.Workflow = convo.StateChoosingSpots
}

// SpotsConfirmed transitions into hotel selection after finalize.
func SpotsConfirmed(c *convo.Context) {
	c.Workflow = convo.StateChoosingHotel
}

// HotelSelected transitions into the ready state.
func HotelSelected(c *convo.Context) {
	c.Workflow = convo.StateReadyToFinalize
}

// CostEstimated marks the transient cost state. FINALIZED and the ready
// state are preserved.
func CostEstimated(c *convo.Context) {
	switch c.State() {
	case convo.StateFinalized, convo.StateReadyToFinalize:
	default:
		c.Workflow = convo.StateCostEstimation
	}
}

// Finalized marks the trip committed.
func Finalized(c *convo.Context) {
	c.Workflow = convo.StateFinalized
}
