package verify

import (
	"fmt"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
)

// period is one of the three redistribution windows.
type period struct {
	startMin int // minutes from midnight
	endMin   int
}

var (
	periodMorning   = period{8 * 60, 11 * 60}
	periodAfternoon = period{12*60 + 30, 15*60 + 30}
	periodEvening   = period{17 * 60, 20*60 + 30}
)

// AutoFix repairs error-severity issues in place: the offending activity is
// moved to the representative time of its first acceptable slot, shifted to
// the day's start or end to keep the sequence monotonic, then each touched
// day has its times redistributed across the three display periods. Returns
// whether anything changed.
func (v *Verifier) AutoFix(it *convo.Itinerary, report *Report) bool {
	if report == nil {
		return false
	}

	touched := make(map[int]bool)
	for _, issue := range report.Issues {
		if issue.Severity != SeverityError || len(issue.ExpectedSlots) == 0 {
			continue
		}
		day := dayByNumber(it, issue.Day)
		if day == nil {
			continue
		}
		idx := indexOfSpot(day.Spots, issue)
		if idx < 0 {
			continue
		}

		target := issue.ExpectedSlots[0]
		if issue.SuggestedSlot != "" && slotAllowed(issue.SuggestedSlot, issue.ExpectedSlots) {
			target = issue.SuggestedSlot
		}
		spot := day.Spots[idx]
		spot["time"] = slotTimes[target]

		// Late slots go to the day's end, early slots to its start.
		day.Spots = append(day.Spots[:idx], day.Spots[idx+1:]...)
		switch target {
		case SlotEarlyMorning, SlotMorning:
			day.Spots = append([]map[string]any{spot}, day.Spots...)
		default:
			day.Spots = append(day.Spots, spot)
		}
		touched[issue.Day] = true
	}

	if len(touched) == 0 {
		return false
	}
	for dayNum := range touched {
		redistributeTimes(dayByNumber(it, dayNum))
	}
	report.Fixed = true
	return true
}

// redistributeTimes reassigns a day's times. Slot-bound activities anchor
// at their slot's representative time (30-minute increments for siblings);
// generic activities spread evenly across the morning, afternoon and
// evening windows in round-robin order.
func redistributeTimes(day *convo.ItineraryDay) {
	if day == nil || len(day.Spots) == 0 {
		return
	}

	boundCount := map[Slot]int{}
	var generic []map[string]any
	for _, spot := range day.Spots {
		slot := classify(spot)
		if slot == "" {
			generic = append(generic, spot)
			continue
		}
		minutes := timeToMinutes(slotTimes[slot]) + boundCount[slot]*30
		boundCount[slot]++
		spot["time"] = fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	}

	rotation := []period{periodMorning, periodAfternoon, periodEvening}
	buckets := map[period][]map[string]any{}
	for i, spot := range generic {
		buckets[rotation[i%len(rotation)]] = append(buckets[rotation[i%len(rotation)]], spot)
	}
	for _, p := range rotation {
		spread(p, buckets[p])
	}
}

func timeToMinutes(t string) int {
	var h, m int
	fmt.Sscanf(t, "%d:%d", &h, &m)
	return h*60 + m
}

// classify maps an activity onto its bound period, or "" for generic.
func classify(spot map[string]any) Slot {
	cat := strings.ToLower(stringField(spot, "category"))
	name := strings.ToLower(spotName(spot))
	switch {
	case cat == "bar" || cat == "nightlife" || cat == "night_market" ||
		strings.Contains(name, "chợ đêm") || strings.Contains(name, "phố đêm"):
		return SlotEvening
	case cat == "sunset" || strings.Contains(name, "hoàng hôn"):
		return SlotAfternoon
	case cat == "sunrise" || strings.Contains(name, "bình minh"):
		return SlotMorning
	}
	return ""
}

// spread assigns evenly spaced times within the period, snapped to 30
// minutes.
func spread(p period, spots []map[string]any) {
	n := len(spots)
	if n == 0 {
		return
	}
	step := (p.endMin - p.startMin) / n
	for i, spot := range spots {
		minutes := p.startMin + i*step
		minutes -= minutes % 30
		spot["time"] = fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	}
}

func dayByNumber(it *convo.Itinerary, n int) *convo.ItineraryDay {
	for i := range it.Days {
		if it.Days[i].Day == n {
			return &it.Days[i]
		}
	}
	return nil
}

func indexOfSpot(spots []map[string]any, issue Issue) int {
	for i, spot := range spots {
		if issue.SpotID != "" && stringField(spot, "id") == issue.SpotID {
			return i
		}
		if strings.EqualFold(spotName(spot), issue.SpotName) {
			return i
		}
	}
	return -1
}
