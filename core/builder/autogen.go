package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
	"github.com/NhanTrannn/TravelGO-sub000/core/workflow"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

const autoGenSystemPrompt = `You plan Vietnamese trips. Given a destination, day count,
budget and candidate spots, return ONLY JSON:
{"days": [{"day": int, "spots": [{"name": string, "session": "morning"|"afternoon"|"evening"}]}],
"total_estimated_cost": int, "reasoning": string}.
Use only candidate spot names where possible; two or three spots per day.`

// otherCostShare caps non-accommodation spend at 70% of the total budget.
const otherCostShare = 0.7

var sessionTimes = map[string]string{
	"morning":   "09:00",
	"noon":      "12:00",
	"afternoon": "15:00",
	"evening":   "19:00",
	"night":     "21:00",
}

// autoGenerate builds the whole plan in one shot: LLM day layout mapped
// onto candidate records, an auto-chosen hotel under the derived per-night
// cap, then the normal finalize path.
func (b *Builder) autoGenerate(ctx context.Context, c *convo.Context, entry Entry) (*chunk.Chunk, error) {
	state := c.Builder

	proposal := b.propose(ctx, entry, state.AvailableSpots)
	if proposal == nil {
		// Index-based layout when the LLM is unavailable.
		proposal = fallbackProposal(entry.Days, state.AvailableSpots)
	}

	for _, day := range proposal.Days {
		if day.Day < 1 || day.Day > state.TotalDays {
			continue
		}
		state.CurrentDay = day.Day
		var picks []map[string]any
		for _, p := range day.Spots {
			record := bestNameMatch(p.Name, state.AvailableSpots)
			if record == nil {
				// Keep the LLM's idea as a placeholder entry.
				record = map[string]any{"name": p.Name, "placeholder": true}
			} else {
				copied := make(map[string]any, len(record)+1)
				for k, v := range record {
					copied[k] = v
				}
				record = copied
			}
			record["time"] = sessionTime(p.Session)
			picks = append(picks, record)
		}
		b.addSpots(c, picks)
	}
	state.CurrentDay = state.TotalDays

	hotel, warning := b.autoChooseHotel(ctx, c, entry)

	out, err := b.finalize(ctx, c)
	if err != nil {
		return nil, err
	}
	if warning != "" && c.LastItinerary != nil {
		c.LastItinerary.BudgetWarning = warning
		out.Reply += "\n⚠️ " + warning
	}
	if hotel != nil {
		c.SelectedHotel = hotel
		if p, ok := hotel["price"].(int64); ok {
			c.SelectedHotelPrice = p
		}
		workflow.HotelSelected(c)
		name, _ := hotel["name"].(string)
		out.Reply += fmt.Sprintf("\n🏨 Khách sạn gợi ý: %s (%s/đêm)", name, expert.FormatVND(c.SelectedHotelPrice))
		out.UIData["hotel"] = hotel
	}
	return out, nil
}

type proposedSpot struct {
	Name    string `json:"name"`
	Session string `json:"session"`
}

type proposedDay struct {
	Day   int            `json:"day"`
	Spots []proposedSpot `json:"spots"`
}

type proposal struct {
	Days               []proposedDay `json:"days"`
	TotalEstimatedCost int64         `json:"total_estimated_cost"`
	Reasoning          string        `json:"reasoning"`
}

func (b *Builder) propose(ctx context.Context, entry Entry, candidates []map[string]any) *proposal {
	if b.llm == nil {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Destination: %s. Days: %d. Budget: %s.\n",
		entry.Location, entry.Days, expert.FormatVND(entry.Budget))
	sb.WriteString("Candidate spots: ")
	var names []string
	for _, spot := range candidates {
		if name, ok := spot["name"].(string); ok {
			names = append(names, name)
		}
	}
	sb.WriteString(strings.Join(names, "; "))

	obj, err := b.llm.ExtractJSON(ctx, sb.String(), autoGenSystemPrompt)
	if err != nil {
		slog.Warn("builder: auto-generate LLM failed, using index layout", "error", err)
		return nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var p proposal
	if err := json.Unmarshal(raw, &p); err != nil || len(p.Days) == 0 {
		return nil
	}
	return &p
}

func fallbackProposal(days int, candidates []map[string]any) *proposal {
	sessions := []string{"morning", "afternoon", "evening"}
	p := &proposal{}
	idx := 0
	for d := 1; d <= days; d++ {
		day := proposedDay{Day: d}
		for s := 0; s < 3 && idx < len(candidates); s++ {
			if name, ok := candidates[idx]["name"].(string); ok {
				day.Spots = append(day.Spots, proposedSpot{Name: name, Session: sessions[s]})
			}
			idx++
		}
		p.Days = append(p.Days, day)
	}
	return p
}

// autoChooseHotel picks lodging under the per-night cap left after the
// other per-day costs, scaling those down when they crowd out the room.
func (b *Builder) autoChooseHotel(ctx context.Context, c *convo.Context, entry Entry) (map[string]any, string) {
	nights := entry.Days - 1
	if nights < 1 || entry.Budget <= 0 {
		return nil, ""
	}
	people := entry.People
	if people <= 0 {
		people = 1
	}

	rates := expert.RatesFor(c.BudgetLevel)
	others := (rates.FoodPerDay*int64(people) + rates.ActivitiesPerDay*int64(people) + rates.TransportPerDay) * int64(entry.Days)
	if limit := int64(float64(entry.Budget) * otherCostShare); others > limit {
		others = limit
	}
	capPerNight := (entry.Budget - others) / int64(nights)

	var provinceID string
	if info, ok := b.aliases.Normalize(entry.Location); ok {
		provinceID = info.ID
	}

	hotels, err := b.store.FindHotels(ctx, store.HotelQuery{
		ProvinceID: provinceID,
		MaxPrice:   capPerNight,
		Limit:      1,
	})
	if err != nil {
		slog.Warn("builder: hotel auto-choice failed", "error", err)
		return nil, ""
	}
	if len(hotels) > 0 {
		return hotelRecord(hotels[0]), ""
	}

	// Nothing fits: take the cheapest available and warn.
	all, err := b.store.FindHotels(ctx, store.HotelQuery{ProvinceID: provinceID, Limit: 50})
	if err != nil || len(all) == 0 {
		return nil, ""
	}
	cheapest := all[0]
	for _, h := range all[1:] {
		if h.Price < cheapest.Price {
			cheapest = h
		}
	}
	warning := fmt.Sprintf("Không có khách sạn nào dưới %s/đêm, mình chọn phương án rẻ nhất (%s/đêm); tổng chi phí có thể vượt ngân sách.",
		expert.FormatVND(capPerNight), expert.FormatVND(cheapest.Price))
	return hotelRecord(cheapest), warning
}

func hotelRecord(h store.Hotel) map[string]any {
	return map[string]any{
		"id":     h.ID,
		"name":   h.Name,
		"price":  h.Price,
		"rating": h.Rating,
		"image":  h.Image,
		"lat":    h.Lat,
		"lng":    h.Lng,
	}
}

func sessionTime(session string) string {
	if t, ok := sessionTimes[strings.ToLower(session)]; ok {
		return t
	}
	return "09:00"
}
