// Package builder drives the interactive itinerary sub-dialog: start date,
// optional month selection, a per-day spot picking loop, and finalization
// through the verifier. It also hosts the LLM auto-generation path used
// when the trip frame arrives complete.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/verify"
	"github.com/NhanTrannn/TravelGO-sub000/core/workflow"
	"github.com/NhanTrannn/TravelGO-sub000/store"
	"github.com/NhanTrannn/TravelGO-sub000/weather"
)

const (
	// candidateLimit caps the province spot pool fetched at entry.
	candidateLimit = 20

	// offerLimit caps the spots shown per day before "xem thêm".
	offerLimit = 10

	defaultDays = 3
)

// Builder runs the itinerary sub-dialog against a session context.
type Builder struct {
	store    store.DocumentStore
	weather  weather.Service
	llm      llm.Client
	verifier *verify.Verifier
	aliases  *store.Aliases
}

// New wires the builder. Weather and LLM clients may be nil; the verifier
// must not be.
func New(docs store.DocumentStore, ws weather.Service, client llm.Client, v *verify.Verifier, aliases *store.Aliases) *Builder {
	if aliases == nil {
		aliases = store.NewAliases()
	}
	return &Builder{store: docs, weather: ws, llm: client, verifier: v, aliases: aliases}
}

// Entry holds the trip frame a plan_trip turn provides.
type Entry struct {
	Location string
	Days     int
	Budget   int64
	People   int
}

// Start initializes the sub-dialog. With a budget in the frame it goes
// straight to auto-generation; otherwise it asks for the start date.
func (b *Builder) Start(ctx context.Context, c *convo.Context, entry Entry) (*chunk.Chunk, error) {
	if entry.Days <= 0 {
		entry.Days = defaultDays
	}

	candidates, _ := b.loadCandidates(ctx, entry.Location)
	state := convo.NewBuilder(entry.Location, entry.Days)
	state.AvailableSpots = candidates
	c.Builder = state
	workflow.StartPlanning(c, entry.Location, entry.Days)

	slog.Info("builder: started",
		"session_id", c.SessionID,
		"location", entry.Location,
		"days", entry.Days,
		"candidates", len(candidates),
		"auto", entry.Budget > 0)

	if entry.Budget > 0 {
		state.AutoGenerateMode = true
		return b.autoGenerate(ctx, c, entry)
	}

	state.WaitingForStartDate = true
	return chunk.Complete(
		fmt.Sprintf("Mình sẽ cùng bạn lên lịch trình %d ngày tại %s nhé! 🗓️\nBạn dự định khởi hành ngày nào? (ví dụ: 15/3) Nếu chưa biết, cứ nói \"không biết\" để mình gợi ý tháng đẹp nhất.", entry.Days, entry.Location),
		chunk.UIItineraryBuilder,
		map[string]any{
			"step":       "ask_start_date",
			"location":   entry.Location,
			"total_days": entry.Days,
		},
	), nil
}

// Continue handles a turn routed into an active sub-dialog.
func (b *Builder) Continue(ctx context.Context, c *convo.Context, input string) (*chunk.Chunk, error) {
	state := c.Builder
	if state == nil {
		return chunk.Error("Không có lịch trình nào đang được tạo."), nil
	}

	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	if isCancel(lower) {
		c.Builder = nil
		c.Workflow = convo.StateInitial
		return chunk.Complete("Đã huỷ tạo lịch trình. Bạn cần mình giúp gì tiếp không?", chunk.UIText, nil), nil
	}

	switch {
	case state.WaitingForStartDate:
		return b.handleStartDate(ctx, c, trimmed)
	case state.WaitingForMonthSelection:
		return b.handleMonthSelection(ctx, c, lower)
	default:
		return b.handleDayInput(ctx, c, trimmed)
	}
}

// loadCandidates fetches the bounded province spot pool.
func (b *Builder) loadCandidates(ctx context.Context, location string) ([]map[string]any, string) {
	var provinceID string
	if info, ok := b.aliases.Normalize(location); ok {
		provinceID = info.ID
	}
	spots, err := b.store.FindSpots(ctx, store.SpotQuery{ProvinceID: provinceID, Limit: candidateLimit})
	if err != nil {
		slog.Warn("builder: candidate fetch failed", "location", location, "error", err)
		return nil, provinceID
	}
	records := make([]map[string]any, 0, len(spots))
	for _, s := range spots {
		records = append(records, map[string]any{
			"id":              s.ID,
			"name":            s.Name,
			"category":        s.Category,
			"rating":          s.Rating,
			"image":           s.Image,
			"lat":             s.Lat,
			"lng":             s.Lng,
			"description":     s.Description,
			"best_visit_time": s.BestVisitTime,
		})
	}
	return records, provinceID
}

// offerDay renders the selection prompt for the current day.
func (b *Builder) offerDay(c *convo.Context, showAll bool) *chunk.Chunk {
	state := c.Builder
	available := b.selectable(c)

	limit := offerLimit
	if showAll || len(available) < limit {
		limit = len(available)
	}
	offered := available[:limit]

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Ngày %d/%d** — chọn địa điểm bạn muốn đi (nhập số thứ tự, ví dụ: 1, 3):\n\n", state.CurrentDay, state.TotalDays)
	for i, spot := range offered {
		fmt.Fprintf(&sb, "%d. %v", i+1, spot["name"])
		if rating, ok := spot["rating"].(float64); ok && rating > 0 {
			fmt.Fprintf(&sb, " ⭐%.1f", rating)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nGõ \"tiếp\" để sang ngày sau, \"xem thêm\" để xem tất cả, \"auto\" để mình tự xếp, \"huỷ\" để dừng.")

	return chunk.Complete(sb.String(), chunk.UISpotSelectorTable, map[string]any{
		"day":        state.CurrentDay,
		"total_days": state.TotalDays,
		"spots":      offered,
		"shown":      len(offered),
		"available":  len(available),
	})
}

// selectable filters the candidate pool to spots not yet selected.
func (b *Builder) selectable(c *convo.Context) []map[string]any {
	state := c.Builder
	var out []map[string]any
	for _, spot := range state.AvailableSpots {
		if id, ok := spot["id"].(string); ok && c.HasSpotID(id) {
			continue
		}
		out = append(out, spot)
	}
	return out
}

// addSpots merges picks into the current day, deduplicating by id, and
// mirrors each pick into the context's durable selection set.
func (b *Builder) addSpots(c *convo.Context, picks []map[string]any) int {
	state := c.Builder
	day := state.CurrentDay
	added := 0
	for _, spot := range picks {
		id, _ := spot["id"].(string)
		if id != "" && c.HasSpotID(id) {
			continue
		}
		state.DaysPlan[day] = append(state.DaysPlan[day], spot)
		c.AddSpotID(id)

		sel := convo.SpotSelection{ID: id, Day: day}
		sel.Name, _ = spot["name"].(string)
		sel.Category, _ = spot["category"].(string)
		sel.Image, _ = spot["image"].(string)
		sel.Lat, _ = spot["lat"].(float64)
		sel.Lng, _ = spot["lng"].(float64)
		sel.Placeholder, _ = spot["placeholder"].(bool)
		c.SelectedSpots = append(c.SelectedSpots, sel)
		added++
	}
	return added
}

func isCancel(lower string) bool {
	return lower == "huỷ" || lower == "hủy" || lower == "cancel" ||
		strings.Contains(lower, "huỷ lịch trình") || strings.Contains(lower, "hủy lịch trình")
}

func isAdvance(lower string) bool {
	switch lower {
	case "skip", "done", "tiếp", "tiep", "ok", "oke", "xong":
		return true
	}
	return false
}
