package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/workflow"
)

// finalize commits the day plan: verify, auto-fix, persist, clear the
// sub-dialog and move the workflow to hotel selection.
func (b *Builder) finalize(ctx context.Context, c *convo.Context) (*chunk.Chunk, error) {
	state := c.Builder

	it := &convo.Itinerary{
		Location:  state.Location,
		Duration:  state.TotalDays,
		StartDate: state.StartDate,
	}
	for day := 1; day <= state.TotalDays; day++ {
		it.Days = append(it.Days, convo.ItineraryDay{
			Day:   day,
			Title: fmt.Sprintf("Ngày %d", day),
			Spots: state.DaysPlan[day],
		})
	}

	report := b.verifier.Verify(ctx, it)
	fixed := b.verifier.AutoFix(it, report)
	it.Verification = map[string]any{
		"verdict": report.Verdict,
		"issues":  len(report.Issues),
		"fixed":   fixed,
	}
	if fixed {
		report = b.verifier.Verify(ctx, it)
		it.Verification["verdict"] = report.Verdict
	}

	c.LastItinerary = it
	c.Builder = nil
	workflow.SpotsConfirmed(c)

	slog.Info("builder: finalized",
		"session_id", c.SessionID,
		"location", it.Location,
		"days", it.Duration,
		"verdict", report.Verdict,
		"auto_fixed", fixed)

	return chunk.Complete(renderItinerary(it, fixed), chunk.UIItineraryDisplay, map[string]any{
		"itinerary":    itineraryData(it),
		"verification": it.Verification,
		"next_step":    "choose_hotel",
	}), nil
}

// renderItinerary formats the committed plan as display markdown.
func renderItinerary(it *convo.Itinerary, fixed bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓️ **LỊCH TRÌNH %d NGÀY TẠI %s**\n\n", it.Duration, strings.ToUpper(it.Location))
	if it.StartDate != "" {
		fmt.Fprintf(&sb, "Khởi hành: %s\n\n", it.StartDate)
	}
	for _, day := range it.Days {
		fmt.Fprintf(&sb, "**Ngày %d:**\n", day.Day)
		if len(day.Spots) == 0 {
			sb.WriteString("- Tự do khám phá\n")
			continue
		}
		for _, spot := range day.Spots {
			name, _ := spot["name"].(string)
			if t, ok := spot["time"].(string); ok && t != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", t, name)
			} else {
				fmt.Fprintf(&sb, "- %s\n", name)
			}
		}
	}
	if fixed {
		sb.WriteString("\n✅ Đã tự động điều chỉnh lịch trình cho hợp khung giờ.\n")
	}
	if it.BudgetWarning != "" {
		sb.WriteString("\n⚠️ " + it.BudgetWarning + "\n")
	}
	sb.WriteString("\nGiờ mình tìm khách sạn phù hợp nhé?")
	return sb.String()
}

// itineraryData flattens the itinerary for the UI payload.
func itineraryData(it *convo.Itinerary) map[string]any {
	days := make([]map[string]any, 0, len(it.Days))
	for _, day := range it.Days {
		days = append(days, map[string]any{
			"day":   day.Day,
			"title": day.Title,
			"spots": day.Spots,
		})
	}
	out := map[string]any{
		"location": it.Location,
		"duration": it.Duration,
		"days":     days,
	}
	if it.StartDate != "" {
		out["start_date"] = it.StartDate
	}
	if it.EstimatedCost > 0 {
		out["estimated_cost"] = it.EstimatedCost
	}
	if it.BudgetWarning != "" {
		out["budget_warning"] = it.BudgetWarning
	}
	return out
}
