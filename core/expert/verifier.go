package expert

import (
	"context"
	"fmt"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/core/verify"
)

// TaskVerifyItinerary is dispatched internally after itinerary creation.
const TaskVerifyItinerary planner.TaskType = "verify_itinerary"

// VerifierExpert wraps the itinerary verifier in the expert envelope so
// verification can run inside a plan like any other task.
type VerifierExpert struct {
	verifier *verify.Verifier
}

// NewVerifierExpert builds the expert around a configured verifier.
func NewVerifierExpert(v *verify.Verifier) *VerifierExpert {
	return &VerifierExpert{verifier: v}
}

func (e *VerifierExpert) Type() planner.TaskType { return TaskVerifyItinerary }

func (e *VerifierExpert) Execute(ctx context.Context, _ string, params map[string]any, c *convo.Context) (*Result, error) {
	it := itineraryFromParams(params, c)
	if it == nil {
		return Failure(string(TaskVerifyItinerary), "no itinerary to verify"), nil
	}

	report := e.verifier.Verify(ctx, it)
	fixed := e.verifier.AutoFix(it, report)
	if fixed {
		// Re-check so the envelope reflects the repaired plan.
		report = e.verifier.Verify(ctx, it)
		report.Fixed = true
	}

	record := toRecord(report)
	if record == nil {
		record = map[string]any{}
	}
	record["type"] = "verification"
	record["itinerary"] = toRecord(*it)

	summary := fmt.Sprintf("Kiểm tra lịch trình: %s", report.Verdict)
	if fixed {
		summary = "Đã tự động điều chỉnh lịch trình"
	}
	return &Result{
		Data:     []map[string]any{record},
		Summary:  summary,
		Metadata: map[string]any{"verdict": report.Verdict, "fixed": fixed},
	}, nil
}

// itineraryFromParams rebuilds a typed itinerary from injected
// itinerary_data or falls back to the context's finalized plan. Day
// records may carry their entries under "activities" (LLM shape) or
// "spots" (builder shape).
func itineraryFromParams(params map[string]any, c *convo.Context) *convo.Itinerary {
	for _, r := range paramRecords(params, "itinerary_data") {
		if r["days"] == nil {
			continue
		}
		it := &convo.Itinerary{Location: stringValue(r["location"])}
		if d, ok := asInt64(r["duration"]); ok {
			it.Duration = int(d)
		}
		for _, dayRaw := range anySlice(r["days"]) {
			day, ok := dayRaw.(map[string]any)
			if !ok {
				continue
			}
			entry := convo.ItineraryDay{Title: stringValue(day["title"])}
			if n, ok := asInt64(day["day"]); ok {
				entry.Day = int(n)
			}
			entries := anySlice(day["spots"])
			if len(entries) == 0 {
				entries = anySlice(day["activities"])
			}
			for _, spotRaw := range entries {
				if spot, ok := spotRaw.(map[string]any); ok {
					entry.Spots = append(entry.Spots, spot)
				}
			}
			it.Days = append(it.Days, entry)
		}
		if len(it.Days) > 0 {
			return it
		}
	}
	if c != nil && c.LastItinerary != nil {
		return c.LastItinerary
	}
	return nil
}

func anySlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	}
	return nil
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
