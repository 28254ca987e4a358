package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
)

const criticSystemPrompt = `You review Vietnamese travel itineraries. Find scheduling problems only:
activities at unsuitable times, the same spot on multiple days, impossible sequencing.
Return ONLY JSON: {"issues": [{"day": int, "spot_name": string, "problem": string,
"severity": "error"|"warning", "suggested_slot": "early_morning"|"morning"|"midday"|"afternoon"|"evening"|"night"}]}.
Return {"issues": []} when the plan is fine.`

// Verify runs both phases and merges their findings, deduplicating on
// (spot id or name, day). The critic is skipped for short clean plans.
func (v *Verifier) Verify(ctx context.Context, it *convo.Itinerary) *Report {
	issues := v.VerifyRules(it)

	if v.llm != nil && (len(issues) > 0 || it.Duration > 2) {
		criticIssues, err := v.critic(ctx, it)
		if err != nil {
			slog.Warn("verify: critic phase failed", "error", err)
		} else {
			issues = mergeIssues(issues, criticIssues)
		}
	}

	report := &Report{Verdict: "pass", Issues: issues}
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			report.Verdict = "fail"
			break
		}
		report.Verdict = "warning"
	}
	return report
}

func (v *Verifier) critic(ctx context.Context, it *convo.Itinerary) ([]Issue, error) {
	start := time.Now()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Destination: %s, %d days.\n", it.Location, it.Duration)
	for _, day := range it.Days {
		fmt.Fprintf(&sb, "Day %d:\n", day.Day)
		for _, spot := range day.Spots {
			fmt.Fprintf(&sb, "- %s at %s (%s)\n",
				spotName(spot), stringField(spot, "time"), stringField(spot, "category"))
		}
	}

	obj, err := v.llm.ExtractJSON(ctx, sb.String(), criticSystemPrompt)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Issues []Issue `json:"issues"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	for i := range parsed.Issues {
		if parsed.Issues[i].Type == "" {
			parsed.Issues[i].Type = IssueTimeOfDayMismatch
		}
		if parsed.Issues[i].Severity == "" {
			parsed.Issues[i].Severity = SeverityWarning
		}
	}
	slog.Debug("verify: critic phase done",
		"issues", len(parsed.Issues),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return parsed.Issues, nil
}

func mergeIssues(rule, critic []Issue) []Issue {
	seen := make(map[string]bool, len(rule))
	key := func(i Issue) string {
		id := i.SpotID
		if id == "" {
			id = strings.ToLower(i.SpotName)
		}
		return fmt.Sprintf("%s|%d", id, i.Day)
	}
	merged := append([]Issue(nil), rule...)
	for _, i := range rule {
		seen[key(i)] = true
	}
	for _, i := range critic {
		if !seen[key(i)] {
			seen[key(i)] = true
			merged = append(merged, i)
		}
	}
	return merged
}
