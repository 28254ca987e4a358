package builder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
)

var (
	dateRegex  = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?`)
	monthRegex = regexp.MustCompile(`tháng\s*(\d{1,2})|^(\d{1,2})$`)

	ordinalListRegex = regexp.MustCompile(`^[\d\s,]+$`)

	dontKnowRegex = regexp.MustCompile(`không biết|chưa biết|chưa rõ|tùy bạn|don'?t know`)
)

// handleStartDate consumes the ask_start_date step.
func (b *Builder) handleStartDate(ctx context.Context, c *convo.Context, input string) (*chunk.Chunk, error) {
	state := c.Builder

	if dontKnowRegex.MatchString(strings.ToLower(input)) {
		state.WaitingForStartDate = false
		state.WaitingForMonthSelection = true
		return b.offerMonths(ctx, c), nil
	}

	if m := dateRegex.FindStringSubmatch(input); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := time.Now().Year()
		if m[3] != "" {
			if y, err := strconv.Atoi(m[3]); err == nil {
				if y < 100 {
					y += 2000
				}
				year = y
			}
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			state.StartDate = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
			c.StartDate = state.StartDate
			state.WaitingForStartDate = false
			return b.offerDay(c, false), nil
		}
	}

	return chunk.Complete(
		"Mình chưa hiểu ngày bạn nhập. Bạn gõ theo dạng 15/3 nhé, hoặc nói \"không biết\" để mình gợi ý.",
		chunk.UIItineraryBuilder,
		map[string]any{"step": "ask_start_date"},
	), nil
}

// offerMonths presents the month selector backed by the weather service.
func (b *Builder) offerMonths(ctx context.Context, c *convo.Context) *chunk.Chunk {
	state := c.Builder
	data := map[string]any{"step": "ask_month", "location": state.Location}
	reply := fmt.Sprintf("Không sao! Bạn muốn đi %s vào tháng mấy?", state.Location)

	if b.weather != nil {
		if best, err := b.weather.GetBestTime(ctx, state.Location); err == nil && best != nil {
			data["best_months"] = best.BestMonths
			data["avoid_months"] = best.AvoidMonths
			if best.Message != "" {
				reply = fmt.Sprintf("Không sao! %s Bạn chọn tháng mấy?", best.Message)
			}
		}
	}
	return chunk.Complete(reply, chunk.UIMonthSelector, data)
}

// handleMonthSelection consumes the ask_month step; start date becomes the
// 1st of the chosen month in the current year.
func (b *Builder) handleMonthSelection(_ context.Context, c *convo.Context, lower string) (*chunk.Chunk, error) {
	state := c.Builder

	month := 0
	if m := monthRegex.FindStringSubmatch(lower); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		month, _ = strconv.Atoi(raw)
	}
	if month < 1 || month > 12 {
		return chunk.Complete(
			"Bạn chọn tháng từ 1 đến 12 nhé (ví dụ: tháng 3).",
			chunk.UIMonthSelector,
			map[string]any{"step": "ask_month"},
		), nil
	}

	state.StartDate = fmt.Sprintf("%04d-%02d-01", time.Now().Year(), month)
	c.StartDate = state.StartDate
	state.WaitingForMonthSelection = false
	return b.offerDay(c, false), nil
}

// handleDayInput consumes one turn of the per-day loop.
func (b *Builder) handleDayInput(ctx context.Context, c *convo.Context, input string) (*chunk.Chunk, error) {
	state := c.Builder
	lower := strings.ToLower(strings.TrimSpace(input))

	switch {
	case lower == "xem thêm":
		return b.offerDay(c, true), nil
	case lower == "auto":
		state.AutoGenerateMode = true
		return b.autoGenerate(ctx, c, Entry{
			Location: state.Location,
			Days:     state.TotalDays,
			Budget:   c.Budget,
			People:   c.PeopleCount,
		})
	case isAdvance(lower):
		return b.advanceDay(ctx, c)
	}

	picks := b.parseSelection(c, input)
	if len(picks) == 0 {
		return chunk.Complete(
			"Mình chưa nhận ra lựa chọn. Bạn nhập số thứ tự (ví dụ: 1, 3) hoặc tên địa điểm nhé.",
			chunk.UISpotSelectorUpd,
			map[string]any{"day": state.CurrentDay},
		), nil
	}

	added := b.addSpots(c, picks)
	names := make([]string, 0, len(picks))
	for _, p := range picks {
		if name, ok := p["name"].(string); ok {
			names = append(names, name)
		}
	}

	return chunk.Complete(
		fmt.Sprintf("Đã thêm %d địa điểm vào ngày %d: %s.\nChọn thêm hoặc gõ \"tiếp\" để sang ngày %d.",
			added, state.CurrentDay, strings.Join(names, ", "), state.CurrentDay+1),
		chunk.UISpotSelectorUpd,
		map[string]any{
			"day":      state.CurrentDay,
			"added":    added,
			"selected": state.DaysPlan[state.CurrentDay],
		},
	), nil
}

// advanceDay moves to the next day, finalizing after the last. A day left
// empty is recorded as empty.
func (b *Builder) advanceDay(ctx context.Context, c *convo.Context) (*chunk.Chunk, error) {
	state := c.Builder
	if state.CurrentDay >= state.TotalDays {
		return b.finalize(ctx, c)
	}
	state.CurrentDay++
	return b.offerDay(c, false), nil
}

// parseSelection resolves user input into candidate spot records: 1-based
// ordinal lists first, then name matching on significant words.
func (b *Builder) parseSelection(c *convo.Context, input string) []map[string]any {
	available := b.selectable(c)
	trimmed := strings.TrimSpace(input)

	if ordinalListRegex.MatchString(trimmed) {
		var picks []map[string]any
		for _, field := range strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.Atoi(field)
			if err != nil || n < 1 || n > len(available) {
				continue
			}
			picks = append(picks, available[n-1])
		}
		return picks
	}

	// Name path: try each comma-separated phrase against the candidates.
	var picks []map[string]any
	for _, phrase := range strings.Split(trimmed, ",") {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		if match := bestNameMatch(phrase, available); match != nil {
			picks = append(picks, match)
		}
	}
	return picks
}

// bestNameMatch scores a phrase against candidate names: substring first,
// then word-overlap similarity above 0.6.
func bestNameMatch(phrase string, candidates []map[string]any) map[string]any {
	lower := strings.ToLower(phrase)
	var best map[string]any
	bestScore := 0.0
	for _, cand := range candidates {
		name, _ := cand["name"].(string)
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, lower) || strings.Contains(lower, nameLower) {
			return cand
		}
		if score := convo.NameSimilarity(lower, nameLower); score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if bestScore >= 0.6 {
		return best
	}
	return nil
}
