package convo

import (
	"strings"
)

// Memory is the progressive-disclosure layer over the context. Given the
// demands implied by the current intent and the results gathered so far,
// it partitions them into answered sections and still-open questions, and
// resolves references like "the first one" against the recent caches.
type Memory struct {
	ctx *Context
}

// NewMemory wraps a context for the duration of one turn.
func NewMemory(ctx *Context) *Memory {
	return &Memory{ctx: ctx}
}

// Disclosure is the partition of a turn's implicit demands.
type Disclosure struct {
	AnsweredSections  []string
	UnansweredIntents []string
}

// Partition splits the requested sections into those backed by results and
// those still missing parameters. Intents answered in earlier turns are not
// re-asked.
func (m *Memory) Partition(requested []string) Disclosure {
	var d Disclosure
	for _, section := range requested {
		if m.ctx.IsAnswered(section) || m.hasResults(section) {
			d.AnsweredSections = append(d.AnsweredSections, section)
			continue
		}
		d.UnansweredIntents = append(d.UnansweredIntents, section)
	}
	return d
}

func (m *Memory) hasResults(section string) bool {
	switch section {
	case "find_spot", "more_spots":
		return len(m.ctx.LastSpots) > 0
	case "find_hotel", "more_hotels":
		return len(m.ctx.LastHotels) > 0
	case "find_food", "more_food":
		return len(m.ctx.LastFoods) > 0
	case "show_itinerary":
		return m.ctx.LastItinerary != nil
	}
	return false
}

// ordinalWords maps ordinal phrases to zero-based indices. -1 means "last".
var ordinalWords = map[string]int{
	"đầu tiên":  0,
	"thứ nhất":  0,
	"số 1":      0,
	"thứ hai":   1,
	"số 2":      1,
	"thứ ba":    2,
	"số 3":      2,
	"thứ tư":    3,
	"thứ năm":   4,
	"cuối cùng": -1,
	"first":     0,
	"second":    1,
	"third":     2,
	"last":      -1,
}

// ResolveHotel resolves an utterance reference against the recent hotels.
func (m *Memory) ResolveHotel(utterance string) (map[string]any, bool) {
	return resolveRef(utterance, m.ctx.LastHotels)
}

// ResolveSpot resolves an utterance reference against the recent spots.
func (m *Memory) ResolveSpot(utterance string) (map[string]any, bool) {
	return resolveRef(utterance, m.ctx.LastSpots)
}

// ResolveFood resolves an utterance reference against the recent foods.
func (m *Memory) ResolveFood(utterance string) (map[string]any, bool) {
	return resolveRef(utterance, m.ctx.LastFoods)
}

// resolveRef tries, in order: ordinal words, substring name match, fuzzy
// name similarity >= 0.6. Returns false when nothing clears the bar.
func resolveRef(utterance string, records []map[string]any) (map[string]any, bool) {
	if len(records) == 0 {
		return nil, false
	}
	lower := strings.ToLower(utterance)

	// Ordinal words map to an index via the fixed table.
	for word, idx := range ordinalWords {
		if strings.Contains(lower, word) {
			if idx == -1 {
				return records[len(records)-1], true
			}
			if idx < len(records) {
				return records[idx], true
			}
		}
	}

	// Substring match on the record name.
	for _, rec := range records {
		name := strings.ToLower(recordName(rec))
		if name != "" && (strings.Contains(lower, name) || strings.Contains(name, lower)) {
			return rec, true
		}
	}

	// Fuzzy fall-through on name similarity.
	var best map[string]any
	bestScore := 0.0
	for _, rec := range records {
		score := NameSimilarity(lower, strings.ToLower(recordName(rec)))
		if score > bestScore {
			bestScore = score
			best = rec
		}
	}
	if bestScore >= 0.6 {
		return best, true
	}
	return nil, false
}

func recordName(rec map[string]any) string {
	if name, ok := rec["name"].(string); ok {
		return name
	}
	return ""
}

// NameSimilarity scores two names on shared significant words (Dice
// coefficient over word sets). 1.0 means identical word sets.
func NameSimilarity(a, b string) float64 {
	wa := significantWords(a)
	wb := significantWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(wa))
	for _, w := range wa {
		set[w] = true
	}
	shared := 0
	for _, w := range wb {
		if set[w] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(wa)+len(wb))
}

// stopWords are too common to count as significant in a spot or hotel name.
var stopWords = map[string]bool{
	"khách": true, "sạn": true, "nhà": true, "hàng": true,
	"quán": true, "the": true, "hotel": true, "resort": true,
	"của": true, "và": true, "ở": true, "tại": true,
}

func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,!?\"'()")
		if len(w) < 2 || stopWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}
