package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled slot patterns. Budget figures are in millions of VND unless
// a bare large number is given.
var (
	durationNightsRegex = regexp.MustCompile(`(\d+)\s*ngày\s*(\d+)\s*đêm`)
	durationDaysRegex   = regexp.MustCompile(`(\d+)\s*ngày`)
	durationWeekRegex   = regexp.MustCompile(`(\d+)\s*tuần|một tuần|1 tuần|a week`)
	weekendRegex        = regexp.MustCompile(`cuối tuần|weekend`)

	budgetRangeRegex  = regexp.MustCompile(`(?:từ\s*)?(\d+(?:[.,]\d+)?)\s*(?:-|–|đến|tới)\s*(\d+(?:[.,]\d+)?)\s*triệu`)
	budgetUnderRegex  = regexp.MustCompile(`dưới\s*(\d+(?:[.,]\d+)?)\s*triệu`)
	budgetAboveRegex  = regexp.MustCompile(`trên\s*(\d+(?:[.,]\d+)?)\s*triệu`)
	budgetAroundRegex = regexp.MustCompile(`(?:khoảng|tầm|cỡ|~)\s*(\d+(?:[.,]\d+)?)\s*triệu`)
	budgetExactRegex  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*triệu`)

	peopleCountRegex = regexp.MustCompile(`(\d+)\s*(?:người|khách|ng\b)`)
)

// companionPatterns map utterance phrases to (companion type, implied people
// count). Zero count means "do not infer a count".
var companionPatterns = []struct {
	phrases   []string
	companion string
	people    int
}{
	{[]string{"bạn gái", "người yêu", "bạn trai", "vợ chồng", "girlfriend", "partner", "honeymoon"}, "couple", 2},
	{[]string{"gia đình", "bố mẹ", "con nhỏ", "family"}, "family", 4},
	{[]string{"một mình", "solo", "đi lẻ"}, "solo", 1},
	{[]string{"bạn bè", "nhóm bạn", "hội bạn", "friends"}, "friends", 0},
	{[]string{"công tác", "đồng nghiệp", "business"}, "business", 0},
}

// budgetLevelKeywords map phrasing onto the coarse budget levels.
var budgetLevelKeywords = []struct {
	phrases []string
	level   string
}{
	{[]string{"tiết kiệm", "giá rẻ", "bình dân", "rẻ nhất", "budget"}, "thrifty"},
	{[]string{"cao cấp", "sang trọng", "5 sao", "luxury", "sang chảnh"}, "luxury"},
	{[]string{"tầm trung", "vừa phải", "trung bình"}, "mid"},
}

// interestKeywords map phrasing onto interest tags.
var interestKeywords = map[string]string{
	"biển":       "beach",
	"bãi biển":   "beach",
	"núi":        "mountain",
	"leo núi":    "mountain",
	"lịch sử":    "history",
	"di tích":    "history",
	"văn hóa":    "culture",
	"ẩm thực":    "food",
	"chụp ảnh":   "photography",
	"sống ảo":    "photography",
	"thiên nhiên": "nature",
	"mua sắm":    "shopping",
	"giải trí":   "entertainment",
	"nghỉ dưỡng": "relaxation",
}

// ExtractDuration parses trip length from the utterance. "3 ngày 2 đêm"
// yields 3; "cuối tuần" yields 2; "1 tuần" yields 7.
func ExtractDuration(utterance string) int {
	lower := strings.ToLower(utterance)
	if m := durationNightsRegex.FindStringSubmatch(lower); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return days
		}
	}
	if m := durationDaysRegex.FindStringSubmatch(lower); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return days
		}
	}
	if m := durationWeekRegex.FindStringSubmatch(lower); m != nil {
		if m[1] != "" {
			if weeks, err := strconv.Atoi(m[1]); err == nil {
				return weeks * 7
			}
		}
		return 7
	}
	if weekendRegex.MatchString(lower) {
		return 2
	}
	return 0
}

// BudgetRange is a parsed VND price window. Zero bounds mean unbounded.
type BudgetRange struct {
	Min int64
	Max int64
}

// ExtractBudget parses budget phrasing. The single representative figure
// (midpoint for ranges) becomes the budget slot; the range feeds filters.
func ExtractBudget(utterance string) (int64, BudgetRange) {
	lower := strings.ToLower(utterance)

	if m := budgetRangeRegex.FindStringSubmatch(lower); m != nil {
		lo := millions(m[1])
		hi := millions(m[2])
		return (lo + hi) / 2, BudgetRange{Min: lo, Max: hi}
	}
	if m := budgetUnderRegex.FindStringSubmatch(lower); m != nil {
		cap := millions(m[1])
		return cap, BudgetRange{Max: cap}
	}
	if m := budgetAboveRegex.FindStringSubmatch(lower); m != nil {
		floor := millions(m[1])
		return floor, BudgetRange{Min: floor}
	}
	if m := budgetAroundRegex.FindStringSubmatch(lower); m != nil {
		center := millions(m[1])
		// ±10% band around the stated figure.
		return center, BudgetRange{Min: center * 9 / 10, Max: center * 11 / 10}
	}
	if m := budgetExactRegex.FindStringSubmatch(lower); m != nil {
		amount := millions(m[1])
		return amount, BudgetRange{Max: amount}
	}
	return 0, BudgetRange{}
}

func millions(s string) int64 {
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f * 1_000_000)
}

// ExtractCompanion parses companion type and an implied people count.
func ExtractCompanion(utterance string) (companion string, people int) {
	lower := strings.ToLower(utterance)
	for _, p := range companionPatterns {
		for _, phrase := range p.phrases {
			if strings.Contains(lower, phrase) {
				return p.companion, p.people
			}
		}
	}
	return "", 0
}

// ExtractPeopleCount parses an explicit head count.
func ExtractPeopleCount(utterance string) int {
	if m := peopleCountRegex.FindStringSubmatch(strings.ToLower(utterance)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			return n
		}
	}
	return 0
}

// ExtractBudgetLevel parses the coarse budget level.
func ExtractBudgetLevel(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, kw := range budgetLevelKeywords {
		for _, phrase := range kw.phrases {
			if strings.Contains(lower, phrase) {
				return kw.level
			}
		}
	}
	return ""
}

// ExtractInterests parses interest tags from the utterance.
func ExtractInterests(utterance string) []string {
	lower := strings.ToLower(utterance)
	seen := make(map[string]bool)
	var tags []string
	for phrase, tag := range interestKeywords {
		if strings.Contains(lower, phrase) && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// ApplySlots fills a record's slots from the utterance. Existing values
// (e.g. from the LLM path) are not overwritten.
func ApplySlots(r *Record, utterance string) {
	if r.Duration == 0 {
		r.Duration = ExtractDuration(utterance)
	}
	if r.Budget == 0 {
		budget, _ := ExtractBudget(utterance)
		r.Budget = budget
	}
	if r.BudgetLevel == "" {
		r.BudgetLevel = ExtractBudgetLevel(utterance)
	}
	if r.PeopleCount == 0 {
		r.PeopleCount = ExtractPeopleCount(utterance)
	}
	if r.CompanionType == "" {
		companion, people := ExtractCompanion(utterance)
		r.CompanionType = companion
		// Companion-implied counts only fill in when no explicit head count
		// was given.
		if r.PeopleCount == 0 && people > 0 {
			r.PeopleCount = people
		}
	}
	if len(r.Interests) == 0 {
		r.Interests = ExtractInterests(utterance)
	}
}
