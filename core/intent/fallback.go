package intent

import (
	"regexp"
	"strings"
)

// Regex fallback path, applied when the LLM path fails or the client is
// unavailable. Word-boundary checks for social intents, keyword scans for
// the travel intents, slot regexes for the rest.

var (
	greetingRegex = regexp.MustCompile(`(?i)^\s*(xin chào|chào|hello|hi|hey|alo)\b`)
	thanksRegex   = regexp.MustCompile(`(?i)\b(cảm ơn|cám ơn|thanks|thank you|thank)\b`)
	farewellRegex = regexp.MustCompile(`(?i)\b(tạm biệt|bye|goodbye|hẹn gặp lại)\b`)

	moreRegex = regexp.MustCompile(`còn .*(khác|nữa)|thêm .*(nữa|khác)|xem thêm|gợi ý thêm|more`)

	weatherRegex   = regexp.MustCompile(`thời tiết|dự báo|mưa|nắng|weather`)
	distanceRegex  = regexp.MustCompile(`bao xa|cách .* bao nhiêu|khoảng cách|distance`)
	directionRegex = regexp.MustCompile(`đường đi|chỉ đường|đi thế nào|làm sao .*đến`)
	tipsRegex      = regexp.MustCompile(`lưu ý|kinh nghiệm|mẹo|cần chuẩn bị|tips`)
	whereIsRegex   = regexp.MustCompile(`(.+?)\s*(?:ở đâu|nằm ở đâu|thuộc tỉnh nào)`)

	showItineraryRegex = regexp.MustCompile(`xem lịch trình|lịch trình của tôi|lịch trình hiện tại|show itinerary`)
	planTripRegex      = regexp.MustCompile(`lập lịch trình|lên lịch trình|lên kế hoạch|lịch trình|du lịch|chuyến đi|tour`)
	strongPlanRegex    = regexp.MustCompile(`lập lịch trình|lên lịch trình|tạo lịch trình|lên kế hoạch`)
	findHotelRegex     = regexp.MustCompile(`khách sạn|hotel|resort|homestay|chỗ ở|phòng nghỉ`)
	findSpotRegex      = regexp.MustCompile(`địa điểm|tham quan|chơi gì|đi đâu|check.?in|cảnh đẹp|danh lam`)
	findFoodRegex      = regexp.MustCompile(`ăn gì|quán ăn|nhà hàng|món ngon|đặc sản|ăn uống|đồ ăn`)
	peopleRegex        = regexp.MustCompile(`đổi .*người|thành \d+ người|thêm người|bớt người`)
	detailRegex        = regexp.MustCompile(`chi tiết|thông tin về|giới thiệu về|kể .*về`)

	offTopicRegex = regexp.MustCompile(`chứng khoán|bóng đá|thời sự|chính trị|code|lập trình`)
)

// Fallback performs regex-only extraction. It always returns a record.
func Fallback(utterance string) *Record {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	rec := &Record{Confidence: 0.6, ContextRelation: RelationNewTopic}

	var detected []string
	switch {
	case greetingRegex.MatchString(lower) && len([]rune(lower)) < 20:
		detected = append(detected, Greeting)
	case thanksRegex.MatchString(lower):
		detected = append(detected, Thanks)
	case farewellRegex.MatchString(lower):
		detected = append(detected, Farewell)
	}

	if showItineraryRegex.MatchString(lower) {
		detected = append(detected, ShowItinerary)
	}
	if peopleRegex.MatchString(lower) {
		detected = append(detected, UpdatePeopleCount)
	}

	switch {
	case moreRegex.MatchString(lower) && findSpotRegex.MatchString(lower):
		detected = append(detected, MoreSpots)
	case moreRegex.MatchString(lower) && findHotelRegex.MatchString(lower):
		detected = append(detected, MoreHotels)
	case moreRegex.MatchString(lower) && findFoodRegex.MatchString(lower):
		detected = append(detected, MoreFood)
	}

	if weatherRegex.MatchString(lower) {
		detected = append(detected, GetWeatherForecast)
	}
	if directionRegex.MatchString(lower) {
		detected = append(detected, GetDirections)
	} else if distanceRegex.MatchString(lower) {
		detected = append(detected, GetDistance)
	}
	if tipsRegex.MatchString(lower) {
		detected = append(detected, GetLocationTips)
	}
	if whereIsRegex.MatchString(lower) || detailRegex.MatchString(lower) {
		detected = append(detected, GetPlaceDetails)
	}

	if planTripRegex.MatchString(lower) {
		detected = append(detected, PlanTrip)
	}
	if findHotelRegex.MatchString(lower) {
		detected = append(detected, FindHotel)
	}
	if findSpotRegex.MatchString(lower) {
		detected = append(detected, FindSpot)
	}
	if findFoodRegex.MatchString(lower) {
		detected = append(detected, FindFood)
	}

	if len(detected) == 0 {
		if offTopicRegex.MatchString(lower) {
			rec.PrimaryIntent = Chitchat
			rec.Confidence = 0.5
			return rec
		}
		rec.PrimaryIntent = GeneralQA
		rec.Confidence = 0.4
		ApplySlots(rec, utterance)
		return rec
	}

	// Specific follow-ups beat the generic precedence table.
	for _, d := range detected {
		switch d {
		case MoreSpots, MoreHotels, MoreFood, GetWeatherForecast,
			GetDistance, GetDirections, ShowItinerary:
			rec.PrimaryIntent = d
			rec.ContextRelation = RelationContinuation
		}
	}
	// An explicit plan-creation phrase wins over find_* keywords riding
	// along in the same message.
	if rec.PrimaryIntent == "" && strongPlanRegex.MatchString(lower) {
		rec.PrimaryIntent = PlanTrip
	}
	if rec.PrimaryIntent == "" {
		rec.PrimaryIntent = ResolvePrecedence(detected)
	}

	// Remaining detections become ordered sub-intents.
	for _, d := range detected {
		if d != rec.PrimaryIntent && !rec.HasSub(d) {
			rec.SubIntents = append(rec.SubIntents, d)
		}
	}

	rec.FlowAction = detectFlowAction(lower)
	ApplySlots(rec, utterance)
	return rec
}

// WhereIsSubject extracts X from "X ở đâu?" patterns; used by the general
// info expert to trigger cross-province lookups.
func WhereIsSubject(utterance string) (string, bool) {
	if m := whereIsRegex.FindStringSubmatch(strings.TrimSpace(utterance)); m != nil {
		subject := strings.Trim(strings.TrimSpace(m[1]), "?!.")
		if subject != "" {
			return subject, true
		}
	}
	return "", false
}

func detectFlowAction(lower string) string {
	switch {
	case strings.Contains(lower, "huỷ") || strings.Contains(lower, "hủy") || strings.Contains(lower, "cancel"):
		return FlowCancel
	case strings.Contains(lower, "quay lại") || strings.Contains(lower, "trở lại"):
		return FlowBack
	case strings.Contains(lower, "hoàn tất") || strings.Contains(lower, "chốt") || strings.Contains(lower, "xong hết"):
		return FlowFinalize
	}
	return ""
}
