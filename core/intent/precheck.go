package intent

import (
	"regexp"
	"strings"
)

// Compound pattern pre-checks run before any LLM call and short-circuit
// extraction at confidence 0.95 when they fire.

var (
	bookingPhraseRegex = regexp.MustCompile(`đặt phòng|đặt khách sạn|book\s|booking|đặt ngay`)
	hotelTokenRegex    = regexp.MustCompile(`khách sạn|hotel|resort|homestay|villa`)

	costPhraseRegex = regexp.MustCompile(`budget|chi phí|tính tiền|bao nhiêu tiền|tổng tiền|hết bao nhiêu|dự trù|lập budget`)
	planPhraseRegex = regexp.MustCompile(`lập lịch trình|lên lịch trình|lên kế hoạch|tạo lịch trình|plan`)

	// hotelNameRegex pulls the hotel name following a booking phrase, e.g.
	// "Đặt phòng tại Khách sạn Dragon Sea".
	hotelNameRegex = regexp.MustCompile(`(?i)(?:đặt phòng|đặt|book(?:ing)?)\s*(?:tại|ở|at)?\s*((?:khách sạn|hotel|resort|homestay)\s+[\p{L}\d' ]+)`)
)

// Precheck applies the high-confidence compound patterns. It returns a
// record at confidence 0.95 when a pattern fires, or nil.
func Precheck(utterance string) *Record {
	lower := strings.ToLower(utterance)

	// Booking phrase together with a hotel-like token.
	if bookingPhraseRegex.MatchString(lower) && hotelTokenRegex.MatchString(lower) {
		rec := &Record{
			PrimaryIntent:   BookHotel,
			Confidence:      0.95,
			ContextRelation: RelationContinuation,
		}
		if m := hotelNameRegex.FindStringSubmatch(utterance); m != nil {
			rec.SelectedHotelName = strings.TrimSpace(m[1])
		}
		ApplySlots(rec, utterance)
		return rec
	}

	// Budget/cost phrase without a plan-creation phrase.
	if costPhraseRegex.MatchString(lower) && !planPhraseRegex.MatchString(lower) {
		rec := &Record{
			PrimaryIntent:   CalculateCost,
			Confidence:      0.95,
			ContextRelation: RelationContinuation,
		}
		ApplySlots(rec, utterance)
		return rec
	}

	return nil
}
