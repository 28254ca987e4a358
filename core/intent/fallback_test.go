package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackSocialIntents(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"Xin chào", Greeting},
		{"chào bạn", Greeting},
		{"Cảm ơn bạn nhé", Thanks},
		{"Tạm biệt, hẹn gặp lại", Farewell},
	}
	for _, tt := range tests {
		rec := Fallback(tt.utterance)
		assert.Equal(t, tt.want, rec.PrimaryIntent, tt.utterance)
	}
}

func TestFallbackGreetingOnlyWhenShort(t *testing.T) {
	// A long message starting with a greeting is about its content, not the
	// greeting.
	rec := Fallback("Chào bạn, cho mình hỏi địa điểm tham quan ở Đà Nẵng")
	assert.Equal(t, FindSpot, rec.PrimaryIntent)
}

func TestFallbackStrongPlanPhraseWins(t *testing.T) {
	rec := Fallback("Lên lịch trình Đà Nẵng 3 ngày, tìm khách sạn và quán ăn ngon")
	assert.Equal(t, PlanTrip, rec.PrimaryIntent)
	assert.True(t, rec.HasSub(FindHotel))
	assert.True(t, rec.HasSub(FindFood))
	assert.Equal(t, 3, rec.Duration)
}

func TestFallbackPrecedenceWithoutPlanPhrase(t *testing.T) {
	// "du lịch" alone is not a plan-creation phrase, so the precedence table
	// decides and find_hotel outranks find_spot and plan_trip.
	rec := Fallback("Tìm khách sạn và địa điểm du lịch Đà Nẵng")
	assert.Equal(t, FindHotel, rec.PrimaryIntent)
	assert.True(t, rec.HasSub(FindSpot))
	assert.True(t, rec.HasSub(PlanTrip))
}

func TestFallbackFollowUps(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"Còn địa điểm nào khác không?", MoreSpots},
		{"Gợi ý thêm khách sạn nữa đi", MoreHotels},
		{"Còn quán ăn nào khác không?", MoreFood},
		{"Thời tiết ở đó thế nào?", GetWeatherForecast},
		{"Từ đó đến Bà Nà Hills bao xa?", GetDistance},
		{"Chỉ đường đến Cầu Rồng giúp mình", GetDirections},
		{"Xem lịch trình của tôi", ShowItinerary},
	}
	for _, tt := range tests {
		rec := Fallback(tt.utterance)
		assert.Equal(t, tt.want, rec.PrimaryIntent, tt.utterance)
		assert.Equal(t, RelationContinuation, rec.ContextRelation, tt.utterance)
	}
}

func TestFallbackTips(t *testing.T) {
	rec := Fallback("Cho mình xin kinh nghiệm du lịch Đà Nẵng")
	assert.Equal(t, GetLocationTips, rec.PrimaryIntent)
}

func TestFallbackOffTopicIsChitchat(t *testing.T) {
	rec := Fallback("Giá chứng khoán hôm nay ra sao?")
	assert.Equal(t, Chitchat, rec.PrimaryIntent)
	assert.Equal(t, 0.5, rec.Confidence)
}

func TestFallbackDefaultsToGeneralQA(t *testing.T) {
	rec := Fallback("Bạn tên là gì?")
	assert.Equal(t, GeneralQA, rec.PrimaryIntent)
	assert.Equal(t, 0.4, rec.Confidence)
}

func TestFallbackFlowActions(t *testing.T) {
	tests := []struct {
		utterance string
		want      string
	}{
		{"Chốt lịch trình này nhé", FlowFinalize},
		{"Huỷ chuyến đi giúp mình", FlowCancel},
		{"Quay lại ngày trước đó, lịch trình chưa ổn", FlowBack},
	}
	for _, tt := range tests {
		rec := Fallback(tt.utterance)
		assert.Equal(t, tt.want, rec.FlowAction, tt.utterance)
	}
}

func TestWhereIsSubject(t *testing.T) {
	subject, ok := WhereIsSubject("Bãi Sao ở đâu?")
	require.True(t, ok)
	assert.Equal(t, "Bãi Sao", subject)

	subject, ok = WhereIsSubject("Chùa Cầu nằm ở đâu vậy?")
	require.True(t, ok)
	assert.Equal(t, "Chùa Cầu", subject)

	_, ok = WhereIsSubject("Xin chào")
	assert.False(t, ok)
}
