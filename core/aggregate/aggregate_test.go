package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
)

func TestCleanHotelsHalvesRating(t *testing.T) {
	records := CleanHotels([]map[string]any{{
		"name":      "Dragon Sea",
		"rating":    8.6,
		"price":     int64(900_000),
		"embedding": []float64{0.1, 0.2},
	}})
	require.Len(t, records, 1)
	r := records[0]
	assert.InDelta(t, 4.3, r["rating"].(float64), 0.001)
	assert.Equal(t, "⭐4.3/5", r["rating_display"])
	assert.Equal(t, "900.000đ/đêm", r["price_display"])
	assert.NotContains(t, r, "embedding")
	assert.Equal(t, fallbackImage, r["image"])
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	original := map[string]any{"name": "Dragon Sea", "rating": 8.6}
	CleanHotels([]map[string]any{original})
	assert.Equal(t, 8.6, original["rating"], "input record untouched")
}

func TestCleanSpotsKeepsRatingScale(t *testing.T) {
	records := CleanSpots([]map[string]any{{"name": "Bà Nà Hills", "rating": 4.7}})
	assert.Equal(t, 4.7, records[0]["rating"])
	assert.Equal(t, "⭐4.7/5", records[0]["rating_display"])
}

func TestCleanTruncatesDescription(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'a'
	}
	records := CleanRecords([]map[string]any{{"name": "X", "description": string(long)}})
	desc := records[0]["description"].(string)
	assert.LessOrEqual(t, len([]rune(desc)), maxDescription+1)
}

func TestTruncateRuneSafe(t *testing.T) {
	assert.Equal(t, "ăn ngon", Truncate("ăn ngon", 10))
	assert.Equal(t, "bánh…", Truncate("bánh tráng", 5))
}

func TestFormatStageSpots(t *testing.T) {
	s := FormatStage(StageSpots, []*expert.Result{{
		Success: true,
		Data:    []map[string]any{{"name": "Bà Nà Hills", "rating": 4.7}},
	}})
	require.NotNil(t, s)
	assert.Equal(t, chunk.UISpotCards, s.UIType)
	assert.Contains(t, s.Reply, "Bà Nà Hills")
	assert.NotEmpty(t, s.UIData["spots"])
}

func TestFormatStageHotelsHasActions(t *testing.T) {
	s := FormatStage(StageHotels, []*expert.Result{{
		Success: true,
		Data:    []map[string]any{{"name": "Dragon Sea", "rating": 8.6, "price": int64(900_000)}},
	}})
	require.NotNil(t, s)
	assert.Equal(t, chunk.UIHotelCards, s.UIType)
	actions := s.UIData["actions"].([]map[string]any)
	assert.Equal(t, "book_hotel", actions[0]["action"])
}

func TestFormatStageFoodSpecialtyFallback(t *testing.T) {
	s := FormatStage(StageFood, []*expert.Result{{
		Success: true,
		Data: []map[string]any{{
			"type":   "regional_specialty",
			"dishes": []string{"Gỏi cá trích", "Bún quậy"},
		}},
	}})
	require.NotNil(t, s)
	assert.Contains(t, s.Reply, "Gỏi cá trích")
}

func TestFormatStageSkipsFailures(t *testing.T) {
	s := FormatStage(StageSpots, []*expert.Result{{Success: false, Error: "down"}})
	assert.Nil(t, s)
}

func TestFormatStageCost(t *testing.T) {
	s := FormatStage(StageCost, []*expert.Result{{
		Success: true,
		Data: []map[string]any{{
			"type":          "costs",
			"accommodation": int64(2_000_000),
			"food":          int64(2_400_000),
			"transport":     int64(900_000),
			"activities":    int64(1_500_000),
			"total":         int64(6_800_000),
			"per_person":    int64(3_400_000),
		}},
	}})
	require.NotNil(t, s)
	assert.Equal(t, chunk.UICostBreakdown, s.UIType)
	assert.Contains(t, s.Reply, "6.800.000đ")
}

func TestAssembleOrderAndUIType(t *testing.T) {
	spots := FormatStage(StageSpots, []*expert.Result{{Success: true, Data: []map[string]any{{"name": "A"}}}})
	hotels := FormatStage(StageHotels, []*expert.Result{{Success: true, Data: []map[string]any{{"name": "B"}}}})

	reply, uiType, data := Assemble([]*Section{spots, hotels}, "Đây là gợi ý cho chuyến đi của bạn:")
	require.NotNil(t, reply)
	assert.Equal(t, chunk.UIComprehensive, uiType)
	assert.Less(t, stringsIndex(*reply, "Địa điểm"), stringsIndex(*reply, "Khách sạn"), "spots before hotels")
	assert.Contains(t, *reply, "Đây là gợi ý")
	assert.NotEmpty(t, data["spots"])
	assert.NotEmpty(t, data["hotels"])
}

func TestSynthesizeCostTopThreeAverage(t *testing.T) {
	hotels := []map[string]any{
		{"price": int64(900_000)},
		{"price": int64(1_200_000)},
		{"price": int64(1_500_000)},
		{"price": int64(9_000_000)}, // beyond top-3, ignored
	}
	rec := SynthesizeCost(hotels, 3, 2, "mid")
	// (900k+1.2M+1.5M)/3 = 1.2M per night × 2 nights
	assert.EqualValues(t, 2_400_000, rec["accommodation"])
	assert.Equal(t, "costs", rec["type"])
	assert.NotZero(t, rec["daily_estimate"])
}

func stringsIndex(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
