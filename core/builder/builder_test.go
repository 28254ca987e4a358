package builder

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/verify"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

func testStore() *store.MemStore {
	spots := []store.Spot{
		{ID: "spot_ba_na", Name: "Bà Nà Hills", Category: "amusement", Rating: 4.7, ProvinceID: "da_nang"},
		{ID: "spot_cau_rong", Name: "Cầu Rồng", Category: "landmark", Rating: 4.5, ProvinceID: "da_nang"},
		{ID: "spot_ngu_hanh", Name: "Ngũ Hành Sơn", Category: "nature", Rating: 4.4, ProvinceID: "da_nang"},
		{ID: "spot_cho_dem", Name: "Chợ Đêm Sơn Trà", Category: "night_market", Rating: 4.2, ProvinceID: "da_nang"},
	}
	for i := 0; i < 12; i++ {
		spots = append(spots, store.Spot{
			ID:         fmt.Sprintf("spot_extra_%d", i),
			Name:       fmt.Sprintf("Địa điểm %d", i),
			Rating:     4.0 - float64(i)*0.1,
			ProvinceID: "da_nang",
		})
	}
	return &store.MemStore{
		Spots: spots,
		Hotels: []store.Hotel{
			{ID: "hotel_cheap", Name: "Nhà nghỉ Biển Xanh", Price: 400_000, Rating: 7.0, ProvinceID: "da_nang"},
			{ID: "hotel_mid", Name: "Khách sạn Dragon Sea", Price: 900_000, Rating: 8.6, ProvinceID: "da_nang"},
			{ID: "hotel_lux", Name: "Luxury Beach Resort", Price: 3_500_000, Rating: 9.4, ProvinceID: "da_nang"},
		},
	}
}

func newTestBuilder() *Builder {
	return New(testStore(), nil, nil, verify.New(nil), nil)
}

func TestStartAsksForStartDate(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")

	out, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 3})
	require.NoError(t, err)
	assert.Equal(t, chunk.UIItineraryBuilder, out.UIType)
	assert.Equal(t, "ask_start_date", out.UIData["step"])

	require.NotNil(t, c.Builder)
	assert.True(t, c.Builder.WaitingForStartDate)
	assert.Equal(t, convo.StateChoosingSpots, c.State())
	assert.NotEmpty(t, c.Builder.AvailableSpots)
	assert.LessOrEqual(t, len(c.Builder.AvailableSpots), 20)
}

func TestStartDateParsing(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)

	out, err := b.Continue(context.Background(), c, "15/3")
	require.NoError(t, err)
	assert.False(t, c.Builder.WaitingForStartDate)
	assert.Regexp(t, `^\d{4}-03-15$`, c.Builder.StartDate)
	assert.Equal(t, chunk.UISpotSelectorTable, out.UIType)
}

func TestStartDateUnknownOffersMonths(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)

	out, err := b.Continue(context.Background(), c, "không biết")
	require.NoError(t, err)
	assert.Equal(t, chunk.UIMonthSelector, out.UIType)
	assert.True(t, c.Builder.WaitingForMonthSelection)

	out, err = b.Continue(context.Background(), c, "tháng 4")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}-04-01$`, c.Builder.StartDate)
	assert.Equal(t, chunk.UISpotSelectorTable, out.UIType)
}

func TestDaySelectionByOrdinals(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "15/3")
	require.NoError(t, err)

	out, err := b.Continue(context.Background(), c, "1, 3")
	require.NoError(t, err)
	assert.Equal(t, chunk.UISpotSelectorUpd, out.UIType)
	assert.Len(t, c.Builder.DaysPlan[1], 2)
	assert.Len(t, c.SelectedSpotIDs, 2)
	assert.Len(t, c.SelectedSpots, 2)
	assert.Equal(t, 1, c.SelectedSpots[0].Day)
}

func TestDaySelectionByName(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "15/3")
	require.NoError(t, err)

	_, err = b.Continue(context.Background(), c, "Bà Nà Hills")
	require.NoError(t, err)
	require.Len(t, c.Builder.DaysPlan[1], 1)
	assert.Equal(t, "Bà Nà Hills", c.Builder.DaysPlan[1][0]["name"])
}

func TestSelectedSpotsExcludedFromNextOffer(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "15/3")
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "1")
	require.NoError(t, err)

	out, err := b.Continue(context.Background(), c, "tiếp")
	require.NoError(t, err)
	for _, spot := range out.UIData["spots"].([]map[string]any) {
		assert.NotEqual(t, "Bà Nà Hills", spot["name"], "already-selected spot re-offered")
	}
	assert.Equal(t, 2, c.Builder.CurrentDay)
}

func TestEmptyDayThenDoneFinalizes(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "15/3")
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "1")
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "tiếp")
	require.NoError(t, err)

	// Day 2 left empty, "done" finalizes.
	out, err := b.Continue(context.Background(), c, "done")
	require.NoError(t, err)
	assert.Equal(t, chunk.UIItineraryDisplay, out.UIType)
	assert.Contains(t, out.Reply, "LỊCH TRÌNH")

	require.NotNil(t, c.LastItinerary)
	assert.Nil(t, c.Builder, "builder cleared on finalize")
	assert.Equal(t, convo.StateChoosingHotel, c.State())
	assert.Len(t, c.LastItinerary.Days, 2)
	assert.Empty(t, c.LastItinerary.Days[1].Spots, "empty day recorded as empty")
}

func TestCancelClearsBuilder(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)

	out, err := b.Continue(context.Background(), c, "huỷ")
	require.NoError(t, err)
	assert.Nil(t, c.Builder)
	assert.Equal(t, convo.StateInitial, c.State())
	assert.Contains(t, out.Reply, "huỷ")
}

func TestShowAllSpots(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")
	_, err := b.Start(context.Background(), c, Entry{Location: "Đà Nẵng", Days: 2})
	require.NoError(t, err)
	_, err = b.Continue(context.Background(), c, "15/3")
	require.NoError(t, err)

	out, err := b.Continue(context.Background(), c, "xem thêm")
	require.NoError(t, err)
	shown := out.UIData["shown"].(int)
	available := out.UIData["available"].(int)
	assert.Equal(t, available, shown, "xem thêm lists the whole pool")
	assert.Greater(t, shown, 10)
}

// Auto mode: frame complete with a budget, no LLM. The plan is laid out
// from candidates, a hotel is chosen under the nightly cap, and the state
// jumps to READY_TO_FINALIZE.
func TestAutoGenerateWithBudget(t *testing.T) {
	b := newTestBuilder()
	c := convo.New("s1")

	out, err := b.Start(context.Background(), c, Entry{
		Location: "Đà Nẵng",
		Days:     3,
		Budget:   8_000_000,
		People:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, chunk.UIItineraryDisplay, out.UIType)
	assert.Contains(t, out.Reply, "LỊCH TRÌNH")
	assert.Contains(t, out.Reply, "Khách sạn gợi ý")

	require.NotNil(t, c.LastItinerary)
	assert.Nil(t, c.Builder)
	require.NotNil(t, c.SelectedHotel)
	assert.Equal(t, convo.StateReadyToFinalize, c.State())
	assert.Positive(t, c.SelectedHotelPrice)
}

// With a budget too small for any hotel, the cheapest is chosen and a
// budget warning is attached.
func TestAutoGenerateBudgetWarning(t *testing.T) {
	s := testStore()
	for i := range s.Hotels {
		s.Hotels[i].Price += 10_000_000
	}
	b := New(s, nil, nil, verify.New(nil), nil)
	c := convo.New("s1")

	out, err := b.Start(context.Background(), c, Entry{
		Location: "Đà Nẵng",
		Days:     3,
		Budget:   5_000_000,
		People:   2,
	})
	require.NoError(t, err)
	require.NotNil(t, c.LastItinerary)
	assert.NotEmpty(t, c.LastItinerary.BudgetWarning)
	assert.Contains(t, out.Reply, "rẻ nhất")
	assert.Equal(t, "Nhà nghỉ Biển Xanh", c.SelectedHotel["name"])
}

func TestBestNameMatch(t *testing.T) {
	candidates := []map[string]any{
		{"id": "a", "name": "Bà Nà Hills"},
		{"id": "b", "name": "Chợ Đêm Sơn Trà"},
	}
	assert.Equal(t, "a", bestNameMatch("bà nà", candidates)["id"])
	assert.Equal(t, "b", bestNameMatch("chợ đêm sơn trà đà nẵng", candidates)["id"])
	assert.Nil(t, bestNameMatch("hồ gươm", candidates))
}
