package expert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/core/verify"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

// stubLLM returns a canned object from ExtractJSON.
type stubLLM struct {
	obj map[string]any
}

func (s *stubLLM) Chat(context.Context, []llm.Message, *llm.ChatOptions) (string, error) {
	return "", nil
}
func (s *stubLLM) Complete(context.Context, string, *llm.ChatOptions) (string, error) {
	return "", nil
}
func (s *stubLLM) ExtractJSON(context.Context, string, string) (map[string]any, error) {
	return s.obj, nil
}
func (s *stubLLM) Warmup(context.Context) {}

type stubExpert struct {
	taskType planner.TaskType
	fn       func(params map[string]any) (*Result, error)
}

func (s *stubExpert) Type() planner.TaskType { return s.taskType }
func (s *stubExpert) Execute(_ context.Context, _ string, params map[string]any, _ *convo.Context) (*Result, error) {
	return s.fn(params)
}

func TestDispatcherInjectsDependencies(t *testing.T) {
	d := NewDispatcher()
	var seen []map[string]any
	d.Register(&stubExpert{taskType: planner.TaskCreateItinerary, fn: func(params map[string]any) (*Result, error) {
		seen = paramRecords(params, "spots_data")
		return &Result{Summary: "ok"}, nil
	}})

	task := &planner.Task{
		ID:        "itinerary_1",
		Type:      planner.TaskCreateItinerary,
		DependsOn: []string{"spots_1"},
	}
	prior := map[string]*Result{
		"spots_1": {Success: true, Data: []map[string]any{{"name": "Bà Nà Hills"}}},
	}

	r := d.Execute(context.Background(), task, prior, nil)
	require.True(t, r.Success)
	require.Len(t, seen, 1)
	assert.Equal(t, "Bà Nà Hills", seen[0]["name"])
}

func TestDispatcherPanicBecomesFailure(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubExpert{taskType: planner.TaskFindSpots, fn: func(map[string]any) (*Result, error) {
		panic("boom")
	}})

	r := d.Execute(context.Background(), &planner.Task{ID: "spots_1", Type: planner.TaskFindSpots}, nil, nil)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "boom")
}

func TestDispatcherUnknownExpert(t *testing.T) {
	r := NewDispatcher().Execute(context.Background(), &planner.Task{ID: "x", Type: "bogus"}, nil, nil)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "no expert registered")
}

func TestDispatcherParameterIsolation(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubExpert{taskType: planner.TaskFindSpots, fn: func(params map[string]any) (*Result, error) {
		params["mutated"] = true
		return &Result{}, nil
	}})

	task := &planner.Task{ID: "spots_1", Type: planner.TaskFindSpots, Parameters: map[string]any{"location": "Huế"}}
	d.Execute(context.Background(), task, nil, nil)
	_, mutated := task.Parameters["mutated"]
	assert.False(t, mutated, "experts receive a copy of the parameters")
}

func TestExecuteStageRunsAllTasks(t *testing.T) {
	d := NewDispatcher()
	d.Register(&stubExpert{taskType: planner.TaskFindSpots, fn: func(map[string]any) (*Result, error) {
		return &Result{Summary: "spots"}, nil
	}})
	d.Register(&stubExpert{taskType: planner.TaskFindFood, fn: func(map[string]any) (*Result, error) {
		return &Result{Summary: "food"}, nil
	}})

	tasks := []*planner.Task{
		{ID: "spots_1", Type: planner.TaskFindSpots},
		{ID: "food_1", Type: planner.TaskFindFood},
	}
	results := d.ExecuteStage(context.Background(), tasks, nil, nil)
	require.Len(t, results, 2)
	assert.True(t, results["spots_1"].Success)
	assert.True(t, results["food_1"].Success)
}

func testStore() *store.MemStore {
	return &store.MemStore{
		Spots: []store.Spot{
			{ID: "spot_ba_na", Name: "Bà Nà Hills", Description: "Khu du lịch trên núi", Category: "amusement", Rating: 4.7, ProvinceID: "da_nang", Lat: 15.9977, Lng: 107.9966},
			{ID: "spot_cau_rong", Name: "Cầu Rồng", Description: "Cầu phun lửa cuối tuần", Category: "landmark", Rating: 4.5, ProvinceID: "da_nang", Lat: 16.0614, Lng: 108.2277},
			{ID: "spot_bai_sao", Name: "Bãi Sao", Description: "Bãi biển cát trắng", Category: "beach", Rating: 4.6, ProvinceID: "kien_giang", Lat: 10.0526, Lng: 104.0372},
		},
		Hotels: []store.Hotel{
			{ID: "hotel_dragon", Name: "Khách sạn Dragon Sea", Price: 900_000, Rating: 8.6, ProvinceID: "da_nang", Lat: 16.06, Lng: 108.22},
			{ID: "hotel_lux", Name: "Luxury Beach Resort", Price: 3_500_000, Rating: 9.4, ProvinceID: "da_nang", Lat: 16.04, Lng: 108.24},
		},
		Foods: []store.Food{
			{ID: "food_mi_quang", Name: "Mì Quảng Bà Mua", Description: "Quán mì Quảng nổi tiếng", Rating: 4.4, ProvinceID: "da_nang"},
			{ID: "food_bun_cha", Name: "Bún chả cá 109", Description: "Quán bún chả cá lâu đời", Rating: 4.3, ProvinceID: "da_nang"},
			{ID: "food_bridge", Name: "Cầu Tình Yêu", Description: "Cầu ngắm cảnh", Rating: 4.0, ProvinceID: "da_nang"},
		},
		Provinces: []store.Province{
			{ID: "da_nang", Name: "Đà Nẵng", TravelTips: "Nên thuê xe máy để di chuyển."},
		},
	}
}

func TestSpotExpertStoreFallback(t *testing.T) {
	e := NewSpotExpert(testStore(), nil, nil)
	r, err := e.Execute(context.Background(), "địa điểm tham quan Đà Nẵng",
		map[string]any{"location": "Đà Nẵng"}, nil)
	require.NoError(t, err)
	require.Len(t, r.Data, 2, "province filter keeps only Đà Nẵng spots")
	assert.Equal(t, "Bà Nà Hills", r.Data[0]["name"], "sorted by rating desc")
	assert.Equal(t, "da_nang", r.Metadata["province_id"])
}

func TestHotelExpertBudgetLevelRange(t *testing.T) {
	e := NewHotelExpert(testStore(), nil, nil, nil)
	// mid = 500k–2.5M per night: the 3.5M resort is excluded.
	r, err := e.Execute(context.Background(), "khách sạn",
		map[string]any{"location": "Đà Nẵng", "budget_level": "mid"}, nil)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "Khách sạn Dragon Sea", r.Data[0]["name"])
	assert.Contains(t, r.Data[0]["priceRange"], "900.000đ")
}

func TestHotelExpertNightlyCapFromTotalBudget(t *testing.T) {
	e := NewHotelExpert(testStore(), nil, nil, nil)
	// 30% of 5M = 1.5M per night: only the 900k hotel fits.
	r, err := e.Execute(context.Background(), "khách sạn",
		map[string]any{"location": "Đà Nẵng", "budget": int64(5_000_000)}, nil)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "Khách sạn Dragon Sea", r.Data[0]["name"])
}

// A turn that carries only free-form price phrasing narrows the window
// through the dispatcher: "khoảng 1 triệu" becomes a 900k–1.1M band.
func TestDispatcherBudgetPhraseWindow(t *testing.T) {
	d := NewDispatcher()
	d.Register(NewHotelExpert(testStore(), nil, nil, nil))

	task := &planner.Task{
		ID:   "hotel_1",
		Type: planner.TaskFindHotels,
		Parameters: map[string]any{
			"location":      "Đà Nẵng",
			"budget_phrase": "khoảng 1 triệu",
		},
	}
	r := d.Execute(context.Background(), task, nil, nil)
	require.True(t, r.Success)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "Khách sạn Dragon Sea", r.Data[0]["name"])
	assert.EqualValues(t, 900_000, r.Metadata["min_price"])
	assert.EqualValues(t, 1_100_000, r.Metadata["max_price"])
}

// Phrasing no pattern recognizes falls through to the LLM parser.
func TestHotelExpertBudgetPhraseLLMFallback(t *testing.T) {
	client := &stubLLM{obj: map[string]any{"min_price": float64(0), "max_price": float64(1_000_000)}}
	e := NewHotelExpert(testStore(), nil, client, nil)

	r, err := e.Execute(context.Background(), "khách sạn",
		map[string]any{"location": "Đà Nẵng", "budget_phrase": "đừng tốn kém quá nha"}, nil)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "Khách sạn Dragon Sea", r.Data[0]["name"])
	assert.EqualValues(t, 1_000_000, r.Metadata["max_price"])
}

func TestHotelExpertGeoFallback(t *testing.T) {
	// Hotels lack the province id, so the keyword path finds nothing and
	// the 30 km bounding box around the province center kicks in.
	s := testStore()
	for i := range s.Hotels {
		s.Hotels[i].ProvinceID = ""
	}
	e := NewHotelExpert(s, nil, nil, nil)
	r, err := e.Execute(context.Background(), "",
		map[string]any{"location": "Đà Nẵng", "keywords": []string{"không khớp gì cả"}}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, r.Data, "geo fallback finds hotels near the province center")
}

func TestFoodExpertFiltersLandmarks(t *testing.T) {
	e := NewFoodExpert(testStore(), nil)
	r, err := e.Execute(context.Background(), "", map[string]any{"location": "Đà Nẵng"}, nil)
	require.NoError(t, err)
	for _, rec := range r.Data {
		assert.NotEqual(t, "Cầu Tình Yêu", rec["name"], "landmarks are filtered out")
	}
	assert.GreaterOrEqual(t, len(r.Data), 2)
}

func TestFoodExpertSpecialtyFallback(t *testing.T) {
	e := NewFoodExpert(&store.MemStore{}, nil)
	r, err := e.Execute(context.Background(), "", map[string]any{"location": "Phú Quốc"}, nil)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "regional_specialty", r.Data[0]["type"])
	assert.Contains(t, r.Summary, "Gỏi cá trích")
}

func TestCostCalculator(t *testing.T) {
	e := NewCostCalculator()
	c := convo.New("s1")
	c.SelectedHotelPrice = 1_000_000

	r, err := e.Execute(context.Background(), "", map[string]any{
		"duration":     3,
		"people_count": 2,
		"budget_level": "mid",
	}, c)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)

	rec := r.Data[0]
	// 2 nights × 1M + food 400k×2×3 + transport 300k×3 + activities 250k×2×3
	assert.EqualValues(t, 2_000_000, rec["accommodation"])
	assert.EqualValues(t, 2_400_000, rec["food"])
	assert.EqualValues(t, 900_000, rec["transport"])
	assert.EqualValues(t, 1_500_000, rec["activities"])
	assert.EqualValues(t, 6_800_000, rec["total"])
	assert.EqualValues(t, 3_400_000, rec["per_person"])
}

func TestEstimateCostDayTripNoAccommodation(t *testing.T) {
	b := EstimateCost(1, 2, "thrifty", 0)
	assert.Zero(t, b.Accommodation)
	assert.Positive(t, b.Total)
}

func TestEstimateCostDefaults(t *testing.T) {
	b := EstimateCost(0, 0, "", 0)
	assert.Positive(t, b.Total, "invalid inputs coerce to 3 days, 1 person, mid level")
	assert.Equal(t, b.Total, b.PerPerson)
}

func TestParseBudgetCascade(t *testing.T) {
	tests := []struct {
		phrase  string
		wantMin int64
		wantMax int64
	}{
		{"dưới 2 triệu", 0, 2_000_000},
		{"trên 3 triệu", 3_000_000, 0},
		{"khoảng 2 triệu", 1_800_000, 2_200_000},
		{"từ 1 đến 3 triệu", 1_000_000, 3_000_000},
		{"giá rẻ thôi", 0, 800_000},
		{"loại sang trọng", 2_000_000, 50_000_000},
		{"không nói gì về tiền", 0, 0},
	}
	for _, tt := range tests {
		filter := ParseBudget(context.Background(), tt.phrase, nil)
		assert.Equal(t, tt.wantMin, filter["min_price"], "min for %q", tt.phrase)
		assert.Equal(t, tt.wantMax, filter["max_price"], "max for %q", tt.phrase)
	}
}

// Parsing is idempotent: a second pass over the same phrase yields the
// same filter.
func TestParseBudgetIdempotent(t *testing.T) {
	phrase := "khoảng 5 triệu"
	first := ParseBudget(context.Background(), phrase, nil)
	second := ParseBudget(context.Background(), phrase, nil)
	assert.Equal(t, first, second)
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "900.000đ", FormatVND(900_000))
	assert.Equal(t, "6.800.000đ", FormatVND(6_800_000))
	assert.Equal(t, "0đ", FormatVND(0))
}

func TestItineraryExpertSynthesisFallback(t *testing.T) {
	e := NewItineraryExpert(nil, nil)
	spots := []map[string]any{
		{"name": "Bà Nà Hills"}, {"name": "Cầu Rồng"}, {"name": "Ngũ Hành Sơn"},
		{"name": "Bán đảo Sơn Trà"},
	}
	r, err := e.Execute(context.Background(), "", map[string]any{
		"location":   "Đà Nẵng",
		"duration":   2,
		"spots_data": spots,
		"food_data":  []map[string]any{{"name": "Mì Quảng Bà Mua"}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)

	days := r.Data[0]["days"].([]map[string]any)
	require.Len(t, days, 2)
	acts := days[0]["activities"].([]map[string]any)
	assert.Len(t, acts, 3)
	assert.Equal(t, "08:00", acts[0]["time"])
}

func TestItineraryExpertDurationDefault(t *testing.T) {
	e := NewItineraryExpert(nil, nil)
	r, err := e.Execute(context.Background(), "", map[string]any{"location": "Huế", "duration": -2}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, r.Data[0]["duration"])
}

// "Bãi Sao ở đâu?" with destination Đà Nẵng: the lookup drops the province
// filter and the answer names Kiên Giang.
func TestGeneralInfoCrossProvince(t *testing.T) {
	e := NewGeneralInfoExpert(testStore(), nil, nil)
	c := convo.New("s1")
	c.Destination = "Đà Nẵng"

	r, err := e.Execute(context.Background(), "Bãi Sao ở đâu?",
		map[string]any{"original_query": "Bãi Sao ở đâu?", "location": "Đà Nẵng"}, c)
	require.NoError(t, err)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "Bãi Sao", r.Data[0]["name"])
	assert.Contains(t, r.Summary, "Kiên Giang")
	assert.Equal(t, true, r.Metadata["cross_province"])
}

func TestGeneralInfoTipsFallback(t *testing.T) {
	e := NewGeneralInfoExpert(&store.MemStore{Provinces: []store.Province{
		{ID: "da_nang", Name: "Đà Nẵng", TravelTips: "Nên thuê xe máy."},
	}}, nil, nil)
	r, err := e.Execute(context.Background(), "có gì hay không",
		map[string]any{"location": "Đà Nẵng"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nên thuê xe máy.", r.Summary)
}

func TestVerifierExpertAutoFix(t *testing.T) {
	e := NewVerifierExpert(verify.New(nil))
	itData := []map[string]any{{
		"type":     "itinerary",
		"location": "Đà Nẵng",
		"duration": 2,
		"days": []map[string]any{
			{"day": 1, "activities": []map[string]any{
				{"activity": "Chợ Đêm Sơn Trà", "time": "08:00"},
			}},
		},
	}}
	r, err := e.Execute(context.Background(), "", map[string]any{"itinerary_data": itData}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Đã tự động điều chỉnh lịch trình", r.Summary)
	assert.Equal(t, true, r.Metadata["fixed"])
}
