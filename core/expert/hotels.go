package expert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/search"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

const (
	defaultHotelLimit = 8

	// geoFallbackKm is the bounding-box radius when keyword search
	// finds nothing but the destination has known coordinates.
	geoFallbackKm = 30.0

	// nightlyBudgetShare is the fraction of a total trip budget taken
	// as the per-night price cap when no explicit range is given.
	nightlyBudgetShare = 0.3
)

// HotelExpert retrieves lodging: hybrid search with price bounds, keyword
// store lookup, then a 30 km geo fallback around the province center.
type HotelExpert struct {
	store   store.DocumentStore
	search  search.HybridSearch
	llm     llm.Client
	aliases *store.Aliases
}

// NewHotelExpert builds the expert. Hybrid and LLM clients may be nil.
func NewHotelExpert(docs store.DocumentStore, hybrid search.HybridSearch, client llm.Client, aliases *store.Aliases) *HotelExpert {
	if aliases == nil {
		aliases = store.NewAliases()
	}
	return &HotelExpert{store: docs, search: hybrid, llm: client, aliases: aliases}
}

func (e *HotelExpert) Type() planner.TaskType { return planner.TaskFindHotels }

func (e *HotelExpert) Execute(ctx context.Context, query string, params map[string]any, c *convo.Context) (*Result, error) {
	location := paramString(params, "location")
	if location == "" && c != nil {
		location = c.Destination
	}
	limit := paramInt(params, "limit")
	if limit <= 0 {
		limit = defaultHotelLimit
	}

	minPrice, maxPrice := e.priceWindow(ctx, params, c)

	var province store.ProvinceInfo
	var hasProvince bool
	if province, hasProvince = e.aliases.Normalize(location); !hasProvince {
		province = store.ProvinceInfo{}
	}

	hotels := e.hybrid(ctx, query, province.ID, limit, minPrice, maxPrice)
	if len(hotels) == 0 {
		found, err := e.store.FindHotels(ctx, store.HotelQuery{
			ProvinceID: province.ID,
			Keywords:   paramStrings(params, "keywords"),
			MinPrice:   minPrice,
			MaxPrice:   maxPrice,
			Limit:      limit,
		})
		if err != nil {
			return nil, err
		}
		hotels = found
	}

	if len(hotels) == 0 && hasProvince && province.Lat != 0 {
		near, err := e.store.FindHotelsNear(ctx, store.GeoQuery{
			Lat:      province.Lat,
			Lng:      province.Lng,
			RadiusKm: geoFallbackKm,
			Limit:    limit,
		})
		if err != nil {
			slog.Warn("expert: hotel geo fallback failed", "error", err)
		} else {
			hotels = near
			slog.Debug("expert: hotel geo fallback used",
				"province", province.ID,
				"found", len(hotels))
		}
	}

	sort.Slice(hotels, func(i, j int) bool {
		if hotels[i].Rating != hotels[j].Rating {
			return hotels[i].Rating > hotels[j].Rating
		}
		return hotels[i].Price < hotels[j].Price
	})
	if len(hotels) > limit {
		hotels = hotels[:limit]
	}

	records := toRecords(hotels)
	for _, r := range records {
		if p, ok := asInt64(r["price"]); ok && p > 0 {
			r["priceRange"] = FormatVND(p) + "/đêm"
		}
	}

	return &Result{
		Data:    records,
		Summary: fmt.Sprintf("Tìm thấy %d khách sạn", len(records)),
		Metadata: map[string]any{
			"province_id": province.ID,
			"min_price":   minPrice,
			"max_price":   maxPrice,
		},
	}, nil
}

// priceWindow derives the per-night price bounds: explicit budget level
// first, then 30% of a total budget, then the budget-phrase parser.
func (e *HotelExpert) priceWindow(ctx context.Context, params map[string]any, c *convo.Context) (int64, int64) {
	level := paramString(params, "budget_level")
	if level == "" && c != nil {
		level = c.BudgetLevel
	}
	if minP, maxP, ok := LevelPriceRange(level); ok {
		return minP, maxP
	}

	budget := paramInt64(params, "budget")
	if budget == 0 && c != nil {
		budget = c.Budget
	}
	if budget > 0 {
		return 0, int64(float64(budget) * nightlyBudgetShare)
	}

	if phrase := paramString(params, "budget_phrase"); phrase != "" {
		filter := ParseBudget(ctx, phrase, e.llm)
		return filter["min_price"], filter["max_price"]
	}
	return 0, 0
}

func (e *HotelExpert) hybrid(ctx context.Context, query, provinceID string, limit int, minPrice, maxPrice int64) []store.Hotel {
	if e.search == nil || query == "" {
		return nil
	}
	hotels, err := e.search.SearchHotels(ctx, query, provinceID, limit, search.DefaultThreshold, minPrice, maxPrice)
	if err != nil {
		slog.Warn("expert: hybrid hotel search unavailable, falling back to store", "error", err)
		return nil
	}
	return hotels
}
