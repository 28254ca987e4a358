package expert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/search"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

const defaultSpotLimit = 10

// SpotExpert retrieves tourist attractions: hybrid search with a hard
// province filter, regex store lookup as fallback.
type SpotExpert struct {
	store   store.DocumentStore
	search  search.HybridSearch // nil disables the hybrid path
	aliases *store.Aliases
}

// NewSpotExpert builds the expert. The hybrid client may be nil.
func NewSpotExpert(docs store.DocumentStore, hybrid search.HybridSearch, aliases *store.Aliases) *SpotExpert {
	if aliases == nil {
		aliases = store.NewAliases()
	}
	return &SpotExpert{store: docs, search: hybrid, aliases: aliases}
}

func (e *SpotExpert) Type() planner.TaskType { return planner.TaskFindSpots }

func (e *SpotExpert) Execute(ctx context.Context, query string, params map[string]any, c *convo.Context) (*Result, error) {
	location := paramString(params, "location")
	if location == "" && c != nil {
		location = c.Destination
	}
	limit := paramInt(params, "limit")
	if limit <= 0 {
		limit = defaultSpotLimit
	}

	var provinceID, provinceName string
	if info, ok := e.aliases.Normalize(location); ok {
		provinceID, provinceName = info.ID, info.Name
	}

	spots := e.hybrid(ctx, query, provinceID, limit)
	if len(spots) == 0 {
		keywords := paramStrings(params, "keywords")
		keywords = append(keywords, paramStrings(params, "interests")...)
		found, err := e.store.FindSpots(ctx, store.SpotQuery{
			ProvinceID: provinceID,
			Keywords:   keywords,
			Limit:      limit,
			Offset:     paramInt(params, "offset"),
			ExcludeIDs: paramStrings(params, "exclude_ids"),
		})
		if err != nil {
			return nil, err
		}
		spots = found
	}

	sort.Slice(spots, func(i, j int) bool { return spots[i].Rating > spots[j].Rating })
	if len(spots) > limit {
		spots = spots[:limit]
	}

	summary := fmt.Sprintf("Tìm thấy %d địa điểm", len(spots))
	if provinceName != "" {
		summary += " ở " + provinceName
	}
	return &Result{
		Data:    toRecords(spots),
		Summary: summary,
		Metadata: map[string]any{
			"province_id": provinceID,
			"location":    location,
		},
	}, nil
}

func (e *SpotExpert) hybrid(ctx context.Context, query, provinceID string, limit int) []store.Spot {
	if e.search == nil || query == "" {
		return nil
	}
	spots, err := e.search.SearchSpots(ctx, query, provinceID, limit, search.DefaultThreshold)
	if err != nil {
		slog.Warn("expert: hybrid spot search unavailable, falling back to store", "error", err)
		return nil
	}
	return spots
}
