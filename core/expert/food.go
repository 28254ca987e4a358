package expert

import (
	"context"
	"fmt"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

const defaultFoodLimit = 5

// strongFoodMarkers identify genuinely culinary records.
var strongFoodMarkers = []string{
	"quán", "nhà hàng", "ăn", "món", "bún", "phở", "cơm", "bánh", "chè",
	"hải sản", "lẩu", "nướng", "cà phê", "food", "restaurant",
}

// landmarkMarkers exclude attractions that leak into food queries.
var landmarkMarkers = []string{
	"bảo tàng", "cầu", "chùa", "đền", "lăng", "núi", "bãi biển", "công viên",
	"museum", "bridge", "temple", "pagoda",
}

// FoodExpert retrieves eateries with a strict is-food filter and falls back
// to the regional specialty list when results are thin.
type FoodExpert struct {
	store   store.DocumentStore
	aliases *store.Aliases
}

// NewFoodExpert builds the expert.
func NewFoodExpert(docs store.DocumentStore, aliases *store.Aliases) *FoodExpert {
	if aliases == nil {
		aliases = store.NewAliases()
	}
	return &FoodExpert{store: docs, aliases: aliases}
}

func (e *FoodExpert) Type() planner.TaskType { return planner.TaskFindFood }

func (e *FoodExpert) Execute(ctx context.Context, _ string, params map[string]any, c *convo.Context) (*Result, error) {
	location := paramString(params, "location")
	if location == "" && c != nil {
		location = c.Destination
	}
	limit := paramInt(params, "limit")
	if limit <= 0 {
		limit = defaultFoodLimit
	}

	var provinceID, provinceName string
	if info, ok := e.aliases.Normalize(location); ok {
		provinceID, provinceName = info.ID, info.Name
	}

	keywords := append([]string(nil), paramStrings(params, "keywords")...)
	keywords = append(keywords, strongFoodMarkers[:6]...)
	keywords = append(keywords, store.Specialties(provinceID)...)

	foods, err := e.store.FindFoods(ctx, store.FoodQuery{
		ProvinceID: provinceID,
		Keywords:   keywords,
		Limit:      limit * 3,
	})
	if err != nil {
		return nil, err
	}

	var valid []store.Food
	for _, f := range foods {
		if isFood(f) {
			valid = append(valid, f)
		}
		if len(valid) == limit {
			break
		}
	}

	if len(valid) < 2 {
		if specialties := store.Specialties(provinceID); len(specialties) > 0 {
			return &Result{
				Data: []map[string]any{{
					"type":        "regional_specialty",
					"province_id": provinceID,
					"location":    provinceName,
					"dishes":      specialties,
				}},
				Summary:  fmt.Sprintf("Đặc sản %s: %s", provinceName, strings.Join(specialties, ", ")),
				Metadata: map[string]any{"fallback": "regional_specialty"},
			}, nil
		}
	}

	return &Result{
		Data:     toRecords(valid),
		Summary:  fmt.Sprintf("Tìm thấy %d quán ăn", len(valid)),
		Metadata: map[string]any{"province_id": provinceID},
	}, nil
}

// isFood requires a strong culinary marker and no landmark marker.
func isFood(f store.Food) bool {
	text := strings.ToLower(f.Name + " " + f.Description)
	for _, marker := range landmarkMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	for _, marker := range strongFoodMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
