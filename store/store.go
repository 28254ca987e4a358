package store

import (
	"context"
)

// Collection names in the travel database.
const (
	CollHotels    = "hotels"
	CollSpots     = "spots_detailed"
	CollProvinces = "provinces_info"
	CollFood      = "food"
)

// DocumentStore is the retrieval surface the experts consume. All methods
// honor the context deadline; implementations apply a default 10 s timeout
// per call.
type DocumentStore interface {
	// FindSpots matches spots by keywords regex on name/description, with
	// optional province filter, offset and id exclusion.
	FindSpots(ctx context.Context, q SpotQuery) ([]Spot, error)

	// FindSpotByName looks up a single spot by name. With an empty
	// provinceID the lookup is cross-province.
	FindSpotByName(ctx context.Context, name, provinceID string) (*Spot, error)

	// FindHotels matches hotels by keywords and price range.
	FindHotels(ctx context.Context, q HotelQuery) ([]Hotel, error)

	// FindHotelsNear returns hotels inside a bounding box around a point,
	// ranked by distance then rating.
	FindHotelsNear(ctx context.Context, q GeoQuery) ([]Hotel, error)

	// FindFoods matches food records by keywords.
	FindFoods(ctx context.Context, q FoodQuery) ([]Food, error)

	// GetProvince fetches a province info record.
	GetProvince(ctx context.Context, id string) (*Province, error)
}
