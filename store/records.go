// Package store holds the canonical travel records and the document-store
// retrieval surface over them. MongoDB is the production backend; MemStore
// serves tests and local development.
package store

// Spot is a tourist attraction record from the spots_detailed collection.
type Spot struct {
	ID          string  `bson:"_id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description,omitempty"`
	Category    string  `bson:"category" json:"category,omitempty"`
	Rating      float64 `bson:"rating" json:"rating,omitempty"`
	Image       string  `bson:"image" json:"image,omitempty"`
	Lat         float64 `bson:"lat" json:"lat,omitempty"`
	Lng         float64 `bson:"lng" json:"lng,omitempty"`
	ProvinceID  string  `bson:"province_id" json:"province_id,omitempty"`

	// BestVisitTime lists the slots the spot is best visited in
	// (early_morning .. night).
	BestVisitTime []string `bson:"best_visit_time,omitempty" json:"best_visit_time,omitempty"`

	// Embedding is the stored vector; never serialized toward the UI.
	Embedding []float64 `bson:"embedding,omitempty" json:"-"`

	// Score is the hybrid-search relevance, set per query.
	Score float64 `bson:"-" json:"score,omitempty"`
}

// Hotel is a lodging record. Price is VND per night; Rating is stored on a
// 0–10 scale and halved for display.
type Hotel struct {
	ID          string  `bson:"_id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description,omitempty"`
	Address     string  `bson:"address" json:"address,omitempty"`
	Price       int64   `bson:"price" json:"price,omitempty"`
	Rating      float64 `bson:"rating" json:"rating,omitempty"`
	Image       string  `bson:"image" json:"image,omitempty"`
	Lat         float64 `bson:"lat" json:"lat,omitempty"`
	Lng         float64 `bson:"lng" json:"lng,omitempty"`
	ProvinceID  string  `bson:"province_id" json:"province_id,omitempty"`

	Embedding []float64 `bson:"embedding,omitempty" json:"-"`
	Score     float64   `bson:"-" json:"score,omitempty"`
}

// Food is a restaurant or dish record.
type Food struct {
	ID          string  `bson:"_id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description,omitempty"`
	Address     string  `bson:"address" json:"address,omitempty"`
	Rating      float64 `bson:"rating" json:"rating,omitempty"`
	Image       string  `bson:"image" json:"image,omitempty"`
	PriceRange  string  `bson:"price_range" json:"price_range,omitempty"`
	ProvinceID  string  `bson:"province_id" json:"province_id,omitempty"`
}

// Province is a provinces_info record.
type Province struct {
	ID          string   `bson:"_id" json:"id"`
	Name        string   `bson:"name" json:"name"`
	Region      string   `bson:"region" json:"region,omitempty"`
	Description string   `bson:"description" json:"description,omitempty"`
	Specialties []string `bson:"specialties,omitempty" json:"specialties,omitempty"`
	TravelTips  string   `bson:"travel_tips" json:"travel_tips,omitempty"`
	Lat         float64  `bson:"lat" json:"lat,omitempty"`
	Lng         float64  `bson:"lng" json:"lng,omitempty"`
}

// SpotQuery filters FindSpots.
type SpotQuery struct {
	ProvinceID string
	Keywords   []string
	Name       string
	Limit      int
	Offset     int
	ExcludeIDs []string
}

// HotelQuery filters FindHotels. Zero price bounds are unbounded.
type HotelQuery struct {
	ProvinceID string
	Keywords   []string
	MinPrice   int64
	MaxPrice   int64
	Limit      int
}

// GeoQuery filters FindHotelsNear.
type GeoQuery struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
	Limit    int
}

// FoodQuery filters FindFoods.
type FoodQuery struct {
	ProvinceID string
	Keywords   []string
	Limit      int
}
