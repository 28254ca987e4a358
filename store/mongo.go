package store

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// queryTimeout bounds every store round trip.
const queryTimeout = 10 * time.Second

// MongoStore is the MongoDB implementation of DocumentStore.
type MongoStore struct {
	db *mongo.Database
}

var _ DocumentStore = (*MongoStore)(nil)

// NewMongoStore wraps a connected database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// Connect dials MongoDB and returns a store over the named database.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongodb connect")
	}
	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, errors.Wrap(err, "mongodb ping")
	}
	slog.Info("store: connected to mongodb", "database", database)
	return NewMongoStore(client.Database(database)), nil
}

func (s *MongoStore) FindSpots(ctx context.Context, q SpotQuery) ([]Spot, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if q.ProvinceID != "" {
		filter["province_id"] = q.ProvinceID
	}
	if len(q.Keywords) > 0 {
		filter["$or"] = regexOr(q.Keywords, "name", "description")
	}
	if q.Name != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q.Name), "$options": "i"}
	}
	if len(q.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": q.ExcludeIDs}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}}).
		SetLimit(int64(limitOrDefault(q.Limit, 10))).
		SetSkip(int64(q.Offset))

	cursor, err := s.db.Collection(CollSpots).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb find spots")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var spots []Spot
	if err := cursor.All(ctx, &spots); err != nil {
		return nil, errors.Wrap(err, "mongodb decode spots")
	}
	return spots, nil
}

func (s *MongoStore) FindSpotByName(ctx context.Context, name, provinceID string) (*Spot, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(name), "$options": "i"}}
	if provinceID != "" {
		filter["province_id"] = provinceID
	}

	var spot Spot
	err := s.db.Collection(CollSpots).FindOne(ctx, filter).Decode(&spot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "mongodb find spot %q", name)
	}
	return &spot, nil
}

func (s *MongoStore) FindHotels(ctx context.Context, q HotelQuery) ([]Hotel, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if q.ProvinceID != "" {
		filter["province_id"] = q.ProvinceID
	}
	if len(q.Keywords) > 0 {
		filter["$or"] = regexOr(q.Keywords, "name", "description")
	}
	price := bson.M{}
	if q.MinPrice > 0 {
		price["$gte"] = q.MinPrice
	}
	if q.MaxPrice > 0 {
		price["$lte"] = q.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "price", Value: 1}}).
		SetLimit(int64(limitOrDefault(q.Limit, 8)))

	cursor, err := s.db.Collection(CollHotels).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb find hotels")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var hotels []Hotel
	if err := cursor.All(ctx, &hotels); err != nil {
		return nil, errors.Wrap(err, "mongodb decode hotels")
	}
	return hotels, nil
}

func (s *MongoStore) FindHotelsNear(ctx context.Context, q GeoQuery) ([]Hotel, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	minLat, maxLat, minLng, maxLng := BoundingBox(q.Lat, q.Lng, q.RadiusKm)
	filter := bson.M{
		"$and": []bson.M{
			{"lat": bson.M{"$gte": minLat, "$lte": maxLat}},
			{"lng": bson.M{"$gte": minLng, "$lte": maxLng}},
		},
	}

	cursor, err := s.db.Collection(CollHotels).Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb find hotels near")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var hotels []Hotel
	if err := cursor.All(ctx, &hotels); err != nil {
		return nil, errors.Wrap(err, "mongodb decode hotels near")
	}

	hotels = RankByDistance(hotels, q.Lat, q.Lng, q.RadiusKm)
	limit := limitOrDefault(q.Limit, 8)
	if len(hotels) > limit {
		hotels = hotels[:limit]
	}
	return hotels, nil
}

func (s *MongoStore) FindFoods(ctx context.Context, q FoodQuery) ([]Food, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if q.ProvinceID != "" {
		filter["province_id"] = q.ProvinceID
	}
	if len(q.Keywords) > 0 {
		filter["$or"] = regexOr(q.Keywords, "name", "description")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}}).
		SetLimit(int64(limitOrDefault(q.Limit, 5)))

	cursor, err := s.db.Collection(CollFood).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb find foods")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var foods []Food
	if err := cursor.All(ctx, &foods); err != nil {
		return nil, errors.Wrap(err, "mongodb decode foods")
	}
	return foods, nil
}

func (s *MongoStore) GetProvince(ctx context.Context, id string) (*Province, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var province Province
	err := s.db.Collection(CollProvinces).FindOne(ctx, bson.M{"_id": id}).Decode(&province)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "mongodb get province %q", id)
	}
	return &province, nil
}

// regexOr builds a case-insensitive $or regex filter over fields.
func regexOr(keywords []string, fields ...string) []bson.M {
	var or []bson.M
	for _, kw := range keywords {
		pattern := bson.M{"$regex": regexp.QuoteMeta(kw), "$options": "i"}
		for _, f := range fields {
			or = append(or, bson.M{f: pattern})
		}
	}
	return or
}

// RankByDistance filters hotels to radiusKm of a point and orders them by
// distance, ties broken by rating.
func RankByDistance(hotels []Hotel, lat, lng, radiusKm float64) []Hotel {
	type ranked struct {
		hotel Hotel
		dist  float64
	}
	var inRange []ranked
	for _, h := range hotels {
		d := HaversineKm(lat, lng, h.Lat, h.Lng)
		if d <= radiusKm {
			inRange = append(inRange, ranked{hotel: h, dist: d})
		}
	}
	sort.Slice(inRange, func(i, j int) bool {
		if inRange[i].dist != inRange[j].dist {
			return inRange[i].dist < inRange[j].dist
		}
		return inRange[i].hotel.Rating > inRange[j].hotel.Rating
	})
	out := make([]Hotel, len(inRange))
	for i, r := range inRange {
		out[i] = r.hotel
	}
	return out
}

func limitOrDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
