package store

import (
	"context"
	"sort"
	"strings"
)

// MemStore is an in-memory DocumentStore for tests and local development
// without a MongoDB instance. Matching semantics mirror the Mongo queries:
// case-insensitive substring on name/description, price range, bounding box.
type MemStore struct {
	Spots     []Spot
	Hotels    []Hotel
	Foods     []Food
	Provinces []Province
}

var _ DocumentStore = (*MemStore)(nil)

func (m *MemStore) FindSpots(_ context.Context, q SpotQuery) ([]Spot, error) {
	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	var matched []Spot
	for _, s := range m.Spots {
		if q.ProvinceID != "" && s.ProvinceID != q.ProvinceID {
			continue
		}
		if excluded[s.ID] {
			continue
		}
		if q.Name != "" && !containsFold(s.Name, q.Name) {
			continue
		}
		if len(q.Keywords) > 0 && !matchesKeywords(q.Keywords, s.Name, s.Description) {
			continue
		}
		matched = append(matched, s)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })
	return window(matched, q.Offset, limitOrDefault(q.Limit, 10)), nil
}

func (m *MemStore) FindSpotByName(_ context.Context, name, provinceID string) (*Spot, error) {
	for i := range m.Spots {
		s := &m.Spots[i]
		if provinceID != "" && s.ProvinceID != provinceID {
			continue
		}
		if containsFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MemStore) FindHotels(_ context.Context, q HotelQuery) ([]Hotel, error) {
	var matched []Hotel
	for _, h := range m.Hotels {
		if q.ProvinceID != "" && h.ProvinceID != q.ProvinceID {
			continue
		}
		if q.MinPrice > 0 && h.Price < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && h.Price > q.MaxPrice {
			continue
		}
		if len(q.Keywords) > 0 && !matchesKeywords(q.Keywords, h.Name, h.Description) {
			continue
		}
		matched = append(matched, h)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Rating != matched[j].Rating {
			return matched[i].Rating > matched[j].Rating
		}
		return matched[i].Price < matched[j].Price
	})
	return window(matched, 0, limitOrDefault(q.Limit, 8)), nil
}

func (m *MemStore) FindHotelsNear(_ context.Context, q GeoQuery) ([]Hotel, error) {
	hotels := RankByDistance(m.Hotels, q.Lat, q.Lng, q.RadiusKm)
	return window(hotels, 0, limitOrDefault(q.Limit, 8)), nil
}

func (m *MemStore) FindFoods(_ context.Context, q FoodQuery) ([]Food, error) {
	var matched []Food
	for _, f := range m.Foods {
		if q.ProvinceID != "" && f.ProvinceID != q.ProvinceID {
			continue
		}
		if len(q.Keywords) > 0 && !matchesKeywords(q.Keywords, f.Name, f.Description) {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })
	return window(matched, 0, limitOrDefault(q.Limit, 5)), nil
}

func (m *MemStore) GetProvince(_ context.Context, id string) (*Province, error) {
	for i := range m.Provinces {
		if m.Provinces[i].ID == id {
			return &m.Provinces[i], nil
		}
	}
	return nil, nil
}

func matchesKeywords(keywords []string, fields ...string) bool {
	for _, kw := range keywords {
		for _, f := range fields {
			if containsFold(f, kw) {
				return true
			}
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
