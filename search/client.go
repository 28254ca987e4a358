// Package search is the client for the hybrid semantic+keyword search
// service. The service itself is external; the core only consumes this
// interface and falls back to plain store regex queries when it is down.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/NhanTrannn/TravelGO-sub000/store"
)

// DefaultThreshold is the minimum hybrid score for a record to count as
// a hit when callers do not specify one.
const DefaultThreshold = 0.3

// HybridSearch is the search surface the experts consume. Each returned
// record carries a numeric score.
type HybridSearch interface {
	SearchSpots(ctx context.Context, query, provinceID string, limit int, threshold float64) ([]store.Spot, error)
	SearchHotels(ctx context.Context, query, provinceID string, limit int, threshold float64, minPrice, maxPrice int64) ([]store.Hotel, error)
}

// Client is the HTTP implementation of HybridSearch.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ HybridSearch = (*Client)(nil)

// NewClient builds a search client against a base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type searchRequest struct {
	Query      string  `json:"query"`
	ProvinceID string  `json:"province_id,omitempty"`
	Limit      int     `json:"limit"`
	Threshold  float64 `json:"threshold"`
	MinPrice   int64   `json:"min_price,omitempty"`
	MaxPrice   int64   `json:"max_price,omitempty"`
}

func (c *Client) SearchSpots(ctx context.Context, query, provinceID string, limit int, threshold float64) ([]store.Spot, error) {
	var spots []store.Spot
	req := searchRequest{Query: query, ProvinceID: provinceID, Limit: limit, Threshold: threshold}
	if err := c.post(ctx, "/search/spots", req, &spots); err != nil {
		return nil, err
	}
	return spots, nil
}

func (c *Client) SearchHotels(ctx context.Context, query, provinceID string, limit int, threshold float64, minPrice, maxPrice int64) ([]store.Hotel, error) {
	var hotels []store.Hotel
	req := searchRequest{
		Query:      query,
		ProvinceID: provinceID,
		Limit:      limit,
		Threshold:  threshold,
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
	}
	if err := c.post(ctx, "/search/hotels", req, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "search: marshal request")
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "search: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "search: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("search: %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "search: decode response")
	}

	slog.Debug("search: hybrid query",
		"path", path,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
