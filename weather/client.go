// Package weather is the client for the external weather service, plus the
// static best-months table used by the itinerary builder's month selector.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Daily is one day of forecast.
type Daily struct {
	Date         string  `json:"date"`
	Condition    string  `json:"condition"`
	TempMin      float64 `json:"temp_min"`
	TempMax      float64 `json:"temp_max"`
	RainChance   float64 `json:"rain_chance"`
	ComfortLevel string  `json:"comfort_level"`
}

// Forecast is the weather summary for a trip window.
type Forecast struct {
	Overall struct {
		ComfortLevel string `json:"comfort_level"`
		Summary      string `json:"summary"`
	} `json:"overall"`
	Daily []Daily `json:"daily"`
}

// BestTime describes the recommended travel months for a location.
type BestTime struct {
	BestMonths  []int  `json:"best_months"`
	AvoidMonths []int  `json:"avoid_months"`
	Message     string `json:"message"`
}

// Service is the weather surface the core consumes.
type Service interface {
	GetWeather(ctx context.Context, location, startDate string, numDays int) (*Forecast, error)
	GetBestTime(ctx context.Context, location string) (*BestTime, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Service = (*Client)(nil)

// NewClient builds a weather client against a base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) GetWeather(ctx context.Context, location, startDate string, numDays int) (*Forecast, error) {
	endpoint := fmt.Sprintf("%s/weather?location=%s&start_date=%s&days=%d",
		c.baseURL, url.QueryEscape(location), url.QueryEscape(startDate), numDays)

	var forecast Forecast
	if err := c.get(ctx, endpoint, &forecast); err != nil {
		return nil, err
	}
	return &forecast, nil
}

func (c *Client) GetBestTime(ctx context.Context, location string) (*BestTime, error) {
	endpoint := fmt.Sprintf("%s/best-time?location=%s", c.baseURL, url.QueryEscape(location))

	var best BestTime
	if err := c.get(ctx, endpoint, &best); err != nil {
		// Static fallback keeps the month selector working offline.
		if fallback, ok := bestTimeFallback(location); ok {
			return fallback, nil
		}
		return nil, err
	}
	return &best, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "weather: build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "weather: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("weather: service returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "weather: decode response")
	}
	return nil
}

// BuildWeatherResponse renders a forecast as display markdown.
func BuildWeatherResponse(f *Forecast) string {
	var sb strings.Builder
	sb.WriteString("🌤️ **Dự báo thời tiết**\n\n")
	if f.Overall.Summary != "" {
		sb.WriteString(f.Overall.Summary + "\n\n")
	}
	for _, d := range f.Daily {
		sb.WriteString(fmt.Sprintf("- %s: %s, %.0f–%.0f°C", d.Date, d.Condition, d.TempMin, d.TempMax))
		if d.RainChance >= 0.5 {
			sb.WriteString(fmt.Sprintf(" (mưa %.0f%%)", d.RainChance*100))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// bestMonthsTable is the offline fallback for GetBestTime, keyed by
// normalized lowercase location substrings.
var bestMonthsTable = map[string]BestTime{
	"đà nẵng":  {BestMonths: []int{2, 3, 4, 5, 6, 7, 8}, AvoidMonths: []int{10, 11}, Message: "Tháng 2-8 trời đẹp, tránh mùa mưa bão tháng 10-11."},
	"phú quốc": {BestMonths: []int{11, 12, 1, 2, 3, 4}, AvoidMonths: []int{7, 8, 9}, Message: "Tháng 11-4 biển lặng nắng đẹp, tránh mùa mưa tháng 7-9."},
	"hà nội":   {BestMonths: []int{9, 10, 11, 3, 4}, AvoidMonths: []int{6, 7}, Message: "Thu (9-11) và xuân (3-4) dễ chịu nhất."},
	"đà lạt":   {BestMonths: []int{12, 1, 2, 3}, AvoidMonths: []int{7, 8, 9}, Message: "Mùa khô tháng 12-3 mát mẻ, ít mưa."},
	"sa pa":    {BestMonths: []int{9, 10, 3, 4, 5}, AvoidMonths: []int{6, 7, 8}, Message: "Tháng 9-10 mùa lúa chín, tháng 3-5 trời trong."},
	"nha trang": {BestMonths: []int{1, 2, 3, 4, 5, 6, 7, 8}, AvoidMonths: []int{10, 11, 12}, Message: "Tháng 1-8 nắng đẹp, tránh mùa mưa cuối năm."},
	"hội an":   {BestMonths: []int{2, 3, 4, 5, 6, 7, 8}, AvoidMonths: []int{10, 11}, Message: "Tháng 2-8 khô ráo, tránh lụt tháng 10-11."},
}

func bestTimeFallback(location string) (*BestTime, bool) {
	lower := strings.ToLower(location)
	for key, bt := range bestMonthsTable {
		if strings.Contains(lower, key) {
			out := bt
			return &out, true
		}
	}
	return nil, false
}
