package expert

import (
	"context"
	"fmt"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
)

// CostRates is the fixed per-level daily price table in VND.
type CostRates struct {
	Accommodation    int64 // per night
	FoodPerDay       int64 // per person
	TransportPerDay  int64 // per group
	ActivitiesPerDay int64 // per person
}

var costTable = map[string]CostRates{
	convo.BudgetThrifty: {Accommodation: 400_000, FoodPerDay: 200_000, TransportPerDay: 150_000, ActivitiesPerDay: 100_000},
	convo.BudgetMid:     {Accommodation: 1_000_000, FoodPerDay: 400_000, TransportPerDay: 300_000, ActivitiesPerDay: 250_000},
	convo.BudgetLuxury:  {Accommodation: 3_000_000, FoodPerDay: 800_000, TransportPerDay: 700_000, ActivitiesPerDay: 600_000},
}

// RatesFor returns the rate card for a budget level, defaulting to mid.
func RatesFor(level string) CostRates {
	if rates, ok := costTable[level]; ok {
		return rates
	}
	return costTable[convo.BudgetMid]
}

// Breakdown is an itemized trip cost in VND.
type Breakdown struct {
	Accommodation int64 `json:"accommodation"`
	Food          int64 `json:"food"`
	Transport     int64 `json:"transport"`
	Activities    int64 `json:"activities"`
	Total         int64 `json:"total"`
	PerPerson     int64 `json:"per_person"`
}

// EstimateCost computes the trip cost. Accommodation covers duration−1
// nights (zero for day trips) at the hotel's price when one is known,
// otherwise the level rate. Food and activities scale with people and
// days; transport with days only.
func EstimateCost(duration, people int, level string, hotelPrice int64) Breakdown {
	if duration <= 0 {
		duration = 3
	}
	if people <= 0 {
		people = 1
	}
	rates := RatesFor(level)

	perNight := rates.Accommodation
	if hotelPrice > 0 {
		perNight = hotelPrice
	}
	nights := int64(duration - 1)
	if nights < 0 {
		nights = 0
	}

	b := Breakdown{
		Accommodation: perNight * nights,
		Food:          rates.FoodPerDay * int64(people) * int64(duration),
		Transport:     rates.TransportPerDay * int64(duration),
		Activities:    rates.ActivitiesPerDay * int64(people) * int64(duration),
	}
	b.Total = b.Accommodation + b.Food + b.Transport + b.Activities
	b.PerPerson = b.Total / int64(people)
	return b
}

// CostCalculator is the cost estimation expert.
type CostCalculator struct{}

// NewCostCalculator builds the expert.
func NewCostCalculator() *CostCalculator { return &CostCalculator{} }

func (e *CostCalculator) Type() planner.TaskType { return planner.TaskCalculateCost }

func (e *CostCalculator) Execute(_ context.Context, _ string, params map[string]any, c *convo.Context) (*Result, error) {
	duration := paramInt(params, "duration")
	if duration == 0 && c != nil {
		duration = c.Duration
	}
	people := paramInt(params, "people_count")
	if people == 0 && c != nil {
		people = c.PeopleCount
	}
	level := paramString(params, "budget_level")
	if level == "" && c != nil {
		level = c.BudgetLevel
	}

	var hotelPrice int64
	if c != nil && c.SelectedHotelPrice > 0 {
		hotelPrice = c.SelectedHotelPrice
	} else if hotels := paramRecords(params, "hotel_data"); len(hotels) > 0 {
		// Top-3 average stands in for an unselected hotel.
		n := min(3, len(hotels))
		var sum int64
		for _, h := range hotels[:n] {
			if p, ok := asInt64(h["price"]); ok {
				sum += p
			}
		}
		hotelPrice = sum / int64(n)
	}

	b := EstimateCost(duration, people, level, hotelPrice)
	record := toRecord(b)
	if record == nil {
		record = map[string]any{}
	}
	record["type"] = "costs"
	record["currency"] = "VND"
	record["duration"] = duration
	record["people_count"] = people

	return &Result{
		Data:    []map[string]any{record},
		Summary: fmt.Sprintf("Tổng chi phí ước tính %s cho %d người, %d ngày", FormatVND(b.Total), max(people, 1), duration),
		Metadata: map[string]any{
			"budget_level": level,
			"hotel_price":  hotelPrice,
		},
	}, nil
}

// FormatVND renders an amount with thousands separators and the đ suffix.
func FormatVND(amount int64) string {
	if amount < 0 {
		return "-" + FormatVND(-amount)
	}
	s := fmt.Sprintf("%d", amount)
	var out []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digit)
	}
	return string(out) + "đ"
}
