package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
)

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		detected []string
		want     string
	}{
		{"empty", nil, GeneralQA},
		{"booking beats search", []string{FindSpot, BookHotel}, BookHotel},
		{"cost beats planning", []string{PlanTrip, CalculateCost}, CalculateCost},
		{"hotel beats spot and food", []string{FindFood, FindSpot, FindHotel}, FindHotel},
		{"search beats planning", []string{PlanTrip, FindSpot}, FindSpot},
		{"single", []string{Greeting}, Greeting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePrecedence(tt.detected))
		})
	}
}

func TestHasSubAndDropSub(t *testing.T) {
	rec := &Record{SubIntents: []string{FindHotel, FindFood}}
	assert.True(t, rec.HasSub(FindHotel))
	assert.False(t, rec.HasSub(FindSpot))

	rec.DropSub(FindHotel)
	assert.False(t, rec.HasSub(FindHotel))
	assert.Equal(t, []string{FindFood}, rec.SubIntents)
}

func TestMergeContextFillsGapsOnly(t *testing.T) {
	c := convo.New("s1")
	c.Destination = "Đà Nẵng"
	c.Duration = 3
	c.Budget = 5_000_000
	c.PeopleCount = 2
	c.CompanionType = "couple"
	c.Interests = []string{"beach"}

	rec := &Record{PrimaryIntent: FindSpot, Location: "Huế"}
	rec.MergeContext(c)

	// The freshly extracted destination wins; the rest inherits.
	assert.Equal(t, "Huế", rec.Location)
	assert.Equal(t, 3, rec.Duration)
	assert.Equal(t, int64(5_000_000), rec.Budget)
	assert.Equal(t, 2, rec.PeopleCount)
	assert.Equal(t, "couple", rec.CompanionType)
	assert.Equal(t, []string{"beach"}, rec.Interests)
}

func TestMergeContextNilContext(t *testing.T) {
	rec := &Record{PrimaryIntent: Greeting}
	rec.MergeContext(nil)
	assert.Empty(t, rec.Location)
}
