package convo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartsInitial(t *testing.T) {
	c := New("s1")
	assert.Equal(t, "s1", c.SessionID)
	assert.Equal(t, StateInitial, c.State())
}

func TestStateDefaultsToInitial(t *testing.T) {
	c := &Context{}
	assert.Equal(t, StateInitial, c.State())
}

func TestAppendHistoryBounded(t *testing.T) {
	c := New("s1")
	for i := 0; i < maxHistory+5; i++ {
		c.AppendHistory("user", fmt.Sprintf("message %d", i))
	}
	require.Len(t, c.ChatHistory, maxHistory)
	// The oldest entries fell off the front.
	assert.Equal(t, "message 5", c.ChatHistory[0].Content)
	assert.Equal(t, fmt.Sprintf("message %d", maxHistory+4), c.ChatHistory[maxHistory-1].Content)
}

func TestCacheSpotsBounded(t *testing.T) {
	c := New("s1")
	var spots []map[string]any
	for i := 0; i < maxRecent+3; i++ {
		spots = append(spots, map[string]any{"id": fmt.Sprintf("spot_%d", i)})
	}
	c.CacheSpots(spots)
	assert.Len(t, c.LastSpots, maxRecent)
	assert.Equal(t, "spot_0", c.LastSpots[0]["id"])
}

func TestCacheReplacesNotAppends(t *testing.T) {
	c := New("s1")
	c.CacheHotels([]map[string]any{{"id": "h1"}, {"id": "h2"}})
	c.CacheHotels([]map[string]any{{"id": "h3"}})
	require.Len(t, c.LastHotels, 1)
	assert.Equal(t, "h3", c.LastHotels[0]["id"])
}

func TestSpotIDDedup(t *testing.T) {
	c := New("s1")
	c.AddSpotID("a")
	c.AddSpotID("a")
	c.AddSpotID("")
	c.AddSpotID("b")
	assert.Equal(t, []string{"a", "b"}, c.SelectedSpotIDs)
	assert.True(t, c.HasSpotID("a"))
	assert.False(t, c.HasSpotID("c"))
}

func TestMarkAnsweredIdempotent(t *testing.T) {
	c := New("s1")
	c.MarkAnswered("find_spot")
	c.MarkAnswered("find_spot")
	assert.Equal(t, []string{"find_spot"}, c.AnsweredIntents)
	assert.True(t, c.IsAnswered("find_spot"))
	assert.False(t, c.IsAnswered("find_hotel"))
}

func TestBuilderSpotIDs(t *testing.T) {
	b := NewBuilder("Đà Nẵng", 2)
	b.DaysPlan[1] = []map[string]any{
		{"id": "a", "name": "Bà Nà Hills"},
		{"id": "b", "name": "Cầu Rồng"},
	}
	b.DaysPlan[2] = []map[string]any{
		{"id": "b", "name": "Cầu Rồng"},
		{"name": "no id entry"},
	}
	assert.Equal(t, []string{"a", "b"}, b.SpotIDs())
}
