package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
)

func TestSlotOf(t *testing.T) {
	tests := []struct {
		time string
		want Slot
	}{
		{"05:30", SlotEarlyMorning},
		{"06:59", SlotEarlyMorning},
		{"07:00", SlotMorning},
		{"08:00", SlotMorning},
		{"11:00", SlotMidday},
		{"13:45", SlotMidday},
		{"14:00", SlotAfternoon},
		{"17:00", SlotEvening},
		{"19:00", SlotEvening},
		{"21:00", SlotNight},
		{"23:30", SlotNight},
		{"not-a-time", SlotMorning},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SlotOf(tt.time), "time %s", tt.time)
	}
}

// A night market scheduled at 08:00 is an error with the evening/night
// expectation; auto-fix moves it to 19:00 and reports the adjustment.
func TestNightMarketAutoFix(t *testing.T) {
	it := &convo.Itinerary{
		Location: "Đà Nẵng",
		Duration: 2,
		Days: []convo.ItineraryDay{
			{Day: 1, Spots: []map[string]any{
				{"id": "spot_cho_dem", "name": "Chợ Đêm Sơn Trà", "time": "08:00"},
				{"id": "spot_ba_na", "name": "Bà Nà Hills", "time": "10:00"},
			}},
			{Day: 2, Spots: []map[string]any{
				{"id": "spot_cau_rong", "name": "Cầu Rồng", "time": "09:00"},
			}},
		},
	}

	v := New(nil)
	report := v.Verify(context.Background(), it)
	require.Equal(t, "fail", report.Verdict)
	require.Len(t, report.Issues, 1)

	issue := report.Issues[0]
	assert.Equal(t, IssueTimeOfDayMismatch, issue.Type)
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Equal(t, []Slot{SlotEvening, SlotNight}, issue.ExpectedSlots)
	assert.Equal(t, 1, issue.Day)

	require.True(t, v.AutoFix(it, report))
	assert.True(t, report.Fixed)

	day1 := it.Days[0]
	last := day1.Spots[len(day1.Spots)-1]
	assert.Equal(t, "Chợ Đêm Sơn Trà", last["name"], "evening activity moved to day end")
	assert.Equal(t, "19:00", last["time"])

	// Re-verifying the fixed plan never fails again.
	after := v.Verify(context.Background(), it)
	assert.Contains(t, []string{"pass", "warning"}, after.Verdict)
}

func TestVerifyBestVisitTimeWarning(t *testing.T) {
	it := &convo.Itinerary{
		Location: "Huế",
		Duration: 1,
		Days: []convo.ItineraryDay{
			{Day: 1, Spots: []map[string]any{
				{"id": "s1", "name": "Đại Nội", "time": "19:00", "best_visit_time": []any{"morning", "afternoon"}},
			}},
		},
	}
	report := New(nil).Verify(context.Background(), it)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
	assert.Equal(t, "warning", report.Verdict)

	// Warnings are not auto-fixed.
	assert.False(t, New(nil).AutoFix(it, report))
	assert.Equal(t, "19:00", it.Days[0].Spots[0]["time"])
}

func TestVerifyIgnoresEmptyDays(t *testing.T) {
	it := &convo.Itinerary{
		Location: "Đà Lạt",
		Duration: 2,
		Days: []convo.ItineraryDay{
			{Day: 1, Spots: nil},
			{Day: 2, Spots: []map[string]any{{"id": "s1", "name": "Hồ Xuân Hương", "time": "09:00"}}},
		},
	}
	report := New(nil).Verify(context.Background(), it)
	assert.Equal(t, "pass", report.Verdict)
	assert.Empty(t, report.Issues)
}

func TestVerifyCategoryTable(t *testing.T) {
	tests := []struct {
		category string
		time     string
		wantErr  bool
	}{
		{"bar", "10:00", true},
		{"bar", "22:00", false},
		{"sunrise", "06:00", false},
		{"sunrise", "15:00", true},
		{"sunset", "17:30", false},
		{"museum", "09:00", false},
	}
	for _, tt := range tests {
		it := &convo.Itinerary{
			Location: "Nha Trang",
			Duration: 1,
			Days: []convo.ItineraryDay{
				{Day: 1, Spots: []map[string]any{
					{"id": "s1", "name": "Somewhere", "category": tt.category, "time": tt.time},
				}},
			},
		}
		issues := New(nil).VerifyRules(it)
		if tt.wantErr {
			assert.NotEmpty(t, issues, "category %s at %s", tt.category, tt.time)
		} else {
			assert.Empty(t, issues, "category %s at %s", tt.category, tt.time)
		}
	}
}

func TestRedistributeTimesRoundRobin(t *testing.T) {
	day := &convo.ItineraryDay{Day: 1, Spots: []map[string]any{
		{"id": "a", "name": "Spot A", "time": "08:00"},
		{"id": "b", "name": "Spot B", "time": "08:00"},
		{"id": "c", "name": "Spot C", "time": "08:00"},
	}}
	redistributeTimes(day)

	times := map[string]string{}
	for _, spot := range day.Spots {
		times[spot["id"].(string)] = spot["time"].(string)
	}
	assert.Equal(t, "08:00", times["a"])
	assert.Equal(t, "12:30", times["b"])
	assert.Equal(t, "17:00", times["c"])
}

func TestMergeIssuesDedup(t *testing.T) {
	rule := []Issue{{Day: 1, SpotID: "s1", SpotName: "Chợ Đêm", Severity: SeverityError}}
	critic := []Issue{
		{Day: 1, SpotID: "s1", SpotName: "Chợ Đêm", Severity: SeverityWarning},
		{Day: 2, SpotName: "Bãi biển", Severity: SeverityWarning},
	}
	merged := mergeIssues(rule, critic)
	require.Len(t, merged, 2)
	assert.Equal(t, SeverityError, merged[0].Severity, "rule finding wins the duplicate")
}
