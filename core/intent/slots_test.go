package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		utterance string
		want      int
	}{
		{"Đi Đà Nẵng 3 ngày 2 đêm", 3},
		{"chuyến đi 4 ngày", 4},
		{"đi chơi cuối tuần", 2},
		{"nghỉ 1 tuần ở Phú Quốc", 7},
		{"đi 2 tuần", 14},
		{"đi Đà Nẵng chơi", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDuration(tt.utterance), tt.utterance)
	}
}

func TestExtractBudget(t *testing.T) {
	tests := []struct {
		utterance string
		want      int64
		wantRange BudgetRange
	}{
		{"ngân sách từ 3 đến 5 triệu", 4_000_000, BudgetRange{Min: 3_000_000, Max: 5_000_000}},
		{"dưới 5 triệu thôi", 5_000_000, BudgetRange{Max: 5_000_000}},
		{"trên 10 triệu", 10_000_000, BudgetRange{Min: 10_000_000}},
		{"khoảng 5 triệu", 5_000_000, BudgetRange{Min: 4_500_000, Max: 5_500_000}},
		{"tầm 3,5 triệu", 3_500_000, BudgetRange{Min: 3_150_000, Max: 3_850_000}},
		{"có 5 triệu", 5_000_000, BudgetRange{Max: 5_000_000}},
		{"đi Đà Nẵng", 0, BudgetRange{}},
	}
	for _, tt := range tests {
		got, gotRange := ExtractBudget(tt.utterance)
		assert.Equal(t, tt.want, got, tt.utterance)
		assert.Equal(t, tt.wantRange, gotRange, tt.utterance)
	}
}

func TestExtractCompanion(t *testing.T) {
	tests := []struct {
		utterance     string
		wantCompanion string
		wantPeople    int
	}{
		{"đi với bạn gái", "couple", 2},
		{"cả gia đình cùng đi", "family", 4},
		{"đi một mình cho thoải mái", "solo", 1},
		{"đi với nhóm bạn", "friends", 0},
		{"chuyến công tác", "business", 0},
		{"đi Đà Nẵng", "", 0},
	}
	for _, tt := range tests {
		companion, people := ExtractCompanion(tt.utterance)
		assert.Equal(t, tt.wantCompanion, companion, tt.utterance)
		assert.Equal(t, tt.wantPeople, people, tt.utterance)
	}
}

func TestExtractPeopleCount(t *testing.T) {
	assert.Equal(t, 3, ExtractPeopleCount("nhóm 3 người"))
	assert.Equal(t, 2, ExtractPeopleCount("đặt cho 2 khách"))
	assert.Equal(t, 0, ExtractPeopleCount("đi Đà Nẵng"))
}

func TestExtractBudgetLevel(t *testing.T) {
	assert.Equal(t, "thrifty", ExtractBudgetLevel("đi kiểu tiết kiệm"))
	assert.Equal(t, "luxury", ExtractBudgetLevel("resort sang trọng"))
	assert.Equal(t, "mid", ExtractBudgetLevel("tầm trung thôi"))
	assert.Equal(t, "", ExtractBudgetLevel("đi Đà Nẵng"))
}

func TestExtractInterests(t *testing.T) {
	tags := ExtractInterests("thích biển và ẩm thực địa phương")
	assert.Contains(t, tags, "beach")
	assert.Contains(t, tags, "food")
	assert.Empty(t, ExtractInterests("đi Đà Nẵng"))
}

func TestApplySlotsExplicitCountBeatsCompanionImplied(t *testing.T) {
	rec := &Record{}
	ApplySlots(rec, "Đi Đà Nẵng với gia đình 3 người")
	assert.Equal(t, "family", rec.CompanionType)
	assert.Equal(t, 3, rec.PeopleCount)
}

func TestApplySlotsCompanionImpliedCount(t *testing.T) {
	rec := &Record{}
	ApplySlots(rec, "Đi cùng gia đình")
	assert.Equal(t, "family", rec.CompanionType)
	assert.Equal(t, 4, rec.PeopleCount)
}

func TestApplySlotsDoesNotOverwrite(t *testing.T) {
	rec := &Record{Duration: 5, Budget: 2_000_000}
	ApplySlots(rec, "đi 3 ngày với 10 triệu")
	assert.Equal(t, 5, rec.Duration)
	assert.Equal(t, int64(2_000_000), rec.Budget)
}
