package service

import (
	"testing"

	"giftshop/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestComputePerformanceScore(t *testing.T) {
	tests := []struct {
		name       string
		salesCount int64
		revenue    string
		commission string
		want       string
	}{
		{"no activity scores zero", 0, "0", "0", "0"},
		{"sales dominate the score", 5, "0", "0", "50"},
		{"revenue contributes per hundred", 0, "2500", "0", "25"},
		{"commission weighs five per hundred", 0, "0", "200", "10"},
		{"combined", 10, "5000", "400", "170"}, // 100 + 50 + 20
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computePerformanceScore(tt.salesCount, dec(tt.revenue), dec(tt.commission))
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func metricWith(score string, days int64) model.PerformanceMetric {
	return model.PerformanceMetric{
		PerformanceScore: dec(score),
		DaysSinceUpdate:  days,
	}
}

func TestClassifyMetric(t *testing.T) {
	criteria := ReallocationCriteria{}
	criteria.applyDefaults()

	tests := []struct {
		name         string
		metric       model.PerformanceMetric
		wantReason   string
		wantPriority string
		wantFlagged  bool
	}{
		{
			name:         "inactive beyond the threshold",
			metric:       metricWith("200", 45), // healthy score, but 45 > 30 days
			wantReason:   model.ReasonTimeBased,
			wantPriority: "90", // 45 * 2
			wantFlagged:  true,
		},
		{
			name:         "weak performance",
			metric:       metricWith("20", 10),
			wantReason:   model.ReasonPerformanceBased,
			wantPriority: "120", // (100 - 20) * 1.5
			wantFlagged:  true,
		},
		{
			name:        "healthy and fresh",
			metric:      metricWith("100", 10),
			wantFlagged: false,
		},
		{
			name:        "exactly at the inactivity threshold is fine",
			metric:      metricWith("100", 30),
			wantFlagged: false,
		},
		{
			name:        "score exactly at the minimum is fine",
			metric:      metricWith("50", 10),
			wantFlagged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, priority, flagged := classifyMetric(tt.metric, criteria)
			assert.Equal(t, tt.wantFlagged, flagged)
			if tt.wantFlagged {
				assert.Equal(t, tt.wantReason, reason)
				assert.True(t, dec(tt.wantPriority).Equal(priority), "want %s got %s", tt.wantPriority, priority)
			}
		})
	}
}

// Staleness wins over both other classifications; rotation only fires once
// the product has been held past the rotation window.
func TestClassifyMetricOrdering(t *testing.T) {
	criteria := ReallocationCriteria{
		MaxDaysInactive:           30,
		MinPerformanceScore:       50,
		HighPerformerRotationDays: 90,
	}
	criteria.applyDefaults()

	reason, priority, flagged := classifyMetric(metricWith("20", 100), criteria)
	assert.True(t, flagged)
	assert.Equal(t, model.ReasonTimeBased, reason)
	assert.True(t, dec("200").Equal(priority))

	// Past the rotation window but not inactive day-wise is impossible with
	// the defaults (rotation 90 > inactive 30), so widen the inactivity cap.
	criteria.MaxDaysInactive = 365
	reason, priority, flagged = classifyMetric(metricWith("200", 120), criteria)
	assert.True(t, flagged)
	assert.Equal(t, model.ReasonHighPerformerRotation, reason)
	assert.True(t, dec("100").Equal(priority)) // 200 * 0.5

	// Cutoff score of exactly 150 does not rotate
	_, _, flagged = classifyMetric(metricWith("150", 120), criteria)
	assert.False(t, flagged)
}

func TestSortCandidatesByPriority(t *testing.T) {
	candidates := []model.ReallocationCandidate{
		{ProductID: "b", PriorityScore: dec("60")},
		{ProductID: "a", PriorityScore: dec("120")},
		{ProductID: "c", PriorityScore: dec("60")},
		{ProductID: "d", PriorityScore: dec("90")},
	}

	sortCandidatesByPriority(candidates)

	got := make([]string, 0, len(candidates))
	for _, c := range candidates {
		got = append(got, c.ProductID)
	}
	// Equal scores keep their input order
	assert.Equal(t, []string{"a", "d", "b", "c"}, got)
}

func TestReallocationCriteriaDefaults(t *testing.T) {
	var criteria ReallocationCriteria
	criteria.applyDefaults()

	assert.Equal(t, defaultWindowDays, criteria.WindowDays)
	assert.Equal(t, defaultMaxDaysInactive, criteria.MaxDaysInactive)
	assert.Equal(t, defaultMinScore, criteria.MinPerformanceScore)
	assert.Equal(t, defaultRotationDays, criteria.HighPerformerRotationDays)

	partial := ReallocationCriteria{WindowDays: 30, MinPerformanceScore: 75}
	partial.applyDefaults()
	assert.Equal(t, 30, partial.WindowDays)
	assert.Equal(t, 75, partial.MinPerformanceScore)
	assert.Equal(t, defaultMaxDaysInactive, partial.MaxDaysInactive)
}
