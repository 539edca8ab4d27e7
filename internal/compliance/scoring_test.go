package compliance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChecklistScore(t *testing.T) {
	criteria := []Criterion{
		{ID: "a", Met: true},
		{ID: "b", Met: false},
		{ID: "c", Met: true},
	}

	assert.Equal(t, 66.67, ChecklistScore(criteria))
	assert.Equal(t, 0.0, ChecklistScore(nil))
	assert.Equal(t, 100.0, ChecklistScore(criteria[:1]))
}

func TestMeanAndWeightedMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean())
	assert.Equal(t, 50.0, Mean(0, 100))
	assert.Equal(t, 70.0, WeightedMean(
		Weighted{Score: 100, Weight: 0.7},
		Weighted{Score: 0, Weight: 0.3},
	))
	assert.Equal(t, 0.0, WeightedMean(Weighted{Score: 80, Weight: 0}))
}

func TestSafeDivideAndPercent(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(10, 0))
	assert.Equal(t, 0.0, SafeDivide(10, -1))
	assert.Equal(t, 2.5, SafeDivide(10, 4))
	assert.Nil(t, Percent(1, 0))
	assert.Equal(t, 25.0, *Percent(1, 4))
}

func TestAccumulatorIsOrderIndependent(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 1e9, -1e9, 45000.123456}

	var forward, backward Accumulator
	for _, v := range values {
		forward.Add(v)
	}
	for i := len(values) - 1; i >= 0; i-- {
		backward.Add(values[i])
	}

	assert.Equal(t, forward.Float64(), backward.Float64())
	assert.Equal(t, forward.Tonnes(), backward.Tonnes())
}

func TestKgToTonnes(t *testing.T) {
	assert.Equal(t, 125.0, KgToTonnes(125000))
	assert.Equal(t, 0.0123, KgToTonnes(12.34))
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelCompliant, LevelFor(95))
	assert.Equal(t, LevelSubstantiallyCompliant, LevelFor(70))
	assert.Equal(t, LevelPartiallyCompliant, LevelFor(40))
	assert.Equal(t, LevelNonCompliant, LevelFor(39.99))
}

func TestSectionRecommendations(t *testing.T) {
	section := NewSection("boundaries", "Organizational boundaries", "5.1", []Criterion{
		{ID: "method", Description: "Consolidation approach defined", Clause: "5.1", Met: true, Priority: PriorityHigh},
		{ID: "boundary", Description: "Reporting boundary documented", Clause: "5.1", Met: false, Priority: PriorityMedium, Action: "Document the reporting boundary"},
	})

	recs := section.Recommendations(FrameworkISO14064)

	assert.Equal(t, 50.0, section.Score)
	assert.Len(t, recs, 1)
	assert.Equal(t, "Document the reporting boundary", recs[0].Action)
	assert.Equal(t, PriorityMedium, recs[0].Priority)
	assert.Equal(t, FrameworkISO14064, recs[0].Framework)
}

func TestNaturalKeyIDIsStable(t *testing.T) {
	ns := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	org := uuid.MustParse("0b7d6b1e-2f3a-4c55-9c1e-7a1f0d2c9e10")

	first := NaturalKeyID(ns, org, 2024, "E1-6-a")
	assert.Equal(t, first, NaturalKeyID(ns, org, 2024, "E1-6-a"))
	assert.NotEqual(t, first, NaturalKeyID(ns, org, 2025, "E1-6-a"))
	assert.Equal(t, uuid.Version(5), first.Version())
}

func TestToMWh(t *testing.T) {
	cases := []struct {
		quantity float64
		unit     string
		expected float64
	}{
		{50000, "kWh", 50},
		{3, "MWh", 3},
		{2, "GWh", 2000},
		{100, "GJ", 27.78},
		{1000, "mj", 0.278},
	}
	for _, tc := range cases {
		got, ok := ToMWh(tc.quantity, tc.unit)
		assert.True(t, ok, tc.unit)
		assert.InDelta(t, tc.expected, got, 1e-9, tc.unit)
	}

	_, ok := ToMWh(10, "litre")
	assert.False(t, ok)
}

func TestSortRecommendations(t *testing.T) {
	recs := []Recommendation{
		{Reference: "a", Priority: PriorityLow},
		{Reference: "b", Priority: PriorityCritical},
		{Reference: "c", Priority: PriorityHigh},
		{Reference: "d", Priority: PriorityCritical},
	}
	SortRecommendations(recs)

	refs := make([]string, len(recs))
	for i, r := range recs {
		refs[i] = r.Reference
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, refs)
}
