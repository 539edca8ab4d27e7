package compliance

import (
	"math"

	"github.com/shopspring/decimal"
)

// ChecklistScore returns 100 x met/total, or 0 for an empty checklist
func ChecklistScore(criteria []Criterion) float64 {
	if len(criteria) == 0 {
		return 0
	}
	met := 0
	for _, c := range criteria {
		if c.Met {
			met++
		}
	}
	return Round(float64(met)/float64(len(criteria))*100, 2)
}

// Mean is the unweighted average of scores, 0 when empty
func Mean(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range scores {
		total += s
	}
	return Round(Clamp(total/float64(len(scores)), 0, 100), 2)
}

// Weighted pairs a score with its weight
type Weighted struct {
	Score  float64
	Weight float64
}

// WeightedMean folds weighted sub-scores into one score normalised by the total weight
func WeightedMean(parts ...Weighted) float64 {
	var sum, weights float64
	for _, p := range parts {
		sum += p.Score * p.Weight
		weights += p.Weight
	}
	if weights <= 0 {
		return 0
	}
	return Round(Clamp(sum/weights, 0, 100), 2)
}

// Round rounds to the given number of decimal places
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeDivide returns numerator/denominator, or 0 when the denominator is not positive
func SafeDivide(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// Percent returns part/whole x 100, or nil when whole is not positive
func Percent(part, whole float64) *float64 {
	if whole <= 0 {
		return nil
	}
	p := part / whole * 100
	return &p
}

// Accumulator sums quantities exactly so totals do not depend on input order
type Accumulator struct {
	total decimal.Decimal
}

// Add adds a value to the running total
func (a *Accumulator) Add(v float64) {
	a.total = a.total.Add(decimal.NewFromFloat(v))
}

// Float64 returns the running total
func (a *Accumulator) Float64() float64 {
	f, _ := a.total.Float64()
	return f
}

// Tonnes returns the running total converted from kilograms to tonnes, rounded to 4 decimals
func (a *Accumulator) Tonnes() float64 {
	f, _ := a.total.Div(decimal.NewFromInt(1000)).Round(4).Float64()
	return f
}

// KgToTonnes converts kilograms to tonnes rounded to 4 decimals
func KgToTonnes(kg float64) float64 {
	f, _ := decimal.NewFromFloat(kg).Div(decimal.NewFromInt(1000)).Round(4).Float64()
	return f
}

// SumRounded adds already-rounded values and rounds the result to the given places
func SumRounded(places int32, values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(places).Float64()
	return f
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
