package compliance

import (
	"strings"

	"github.com/shopspring/decimal"
)

var mwhFactors = map[string]decimal.Decimal{
	"kwh": decimal.RequireFromString("0.001"),
	"mwh": decimal.NewFromInt(1),
	"gwh": decimal.NewFromInt(1000),
	"gj":  decimal.RequireFromString("0.2778"),
	"mj":  decimal.RequireFromString("0.000278"),
}

// ToMWh converts an energy quantity to MWh. The second result is false for non-energy units.
func ToMWh(quantity float64, unit string) (float64, bool) {
	factor, ok := mwhFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, false
	}
	mwh, _ := decimal.NewFromFloat(quantity).Mul(factor).Float64()
	return mwh, true
}
