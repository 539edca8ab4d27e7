package uncertainty

import (
	"strings"

	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// SourceClass is the emission-source family used to pick an emission-factor band
type SourceClass string

const (
	ClassElectricity    SourceClass = "electricity"
	ClassNaturalGas     SourceClass = "natural_gas"
	ClassLiquidFuel     SourceClass = "liquid_fuel"
	ClassHeat           SourceClass = "heat"
	ClassRefrigerant    SourceClass = "refrigerant"
	ClassBusinessTravel SourceClass = "business_travel"
	ClassCommuting      SourceClass = "commuting"
	ClassFreight        SourceClass = "freight"
	ClassPurchasedGoods SourceClass = "purchased_goods"
	ClassCapitalGoods   SourceClass = "capital_goods"
	ClassWaste          SourceClass = "waste"
	ClassWater          SourceClass = "water"
	ClassDefault        SourceClass = "default"
)

// Band is a low/high uncertainty range in percent
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Mid returns the midpoint of the band
func (b Band) Mid() float64 {
	return (b.Low + b.High) / 2
}

// IPCC 2006 Tier 1 default emission-factor uncertainty ranges
var emissionFactorBands = map[SourceClass]Band{
	ClassElectricity:    {Low: 3, High: 10},
	ClassNaturalGas:     {Low: 2, High: 5},
	ClassLiquidFuel:     {Low: 2, High: 5},
	ClassHeat:           {Low: 5, High: 15},
	ClassRefrigerant:    {Low: 10, High: 30},
	ClassBusinessTravel: {Low: 10, High: 30},
	ClassCommuting:      {Low: 20, High: 50},
	ClassFreight:        {Low: 10, High: 30},
	ClassPurchasedGoods: {Low: 20, High: 50},
	ClassCapitalGoods:   {Low: 20, High: 50},
	ClassWaste:          {Low: 20, High: 50},
	ClassWater:          {Low: 10, High: 30},
	ClassDefault:        {Low: 10, High: 30},
}

// Activity data uncertainty by data quality tier
var activityDataBands = map[inventory.DataQuality]Band{
	inventory.DataQualityMeasured:   {Low: 1, High: 3},
	inventory.DataQualityCalculated: {Low: 3, High: 10},
	inventory.DataQualityEstimated:  {Low: 10, High: 25},
	inventory.DataQualityProxy:      {Low: 25, High: 50},
}

// Aliases seen in imported data for the quality tiers above
var dataQualityAliases = map[string]inventory.DataQuality{
	"metered":      inventory.DataQualityMeasured,
	"invoice":      inventory.DataQualityCalculated,
	"invoiced":     inventory.DataQualityCalculated,
	"spend_based":  inventory.DataQualityEstimated,
	"extrapolated": inventory.DataQualityProxy,
	"default":      inventory.DataQualityProxy,
}

// Keyword classification for records whose source type is not a known class.
// Order matters: the first matching class wins.
var classKeywords = []struct {
	class    SourceClass
	keywords []string
}{
	{ClassRefrigerant, []string{"refrigerant", "f_gas", "hfc"}},
	{ClassElectricity, []string{"electricity", "electric"}},
	{ClassCommuting, []string{"commut"}},
	{ClassBusinessTravel, []string{"business_travel", "travel", "flight", "hotel"}},
	{ClassFreight, []string{"freight", "transport", "logistic", "shipping"}},
	{ClassLiquidFuel, []string{"diesel", "petrol", "gasoline", "fuel", "lpg", "fioul"}},
	{ClassNaturalGas, []string{"natural_gas", "natural gas", "gas"}},
	{ClassHeat, []string{"district_heat", "heating", "steam", "heat", "cooling"}},
	{ClassCapitalGoods, []string{"capital_goods", "capital"}},
	{ClassPurchasedGoods, []string{"purchased_goods", "purchased", "goods", "services"}},
	{ClassWaste, []string{"waste"}},
	{ClassWater, []string{"water"}},
}

// ClassifySource resolves the source class of a record. A source type naming a class
// directly wins; otherwise the category and source type text are keyword-matched.
func ClassifySource(sourceType, category string) SourceClass {
	normalized := strings.ToLower(strings.TrimSpace(sourceType))
	if _, ok := emissionFactorBands[SourceClass(normalized)]; ok {
		return SourceClass(normalized)
	}

	text := strings.ToLower(category + " " + sourceType)
	for _, entry := range classKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.class
			}
		}
	}
	return ClassDefault
}

// EmissionFactorBand returns the emission-factor uncertainty band for a class
func EmissionFactorBand(class SourceClass) Band {
	if band, ok := emissionFactorBands[class]; ok {
		return band
	}
	return emissionFactorBands[ClassDefault]
}

// NormalizeDataQuality maps free-form quality labels to a known tier; unknown labels are estimated
func NormalizeDataQuality(quality inventory.DataQuality) inventory.DataQuality {
	normalized := inventory.DataQuality(strings.ToLower(strings.TrimSpace(string(quality))))
	if _, ok := activityDataBands[normalized]; ok {
		return normalized
	}
	if alias, ok := dataQualityAliases[string(normalized)]; ok {
		return alias
	}
	return inventory.DataQualityEstimated
}

// ActivityDataBand returns the activity data uncertainty band for a quality tier
func ActivityDataBand(quality inventory.DataQuality) Band {
	return activityDataBands[NormalizeDataQuality(quality)]
}
