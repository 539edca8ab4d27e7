package iso14064

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

type categoryKey struct {
	scope    int
	category string
}

// BuildInventory aggregates emission records and removals into a GHG inventory.
// Sums are exact so the result does not depend on record order.
func BuildInventory(organizationID uuid.UUID, year int, records []inventory.EmissionRecord, removals []inventory.GhgRemoval) Inventory {
	var scope1, location, market, scope3, totalKg compliance.Accumulator
	marketRecords := 0
	categories := make(map[categoryKey]*compliance.Accumulator)

	for _, r := range records {
		if r.Scope == 2 && r.IsMarketBased() {
			market.Add(r.Co2eKg)
			marketRecords++
			continue
		}
		switch r.Scope {
		case 1:
			scope1.Add(r.Co2eKg)
		case 2:
			location.Add(r.Co2eKg)
		case 3:
			scope3.Add(r.Co2eKg)
		default:
			continue
		}
		totalKg.Add(r.Co2eKg)

		key := categoryKey{scope: r.Scope, category: r.Category}
		acc, ok := categories[key]
		if !ok {
			acc = &compliance.Accumulator{}
			categories[key] = acc
		}
		acc.Add(r.Co2eKg)
	}

	inv := Inventory{
		OrganizationID: organizationID,
		Year:           year,
		RecordCount:    len(records),
		Scope1Tonnes:   scope1.Tonnes(),
		Scope2Tonnes:   location.Tonnes(),
		Scope3Tonnes:   scope3.Tonnes(),
		Categories:     make([]CategoryTotal, 0, len(categories)),
		RemovalsByType: make(map[string]float64),
	}
	inv.Scope2MarketTonnes = inv.Scope2Tonnes
	if marketRecords > 0 {
		inv.Scope2MarketTonnes = market.Tonnes()
	}
	inv.GrossTonnes = compliance.SumRounded(4, inv.Scope1Tonnes, inv.Scope2Tonnes, inv.Scope3Tonnes)

	for key, acc := range categories {
		inv.Categories = append(inv.Categories, CategoryTotal{Scope: key.scope, Category: key.category, Tonnes: acc.Tonnes()})
	}
	sort.Slice(inv.Categories, func(i, j int) bool {
		if inv.Categories[i].Scope != inv.Categories[j].Scope {
			return inv.Categories[i].Scope < inv.Categories[j].Scope
		}
		return inv.Categories[i].Category < inv.Categories[j].Category
	})

	var removed compliance.Accumulator
	byType := make(map[string]*compliance.Accumulator)
	for _, rm := range removals {
		removed.Add(rm.QuantityTonnes)
		acc, ok := byType[rm.RemovalType]
		if !ok {
			acc = &compliance.Accumulator{}
			byType[rm.RemovalType] = acc
		}
		acc.Add(rm.QuantityTonnes)
	}
	for t, acc := range byType {
		inv.RemovalsByType[t] = compliance.Round(acc.Float64(), 4)
	}
	inv.RemovalsTonnes = compliance.Round(removed.Float64(), 4)

	inv.NetTonnes = compliance.SumRounded(4, inv.GrossTonnes, -inv.RemovalsTonnes)
	inv.IsCarbonNeutral = inv.RecordCount > 0 && inv.NetTonnes <= 0
	if inv.GrossTonnes > 0 {
		inv.OffsetCoveragePercent = compliance.Round(inv.RemovalsTonnes/inv.GrossTonnes*100, 2)
	}

	inv.Summary = summarize(totalKg.Float64(), inv)
	return inv
}

func summarize(totalKg float64, inv Inventory) Summary {
	s := Summary{
		TotalKg:     compliance.Round(totalKg, 2),
		TotalTonnes: inv.GrossTonnes,
	}
	if inv.GrossTonnes > 0 {
		s.Scope1Percent = int(math.Round(inv.Scope1Tonnes / inv.GrossTonnes * 100))
		s.Scope2Percent = int(math.Round(inv.Scope2Tonnes / inv.GrossTonnes * 100))
		s.Scope3Percent = int(math.Round(inv.Scope3Tonnes / inv.GrossTonnes * 100))
	}
	return s
}

// QualifiesForNetZero reports whether a removal may offset emissions in a net zero claim
func QualifiesForNetZero(r inventory.GhgRemoval) bool {
	if !r.IsVerified || !r.AdditionalityConfirmed {
		return false
	}
	return r.PermanenceYears == nil || *r.PermanenceYears >= MinPermanenceYears
}

// BuildNetEmissions nets gross emissions against verified and net-zero-qualifying removals
func BuildNetEmissions(inv Inventory, removals []inventory.GhgRemoval) NetEmissions {
	var verified, qualifying compliance.Accumulator
	ne := NetEmissions{
		OrganizationID: inv.OrganizationID,
		Year:           inv.Year,
		GrossTonnes:    inv.GrossTonnes,
		RemovalCount:   len(removals),
	}
	for _, r := range removals {
		if r.IsVerified {
			verified.Add(r.QuantityTonnes)
		}
		if QualifiesForNetZero(r) {
			qualifying.Add(r.QuantityTonnes)
			ne.QualifyingCount++
		}
	}

	ne.VerifiedRemovalsTonnes = compliance.Round(verified.Float64(), 4)
	ne.QualifyingRemovalsTonnes = compliance.Round(qualifying.Float64(), 4)
	ne.NetTonnes = compliance.SumRounded(4, inv.GrossTonnes, -ne.VerifiedRemovalsTonnes)
	ne.NetZeroTonnes = compliance.SumRounded(4, inv.GrossTonnes, -ne.QualifyingRemovalsTonnes)
	ne.IsCarbonNeutral = inv.RecordCount > 0 && ne.NetTonnes <= 0
	ne.IsNetZero = inv.RecordCount > 0 && ne.NetZeroTonnes <= 0
	return ne
}
