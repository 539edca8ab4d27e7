package esrs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
)

// IndicatorStatus tells whether an indicator carries a value
type IndicatorStatus string

const (
	StatusReported IndicatorStatus = "reported"
	StatusMissing  IndicatorStatus = "missing"
)

// Indicator is a stored ESRS datapoint for one assessment
type Indicator struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID       `json:"organization_id" gorm:"type:uuid;not null;uniqueIndex:idx_esrs_indicator_key"`
	AssessmentID   uuid.UUID       `json:"assessment_id" gorm:"type:uuid;not null;uniqueIndex:idx_esrs_indicator_key"`
	Year           int             `json:"year" gorm:"not null;uniqueIndex:idx_esrs_indicator_key"`
	IndicatorCode  string          `json:"indicator_code" gorm:"size:16;not null;uniqueIndex:idx_esrs_indicator_key"`
	Disclosure     string          `json:"disclosure" gorm:"size:16;not null"`
	Name           string          `json:"name" gorm:"not null"`
	Value          *float64        `json:"value" gorm:"type:decimal(18,4)"`
	Unit           string          `json:"unit" gorm:"size:32"`
	IsMandatory    bool            `json:"is_mandatory" gorm:"not null"`
	Status         IndicatorStatus `json:"status" gorm:"size:16;not null;index"`
	Metadata       datatypes.JSON  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Indicator
func (Indicator) TableName() string {
	return "esrs_indicators"
}

// Definition describes an ESRS E1 datapoint this engine calculates
type Definition struct {
	Code        string `json:"code"`
	Disclosure  string `json:"disclosure"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	IsMandatory bool   `json:"is_mandatory"`
	Action      string `json:"action"`
}

// Definitions lists every calculated datapoint in disclosure order
var Definitions = []Definition{
	// E1-5 Energy consumption and mix
	{"E1-5-a", "E1-5", "Total energy consumption", "MWh", true, "Record scope 2 energy consumption with energy units"},
	{"E1-5-b", "E1-5", "Energy consumption from non-renewable sources", "MWh", true, "Record scope 2 energy consumption with energy units"},
	{"E1-5-c", "E1-5", "Energy consumption from renewable sources", "MWh", true, "Flag renewable supply contracts on energy records"},
	{"E1-5-d", "E1-5", "Share of renewable energy", "%", true, "Flag renewable supply contracts on energy records"},
	{"E1-5-e", "E1-5", "Energy intensity per net revenue", "MWh/MEUR", true, "Provide net revenue on the assessment"},
	{"E1-5-f", "E1-5", "Energy intensity per employee", "MWh/FTE", false, "Provide employee FTE on the assessment"},

	// E1-6 Gross scope 1, 2, 3 and total GHG emissions
	{"E1-6-a", "E1-6", "Gross scope 1 GHG emissions", "tCO2e", true, "Record scope 1 emission sources"},
	{"E1-6-b", "E1-6", "Gross location-based scope 2 GHG emissions", "tCO2e", true, "Record scope 2 emission sources"},
	{"E1-6-c", "E1-6", "Gross market-based scope 2 GHG emissions", "tCO2e", true, "Record market-based scope 2 emissions"},
	{"E1-6-d", "E1-6", "Gross scope 3 GHG emissions", "tCO2e", true, "Screen the 15 scope 3 categories"},
	{"E1-6-e", "E1-6", "Total GHG emissions", "tCO2e", true, "Complete the scope 1, 2 and 3 inventory"},
	{"E1-6-f", "E1-6", "GHG intensity per net revenue", "tCO2e/MEUR", true, "Provide net revenue on the assessment"},
	{"E1-6-g", "E1-6", "GHG intensity per employee", "tCO2e/FTE", false, "Provide employee FTE on the assessment"},

	// E1-4 Targets related to climate change mitigation
	{"E1-4-a", "E1-4", "GHG emission reduction target", "%", true, "Set a GHG emission reduction target"},
	{"E1-4-b", "E1-4", "Actual GHG emission reduction since baseline", "%", true, "Set a GHG emission reduction target with a baseline"},
	{"E1-4-c", "E1-4", "Progress towards reduction target", "%", false, "Track progress against the reduction target"},
}

var definitionsByCode = func() map[string]Definition {
	m := make(map[string]Definition, len(Definitions))
	for _, d := range Definitions {
		m[d.Code] = d
	}
	return m
}()

// DefinitionFor returns the definition of a datapoint code
func DefinitionFor(code string) (Definition, bool) {
	d, ok := definitionsByCode[code]
	return d, ok
}

// MandatoryDefinitions returns the datapoints required for compliance
func MandatoryDefinitions() []Definition {
	var out []Definition
	for _, d := range Definitions {
		if d.IsMandatory {
			out = append(out, d)
		}
	}
	return out
}

// GHG Protocol scope 3 categories 1 to 15
var Scope3Categories = [15]string{
	"Purchased goods and services",
	"Capital goods",
	"Fuel- and energy-related activities",
	"Upstream transportation and distribution",
	"Waste generated in operations",
	"Business travel",
	"Employee commuting",
	"Upstream leased assets",
	"Downstream transportation and distribution",
	"Processing of sold products",
	"Use of sold products",
	"End-of-life treatment of sold products",
	"Downstream leased assets",
	"Franchises",
	"Investments",
}

// UnallocatedScope3 collects scope 3 records without a resolvable category
const UnallocatedScope3 = "Unallocated"

var indicatorNamespace = uuid.MustParse("3f0c6a52-8d7e-5b1a-9c4f-2e6d8a1b7c90")

// IndicatorID is the deterministic primary key of an indicator's natural key
func IndicatorID(organizationID, assessmentID uuid.UUID, year int, code string) uuid.UUID {
	return compliance.NaturalKeyID(indicatorNamespace, organizationID, assessmentID, year, code)
}

func buildIndicator(scope indicatorScope, code string, value *float64, metadata map[string]any) Indicator {
	def := definitionsByCode[code]
	status := StatusReported
	if value == nil {
		status = StatusMissing
	} else {
		rounded := compliance.Round(*value, 4)
		value = &rounded
	}

	var meta datatypes.JSON
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			meta = datatypes.JSON(raw)
		}
	}

	return Indicator{
		ID:             IndicatorID(scope.organizationID, scope.assessmentID, scope.year, code),
		OrganizationID: scope.organizationID,
		AssessmentID:   scope.assessmentID,
		Year:           scope.year,
		IndicatorCode:  code,
		Disclosure:     def.Disclosure,
		Name:           def.Name,
		Value:          value,
		Unit:           def.Unit,
		IsMandatory:    def.IsMandatory,
		Status:         status,
		Metadata:       meta,
	}
}

type indicatorScope struct {
	organizationID uuid.UUID
	assessmentID   uuid.UUID
	year           int
}
