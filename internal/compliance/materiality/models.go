package materiality

import (
	"time"

	"github.com/google/uuid"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
)

// TopicCategory groups ESRS topical standards
type TopicCategory string

const (
	CategoryEnvironment TopicCategory = "environment"
	CategorySocial      TopicCategory = "social"
	CategoryGovernance  TopicCategory = "governance"
)

// Type is the quadrant a topic falls into on the double materiality matrix
type Type string

const (
	TypeDouble      Type = "double"
	TypeImpact      Type = "impact"
	TypeFinancial   Type = "financial"
	TypeNotMaterial Type = "not_material"
)

// DefaultThreshold is the score at or above which an axis is material
const DefaultThreshold = 40.0

// Topic is an ESRS topical standard subject to the materiality assessment
type Topic struct {
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Category TopicCategory `json:"category"`
}

// Topics is the fixed ESRS topical taxonomy
var Topics = []Topic{
	{Code: "E1", Name: "Climate change", Category: CategoryEnvironment},
	{Code: "E2", Name: "Pollution", Category: CategoryEnvironment},
	{Code: "E3", Name: "Water and marine resources", Category: CategoryEnvironment},
	{Code: "E4", Name: "Biodiversity and ecosystems", Category: CategoryEnvironment},
	{Code: "E5", Name: "Resource use and circular economy", Category: CategoryEnvironment},
	{Code: "S1", Name: "Own workforce", Category: CategorySocial},
	{Code: "S2", Name: "Workers in the value chain", Category: CategorySocial},
	{Code: "S3", Name: "Affected communities", Category: CategorySocial},
	{Code: "S4", Name: "Consumers and end-users", Category: CategorySocial},
	{Code: "G1", Name: "Business conduct", Category: CategoryGovernance},
}

// TopicFor looks up a topic by code
func TopicFor(code string) (Topic, bool) {
	for _, t := range Topics {
		if t.Code == code {
			return t, true
		}
	}
	return Topic{}, false
}

// Assessment is the stored double materiality evaluation of one topic
type Assessment struct {
	ID                  uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID      uuid.UUID     `json:"organization_id" gorm:"type:uuid;not null;uniqueIndex:idx_materiality_key"`
	Year                int           `json:"year" gorm:"not null;uniqueIndex:idx_materiality_key"`
	TopicCode           string        `json:"topic_code" gorm:"size:8;not null;uniqueIndex:idx_materiality_key"`
	TopicName           string        `json:"topic_name" gorm:"not null"`
	Category            TopicCategory `json:"category" gorm:"size:16;not null"`
	ImpactSeverity      *int          `json:"impact_severity"`
	ImpactLikelihood    *int          `json:"impact_likelihood"`
	ImpactScore         *float64      `json:"impact_score" gorm:"type:decimal(5,2)"`
	ImpactRationale     *string       `json:"impact_rationale,omitempty" gorm:"type:text"`
	FinancialMagnitude  *int          `json:"financial_magnitude"`
	FinancialLikelihood *int          `json:"financial_likelihood"`
	FinancialScore      *float64      `json:"financial_score" gorm:"type:decimal(5,2)"`
	FinancialRationale  *string       `json:"financial_rationale,omitempty" gorm:"type:text"`
	CombinedScore       *float64      `json:"combined_score" gorm:"type:decimal(5,2)"`
	IsMaterial          bool          `json:"is_material" gorm:"not null"`
	MaterialityType     Type          `json:"materiality_type" gorm:"size:16;not null"`
	ImpactAssessedBy    *uuid.UUID    `json:"impact_assessed_by,omitempty" gorm:"type:uuid"`
	FinancialAssessedBy *uuid.UUID    `json:"financial_assessed_by,omitempty" gorm:"type:uuid"`
	AssessedBy          *uuid.UUID    `json:"assessed_by,omitempty" gorm:"type:uuid"`
	AssessedAt          *time.Time    `json:"assessed_at,omitempty"`
	ApprovedBy          *uuid.UUID    `json:"approved_by,omitempty" gorm:"type:uuid"`
	ApprovedAt          *time.Time    `json:"approved_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Assessment
func (Assessment) TableName() string {
	return "materiality_assessments"
}

// IsAssessed reports whether both axes have been scored
func (a *Assessment) IsAssessed() bool {
	return a.ImpactScore != nil && a.FinancialScore != nil
}

// IsApproved reports whether the assessment carries an approval
func (a *Assessment) IsApproved() bool {
	return a.ApprovedBy != nil && a.ApprovedAt != nil
}

// ScoredBy reports whether the user scored either axis of the topic
func (a *Assessment) ScoredBy(user uuid.UUID) bool {
	for _, id := range []*uuid.UUID{a.ImpactAssessedBy, a.FinancialAssessedBy, a.AssessedBy} {
		if id != nil && *id == user {
			return true
		}
	}
	return false
}

func (a *Assessment) clearApproval() {
	a.ApprovedBy = nil
	a.ApprovedAt = nil
}

var assessmentNamespace = uuid.MustParse("9a4e2c71-5b3d-5f08-8e6a-1c7b3d9f2a45")

// AssessmentID is the deterministic primary key of a topic assessment
func AssessmentID(organizationID uuid.UUID, year int, topicCode string) uuid.UUID {
	return compliance.NaturalKeyID(assessmentNamespace, organizationID, year, topicCode)
}

func newAssessment(organizationID uuid.UUID, year int, topic Topic) Assessment {
	return Assessment{
		ID:              AssessmentID(organizationID, year, topic.Code),
		OrganizationID:  organizationID,
		Year:            year,
		TopicCode:       topic.Code,
		TopicName:       topic.Name,
		Category:        topic.Category,
		MaterialityType: TypeNotMaterial,
	}
}

// ImpactInput scores the inside-out impact of a topic
type ImpactInput struct {
	Severity   int    `json:"severity"`
	Likelihood int    `json:"likelihood"`
	Rationale  string `json:"rationale"`
}

// FinancialInput scores the outside-in financial effect of a topic
type FinancialInput struct {
	Magnitude  int    `json:"magnitude"`
	Likelihood int    `json:"likelihood"`
	Rationale  string `json:"rationale"`
}

// Result is the outcome of a materiality calculation run
type Result struct {
	OrganizationID uuid.UUID    `json:"organization_id"`
	Year           int          `json:"year"`
	Threshold      float64      `json:"threshold"`
	Topics         []Assessment `json:"topics"`
	MaterialTopics []string     `json:"material_topics"`
	MaterialCount  int          `json:"material_count"`
}

// MatrixPoint places one topic on the double materiality matrix
type MatrixPoint struct {
	TopicCode      string        `json:"topic_code"`
	TopicName      string        `json:"topic_name"`
	Category       TopicCategory `json:"category"`
	ImpactScore    float64       `json:"impact_score"`
	FinancialScore float64       `json:"financial_score"`
	CombinedScore  float64       `json:"combined_score"`
	IsMaterial     bool          `json:"is_material"`
	Type           Type          `json:"materiality_type"`
	IsAssessed     bool          `json:"is_assessed"`
	IsApproved     bool          `json:"is_approved"`
}

// Matrix is the double materiality matrix of an organization and year
type Matrix struct {
	OrganizationID    uuid.UUID         `json:"organization_id"`
	Year              int               `json:"year"`
	Threshold         float64           `json:"threshold"`
	Points            []MatrixPoint     `json:"points"`
	Quadrants         map[Type][]string `json:"quadrants"`
	TotalTopics       int               `json:"total_topics"`
	AssessedCount     int               `json:"assessed_count"`
	ApprovedCount     int               `json:"approved_count"`
	MaterialCount     int               `json:"material_count"`
	CompletionPercent float64           `json:"completion_percent"`
}
