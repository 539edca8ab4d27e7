// Package materiality runs the CSRD double materiality assessment over the ESRS
// topical standards: impact and financial scoring, materiality determination,
// four-eyes approval and the materiality matrix.
package materiality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
)

// Service implements the double materiality workflow
type Service struct {
	store            Store
	logger           *zap.Logger
	defaultThreshold float64
	now              func() time.Time
}

// NewService creates a new double materiality service. A non-positive default
// threshold falls back to DefaultThreshold.
func NewService(store Store, defaultThreshold float64, logger *zap.Logger) *Service {
	if defaultThreshold <= 0 {
		defaultThreshold = DefaultThreshold
	}
	return &Service{
		store:            store,
		logger:           logger,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
	}
}

// =====================================================
// Scoring
// =====================================================

// AxisScore maps two 1-5 ratings onto a 0-100 score. Inputs are clamped to [1,5].
func AxisScore(a, b int) float64 {
	a = compliance.ClampInt(a, 1, 5)
	b = compliance.ClampInt(b, 1, 5)
	return compliance.Round(float64(a*b)/25*100, 2)
}

// Evaluation is the materiality determination of one topic at a threshold
type Evaluation struct {
	CombinedScore *float64
	IsMaterial    bool
	Type          Type
}

// Evaluate determines materiality from the axis scores. An axis that has not been scored
// counts as zero for the combined score and is never material.
func Evaluate(impact, financial *float64, threshold float64) Evaluation {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	impactMaterial := impact != nil && *impact >= threshold
	financialMaterial := financial != nil && *financial >= threshold

	var combined *float64
	if impact != nil || financial != nil {
		var i, f float64
		if impact != nil {
			i = *impact
		}
		if financial != nil {
			f = *financial
		}
		c := compliance.Round((i+f)/2, 2)
		combined = &c
	}

	eval := Evaluation{CombinedScore: combined, IsMaterial: impactMaterial || financialMaterial}
	switch {
	case impactMaterial && financialMaterial:
		eval.Type = TypeDouble
	case impactMaterial:
		eval.Type = TypeImpact
	case financialMaterial:
		eval.Type = TypeFinancial
	default:
		eval.Type = TypeNotMaterial
	}
	return eval
}

func (s *Service) threshold(threshold float64) float64 {
	if threshold <= 0 {
		return s.defaultThreshold
	}
	return threshold
}

func apply(row *Assessment, threshold float64) {
	eval := Evaluate(row.ImpactScore, row.FinancialScore, threshold)
	row.CombinedScore = eval.CombinedScore
	row.IsMaterial = eval.IsMaterial
	row.MaterialityType = eval.Type
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// =====================================================
// Workflow
// =====================================================

func validateYear(year int) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("year %d out of range: %w", year, compliance.ErrInvalidArgument)
	}
	return nil
}

// Initialize creates the topic rows of an organization and year if they are absent
func (s *Service) Initialize(ctx context.Context, organizationID uuid.UUID, year int) ([]Assessment, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	rows := make([]Assessment, len(Topics))
	for i, topic := range Topics {
		rows[i] = newAssessment(organizationID, year, topic)
	}
	if err := s.store.CreateIfAbsent(ctx, rows); err != nil {
		return nil, err
	}

	s.logger.Info("Materiality assessment initialized",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year))

	return s.store.List(ctx, organizationID, year)
}

func (s *Service) loadOrCreate(ctx context.Context, organizationID uuid.UUID, year int, topicCode string) (*Assessment, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	topic, ok := TopicFor(topicCode)
	if !ok {
		return nil, fmt.Errorf("unknown topic %q: %w", topicCode, compliance.ErrInvalidArgument)
	}

	row, err := s.store.Get(ctx, organizationID, year, topicCode)
	if errors.Is(err, ErrTopicNotFound) {
		fresh := newAssessment(organizationID, year, topic)
		return &fresh, nil
	}
	return row, err
}

// UpdateImpact scores the impact materiality axis of a topic
func (s *Service) UpdateImpact(ctx context.Context, organizationID uuid.UUID, year int, topicCode string, input ImpactInput, assessor uuid.UUID) (*Assessment, error) {
	row, err := s.loadOrCreate(ctx, organizationID, year, topicCode)
	if err != nil {
		return nil, err
	}

	severity := compliance.ClampInt(input.Severity, 1, 5)
	likelihood := compliance.ClampInt(input.Likelihood, 1, 5)
	score := AxisScore(severity, likelihood)

	if !sameScore(row.ImpactScore, &score) {
		row.clearApproval()
	}
	row.ImpactSeverity = &severity
	row.ImpactLikelihood = &likelihood
	row.ImpactScore = &score
	row.ImpactAssessedBy = &assessor
	if input.Rationale != "" {
		row.ImpactRationale = &input.Rationale
	}

	return s.saveAssessed(ctx, row, assessor)
}

// UpdateFinancial scores the financial materiality axis of a topic
func (s *Service) UpdateFinancial(ctx context.Context, organizationID uuid.UUID, year int, topicCode string, input FinancialInput, assessor uuid.UUID) (*Assessment, error) {
	row, err := s.loadOrCreate(ctx, organizationID, year, topicCode)
	if err != nil {
		return nil, err
	}

	magnitude := compliance.ClampInt(input.Magnitude, 1, 5)
	likelihood := compliance.ClampInt(input.Likelihood, 1, 5)
	score := AxisScore(magnitude, likelihood)

	if !sameScore(row.FinancialScore, &score) {
		row.clearApproval()
	}
	row.FinancialMagnitude = &magnitude
	row.FinancialLikelihood = &likelihood
	row.FinancialScore = &score
	row.FinancialAssessedBy = &assessor
	if input.Rationale != "" {
		row.FinancialRationale = &input.Rationale
	}

	return s.saveAssessed(ctx, row, assessor)
}

func (s *Service) saveAssessed(ctx context.Context, row *Assessment, assessor uuid.UUID) (*Assessment, error) {
	now := s.now()
	row.AssessedBy = &assessor
	row.AssessedAt = &now
	apply(row, s.defaultThreshold)

	if err := s.store.Upsert(ctx, []Assessment{*row}); err != nil {
		return nil, err
	}
	return row, nil
}

// CalculateMateriality re-evaluates every topic of an organization and year at the given threshold
func (s *Service) CalculateMateriality(ctx context.Context, organizationID uuid.UUID, year int, threshold float64) (*Result, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	threshold = s.threshold(threshold)

	rows, err := s.store.List(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}

	result := &Result{
		OrganizationID: organizationID,
		Year:           year,
		Threshold:      threshold,
		MaterialTopics: []string{},
	}
	for i := range rows {
		apply(&rows[i], threshold)
		if rows[i].IsMaterial {
			result.MaterialTopics = append(result.MaterialTopics, rows[i].TopicCode)
		}
	}
	if err := s.store.Upsert(ctx, rows); err != nil {
		return nil, err
	}

	result.Topics = rows
	result.MaterialCount = len(result.MaterialTopics)

	s.logger.Info("Materiality calculated",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Float64("threshold", threshold),
		zap.Int("material_topics", result.MaterialCount))

	return result, nil
}

// Approve records a second-person approval of a scored topic
func (s *Service) Approve(ctx context.Context, organizationID uuid.UUID, year int, topicCode string, approver uuid.UUID) (*Assessment, error) {
	if _, ok := TopicFor(topicCode); !ok {
		return nil, fmt.Errorf("unknown topic %q: %w", topicCode, compliance.ErrInvalidArgument)
	}

	row, err := s.store.Get(ctx, organizationID, year, topicCode)
	if errors.Is(err, ErrTopicNotFound) {
		return nil, fmt.Errorf("topic %s: %w", topicCode, compliance.ErrNotAssessed)
	}
	if err != nil {
		return nil, err
	}
	if !row.IsAssessed() {
		return nil, fmt.Errorf("topic %s: %w", topicCode, compliance.ErrNotAssessed)
	}
	if row.ScoredBy(approver) {
		return nil, compliance.ErrSelfApproval
	}

	now := s.now()
	row.ApprovedBy = &approver
	row.ApprovedAt = &now
	if err := s.store.Upsert(ctx, []Assessment{*row}); err != nil {
		return nil, err
	}

	s.logger.Info("Materiality topic approved",
		zap.String("organization_id", organizationID.String()),
		zap.String("topic", topicCode),
		zap.String("approved_by", approver.String()))

	return row, nil
}

// Matrix places every topic of the taxonomy on the materiality matrix. Topics without a
// stored row are reported as unassessed.
func (s *Service) Matrix(ctx context.Context, organizationID uuid.UUID, year int, threshold float64) (*Matrix, error) {
	threshold = s.threshold(threshold)

	rows, err := s.store.List(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]Assessment, len(rows))
	for _, row := range rows {
		stored[row.TopicCode] = row
	}

	matrix := &Matrix{
		OrganizationID: organizationID,
		Year:           year,
		Threshold:      threshold,
		TotalTopics:    len(Topics),
		Quadrants: map[Type][]string{
			TypeDouble:      {},
			TypeImpact:      {},
			TypeFinancial:   {},
			TypeNotMaterial: {},
		},
	}

	for _, topic := range Topics {
		row, ok := stored[topic.Code]
		if !ok {
			row = newAssessment(organizationID, year, topic)
		}
		eval := Evaluate(row.ImpactScore, row.FinancialScore, threshold)

		point := MatrixPoint{
			TopicCode:  topic.Code,
			TopicName:  topic.Name,
			Category:   topic.Category,
			IsMaterial: eval.IsMaterial,
			Type:       eval.Type,
			IsAssessed: row.IsAssessed(),
			IsApproved: row.IsApproved(),
		}
		if row.ImpactScore != nil {
			point.ImpactScore = *row.ImpactScore
		}
		if row.FinancialScore != nil {
			point.FinancialScore = *row.FinancialScore
		}
		if eval.CombinedScore != nil {
			point.CombinedScore = *eval.CombinedScore
		}

		matrix.Points = append(matrix.Points, point)
		matrix.Quadrants[eval.Type] = append(matrix.Quadrants[eval.Type], topic.Code)
		if point.IsAssessed {
			matrix.AssessedCount++
		}
		if point.IsApproved {
			matrix.ApprovedCount++
		}
		if point.IsMaterial {
			matrix.MaterialCount++
		}
	}

	matrix.CompletionPercent = compliance.Round(float64(matrix.AssessedCount)/float64(matrix.TotalTopics)*100, 2)
	return matrix, nil
}
