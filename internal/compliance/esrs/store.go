package esrs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists calculated indicators keyed by their natural key
type Store interface {
	UpsertIndicators(ctx context.Context, indicators []Indicator) error
	ListIndicators(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error)
	DeleteIndicators(ctx context.Context, assessmentID uuid.UUID, codes []string) error
}

// GormStore implements Store on PostgreSQL via gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm-backed indicator store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the indicator table
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Indicator{})
}

var indicatorKey = []clause.Column{
	{Name: "organization_id"},
	{Name: "assessment_id"},
	{Name: "year"},
	{Name: "indicator_code"},
}

// UpsertIndicators inserts indicators or refreshes their values in place
func (s *GormStore) UpsertIndicators(ctx context.Context, indicators []Indicator) error {
	if len(indicators) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: indicatorKey,
		DoUpdates: clause.AssignmentColumns([]string{
			"disclosure", "name", "value", "unit", "is_mandatory", "status", "metadata", "updated_at",
		}),
	}).Create(&indicators).Error
	if err != nil {
		return fmt.Errorf("failed to upsert esrs indicators: %w", err)
	}
	return nil
}

// ListIndicators returns the stored indicators of an assessment ordered by code
func (s *GormStore) ListIndicators(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error) {
	var indicators []Indicator
	err := s.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("indicator_code").
		Find(&indicators).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list esrs indicators: %w", err)
	}
	return indicators, nil
}

// DeleteIndicators removes the named datapoints of an assessment
func (s *GormStore) DeleteIndicators(ctx context.Context, assessmentID uuid.UUID, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("assessment_id = ? AND indicator_code IN ?", assessmentID, codes).
		Delete(&Indicator{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete esrs indicators: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]Indicator
}

// NewMemoryStore creates an empty in-memory indicator store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]Indicator)}
}

func (s *MemoryStore) UpsertIndicators(ctx context.Context, indicators []Indicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ind := range indicators {
		id := IndicatorID(ind.OrganizationID, ind.AssessmentID, ind.Year, ind.IndicatorCode)
		if existing, ok := s.rows[id]; ok {
			ind.CreatedAt = existing.CreatedAt
		}
		ind.ID = id
		s.rows[id] = ind
	}
	return nil
}

func (s *MemoryStore) ListIndicators(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Indicator
	for _, ind := range s.rows {
		if ind.AssessmentID == assessmentID {
			out = append(out, ind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndicatorCode < out[j].IndicatorCode })
	return out, nil
}

func (s *MemoryStore) DeleteIndicators(ctx context.Context, assessmentID uuid.UUID, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(codes))
	for _, code := range codes {
		drop[code] = true
	}
	for id, ind := range s.rows {
		if ind.AssessmentID == assessmentID && drop[ind.IndicatorCode] {
			delete(s.rows, id)
		}
	}
	return nil
}

// Len returns the number of stored rows
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
