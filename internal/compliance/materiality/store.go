package materiality

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTopicNotFound is returned when no assessment row exists for a topic
var ErrTopicNotFound = errors.New("materiality topic not found")

// Store persists topic assessments keyed by organization, year and topic
type Store interface {
	CreateIfAbsent(ctx context.Context, rows []Assessment) error
	List(ctx context.Context, organizationID uuid.UUID, year int) ([]Assessment, error)
	Get(ctx context.Context, organizationID uuid.UUID, year int, topicCode string) (*Assessment, error)
	Upsert(ctx context.Context, rows []Assessment) error
}

// GormStore implements Store on PostgreSQL via gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm-backed materiality store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the materiality table
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Assessment{})
}

var assessmentKey = []clause.Column{
	{Name: "organization_id"},
	{Name: "year"},
	{Name: "topic_code"},
}

func (s *GormStore) CreateIfAbsent(ctx context.Context, rows []Assessment) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: assessmentKey, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to initialize materiality topics: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, organizationID uuid.UUID, year int) ([]Assessment, error) {
	var rows []Assessment
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND year = ?", organizationID, year).
		Order("topic_code").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list materiality assessments: %w", err)
	}
	return rows, nil
}

func (s *GormStore) Get(ctx context.Context, organizationID uuid.UUID, year int, topicCode string) (*Assessment, error) {
	var row Assessment
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND year = ? AND topic_code = ?", organizationID, year, topicCode).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s/%d/%s: %w", organizationID, year, topicCode, ErrTopicNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get materiality assessment: %w", err)
	}
	return &row, nil
}

func (s *GormStore) Upsert(ctx context.Context, rows []Assessment) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: assessmentKey,
		DoUpdates: clause.AssignmentColumns([]string{
			"impact_severity", "impact_likelihood", "impact_score", "impact_rationale",
			"financial_magnitude", "financial_likelihood", "financial_score", "financial_rationale",
			"combined_score", "is_material", "materiality_type",
			"impact_assessed_by", "financial_assessed_by",
			"assessed_by", "assessed_at", "approved_by", "approved_at", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save materiality assessments: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]Assessment
}

// NewMemoryStore creates an empty in-memory materiality store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]Assessment)}
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, rows []Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		id := AssessmentID(row.OrganizationID, row.Year, row.TopicCode)
		if _, ok := s.rows[id]; ok {
			continue
		}
		row.ID = id
		s.rows[id] = row
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, organizationID uuid.UUID, year int) ([]Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Assessment
	for _, row := range s.rows {
		if row.OrganizationID == organizationID && row.Year == year {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicCode < out[j].TopicCode })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, organizationID uuid.UUID, year int, topicCode string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[AssessmentID(organizationID, year, topicCode)]
	if !ok {
		return nil, fmt.Errorf("%s/%d/%s: %w", organizationID, year, topicCode, ErrTopicNotFound)
	}
	return &row, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rows []Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		id := AssessmentID(row.OrganizationID, row.Year, row.TopicCode)
		row.ID = id
		s.rows[id] = row
	}
	return nil
}
