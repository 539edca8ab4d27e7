// Package scheduler periodically recalculates the stored ESRS datapoints and inventory
// uncertainty of every assessment of the previous reporting year.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/uncertainty"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// AssessmentLister lists the assessments of a reporting year
type AssessmentLister interface {
	ListAssessmentsByYear(ctx context.Context, year int) ([]inventory.Assessment, error)
}

// IndicatorCalculator recalculates and stores the ESRS datapoints of an assessment
type IndicatorCalculator interface {
	CalculateAll(ctx context.Context, assessmentID uuid.UUID) ([]esrs.Indicator, error)
}

// UncertaintyUpdater backfills record and assessment uncertainty
type UncertaintyUpdater interface {
	UpdateRecordUncertainties(ctx context.Context, assessmentID uuid.UUID) (int, error)
	UpdateAssessmentUncertainty(ctx context.Context, assessmentID uuid.UUID) (*uncertainty.AssessmentUncertainty, error)
}

// Invalidator drops cached reports of an organization
type Invalidator interface {
	InvalidateOrganization(organizationID uuid.UUID) int
}

// Config configures the recalculation manager
type Config struct {
	Schedule      string        `json:"schedule"`
	MaxConcurrent int           `json:"max_concurrent"`
	RunTimeout    time.Duration `json:"run_timeout"`
}

// DefaultConfig returns a nightly schedule
func DefaultConfig() Config {
	return Config{
		Schedule:      "0 2 * * *",
		MaxConcurrent: 4,
		RunTimeout:    30 * time.Minute,
	}
}

// RunResult summarizes one recalculation run
type RunResult struct {
	Year        int           `json:"year"`
	Assessments int           `json:"assessments"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
}

// Manager runs the recalculation on a cron schedule
type Manager struct {
	cron        *cron.Cron
	entryID     cron.EntryID
	assessments AssessmentLister
	indicators  IndicatorCalculator
	uncertainty UncertaintyUpdater
	cache       Invalidator
	config      Config
	logger      *zap.Logger
	now         func() time.Time
	mu          sync.Mutex
	running     bool
}

// NewManager creates a recalculation manager. cache may be nil.
func NewManager(
	assessments AssessmentLister,
	indicators IndicatorCalculator,
	uncertainty UncertaintyUpdater,
	cache Invalidator,
	logger *zap.Logger,
	config Config,
) *Manager {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultConfig().RunTimeout
	}
	return &Manager{
		cron:        cron.New(),
		assessments: assessments,
		indicators:  indicators,
		uncertainty: uncertainty,
		cache:       cache,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// ValidateSchedule checks a standard five-field cron expression
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Start registers the recalculation job and starts the cron scheduler
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("recalculation manager already running")
	}

	entryID, err := m.cron.AddFunc(m.config.Schedule, m.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	m.entryID = entryID
	m.cron.Start()
	m.running = true

	m.logger.Info("Started recalculation manager",
		zap.String("schedule", m.config.Schedule),
		zap.Time("next_run", m.cron.Entry(entryID).Next))

	return nil
}

// ReportingYear is the year a scheduled run recalculates: the last closed calendar year
func (m *Manager) ReportingYear() int {
	return m.now().Year() - 1
}

func (m *Manager) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.RunTimeout)
	defer cancel()
	if _, err := m.RunOnce(ctx, m.ReportingYear()); err != nil {
		m.logger.Error("Scheduled recalculation failed", zap.Error(err))
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.logger.Info("Stopping recalculation manager")
	<-m.cron.Stop().Done()
	m.cron.Remove(m.entryID)
	m.running = false
}

// NextRun returns the next scheduled run, or the zero time when stopped
func (m *Manager) NextRun() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return time.Time{}
	}
	return m.cron.Entry(m.entryID).Next
}

// RunOnce recalculates every assessment of a year. Failures of single assessments are logged
// and counted; only a failure to list assessments is returned.
func (m *Manager) RunOnce(ctx context.Context, year int) (*RunResult, error) {
	started := time.Now()

	assessments, err := m.assessments.ListAssessmentsByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	result := &RunResult{Year: year, Assessments: len(assessments)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, m.config.MaxConcurrent)

	for _, a := range assessments {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)

		go func(assessment inventory.Assessment) {
			defer wg.Done()
			defer func() { <-sem }()

			err := m.recalculate(ctx, assessment)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				m.logger.Error("Failed to recalculate assessment",
					zap.String("assessment_id", assessment.ID.String()),
					zap.Error(err))
				return
			}
			result.Succeeded++
		}(a)
	}
	wg.Wait()

	result.Duration = time.Since(started)
	m.logger.Info("Recalculation completed",
		zap.Int("year", year),
		zap.Int("assessments", result.Assessments),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (m *Manager) recalculate(ctx context.Context, a inventory.Assessment) error {
	if _, err := m.indicators.CalculateAll(ctx, a.ID); err != nil {
		return fmt.Errorf("failed to calculate ESRS indicators: %w", err)
	}
	if _, err := m.uncertainty.UpdateRecordUncertainties(ctx, a.ID); err != nil {
		return fmt.Errorf("failed to update record uncertainty: %w", err)
	}
	if _, err := m.uncertainty.UpdateAssessmentUncertainty(ctx, a.ID); err != nil {
		return fmt.Errorf("failed to update assessment uncertainty: %w", err)
	}
	if m.cache != nil {
		m.cache.InvalidateOrganization(a.OrganizationID)
	}
	return nil
}
