package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the read side of the inventory consumed by the compliance scorers,
// plus the narrow set of writes the scorers are allowed to perform
type Repository interface {
	// Organizations
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	UpdateOrganizationBaseYear(ctx context.Context, org *Organization) error

	// Assessments
	GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error)
	GetAssessmentByYear(ctx context.Context, organizationID uuid.UUID, year int) (*Assessment, error)
	ListAssessmentsByYear(ctx context.Context, year int) ([]Assessment, error)
	UpdateAssessmentUncertainty(ctx context.Context, id uuid.UUID, percent *float64, methodology string) error

	// Emission records
	ListEmissionRecords(ctx context.Context, filter EmissionFilter) ([]EmissionRecord, error)
	UpdateRecordUncertainty(ctx context.Context, id uuid.UUID, update RecordUncertaintyUpdate) error

	// Targets, removals, verifications
	ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]ReductionTarget, error)
	ListRemovals(ctx context.Context, organizationID uuid.UUID, year int) ([]GhgRemoval, error)
	ListVerifications(ctx context.Context, organizationID uuid.UUID, year int) ([]GhgVerification, error)

	// Energy management
	GetCurrentEnergyBaseline(ctx context.Context, organizationID uuid.UUID) (*EnergyBaseline, error)
	SaveEnergyBaseline(ctx context.Context, baseline *EnergyBaseline) error
	GetEnergyReview(ctx context.Context, organizationID uuid.UUID, year int) (*EnergyReview, error)
	SaveEnergyReview(ctx context.Context, review *EnergyReview) error
	ListEnergyPerformanceIndicators(ctx context.Context, organizationID uuid.UUID, year int) ([]EnergyPerformanceIndicator, error)
	UpsertEnergyPerformanceIndicators(ctx context.Context, enpis []EnergyPerformanceIndicator) error
	ListEnergyTargets(ctx context.Context, organizationID uuid.UUID) ([]EnergyTarget, error)
	ListEnergyAudits(ctx context.Context, organizationID uuid.UUID) ([]EnergyAudit, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// =====================================================
// Organizations
// =====================================================

func (r *PostgresRepository) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var org Organization
	err := r.db.GetContext(ctx, &org, `SELECT * FROM organizations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (r *PostgresRepository) UpdateOrganizationBaseYear(ctx context.Context, org *Organization) error {
	query := `
		UPDATE organizations SET
			base_year = :base_year,
			base_year_scope1_tonnes = :base_year_scope1_tonnes,
			base_year_scope2_tonnes = :base_year_scope2_tonnes,
			base_year_scope3_tonnes = :base_year_scope3_tonnes,
			base_year_total_tonnes = :base_year_total_tonnes,
			recalculation_policy = :recalculation_policy,
			recalculation_threshold_percent = :recalculation_threshold_percent,
			updated_at = NOW()
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, org)
	if err != nil {
		return fmt.Errorf("failed to update base year: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("organization %s: %w", org.ID, ErrNotFound)
	}

	return nil
}

// =====================================================
// Assessments
// =====================================================

func (r *PostgresRepository) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	var a Assessment
	err := r.db.GetContext(ctx, &a, `SELECT * FROM assessments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) GetAssessmentByYear(ctx context.Context, organizationID uuid.UUID, year int) (*Assessment, error) {
	var a Assessment
	err := r.db.GetContext(ctx, &a,
		`SELECT * FROM assessments WHERE organization_id = $1 AND year = $2 ORDER BY created_at DESC LIMIT 1`,
		organizationID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assessment for %s/%d: %w", organizationID, year, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListAssessmentsByYear(ctx context.Context, year int) ([]Assessment, error) {
	var assessments []Assessment
	if err := r.db.SelectContext(ctx, &assessments,
		`SELECT * FROM assessments WHERE year = $1 ORDER BY organization_id`, year); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, nil
}

func (r *PostgresRepository) UpdateAssessmentUncertainty(ctx context.Context, id uuid.UUID, percent *float64, methodology string) error {
	query := `
		UPDATE assessments SET
			overall_uncertainty_percent = $2,
			uncertainty_methodology = $3,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, percent, methodology)
	if err != nil {
		return fmt.Errorf("failed to update assessment uncertainty: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}

	return nil
}

// =====================================================
// Emission Records
// =====================================================

func (r *PostgresRepository) ListEmissionRecords(ctx context.Context, filter EmissionFilter) ([]EmissionRecord, error) {
	var conditions []string
	var args []interface{}
	argCount := 0

	if filter.OrganizationID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", argCount))
		args = append(args, *filter.OrganizationID)
	}
	if filter.AssessmentID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("assessment_id = $%d", argCount))
		args = append(args, *filter.AssessmentID)
	}
	if filter.Year != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("year = $%d", argCount))
		args = append(args, *filter.Year)
	}
	if filter.Scope != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("scope = $%d", argCount))
		args = append(args, *filter.Scope)
	}

	query := `SELECT * FROM emission_records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scope, category, id"

	var records []EmissionRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list emission records: %w", err)
	}
	return records, nil
}

func (r *PostgresRepository) UpdateRecordUncertainty(ctx context.Context, id uuid.UUID, update RecordUncertaintyUpdate) error {
	query := `
		UPDATE emission_records SET
			ef_uncertainty_percent = $2,
			activity_uncertainty_percent = $3,
			uncertainty_percent = $4,
			uncertainty_low_kg = $5,
			uncertainty_high_kg = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id,
		update.EfUncertaintyPercent, update.ActivityUncertaintyPercent,
		update.UncertaintyPercent, update.UncertaintyLowKg, update.UncertaintyHighKg,
	)
	if err != nil {
		return fmt.Errorf("failed to update record uncertainty: %w", err)
	}
	return nil
}

// =====================================================
// Targets, Removals, Verifications
// =====================================================

func (r *PostgresRepository) ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]ReductionTarget, error) {
	var targets []ReductionTarget
	if err := r.db.SelectContext(ctx, &targets,
		`SELECT * FROM reduction_targets WHERE organization_id = $1 ORDER BY target_year, baseline_year`,
		organizationID); err != nil {
		return nil, fmt.Errorf("failed to list reduction targets: %w", err)
	}
	return targets, nil
}

func (r *PostgresRepository) ListRemovals(ctx context.Context, organizationID uuid.UUID, year int) ([]GhgRemoval, error) {
	var removals []GhgRemoval
	if err := r.db.SelectContext(ctx, &removals,
		`SELECT * FROM ghg_removals WHERE organization_id = $1 AND year = $2 ORDER BY removal_type, id`,
		organizationID, year); err != nil {
		return nil, fmt.Errorf("failed to list removals: %w", err)
	}
	return removals, nil
}

func (r *PostgresRepository) ListVerifications(ctx context.Context, organizationID uuid.UUID, year int) ([]GhgVerification, error) {
	var verifications []GhgVerification
	if err := r.db.SelectContext(ctx, &verifications,
		`SELECT * FROM ghg_verifications WHERE organization_id = $1 AND year = $2 ORDER BY created_at DESC`,
		organizationID, year); err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return verifications, nil
}

// =====================================================
// Energy Management
// =====================================================

func (r *PostgresRepository) GetCurrentEnergyBaseline(ctx context.Context, organizationID uuid.UUID) (*EnergyBaseline, error) {
	var b EnergyBaseline
	err := r.db.GetContext(ctx, &b,
		`SELECT * FROM energy_baselines WHERE organization_id = $1 AND is_current = TRUE ORDER BY baseline_year DESC LIMIT 1`,
		organizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get energy baseline: %w", err)
	}
	return &b, nil
}

// SaveEnergyBaseline stores a baseline and makes it the only current one
func (r *PostgresRepository) SaveEnergyBaseline(ctx context.Context, baseline *EnergyBaseline) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE energy_baselines SET is_current = FALSE WHERE organization_id = $1`,
		baseline.OrganizationID); err != nil {
		return fmt.Errorf("failed to retire energy baselines: %w", err)
	}

	query := `
		INSERT INTO energy_baselines (
			id, organization_id, baseline_year, total_mwh, mwh_per_m2, mwh_per_employee, is_current, created_at
		) VALUES (
			:id, :organization_id, :baseline_year, :total_mwh, :mwh_per_m2, :mwh_per_employee, :is_current, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			total_mwh = EXCLUDED.total_mwh,
			mwh_per_m2 = EXCLUDED.mwh_per_m2,
			mwh_per_employee = EXCLUDED.mwh_per_employee,
			is_current = EXCLUDED.is_current
	`
	if _, err := tx.NamedExecContext(ctx, query, baseline); err != nil {
		return fmt.Errorf("failed to save energy baseline: %w", err)
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetEnergyReview(ctx context.Context, organizationID uuid.UUID, year int) (*EnergyReview, error) {
	var review EnergyReview
	err := r.db.GetContext(ctx, &review,
		`SELECT * FROM energy_reviews WHERE organization_id = $1 AND year = $2`,
		organizationID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get energy review: %w", err)
	}
	return &review, nil
}

func (r *PostgresRepository) SaveEnergyReview(ctx context.Context, review *EnergyReview) error {
	query := `
		INSERT INTO energy_reviews (id, organization_id, year, total_mwh, seu_count, reviewed_at)
		VALUES (:id, :organization_id, :year, :total_mwh, :seu_count, :reviewed_at)
		ON CONFLICT (organization_id, year) DO UPDATE SET
			total_mwh = EXCLUDED.total_mwh,
			seu_count = EXCLUDED.seu_count,
			reviewed_at = EXCLUDED.reviewed_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("failed to save energy review: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListEnergyPerformanceIndicators(ctx context.Context, organizationID uuid.UUID, year int) ([]EnergyPerformanceIndicator, error) {
	var enpis []EnergyPerformanceIndicator
	if err := r.db.SelectContext(ctx, &enpis,
		`SELECT * FROM energy_performance_indicators WHERE organization_id = $1 AND year = $2 ORDER BY code`,
		organizationID, year); err != nil {
		return nil, fmt.Errorf("failed to list energy performance indicators: %w", err)
	}
	return enpis, nil
}

func (r *PostgresRepository) UpsertEnergyPerformanceIndicators(ctx context.Context, enpis []EnergyPerformanceIndicator) error {
	if len(enpis) == 0 {
		return nil
	}

	query := `
		INSERT INTO energy_performance_indicators (
			id, organization_id, year, code, name, unit, value, baseline_value, improvement_percent, calculated_at
		) VALUES (
			:id, :organization_id, :year, :code, :name, :unit, :value, :baseline_value, :improvement_percent, :calculated_at
		)
		ON CONFLICT (organization_id, year, code) DO UPDATE SET
			name = EXCLUDED.name,
			unit = EXCLUDED.unit,
			value = EXCLUDED.value,
			baseline_value = EXCLUDED.baseline_value,
			improvement_percent = EXCLUDED.improvement_percent,
			calculated_at = EXCLUDED.calculated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, enpis); err != nil {
		return fmt.Errorf("failed to upsert energy performance indicators: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListEnergyTargets(ctx context.Context, organizationID uuid.UUID) ([]EnergyTarget, error) {
	var targets []EnergyTarget
	if err := r.db.SelectContext(ctx, &targets,
		`SELECT * FROM energy_targets WHERE organization_id = $1 ORDER BY target_year`,
		organizationID); err != nil {
		return nil, fmt.Errorf("failed to list energy targets: %w", err)
	}
	return targets, nil
}

func (r *PostgresRepository) ListEnergyAudits(ctx context.Context, organizationID uuid.UUID) ([]EnergyAudit, error) {
	var audits []EnergyAudit
	if err := r.db.SelectContext(ctx, &audits,
		`SELECT * FROM energy_audits WHERE organization_id = $1 ORDER BY audit_date DESC`,
		organizationID); err != nil {
		return nil, fmt.Errorf("failed to list energy audits: %w", err)
	}
	return audits, nil
}
