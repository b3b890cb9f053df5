package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// CalendarRepository is the secondary adapter for working-time calendar and
// holiday persistence. The seven-day grid is stored as a JSONB document.
type CalendarRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CalendarRepository = (*CalendarRepository)(nil)

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(pool *pgxpool.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

// CreateWorkingTime persists a working-time calendar.
func (r *CalendarRepository) CreateWorkingTime(ctx context.Context, wt *domain.WorkingTime) (*domain.WorkingTime, error) {
	days, err := json.Marshal(wt.Days)
	if err != nil {
		return nil, fmt.Errorf("marshal working days: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO working_times (id, type, days) VALUES ($1, $2, $3)`,
		wt.ID, string(wt.Type), days)
	if err != nil {
		return nil, err
	}
	return wt, nil
}

// GetWorkingTime retrieves a working-time calendar by its ID.
func (r *CalendarRepository) GetWorkingTime(ctx context.Context, id uuid.UUID) (*domain.WorkingTime, error) {
	var (
		wt     domain.WorkingTime
		wtType string
		days   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, type, days FROM working_times WHERE id = $1`, id).
		Scan(&wt.ID, &wtType, &days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWorkingTimeNotFound
		}
		return nil, err
	}

	wt.Type = domain.WorkingTimeType(wtType)
	if err := json.Unmarshal(days, &wt.Days); err != nil {
		return nil, fmt.Errorf("unmarshal working days for calendar %s: %w", wt.ID, err)
	}
	return &wt, nil
}

// CreateHoliday persists a holiday interval for a tenant.
func (r *CalendarRepository) CreateHoliday(ctx context.Context, h *domain.Holiday) (*domain.Holiday, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO holidays (id, tenant, name, starts_at, ends_at) VALUES ($1, $2, $3, $4, $5)`,
		h.ID, h.Tenant, h.Name, h.Start, h.End)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListHolidays retrieves every holiday registered for a tenant.
func (r *CalendarRepository) ListHolidays(ctx context.Context, tenant string) ([]domain.Holiday, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant, name, starts_at, ends_at FROM holidays WHERE tenant = $1 ORDER BY starts_at`,
		tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []domain.Holiday
	for rows.Next() {
		var h domain.Holiday
		if err := rows.Scan(&h.ID, &h.Tenant, &h.Name, &h.Start, &h.End); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
