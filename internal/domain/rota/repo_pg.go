package rota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinrota/clinrota/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository { return &templateRepoPG{pool: pool} }

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *templateRepoPG) Put(ctx context.Context, t *DayTemplate) error {
	shifts, err := json.Marshal(t.Shifts)
	if err != nil {
		return fmt.Errorf("marshal shifts: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO rota_day_template (doctor_id, day_of_week, is_available, shifts, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (doctor_id, day_of_week)
		DO UPDATE SET is_available = $3, shifts = $4, updated_at = NOW()`,
		t.DoctorID, t.DayOfWeek, t.IsAvailable, shifts)
	return err
}

func (r *templateRepoPG) scanTemplate(row pgx.Row) (*DayTemplate, error) {
	var t DayTemplate
	var shifts []byte
	if err := row.Scan(&t.DoctorID, &t.DayOfWeek, &t.IsAvailable, &shifts, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(shifts) > 0 {
		if err := json.Unmarshal(shifts, &t.Shifts); err != nil {
			return nil, fmt.Errorf("unmarshal shifts: %w", err)
		}
	}
	return &t, nil
}

func (r *templateRepoPG) GetDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*DayTemplate, error) {
	t, err := r.scanTemplate(r.conn(ctx).QueryRow(ctx, `
		SELECT doctor_id, day_of_week, is_available, shifts, updated_at
		FROM rota_day_template WHERE doctor_id = $1 AND day_of_week = $2`,
		doctorID, dayOfWeek))
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent template is a valid "doctor off" outcome, not an error.
		return nil, nil
	}
	return t, err
}

func (r *templateRepoPG) GetWeek(ctx context.Context, doctorID uuid.UUID) ([]*DayTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT doctor_id, day_of_week, is_available, shifts, updated_at
		FROM rota_day_template WHERE doctor_id = $1 ORDER BY day_of_week`,
		doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DayTemplate
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// =========== Special Shift Repository ===========

type specialRepoPG struct{ pool *pgxpool.Pool }

func NewSpecialShiftRepoPG(pool *pgxpool.Pool) SpecialShiftRepository {
	return &specialRepoPG{pool: pool}
}

func (r *specialRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const specialCols = `id, doctor_id, date, shift_name, start_time, end_time, max_capacity, status, created_at`

func (r *specialRepoPG) scanSpecial(row pgx.Row) (*SpecialShift, error) {
	var s SpecialShift
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.ShiftName, &s.StartTime,
		&s.EndTime, &s.MaxCapacity, &s.Status, &s.CreatedAt)
	return &s, err
}

func (r *specialRepoPG) Create(ctx context.Context, s *SpecialShift) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO special_shift (id, doctor_id, date, shift_name, start_time, end_time, max_capacity, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.DoctorID, s.Date, s.ShiftName, s.StartTime, s.EndTime, s.MaxCapacity, s.Status)
	return err
}

func (r *specialRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*SpecialShift, error) {
	s, err := r.scanSpecial(r.conn(ctx).QueryRow(ctx,
		`SELECT `+specialCols+` FROM special_shift WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *specialRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE special_shift SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: special shift %s", ErrNotFound, id)
	}
	return nil
}

func (r *specialRepoPG) ListByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*SpecialShift, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+specialCols+` FROM special_shift
		WHERE doctor_id = $1 AND date = $2 ORDER BY created_at`,
		doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SpecialShift
	for rows.Next() {
		s, err := r.scanSpecial(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *specialRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*SpecialShift, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM special_shift WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+specialCols+` FROM special_shift
		WHERE doctor_id = $1 ORDER BY date DESC, created_at LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*SpecialShift
	for rows.Next() {
		s, err := r.scanSpecial(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
