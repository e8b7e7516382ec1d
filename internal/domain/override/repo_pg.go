package override

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const overrideCols = `id, doctor_id, date, whole_day, is_cancelled, delay_minutes, entries, note, created_at`

func (r *repoPG) scanOverride(row pgx.Row) (*Override, error) {
	var o Override
	var entries []byte
	err := row.Scan(&o.ID, &o.DoctorID, &o.Date, &o.WholeDay, &o.IsCancelled,
		&o.DelayMinutes, &entries, &o.Note, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if err := json.Unmarshal(entries, &o.Entries); err != nil {
			return nil, fmt.Errorf("unmarshal entries: %w", err)
		}
	}
	return &o, nil
}

func (r *repoPG) Put(ctx context.Context, o *Override) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	entries, err := json.Marshal(o.Entries)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO daily_override (id, doctor_id, date, whole_day, is_cancelled, delay_minutes, entries, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (doctor_id, date)
		DO UPDATE SET whole_day=$4, is_cancelled=$5, delay_minutes=$6, entries=$7, note=$8`,
		o.ID, o.DoctorID, o.Date, o.WholeDay, o.IsCancelled, o.DelayMinutes, entries, o.Note)
	return err
}

func (r *repoPG) Get(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Override, error) {
	o, err := r.scanOverride(r.conn(ctx).QueryRow(ctx,
		`SELECT `+overrideCols+` FROM daily_override WHERE doctor_id = $1 AND date = $2`,
		doctorID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *repoPG) Delete(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM daily_override WHERE doctor_id = $1 AND date = $2`, doctorID, date)
	return err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Override, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM daily_override WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+overrideCols+` FROM daily_override
		WHERE doctor_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Override
	for rows.Next() {
		o, err := r.scanOverride(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
