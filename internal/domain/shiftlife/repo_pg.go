package shiftlife

import (
	"context"
	"errors"
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

const instanceCols = `id, doctor_id, date, shift_name, status, started_at, ended_at`

func scanInstance(row pgx.Row) (*Instance, error) {
	var i Instance
	err := row.Scan(&i.ID, &i.DoctorID, &i.Date, &i.ShiftName, &i.Status, &i.StartedAt, &i.EndedAt)
	return &i, err
}

func (r *repoPG) Put(ctx context.Context, inst *Instance) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shift_instance (id, doctor_id, date, shift_name, status, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (doctor_id, date, shift_name)
		DO UPDATE SET status = $5, started_at = $6, ended_at = $7`,
		inst.ID, inst.DoctorID, inst.Date, inst.ShiftName, inst.Status, inst.StartedAt, inst.EndedAt)
	return err
}

func (r *repoPG) Get(ctx context.Context, doctorID uuid.UUID, date time.Time, shiftName string) (*Instance, error) {
	inst, err := scanInstance(r.conn(ctx).QueryRow(ctx, `
		SELECT `+instanceCols+` FROM shift_instance
		WHERE doctor_id = $1 AND date = $2 AND shift_name = $3`,
		doctorID, date, shiftName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inst, err
}

func (r *repoPG) ActiveFor(ctx context.Context, doctorID uuid.UUID) (*Instance, error) {
	inst, err := scanInstance(r.conn(ctx).QueryRow(ctx, `
		SELECT `+instanceCols+` FROM shift_instance
		WHERE doctor_id = $1 AND status = $2`,
		doctorID, StatusInProgress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inst, err
}

func (r *repoPG) ListByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Instance, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+instanceCols+` FROM shift_instance
		WHERE doctor_id = $1 AND date = $2 ORDER BY shift_name`,
		doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inst)
	}
	return items, rows.Err()
}
