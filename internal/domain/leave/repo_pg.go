package leave

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

func (r *repoPG) begin(ctx context.Context) (pgx.Tx, error) {
	if c := db.ConnFromContext(ctx); c != nil {
		return c.Begin(ctx)
	}
	return r.pool.Begin(ctx)
}

const recordCols = `id, doctor_id, start_date, end_date, shift_names, reason, days_count, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.DoctorID, &rec.StartDate, &rec.EndDate,
		&rec.ShiftNames, &rec.Reason, &rec.DaysCount, &rec.CreatedAt)
	return &rec, err
}

func insertRecord(ctx context.Context, tx pgx.Tx, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO leave_record (id, doctor_id, start_date, end_date, shift_names, reason, days_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.DoctorID, rec.StartDate, rec.EndDate, rec.ShiftNames,
		rec.Reason, rec.DaysCount, rec.CreatedAt)
	return err
}

func insertAudit(ctx context.Context, tx pgx.Tx, a *AuditEntry) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO leave_audit (id, doctor_id, leave_id, action, by_user, details, dates, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.DoctorID, a.LeaveID, a.Action, a.ByUser, a.Details, a.Dates, a.CreatedAt)
	return err
}

func adjustBalance(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID, year, delta int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO leave_balance (doctor_id, year, taken)
		VALUES ($1, $2, GREATEST($3, 0))
		ON CONFLICT (doctor_id, year)
		DO UPDATE SET taken = GREATEST(leave_balance.taken + $3, 0)`,
		doctorID, year, delta)
	return err
}

func (r *repoPG) Grant(ctx context.Context, rec *Record, audit *AuditEntry) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertRecord(ctx, tx, rec); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}
	if err := adjustBalance(ctx, tx, rec.DoctorID, rec.StartDate.Year(), rec.DaysCount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) ApplyRevoke(ctx context.Context, doctorID, leaveID uuid.UUID, remainder []*Record, year, creditDays int, audit *AuditEntry) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM leave_record WHERE id = $1 AND doctor_id = $2`, leaveID, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	for _, frag := range remainder {
		if err := insertRecord(ctx, tx, frag); err != nil {
			return err
		}
	}
	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}
	if err := adjustBalance(ctx, tx, doctorID, year, -creditDays); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, leaveID uuid.UUID) (*Record, error) {
	rec, err := scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM leave_record WHERE id = $1 AND doctor_id = $2`,
		leaveID, doctorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM leave_record WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM leave_record
		WHERE doctor_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectRecords(rows)
	return items, total, err
}

func (r *repoPG) ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM leave_record
		WHERE doctor_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date`,
		doctorID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *repoPG) ListOn(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Record, error) {
	return r.ListOverlapping(ctx, doctorID, date, date)
}

func (r *repoPG) TakenCached(ctx context.Context, doctorID uuid.UUID, year int) (int, error) {
	var taken int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT taken FROM leave_balance WHERE doctor_id = $1 AND year = $2`,
		doctorID, year).Scan(&taken)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return taken, err
}

func (r *repoPG) RecomputeTaken(ctx context.Context, doctorID uuid.UUID, year int) (int, error) {
	var sum int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(days_count), 0) FROM leave_record
		WHERE doctor_id = $1 AND EXTRACT(YEAR FROM start_date) = $2`,
		doctorID, year).Scan(&sum)
	return sum, err
}

func (r *repoPG) ListAudit(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM leave_audit WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, leave_id, action, by_user, details, dates, created_at
		FROM leave_audit WHERE doctor_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AuditEntry
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.LeaveID, &a.Action,
			&a.ByUser, &a.Details, &a.Dates, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &a)
	}
	return items, total, rows.Err()
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
