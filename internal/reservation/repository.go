package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/machine-booking-backend/internal/db"
)

// Repository is the reservation store. It is the only authority for the
// overlap invariant.
type Repository interface {
	Insert(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// Snapshot returns every reservation matching filter, ignoring paging and
	// sorted by start time, as of a single point in time.
	Snapshot(ctx context.Context, filter Filter) ([]*Reservation, error)

	// FindOverlapping returns reservations on resourceID with a status in
	// statuses whose interval intersects [start, end).
	FindOverlapping(ctx context.Context, resourceID string, start, end time.Time, statuses []Status) ([]*Reservation, error)

	// UpdateStatus moves the reservation to status "to" only if its current
	// status is one of "from". It returns ErrNotFound for a missing id and
	// ErrInvalidTransition when the current status does not match.
	UpdateStatus(ctx context.Context, id string, from []Status, to Status) (*Reservation, error)

	// Delete removes the reservation only if its current status is one of
	// "from", with the same errors as UpdateStatus.
	Delete(ctx context.Context, id string, from []Status) error

	// Exclusive runs fn with a repository bound to a critical section for
	// resourceID. Concurrent Exclusive calls for the same resource are
	// serialized; an error from fn aborts every write made through tx.
	Exclusive(ctx context.Context, resourceID string, fn func(ctx context.Context, tx Repository) error) error
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var selectColumns = []string{
	"b.id", "b.resource_id", "COALESCE(r.name, '')",
	"b.requester_id", "COALESCE(u.display_name, u.email, '')",
	"b.start_time", "b.end_time", "b.duration_minutes", "b.status",
	"b.created_at", "b.updated_at",
}

type pgxRepository struct {
	db   db.DBTX
	pool *pgxpool.Pool // nil when bound to a transaction
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{db: pool, pool: pool}
}

func (r *pgxRepository) Exclusive(ctx context.Context, resourceID string, fn func(ctx context.Context, tx Repository) error) error {
	if r.pool == nil {
		// Already inside a transaction holding the lock.
		return fn(ctx, r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeError("begin transaction", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	// Serializes admissions per resource across every process sharing the database.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", resourceID); err != nil {
		return storeError("lock resource", err)
	}

	if err := fn(ctx, &pgxRepository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapWriteError("commit", err)
	}
	return nil
}

func (r *pgxRepository) Insert(ctx context.Context, b *Reservation) error {
	query, args, err := psql.Insert("public.reservations").
		Columns("resource_id", "requester_id", "start_time", "end_time", "duration_minutes", "status").
		Values(b.ResourceID, b.RequesterID, b.StartTime, b.EndTime, b.DurationMinutes, b.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert reservation query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapWriteError("insert reservation", err)
	}
	return nil
}

func (r *pgxRepository) baseSelect() squirrel.SelectBuilder {
	return psql.Select(selectColumns...).
		From("public.reservations b").
		LeftJoin("public.resources r ON b.resource_id = r.id").
		LeftJoin("public.users u ON b.requester_id = u.id")
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	query, args, err := r.baseSelect().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	b, err := scanReservation(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, lookupError("get reservation", err)
	}
	return b, nil
}

// lookupError maps a failed single-row read by id. An id that does not parse
// as a uuid cannot name a row.
func lookupError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidInput(err) {
		return ErrNotFound
	}
	return storeError(op, err)
}

func applyFilter(query squirrel.SelectBuilder, filter Filter) squirrel.SelectBuilder {
	if filter.RequesterID != "" {
		query = query.Where(squirrel.Eq{"b.requester_id": filter.RequesterID})
	}
	if filter.ResourceID != "" {
		query = query.Where(squirrel.Eq{"b.resource_id": filter.ResourceID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	// Date range filtering (intersection logic)
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"b.end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"b.start_time": *filter.To})
	}
	return query
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	filter.normalize()

	query := applyFilter(r.baseSelect().Column("count(*) OVER() as total_count"), filter)

	offset := (filter.Page - 1) * filter.PageSize
	query = query.
		OrderBy("b."+filter.SortBy+" "+filter.SortOrder, "b.id").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, storeError("list reservations", err)
	}
	defer rows.Close()

	var items []*Reservation
	var total int
	for rows.Next() {
		var b Reservation
		if err := rows.Scan(
			&b.ID, &b.ResourceID, &b.ResourceName, &b.RequesterID, &b.RequesterName,
			&b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Status,
			&b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, storeError("scan reservation", err)
		}
		items = append(items, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("list reservations", err)
	}

	return items, total, nil
}

func (r *pgxRepository) Snapshot(ctx context.Context, filter Filter) ([]*Reservation, error) {
	if r.pool == nil {
		return r.snapshot(ctx, filter)
	}

	// The whole scan reads from one REPEATABLE READ snapshot.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, storeError("begin snapshot", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	items, err := (&pgxRepository{db: tx}).snapshot(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit snapshot", err)
	}
	return items, nil
}

func (r *pgxRepository) snapshot(ctx context.Context, filter Filter) ([]*Reservation, error) {
	query, args, err := applyFilter(r.baseSelect(), filter).
		OrderBy("b.start_time ASC", "b.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("snapshot reservations", err)
	}
	defer rows.Close()

	var items []*Reservation
	for rows.Next() {
		b, err := scanReservation(rows)
		if err != nil {
			return nil, storeError("scan reservation", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("snapshot reservations", err)
	}
	return items, nil
}

func (r *pgxRepository) FindOverlapping(ctx context.Context, resourceID string, start, end time.Time, statuses []Status) ([]*Reservation, error) {
	// Overlap: existing.start < new.end AND existing.end > new.start
	query, args, err := r.baseSelect().
		Where(squirrel.Eq{"b.resource_id": resourceID}).
		Where(squirrel.Eq{"b.status": statusStrings(statuses)}).
		Where(squirrel.Lt{"b.start_time": end}).
		Where(squirrel.Gt{"b.end_time": start}).
		OrderBy("b.start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overlap query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("find overlapping", err)
	}
	defer rows.Close()

	var items []*Reservation
	for rows.Next() {
		b, err := scanReservation(rows)
		if err != nil {
			return nil, storeError("scan reservation", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("find overlapping", err)
	}
	return items, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from []Status, to Status) (*Reservation, error) {
	query, args, err := psql.Update("public.reservations").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": statusStrings(from)}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update reservation status query failed: %w", err)
	}

	var updatedID string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missOrMismatch(ctx, id)
		}
		if db.IsInvalidInput(err) {
			return nil, ErrNotFound
		}
		return nil, mapWriteError("update reservation status", err)
	}

	return r.GetByID(ctx, updatedID)
}

func (r *pgxRepository) Delete(ctx context.Context, id string, from []Status) error {
	query, args, err := psql.Delete("public.reservations").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": statusStrings(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reservation query failed: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if db.IsInvalidInput(err) {
			return ErrNotFound
		}
		return storeError("delete reservation", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missOrMismatch(ctx, id)
	}
	return nil
}

// missOrMismatch explains why a conditional write touched no row.
func (r *pgxRepository) missOrMismatch(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*Reservation, error) {
	var b Reservation
	if err := row.Scan(
		&b.ID, &b.ResourceID, &b.ResourceName, &b.RequesterID, &b.RequesterName,
		&b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// mapWriteError turns constraint violations back into domain errors.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation:
			return ErrOverlap
		case pgerrcode.CheckViolation:
			return ErrInvalidTimeRange
		case pgerrcode.ForeignKeyViolation:
			if pgErr.ConstraintName == "reservations_resource_id_fkey" {
				return ErrResourceNotFound
			}
		}
	}
	return storeError(op, err)
}
