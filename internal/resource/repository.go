package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/machine-booking-backend/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	const query = `
		SELECT id, name, model, status, display_order, created_at
		FROM public.resources
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var res Resource
	if err := row.Scan(&res.ID, &res.Name, &res.Model, &res.Status, &res.DisplayOrder, &res.CreatedAt); err != nil {
		return nil, lookupError(err)
	}
	return &res, nil
}

// lookupError maps a failed read by id. A malformed id matches no resource.
func lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidInput(err) {
		return ErrNotFound
	}
	return fmt.Errorf("get resource failed: %w", err)
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	var args []any
	queryBase := `
		SELECT id, name, model, status, display_order, created_at, count(*) OVER() as total_count
		FROM public.resources
		WHERE 1=1
	`
	paramIndex := 1

	if filter.Status != "" {
		queryBase += fmt.Sprintf(" AND status = $%d", paramIndex)
		args = append(args, filter.Status)
		paramIndex++
	}

	queryBase += " ORDER BY display_order ASC, name ASC"

	offset := (filter.Page - 1) * filter.PageSize
	queryBase += fmt.Sprintf(" LIMIT $%d OFFSET $%d", paramIndex, paramIndex+1)
	args = append(args, filter.PageSize, offset)

	rows, err := r.pool.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}
	defer rows.Close()

	var result []*Resource
	var total int

	for rows.Next() {
		var res Resource
		if err := rows.Scan(
			&res.ID, &res.Name, &res.Model, &res.Status, &res.DisplayOrder, &res.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan resource failed: %w", err)
		}
		result = append(result, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}

	return result, total, nil
}
