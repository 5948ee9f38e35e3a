// Package catalog_repo provides PostgreSQL lookups for the reference data the
// sales engine reads: medicines, delivery addresses and stored payment
// methods. Rows are keyed by their text ref.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"rxpos/internal/core/apperror"
	"rxpos/internal/infrastructure/storage/postgres"
)

// BaseRefRepo provides row access for entities keyed by "ref".
type BaseRefRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entity     string
	selectCols []string
}

// NewBaseRefRepo creates a repository whose columns come from T's db tags.
func NewBaseRefRepo[T any](txManager *postgres.TxManager, tableName, entity string) *BaseRefRepo[T] {
	return &BaseRefRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		entity:     entity,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseRefRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseRefRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Insert writes entity using its db tags. A duplicate ref yields CONFLICT.
func (r *BaseRefRepo[T]) Insert(ctx context.Context, entity *T) error {
	sql, args, err := r.Builder().Insert(r.tableName).SetMap(postgres.StructToMap(entity)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict(r.entity + " already exists").WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// Get returns the row with ref, or NOT_FOUND (entity=r.entity).
func (r *BaseRefRepo[T]) Get(ctx context.Context, ref string) (*T, error) {
	return r.GetWhere(ctx, squirrel.Eq{"ref": ref}, ref)
}

// GetWhere returns the single row matching where.
func (r *BaseRefRepo[T]) GetWhere(ctx context.Context, where squirrel.Sqlizer, ref string) (*T, error) {
	sql, args, err := r.Builder().Select(r.selectCols...).From(r.tableName).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	entity := new(T)
	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entity, ref)
		}
		return nil, fmt.Errorf("get %s: %w", r.entity, err)
	}
	return entity, nil
}

// Select returns all rows matching where in orderBy order.
func (r *BaseRefRepo[T]) Select(ctx context.Context, where squirrel.Sqlizer, orderBy string) ([]*T, error) {
	sql, args, err := r.Builder().Select(r.selectCols...).From(r.tableName).Where(where).OrderBy(orderBy).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := make([]*T, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return out, nil
}

// exec runs an UPDATE built by q and returns NOT_FOUND when nothing matched.
func (r *BaseRefRepo[T]) exec(ctx context.Context, q squirrel.UpdateBuilder, ref string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entity, ref)
	}
	return nil
}
