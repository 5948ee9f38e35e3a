// Package document_repo stores sales aggregates as JSONB documents next to
// the few columns needed for lookups, uniqueness and optimistic locking.
package document_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/id"
	"rxpos/internal/infrastructure/storage/postgres"
)

const uniqueViolation = "23505"

// Document is an aggregate with identity and an optimistic-lock version.
type Document interface {
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
}

// BaseDocumentRepo provides versioned CRUD over a JSONB document table.
type BaseDocumentRepo[T Document] struct {
	txManager *postgres.TxManager
	tableName string
	entity    string
	newFn     func() T
	project   func(T) map[string]any
	orderCols []string
}

// NewBaseDocumentRepo creates a repository over tableName. project returns
// the lookup columns of a document; id, version, doc and timestamps are
// managed here. orderCols whitelists ORDER BY fields.
func NewBaseDocumentRepo[T Document](
	txManager *postgres.TxManager,
	tableName, entity string,
	newFn func() T,
	project func(T) map[string]any,
	orderCols []string,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager: txManager,
		tableName: tableName,
		entity:    entity,
		newFn:     newFn,
		project:   project,
		orderCols: orderCols,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the transaction in ctx or the pool.
func (r *BaseDocumentRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts doc with version 1. A unique violation yields CONFLICT.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, doc T) error {
	doc.SetVersion(1)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", r.entity, err)
	}

	data := r.project(doc)
	data["id"] = doc.GetID()
	data["version"] = 1
	data["doc"] = raw

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.NewConflict(r.entity+" already exists").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// Update writes doc when the stored version equals doc's and bumps both.
// On mismatch doc keeps its version and CONCURRENT_MODIFICATION is returned.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, doc T) error {
	old := doc.GetVersion()
	doc.SetVersion(old + 1)
	raw, err := json.Marshal(doc)
	if err != nil {
		doc.SetVersion(old)
		return fmt.Errorf("marshal %s: %w", r.entity, err)
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(r.project(doc)).
		Set("doc", raw).
		Set("version", old+1).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": doc.GetID(), "version": old}).
		ToSql()
	if err != nil {
		doc.SetVersion(old)
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		doc.SetVersion(old)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.NewConflict(r.entity+" identifier already in use").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	doc.SetVersion(old)
	exists, err := r.Exists(ctx, squirrel.Eq{"id": doc.GetID()})
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFound(r.entity, doc.GetID().String())
	}
	return apperror.NewConcurrentModification(r.entity, doc.GetID().String())
}

type docRow struct {
	Version int    `db:"version"`
	Doc     []byte `db:"doc"`
}

func (r *BaseDocumentRepo[T]) decode(row docRow) (T, error) {
	doc := r.newFn()
	if err := json.Unmarshal(row.Doc, doc); err != nil {
		return doc, fmt.Errorf("unmarshal %s: %w", r.entity, err)
	}
	// the column is authoritative
	doc.SetVersion(row.Version)
	return doc, nil
}

// GetByID retrieves a document by primary key.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, docID id.ID) (T, error) {
	return r.GetOne(ctx, squirrel.Eq{"id": docID}, "", docID.String())
}

// GetOne returns the first document matching where in orderBy order.
// notFoundID is reported in the NOT_FOUND error.
func (r *BaseDocumentRepo[T]) GetOne(ctx context.Context, where squirrel.Sqlizer, orderBy string, notFoundID string) (T, error) {
	q := r.Builder().Select("version", "doc").From(r.tableName).Where(where).Limit(1)
	if orderBy != "" {
		q = q.OrderBy(orderBy)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("build query: %w", err)
	}

	var row docRow
	if err := pgxscan.Get(ctx, r.Querier(ctx), &row, sql, args...); err != nil {
		var zero T
		if pgxscan.NotFound(err) {
			return zero, apperror.NewNotFound(r.entity, notFoundID)
		}
		return zero, fmt.Errorf("get %s: %w", r.entity, err)
	}
	return r.decode(row)
}

// Page is one page of documents plus the unpaged count.
type Page[T any] struct {
	Items      []T
	TotalCount int64
}

// List returns documents matching where, ordered by orderBy ("-col" for
// descending) and paged by limit/offset.
func (r *BaseDocumentRepo[T]) List(ctx context.Context, where squirrel.Sqlizer, orderBy string, limit, offset int) (Page[T], error) {
	page := Page[T]{Items: make([]T, 0)}

	order, err := r.ParseOrderBy(orderBy)
	if err != nil {
		return page, err
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").From(r.tableName).Where(where).ToSql()
	if err != nil {
		return page, fmt.Errorf("build count: %w", err)
	}
	q := r.Querier(ctx)
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&page.TotalCount); err != nil {
		return page, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	sel := r.Builder().Select("version", "doc").From(r.tableName).Where(where).OrderBy(order, "id")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	if offset > 0 {
		sel = sel.Offset(uint64(offset))
	}
	sql, args, err := sel.ToSql()
	if err != nil {
		return page, fmt.Errorf("build query: %w", err)
	}

	var rows []docRow
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return page, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	for _, row := range rows {
		doc, err := r.decode(row)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, doc)
	}
	return page, nil
}

// Exists reports whether any row matches where.
func (r *BaseDocumentRepo[T]) Exists(ctx context.Context, where squirrel.Sqlizer) (bool, error) {
	sub, args, err := r.Builder().Select("1").From(r.tableName).Where(where).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var exists bool
	if err := r.Querier(ctx).QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", r.tableName, err)
	}
	return exists, nil
}

// Delete removes rows matching where and returns how many went.
func (r *BaseDocumentRepo[T]) Delete(ctx context.Context, where squirrel.Sqlizer) (int64, error) {
	sql, args, err := r.Builder().Delete(r.tableName).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	return tag.RowsAffected(), nil
}

// ParseOrderBy turns "-col" / "+col" / "col" into a whitelisted ORDER BY term.
func (r *BaseDocumentRepo[T]) ParseOrderBy(orderBy string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return "created_at DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	field = strings.TrimSpace(field)

	allowed := field == "created_at" || field == "updated_at"
	for _, col := range r.orderCols {
		if col == field {
			allowed = true
			break
		}
	}
	if field == "" || !allowed {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}
	return field + " " + direction, nil
}
