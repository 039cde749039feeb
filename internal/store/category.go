// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"taxonomy/internal/models"
	"taxonomy/internal/tree"
)

// maxTxAttempts bounds how often a serializable transaction is retried after
// a conflict with a concurrent writer.
const maxTxAttempts = 5

// siblingNameIndex enforces (parent_id, name) uniqueness, see migrations.
const siblingNameIndex = "categories_sibling_name_key"

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CategoryStore manages categories in PostgreSQL. Parent references live on
// the categories row; the ordered children list lives in category_children.
type CategoryStore struct {
	db   *sql.DB
	q    dbtx
	inTx bool
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db, q: db}
}

// selectCategory reads a category with its children folded into a
// comma-separated list in position order.
const selectCategory = `
	SELECT c.id, c.name, c.active, c.parent_id, c.created_at, c.updated_at,
	       COALESCE((
	           SELECT string_agg(l.child_id::text, ',' ORDER BY l.position)
	           FROM category_children l
	           WHERE l.parent_id = c.id
	       ), '') AS children
	FROM categories c`

// scanCategory scans a row produced by selectCategory.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var (
		c        models.Category
		children string
	)
	err := scanner.Scan(&c.ID, &c.Name, &c.Active, &c.ParentID, &c.CreatedAt, &c.UpdatedAt, &children)
	if err != nil {
		return nil, err
	}
	c.Children, err = parseChildren(children)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func parseChildren(s string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if s == "" {
		return ids, nil
	}
	for _, part := range strings.Split(s, ",") {
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("parse child id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, selectCategory+` WHERE c.id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindSibling retrieves the category named name under parentID (nil for
// root level). Returns nil if not found.
func (s *CategoryStore) FindSibling(ctx context.Context, parentID *uuid.UUID, name string) (*models.Category, error) {
	var row *sql.Row
	if parentID == nil {
		row = s.q.QueryRowContext(ctx, selectCategory+` WHERE c.parent_id IS NULL AND c.name = $1`, name)
	} else {
		row = s.q.QueryRowContext(ctx, selectCategory+` WHERE c.parent_id = $1 AND c.name = $2`, *parentID, name)
	}
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find sibling: %w", err)
	}
	return c, nil
}

// orderClause maps a whitelisted sort field and order to SQL.
func orderClause(field models.SortField, order models.SortOrder) string {
	dir := "ASC"
	if order == models.SortDesc {
		dir = "DESC"
	}
	if field == models.SortByCreatedAt {
		return fmt.Sprintf(` ORDER BY c.created_at %s, c.id %s`, dir, dir)
	}
	return fmt.Sprintf(` ORDER BY c.name %s, c.created_at %s, c.id %s`, dir, dir, dir)
}

// whereClause renders the filter, returning the clause and its arguments.
func whereClause(f models.CategoryFilter) (string, []any) {
	if f.Active == nil {
		return "", nil
	}
	return ` WHERE c.active = $1`, []any{*f.Active}
}

// Find returns categories matching the query.
func (s *CategoryStore) Find(ctx context.Context, q models.CategoryQuery) ([]models.Category, error) {
	where, args := whereClause(q.Filter)
	query := selectCategory + where + orderClause(q.Sort, q.Order)
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Count returns the number of categories matching the filter.
func (s *CategoryStore) Count(ctx context.Context, f models.CategoryFilter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories c`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Insert creates a category row. The new category starts with no children.
func (s *CategoryStore) Insert(ctx context.Context, c *models.Category) (*models.Category, error) {
	out := models.Category{Children: []uuid.UUID{}}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO categories (name, active, parent_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, active, parent_id, created_at, updated_at`,
		c.Name, c.Active, c.ParentID,
	).Scan(&out.ID, &out.Name, &out.Active, &out.ParentID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, mapError("insert category", err)
	}
	return &out, nil
}

// UpdateFields applies the non-nil fields of u. Returns nil if id does not exist.
func (s *CategoryStore) UpdateFields(ctx context.Context, id uuid.UUID, u models.CategoryUpdate) (*models.Category, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE categories SET
			name = COALESCE($1::text, name),
			active = COALESCE($2::boolean, active),
			updated_at = NOW()
		WHERE id = $3`,
		u.Name, u.Active, id,
	)
	if err != nil {
		return nil, mapError("update category", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return s.FindByID(ctx, id)
}

// AppendChild adds childID at the end of the parent's children list.
// Appending an existing link is a no-op.
func (s *CategoryStore) AppendChild(ctx context.Context, parentID, childID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO category_children (parent_id, child_id, position)
		SELECT $1::uuid, $2::uuid, COALESCE(MAX(position), 0) + 1
		FROM category_children WHERE parent_id = $1
		ON CONFLICT (parent_id, child_id) DO NOTHING`,
		parentID, childID,
	)
	if err != nil {
		return mapError("append child", err)
	}
	return nil
}

// RemoveChild drops childID from the parent's children list.
func (s *CategoryStore) RemoveChild(ctx context.Context, parentID, childID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM category_children WHERE parent_id = $1 AND child_id = $2`,
		parentID, childID,
	)
	if err != nil {
		return mapError("remove child", err)
	}
	return nil
}

// DeleteByID removes a single category row. Its links go with it
// (ON DELETE CASCADE on category_children).
func (s *CategoryStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapError("delete category", err)
	}
	return nil
}

// WithTx runs fn inside a serializable transaction, retrying when PostgreSQL
// aborts it because of a concurrent writer. Nested calls join the outer
// transaction.
func (s *CategoryStore) WithTx(ctx context.Context, fn func(tree.NodeStore) error) error {
	if s.inTx {
		return fn(s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
		slog.Debug("retrying category transaction", "attempt", attempt, "error", err)
	}
	return err
}

func (s *CategoryStore) runTx(ctx context.Context, fn func(tree.NodeStore) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&CategoryStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit tx", err)
	}
	return nil
}

// mapError converts PostgreSQL errors the tree service understands.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == siblingNameIndex {
		return tree.ErrDuplicateSibling
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isRetryable reports serialization failures and deadlocks.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
