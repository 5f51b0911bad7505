package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// CategoryRepo stores the catalog tree. Categories nest one level deep
// through parent_id.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categorySelect = `SELECT c.id, c.name, c.slug, c.description, c.image_url, c.parent_id, c.sort_order, c.is_active, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id),
	(SELECT COUNT(*) FROM categories k WHERE k.parent_id = c.id)
	FROM categories c`

func scanCategory(row interface{ Scan(...any) error }, c *model.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.ParentID, &c.SortOrder, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt, &c.ProductCount, &c.ChildCount)
}

// List returns categories ordered for display. activeOnly hides disabled
// rows for the storefront.
func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	q := categorySelect
	var args []any
	if activeOnly {
		q += " WHERE c.is_active = ?"
		args = append(args, true)
	}
	q += " ORDER BY c.sort_order, c.name"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	if err := scanCategory(r.db.QueryRowContext(ctx, categorySelect+" WHERE c.id = ?", id), &c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var c model.Category
	if err := scanCategory(r.db.QueryRowContext(ctx, categorySelect+" WHERE c.slug = ?", slug), &c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Create inserts c, deriving the slug from the name when it is empty.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	if strings.TrimSpace(c.Slug) == "" {
		c.Slug = model.Slugify(c.Name)
	}
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, slug, description, image_url, parent_id, sort_order, is_active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.Name, c.Slug, c.Description, c.ImageURL, c.ParentID, c.SortOrder, c.IsActive, ts, ts)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID, c.CreatedAt, c.UpdatedAt = uint64(id), ts, ts
	return nil
}

// CategoryPatch lists the columns an update may touch; nil leaves the
// column alone. ClearParent moves the category back to the top level.
type CategoryPatch struct {
	Name        *string
	Slug        *string
	Description *string
	ImageURL    *string
	ParentID    *uint64
	ClearParent bool
	SortOrder   *int
	IsActive    *bool
}

func (r *CategoryRepo) Update(ctx context.Context, id uint64, p CategoryPatch) error {
	sets := []string{"updated_at=?"}
	args := []any{now()}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Slug != nil {
		add("slug", *p.Slug)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.ImageURL != nil {
		add("image_url", *p.ImageURL)
	}
	switch {
	case p.ClearParent:
		add("parent_id", nil)
	case p.ParentID != nil:
		add("parent_id", *p.ParentID)
	}
	if p.SortOrder != nil {
		add("sort_order", *p.SortOrder)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE categories SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return affectedOrNotFound(res, err)
}

// Delete removes a category that has neither products nor subcategories.
// Otherwise it returns an *InUseError carrying both counts and leaves the
// row in place.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var c model.Category
		if err := scanCategory(tx.QueryRowContext(ctx, categorySelect+" WHERE c.id = ?", id), &c); err != nil {
			return notFound(err)
		}
		if c.ProductCount > 0 || c.ChildCount > 0 {
			return &InUseError{What: "category", Counts: map[string]int{
				"products":      c.ProductCount,
				"subcategories": c.ChildCount,
			}}
		}
		return affectedOrNotFound(tx.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id))
	})
}
