package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// BannerRepo stores the promotional banners shown on the storefront.
type BannerRepo struct {
	db *sql.DB
}

func NewBannerRepo(db *sql.DB) *BannerRepo { return &BannerRepo{db: db} }

const bannerSelect = `SELECT id, title, subtitle, image_url, link_url, button_text, position, sort_order, is_active,
	start_date, end_date, created_at, updated_at FROM banners`

func scanBanner(row interface{ Scan(...any) error }, b *model.Banner) error {
	return row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.ImageURL, &b.LinkURL, &b.ButtonText, &b.Position, &b.SortOrder,
		&b.IsActive, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.UpdatedAt)
}

// List returns banners in display order, optionally for one position.
// Whether a banner is live depends on the clock and is derived by the
// caller.
func (r *BannerRepo) List(ctx context.Context, position string) ([]model.Banner, error) {
	q := bannerSelect
	var args []any
	if position != "" {
		q += " WHERE position = ?"
		args = append(args, position)
	}
	q += " ORDER BY position, sort_order, id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Banner{}
	for rows.Next() {
		var b model.Banner
		if err := scanBanner(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BannerRepo) GetByID(ctx context.Context, id uint64) (*model.Banner, error) {
	var b model.Banner
	if err := scanBanner(r.db.QueryRowContext(ctx, bannerSelect+" WHERE id = ?", id), &b); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BannerRepo) Create(ctx context.Context, b *model.Banner) error {
	ts := now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO banners (title, subtitle, image_url, link_url, button_text, position, sort_order,
		is_active, start_date, end_date, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.Title, b.Subtitle, b.ImageURL, b.LinkURL, b.ButtonText, b.Position, b.SortOrder,
		b.IsActive, utcPtr(b.StartDate), utcPtr(b.EndDate), ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID, b.CreatedAt, b.UpdatedAt = uint64(id), ts, ts
	return nil
}

// BannerPatch lists the columns an update may touch. The Clear flags
// remove a scheduling bound.
type BannerPatch struct {
	Title          *string
	Subtitle       *string
	ImageURL       *string
	LinkURL        *string
	ButtonText     *string
	Position       *string
	SortOrder      *int
	IsActive       *bool
	StartDate      *time.Time
	ClearStartDate bool
	EndDate        *time.Time
	ClearEndDate   bool
}

func (r *BannerRepo) Update(ctx context.Context, id uint64, p BannerPatch) error {
	sets := []string{"updated_at=?"}
	args := []any{now()}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Subtitle != nil {
		add("subtitle", *p.Subtitle)
	}
	if p.ImageURL != nil {
		add("image_url", *p.ImageURL)
	}
	if p.LinkURL != nil {
		add("link_url", *p.LinkURL)
	}
	if p.ButtonText != nil {
		add("button_text", *p.ButtonText)
	}
	if p.Position != nil {
		add("position", *p.Position)
	}
	if p.SortOrder != nil {
		add("sort_order", *p.SortOrder)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	switch {
	case p.ClearStartDate:
		add("start_date", nil)
	case p.StartDate != nil:
		add("start_date", p.StartDate.UTC())
	}
	switch {
	case p.ClearEndDate:
		add("end_date", nil)
	case p.EndDate != nil:
		add("end_date", p.EndDate.UTC())
	}
	args = append(args, id)
	return affectedOrNotFound(r.db.ExecContext(ctx, "UPDATE banners SET "+strings.Join(sets, ",")+" WHERE id=?", args...))
}

func (r *BannerRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, "DELETE FROM banners WHERE id=?", id))
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
