package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// ReviewRepo stores product reviews. New reviews wait for moderation.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewSelect = `SELECT r.id, r.product_id, r.user_id, r.rating, r.title, r.comment, r.is_approved, r.is_verified,
	r.created_at, r.updated_at, COALESCE(p.name, ''), COALESCE(u.name, u.email, '')
	FROM reviews r LEFT JOIN products p ON p.id = r.product_id LEFT JOIN users u ON u.id = r.user_id`

func scanReview(row interface{ Scan(...any) error }, rv *model.Review) error {
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Comment, &rv.IsApproved, &rv.IsVerified,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.ProductName, &rv.UserName)
	if err == nil {
		rv.Status = rv.ComputeStatus()
	}
	return err
}

type ReviewFilter struct {
	ProductID uint64
	Status    model.ReviewStatus // empty for all
}

func (r *ReviewRepo) List(ctx context.Context, f ReviewFilter) ([]model.Review, error) {
	q := reviewSelect + " WHERE 1=1"
	var args []any
	if f.ProductID != 0 {
		q += " AND r.product_id = ?"
		args = append(args, f.ProductID)
	}
	switch f.Status {
	case model.ReviewApproved:
		q += " AND r.is_approved = ?"
		args = append(args, true)
	case model.ReviewPending:
		q += " AND r.is_approved = ?"
		args = append(args, false)
	}
	q += " ORDER BY r.created_at DESC, r.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := scanReview(rows, &rv); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

type ReviewStats struct {
	Total         int     `json:"total"`
	Pending       int     `json:"pending"`
	Approved      int     `json:"approved"`
	AverageRating float64 `json:"averageRating"`
}

// Stats summarises all reviews, or one product's when productID is set.
// The average only counts approved reviews.
func (r *ReviewRepo) Stats(ctx context.Context, productID uint64) (ReviewStats, error) {
	q := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN is_approved = ? THEN 0 ELSE 1 END),0),
		COALESCE(SUM(CASE WHEN is_approved = ? THEN 1 ELSE 0 END),0),
		AVG(CASE WHEN is_approved = ? THEN rating END)
		FROM reviews`
	args := []any{true, true, true}
	if productID != 0 {
		q += " WHERE product_id = ?"
		args = append(args, productID)
	}
	var (
		s   ReviewStats
		avg sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&s.Total, &s.Pending, &s.Approved, &avg)
	if avg.Valid {
		s.AverageRating = float64(int(avg.Float64*10+0.5)) / 10
	}
	return s, err
}

func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	var rv model.Review
	if err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+" WHERE r.id = ?", id), &rv); err != nil {
		return nil, notFound(err)
	}
	return &rv, nil
}

// Create stores a pending review. A customer reviews a product once; the
// review is marked verified when they have a non-cancelled order for it.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE product_id = ? AND user_id = ?",
		rv.ProductID, rv.UserID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicate
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE o.user_id = ? AND i.product_id = ? AND o.status NOT IN (?, ?)`,
		rv.UserID, rv.ProductID, model.OrderCancelled, model.OrderRefunded).Scan(&n); err != nil {
		return err
	}
	rv.IsVerified = n > 0
	rv.IsApproved = false
	ts := now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO reviews (product_id, user_id, rating, title, comment, is_approved, is_verified, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Comment, rv.IsApproved, rv.IsVerified, ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID, rv.CreatedAt, rv.UpdatedAt = uint64(id), ts, ts
	rv.Status = rv.ComputeStatus()
	return nil
}

// SetApproved publishes or hides a review.
func (r *ReviewRepo) SetApproved(ctx context.Context, id uint64, approved bool) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, "UPDATE reviews SET is_approved=?, updated_at=? WHERE id=?", approved, now(), id))
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id))
}
