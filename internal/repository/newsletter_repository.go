package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// NewsletterRepo stores newsletter subscriptions. Unsubscribing keeps the
// row and flips it inactive so a later subscribe reactivates it.
type NewsletterRepo struct {
	db *sql.DB
}

func NewNewsletterRepo(db *sql.DB) *NewsletterRepo { return &NewsletterRepo{db: db} }

const subscriberSelect = "SELECT id, email, is_active, subscribed_at, unsubscribed_at FROM newsletter_subscribers"

func scanSubscriber(row interface{ Scan(...any) error }, s *model.NewsletterSubscriber) error {
	return row.Scan(&s.ID, &s.Email, &s.IsActive, &s.SubscribedAt, &s.UnsubscribedAt)
}

// Subscribe adds email or reactivates it. The returned bool reports
// whether anything changed.
func (r *NewsletterRepo) Subscribe(ctx context.Context, email string) (*model.NewsletterSubscriber, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ts := now()
	var s model.NewsletterSubscriber
	err := scanSubscriber(r.db.QueryRowContext(ctx, subscriberSelect+" WHERE email = ?", email), &s)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := r.db.ExecContext(ctx,
			"INSERT INTO newsletter_subscribers (email, is_active, subscribed_at) VALUES (?,?,?)", email, true, ts)
		if err != nil {
			if isDuplicateKey(err) {
				return nil, false, ErrDuplicate
			}
			return nil, false, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, false, err
		}
		return &model.NewsletterSubscriber{ID: uint64(id), Email: email, IsActive: true, SubscribedAt: ts}, true, nil
	case err != nil:
		return nil, false, err
	case s.IsActive:
		return &s, false, nil
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE newsletter_subscribers SET is_active=?, subscribed_at=?, unsubscribed_at=NULL WHERE id=?", true, ts, s.ID); err != nil {
		return nil, false, err
	}
	s.IsActive, s.SubscribedAt, s.UnsubscribedAt = true, ts, nil
	return &s, true, nil
}

// Unsubscribe deactivates email.
func (r *NewsletterRepo) Unsubscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return affectedOrNotFound(r.db.ExecContext(ctx,
		"UPDATE newsletter_subscribers SET is_active=?, unsubscribed_at=? WHERE email=?", false, now(), email))
}

func (r *NewsletterRepo) List(ctx context.Context, search string, active *bool) ([]model.NewsletterSubscriber, error) {
	q := subscriberSelect + " WHERE 1=1"
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		q += " AND email LIKE ?"
		args = append(args, likeArg(s))
	}
	if active != nil {
		q += " AND is_active = ?"
		args = append(args, *active)
	}
	q += " ORDER BY subscribed_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.NewsletterSubscriber{}
	for rows.Next() {
		var s model.NewsletterSubscriber
		if err := scanSubscriber(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type NewsletterStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Unsubscribed int `json:"unsubscribed"`
}

func (r *NewsletterRepo) Stats(ctx context.Context) (NewsletterStats, error) {
	var s NewsletterStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END),0)
		FROM newsletter_subscribers`, true).Scan(&s.Total, &s.Active)
	s.Unsubscribed = s.Total - s.Active
	return s, err
}

// SetActive toggles a subscription from the admin console.
func (r *NewsletterRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	if active {
		return affectedOrNotFound(r.db.ExecContext(ctx,
			"UPDATE newsletter_subscribers SET is_active=?, unsubscribed_at=NULL WHERE id=?", true, id))
	}
	return affectedOrNotFound(r.db.ExecContext(ctx,
		"UPDATE newsletter_subscribers SET is_active=?, unsubscribed_at=? WHERE id=?", false, now(), id))
}

func (r *NewsletterRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, "DELETE FROM newsletter_subscribers WHERE id=?", id))
}
