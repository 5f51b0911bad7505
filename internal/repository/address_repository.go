package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// AddressRepo stores customers' saved addresses. Every method is scoped to
// the owning user; another user's address is reported as not found.
type AddressRepo struct {
	db *sql.DB
}

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{db: db} }

const addressSelect = `SELECT id, user_id, label, full_name, phone, line1, line2, city, state, postal_code, country,
	is_default, created_at, updated_at FROM addresses`

func scanAddress(row interface{ Scan(...any) error }, a *model.Address) error {
	return row.Scan(&a.ID, &a.UserID, &a.Label, &a.FullName, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
}

func getAddress(ctx context.Context, q execer, id, userID uint64) (*model.Address, error) {
	var a model.Address
	if err := scanAddress(q.QueryRowContext(ctx, addressSelect+" WHERE id = ? AND user_id = ?", id, userID), &a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListByUser returns the default address first.
func (r *AddressRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Address, error) {
	rows, err := r.db.QueryContext(ctx, addressSelect+" WHERE user_id = ? ORDER BY is_default DESC, created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Address{}
	for rows.Next() {
		var a model.Address
		if err := scanAddress(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AddressRepo) Get(ctx context.Context, id, userID uint64) (*model.Address, error) {
	return getAddress(ctx, r.db, id, userID)
}

// clearDefault unsets the default flag on all of the user's addresses.
func clearDefault(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, "UPDATE addresses SET is_default=? WHERE user_id=? AND is_default=?", false, userID, true)
	return err
}

// Create saves a new address. The first address a user saves becomes the
// default; asking for a default clears the flag elsewhere in the same
// transaction.
func (r *AddressRepo) Create(ctx context.Context, a *model.Address) error {
	ts := now()
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM addresses WHERE user_id = ?", a.UserID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			a.IsDefault = true
		}
		if a.IsDefault {
			if err := clearDefault(ctx, tx, a.UserID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO addresses (user_id, label, full_name, phone, line1, line2, city, state, postal_code, country,
			is_default, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			a.UserID, a.Label, a.FullName, a.Phone, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
			a.IsDefault, ts, ts)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a.ID, a.CreatedAt, a.UpdatedAt = uint64(id), ts, ts
		return nil
	})
}

// Update writes every field of a, which must belong to a.UserID.
// Setting IsDefault clears the flag on the user's other addresses first.
// The default address stays default; pick another one to move the flag.
func (r *AddressRepo) Update(ctx context.Context, a *model.Address) error {
	ts := now()
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := getAddress(ctx, tx, a.ID, a.UserID)
		if err != nil {
			return err
		}
		if cur.IsDefault {
			a.IsDefault = true
		}
		if a.IsDefault && !cur.IsDefault {
			if err := clearDefault(ctx, tx, a.UserID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE addresses SET label=?, full_name=?, phone=?, line1=?, line2=?, city=?, state=?,
			postal_code=?, country=?, is_default=?, updated_at=? WHERE id=? AND user_id=?`,
			a.Label, a.FullName, a.Phone, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.IsDefault, ts,
			a.ID, a.UserID); err != nil {
			return err
		}
		a.CreatedAt, a.UpdatedAt = cur.CreatedAt, ts
		return nil
	})
}

// SetDefault makes id the user's only default address.
func (r *AddressRepo) SetDefault(ctx context.Context, id, userID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := getAddress(ctx, tx, id, userID); err != nil {
			return err
		}
		if err := clearDefault(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE addresses SET is_default=?, updated_at=? WHERE id=? AND user_id=?", true, now(), id, userID)
		return err
	})
}

// Delete removes the address. When it was the default the most recently
// created remaining address inherits the flag.
func (r *AddressRepo) Delete(ctx context.Context, id, userID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := getAddress(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM addresses WHERE id=? AND user_id=?", id, userID); err != nil {
			return err
		}
		if !cur.IsDefault {
			return nil
		}
		var next uint64
		err = tx.QueryRowContext(ctx, "SELECT id FROM addresses WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT 1", userID).Scan(&next)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE addresses SET is_default=? WHERE id=?", true, next)
		return err
	})
}
