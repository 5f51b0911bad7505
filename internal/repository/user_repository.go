package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// now is the repository clock for created_at/updated_at columns.
func now() time.Time { return time.Now().UTC() }

const userCols = "id,email,password_hash,name,role,is_active,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password string, name *string, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	ts := now()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		email, hash, name, role, true, ts, ts)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email), &u)
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id), &u)
	return u, notFound(err)
}

// RoleOf returns the stored role and active flag. The admin gate calls it on
// every request so a demoted or disabled account loses access immediately.
func (r *UserRepo) RoleOf(ctx context.Context, id uint64) (string, bool, error) {
	var (
		role   string
		active bool
	)
	err := r.DB.QueryRowContext(ctx, "SELECT role, is_active FROM users WHERE id=?", id).Scan(&role, &active)
	return role, active, notFound(err)
}

// EnsureAdmin creates the admin account if the email is free, or promotes
// the existing account. Used by the seed command.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, password string, cost int) (uint64, error) {
	u, err := r.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		name := "Administrator"
		return r.Create(ctx, email, password, &name, model.RoleAdmin, cost)
	case err != nil:
		return 0, err
	}
	role := model.RoleAdmin
	active := true
	return u.ID, r.Update(ctx, u.ID, UserPatch{Role: &role, IsActive: &active})
}

type UserFilter struct {
	Search string
	Role   string
}

// List returns users newest first with their order counts.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	q := `SELECT u.id,u.email,u.password_hash,u.name,u.role,u.is_active,u.created_at,u.updated_at,
	             (SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id)
	      FROM users u WHERE 1=1`
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		q += " AND (u.email LIKE ? OR u.name LIKE ?)"
		args = append(args, likeArg(s), likeArg(s))
	}
	if f.Role != "" {
		q += " AND u.role = ?"
		args = append(args, f.Role)
	}
	q += " ORDER BY u.created_at DESC, u.id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.OrderCount); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type UserStats struct {
	Total     int `json:"total"`
	Customers int `json:"customers"`
	Admins    int `json:"admins"`
	Active    int `json:"active"`
}

func (r *UserRepo) Stats(ctx context.Context) (UserStats, error) {
	var s UserStats
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END),0)
		FROM users`, model.RoleCustomer, model.RoleAdmin, true).
		Scan(&s.Total, &s.Customers, &s.Admins, &s.Active)
	return s, err
}

// UserPatch carries the admin-editable fields; nil means unchanged.
type UserPatch struct {
	Name     *string
	Role     *string
	IsActive *bool
}

func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	sets := []string{"updated_at=?"}
	args := []any{now()}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *p.Role)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *p.IsActive)
	}
	args = append(args, id)
	return affectedOrNotFound(r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...))
}

// Delete removes a user with their addresses, reviews and refresh tokens.
// Users who placed orders are kept for the order history; deactivate them
// instead.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var orders int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE user_id=?", id).Scan(&orders); err != nil {
			return err
		}
		if orders > 0 {
			return &InUseError{What: "user", Counts: map[string]int{"orders": orders}}
		}
		for _, q := range []string{
			"DELETE FROM refresh_tokens WHERE user_id=?",
			"DELETE FROM addresses WHERE user_id=?",
			"DELETE FROM reviews WHERE user_id=?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return affectedOrNotFound(tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id))
	})
}
