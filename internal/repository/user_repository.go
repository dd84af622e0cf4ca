package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/query"
)

const userColumns = "id, name, email, password_hash, role, active, " +
	"password_changed_at, password_reset_token, password_reset_expires, created_at, updated_at"

// UserSchema is the query-engine surface of the users resource. The hash
// and reset columns are deliberately absent: they cannot be filtered,
// sorted or projected from a request.
var UserSchema = query.Schema{
	Filterable:  map[string]bool{"role": true, "name": true, "created_at": true},
	Sortable:    map[string]bool{"name": true, "created_at": true, "role": true},
	Selectable:  []string{"id", "name", "email", "role", "created_at"},
	DefaultSort: "created_at DESC",
	MaxLimit:    100,
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail lowercases and trims an email for the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user with the default role and returns its id. The
// password arrives already hashed; this layer never sees plaintext.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(name), NormalizeEmail(email), passwordHash, model.RoleUser)
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

func (r *UserRepo) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active,
		&u.PasswordChangedAt, &u.PasswordResetToken, &u.PasswordResetExpires,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id, active or not. Callers on the auth path
// check Active themselves so the failure is indistinguishable from a
// missing account.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email, hash included.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByResetTokenHash fetches the user whose stored reset-token digest
// matches AND whose reset window is still open. An expired token matches
// nothing, so expiry and "never issued" are the same failure.
func (r *UserRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE password_reset_token=? AND password_reset_expires > NOW() LIMIT 1",
		tokenHash))
}

// SetResetToken stores the reset-token digest and its expiry together.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token=?, password_reset_expires=? WHERE id=?",
		tokenHash, expires, id)
	return err
}

// ClearResetToken clears both reset columns together.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token=NULL, password_reset_expires=NULL WHERE id=?", id)
	return err
}

// UpdatePassword sets a new hash, stamps password_changed_at and clears any
// pending reset token in one statement. The stamp is what invalidates every
// token issued before this moment.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, newHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=NOW(), "+
			"password_reset_token=NULL, password_reset_expires=NULL WHERE id=?",
		newHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// profileFields is the allow-list for self-service profile updates. This is
// a whitelist copy: anything not named here never reaches the statement.
var profileFields = map[string]bool{"name": true, "email": true}

// adminFields extends the allow-list for admin updates.
var adminFields = map[string]bool{"name": true, "email": true, "role": true, "active": true}

// UpdateProfile applies the allow-listed self-service fields to a user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fields map[string]any) error {
	return r.updateFields(ctx, id, fields, profileFields)
}

// AdminUpdate applies the admin allow-list to a user.
func (r *UserRepo) AdminUpdate(ctx context.Context, id uint64, fields map[string]any) error {
	return r.updateFields(ctx, id, fields, adminFields)
}

func (r *UserRepo) updateFields(ctx context.Context, id uint64, fields map[string]any, allowed map[string]bool) error {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	// Iterate the allow-list, not the input, so statement shape is stable
	// and no client-supplied key can appear in SQL.
	for _, col := range []string{"name", "email", "role", "active"} {
		if !allowed[col] {
			continue
		}
		v, ok := fields[col]
		if !ok {
			continue
		}
		if col == "email" {
			if s, isStr := v.(string); isStr {
				v = NormalizeEmail(s)
			}
		}
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return fmt.Errorf("no updatable fields")
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return requireRow(res)
}

// Deactivate soft deletes a user. The record persists and the email stays
// reserved; default listings exclude it.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a user row entirely. Admin-only; self-service deletion is
// always the soft Deactivate.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// List runs a query-engine spec over active users.
func (r *UserRepo) List(ctx context.Context, sp query.Spec) ([]Row, error) {
	sqlText, args := sp.SelectSQL("users", "active = 1")
	rows, err := r.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// requireRow converts a zero-row UPDATE/DELETE into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
