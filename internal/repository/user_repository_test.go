package repository

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trekhub/tour-api/internal/query"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func userRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "active",
		"password_changed_at", "password_reset_token", "password_reset_expires",
		"created_at", "updated_at",
	}).AddRow(1, "Alex Walker", "alex@example.com", "$2a$12$hash", "user", true,
		nil, nil, nil, now, now)
}

func TestUserCreateNormalizesEmail(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("Alex Walker", "alex@example.com", "$2a$12$hash", "user").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), " Alex Walker ", "  Alex@Example.COM ", "$2a$12$hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	_, err := repo.Create(context.Background(), "Alex", "alex@example.com", "hash")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserGetByIDNotFound(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id=\\?").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserGetByResetTokenHashChecksExpiry(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE password_reset_token=? AND password_reset_expires > NOW()")).
		WithArgs("deadbeef").
		WillReturnRows(userRows(t))

	u, err := repo.GetByResetTokenHash(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePasswordClearsResetFields(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET password_hash=?, password_changed_at=NOW(), "+
			"password_reset_token=NULL, password_reset_expires=NULL WHERE id=?")).
		WithArgs("$2a$12$newhash", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 1, "$2a$12$newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateProfileIgnoresUnlistedFields(t *testing.T) {
	repo, mock := newUserRepo(t)

	// role and password_hash are not in the self-service allow-list and
	// must never appear in the statement.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=?, email=? WHERE id=?")).
		WithArgs("New Name", "new@example.com", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProfile(context.Background(), 1, map[string]any{
		"name":          "New Name",
		"email":         "New@Example.com",
		"role":          "admin",
		"password_hash": "evil",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateProfileNoFields(t *testing.T) {
	repo, _ := newUserRepo(t)
	err := repo.UpdateProfile(context.Background(), 1, map[string]any{"role": "admin"})
	assert.Error(t, err)
}

func TestUserDeactivate(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active=0 WHERE id=?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserListExcludesInactive(t *testing.T) {
	repo, mock := newUserRepo(t)

	values, _ := url.ParseQuery("")
	sp := query.Parse(values, &UserSchema)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, email, role, created_at FROM users WHERE active = 1")).
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at"}).
			AddRow(1, "Alex", "alex@example.com", "user", time.Now()))

	out, err := repo.List(context.Background(), sp)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "alex@example.com", out[0]["email"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
