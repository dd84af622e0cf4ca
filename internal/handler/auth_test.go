package handler

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trekhub/tour-api/internal/config"
	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/middleware"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/repository"
	"github.com/trekhub/tour-api/internal/token"
)

var testCfg = config.Config{
	JWTSecret:  "test-secret",
	JWTTTL:     time.Hour,
	BcryptCost: bcrypt.MinCost,
	ResetTTL:   10 * time.Minute,
}

// fakeMailer records outbound messages and optionally fails.
type fakeMailer struct {
	to, subject, body string
	sent              int
	err               error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent++
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func setupAuth(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, *fakeMailer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mailer := &fakeMailer{}
	h := NewAuthHandler(testCfg, repository.NewUserRepo(db), mailer)

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	e.POST("/signup", h.Signup)
	e.POST("/login", h.Login)
	e.POST("/forgotPassword", h.ForgotPassword)
	e.PATCH("/resetPassword/:token", h.ResetPassword)
	e.PATCH("/updateMyPassword", h.UpdatePassword, withUser(&activeAlex))
	return e, mock, mailer
}

// withUser stands in for the Protect stage in handler tests.
func withUser(u *model.User) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cp := *u
			middleware.SetCurrentUser(c, &cp)
			return next(c)
		}
	}
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

var activeAlex = model.User{
	ID: 1, Name: "Alex Walker", Email: "alex@example.com",
	Role: model.RoleUser, Active: true,
}

func alexRows(t *testing.T, passwordHash string) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "active",
		"password_changed_at", "password_reset_token", "password_reset_expires",
		"created_at", "updated_at",
	}).AddRow(1, "Alex Walker", "alex@example.com", passwordHash, "user", true,
		nil, nil, nil, now, now)
}

// bcryptOf matches any bcrypt digest of the expected plaintext, proving the
// stored secret is a hash and never the password itself.
type bcryptOf struct{ plain string }

func (m bcryptOf) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok || s == m.plain {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s), []byte(m.plain)) == nil
}

// capture records an argument for later inspection.
type capture struct{ v *string }

func (m capture) Match(v driver.Value) bool {
	if s, ok := v.(string); ok {
		*m.v = s
		return true
	}
	return false
}

// ----- signup -----

func TestSignupStoresHashNotPlaintext(t *testing.T) {
	e, mock, _ := setupAuth(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Alex Walker", "alex@example.com", bcryptOf{"pass1234"}, "user").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doJSON(e, http.MethodPost, "/signup",
		`{"name":"Alex Walker","email":"Alex@Example.com","password":"pass1234","password_confirm":"pass1234"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID   uint64 `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	claims, err := token.Verify(testCfg.JWTSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupPasswordMismatch(t *testing.T) {
	e, _, _ := setupAuth(t)
	rec := doJSON(e, http.MethodPost, "/signup",
		`{"name":"A B","email":"a@b.com","password":"pass1234","password_confirm":"different"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupMissingFields(t *testing.T) {
	e, _, _ := setupAuth(t)
	rec := doJSON(e, http.MethodPost, "/signup", `{"password":"pass1234","password_confirm":"pass1234"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	e, mock, _ := setupAuth(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	rec := doJSON(e, http.MethodPost, "/signup",
		`{"name":"Alex Walker","email":"alex@example.com","password":"pass1234","password_confirm":"pass1234"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ----- login -----

func TestLoginSuccess(t *testing.T) {
	e, mock, _ := setupAuth(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WithArgs("alex@example.com").
		WillReturnRows(alexRows(t, mustHash(t, "pass1234")))

	rec := doJSON(e, http.MethodPost, "/login", `{"email":"alex@example.com","password":"pass1234"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := token.Verify(testCfg.JWTSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
}

func TestLoginFailureIsUniform(t *testing.T) {
	e, mock, _ := setupAuth(t)

	// Wrong password for an existing account.
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WillReturnRows(alexRows(t, mustHash(t, "pass1234")))
	wrongPw := doJSON(e, http.MethodPost, "/login", `{"email":"alex@example.com","password":"nope"}`)

	// Unknown account.
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	noUser := doJSON(e, http.MethodPost, "/login", `{"email":"ghost@example.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)
	// Identical bodies: the response must not reveal which part was wrong.
	assert.Equal(t, wrongPw.Body.String(), noUser.Body.String())
}

func TestLoginMissingFields(t *testing.T) {
	e, _, _ := setupAuth(t)
	rec := doJSON(e, http.MethodPost, "/login", `{"email":"alex@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ----- forgotPassword -----

func TestForgotPasswordUnknownEmailSilentSuccess(t *testing.T) {
	e, mock, mailer := setupAuth(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := doJSON(e, http.MethodPost, "/forgotPassword", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mailer.sent)
	// No token was stored and no email went out; the response shape is the
	// same as for a known account.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordStoresDigestAndMailsSecret(t *testing.T) {
	e, mock, mailer := setupAuth(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WillReturnRows(alexRows(t, mustHash(t, "pass1234")))

	var storedDigest string
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET password_reset_token=?, password_reset_expires=? WHERE id=?")).
		WithArgs(capture{&storedDigest}, sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(e, http.MethodPost, "/forgotPassword", `{"email":"alex@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 1, mailer.sent)
	assert.Equal(t, "alex@example.com", mailer.to)

	// The mail carries the plaintext secret; the database carries only its
	// digest. Extract the secret from the reset URL and cross-check.
	m := regexp.MustCompile(`/resetPassword/([0-9a-f]{64})`).FindStringSubmatch(mailer.body)
	require.NotNil(t, m, "mail body should contain the reset URL")
	assert.Equal(t, token.HashResetSecret(m[1]), storedDigest)
	assert.NotContains(t, rec.Body.String(), m[1], "secret must not be in the HTTP response")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordMailerFailureClearsToken(t *testing.T) {
	e, mock, mailer := setupAuth(t)
	mailer.err = errors.New("broker unreachable")

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WillReturnRows(alexRows(t, mustHash(t, "pass1234")))
	mock.ExpectExec("UPDATE users SET password_reset_token=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET password_reset_token=NULL, password_reset_expires=NULL WHERE id=?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(e, http.MethodPost, "/forgotPassword", `{"email":"alex@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ----- resetPassword -----

func TestResetPasswordInvalidTokenNoMutation(t *testing.T) {
	e, mock, _ := setupAuth(t)

	// Expired and unknown tokens are the same: the lookup matches nothing.
	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE password_reset_token=? AND password_reset_expires > NOW()")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := doJSON(e, http.MethodPatch, "/resetPassword/deadbeef",
		`{"password":"newpass123","password_confirm":"newpass123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// No UPDATE was expected or executed.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordSuccess(t *testing.T) {
	e, mock, _ := setupAuth(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE password_reset_token=? AND password_reset_expires > NOW()")).
		WithArgs(token.HashResetSecret("secret-from-mail")).
		WillReturnRows(alexRows(t, mustHash(t, "oldpass123")))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET password_hash=?, password_changed_at=NOW(), "+
			"password_reset_token=NULL, password_reset_expires=NULL WHERE id=?")).
		WithArgs(bcryptOf{"newpass123"}, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(e, http.MethodPatch, "/resetPassword/secret-from-mail",
		`{"password":"newpass123","password_confirm":"newpass123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := token.Verify(testCfg.JWTSecret, resp.Token)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ----- updateMyPassword -----

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	e, mock, _ := setupAuth(t)
	activeAlexWithHash(t)

	rec := doJSON(e, http.MethodPatch, "/updateMyPassword",
		`{"current_password":"wrong","password":"newpass123","password_confirm":"newpass123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordSuccessIssuesFreshToken(t *testing.T) {
	e, mock, _ := setupAuth(t)
	activeAlexWithHash(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET password_hash=?, password_changed_at=NOW(), "+
			"password_reset_token=NULL, password_reset_expires=NULL WHERE id=?")).
		WithArgs(bcryptOf{"newpass123"}, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(e, http.MethodPatch, "/updateMyPassword",
		`{"current_password":"pass1234","password":"newpass123","password_confirm":"newpass123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := token.Verify(testCfg.JWTSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// activeAlexWithHash gives the shared fixture a real hash for the current
// password checks.
func activeAlexWithHash(t *testing.T) {
	t.Helper()
	activeAlex.PasswordHash = mustHash(t, "pass1234")
}
