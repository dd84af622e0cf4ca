// Package handler implements the HTTP endpoints. Handlers return errors
// for the central translator in httpx; only success responses are written
// here.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/config"
	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/middleware"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/password"
	"github.com/trekhub/tour-api/internal/queue"
	"github.com/trekhub/tour-api/internal/repository"
	"github.com/trekhub/tour-api/internal/token"
)

// msgBadCredentials is the uniform login failure: the client cannot tell an
// unknown email from a wrong password.
const msgBadCredentials = "incorrect email or password"

const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Mailer queue.Mailer
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, mailer queue.Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Mailer: mailer}
}

// ----- DTOs -----

type signupReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type newPasswordReq struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
	User    userPart  `json:"user"`
}

func publicUser(u *model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// validateNewPassword enforces the password rules shared by signup, reset
// and change.
func validateNewPassword(pw, confirm string) error {
	if len(pw) < 8 {
		return httpx.BadRequest("password must be at least 8 characters")
	}
	if pw != confirm {
		return httpx.BadRequest("passwords do not match")
	}
	return nil
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// Signup creates a user and logs it in immediately. The role is always
// "user": nothing from the request body can grant privileges.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" {
		return httpx.BadRequest("name and email are required")
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return err
	}

	hash, err := password.Hash(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, hash)
	if err != nil {
		if err == repository.ErrEmailExists {
			return httpx.Conflict("email already registered")
		}
		return err
	}

	signed, exp, err := token.Issue(h.Cfg.JWTSecret, uid, h.Cfg.JWTTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResp{
		Token:   signed,
		Expires: exp,
		User:    userPart{ID: uid, Name: req.Name, Email: req.Email, Role: model.RoleUser},
	})
}

// Login verifies credentials and issues a token. The brute-force guard runs
// in front of this handler, so an exhausted window never reaches the bcrypt
// comparison below.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return httpx.BadRequest("please provide email and password")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return httpx.Unauthorized(msgBadCredentials)
		}
		return err
	}
	if !u.Active || !password.Verify(u.PasswordHash, req.Password) {
		return httpx.Unauthorized(msgBadCredentials)
	}

	signed, exp, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.JWTTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{Token: signed, Expires: exp, User: publicUser(u)})
}

// ForgotPassword issues a one-time reset secret and mails it. An unknown
// email gets the same success-shaped response with no side effect, so the
// endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" {
		return httpx.BadRequest("please provide your email address")
	}

	const accepted = "if that account exists, a reset token has been sent to its email"

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusOK, echo.Map{"message": accepted})
		}
		return err
	}

	plain, digest, err := token.NewResetSecret()
	if err != nil {
		return err
	}
	expires := time.Now().UTC().Add(h.Cfg.ResetTTL)
	if err := h.Users.SetResetToken(ctx, u.ID, digest, expires); err != nil {
		return err
	}

	body := "Forgot your password? Submit a PATCH request with your new password to:\n" +
		resetURL(c, plain) +
		"\nIf you didn't forget your password, please ignore this email."
	subject := fmt.Sprintf("Your password reset token (valid for %d min)", int(h.Cfg.ResetTTL.Minutes()))
	if err := h.Mailer.Send(ctx, u.Email, subject, body); err != nil {
		// The mail is not on its way; leaving the token in place would
		// strand the account in a half-reset state.
		_ = h.Users.ClearResetToken(ctx, u.ID)
		return httpx.NewError(http.StatusInternalServerError,
			"there was an error sending the email, try again later")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": accepted})
}

// resetURL builds the absolute reset endpoint for the outgoing email.
func resetURL(c echo.Context, secret string) string {
	scheme := c.Scheme()
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + c.Request().Host + "/api/v1/users/resetPassword/" + secret
}

// ResetPassword consumes a reset secret from the URL path. The lookup is by
// digest and only matches while the reset window is open; an expired or
// unknown secret fails without touching the record.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req newPasswordReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	digest := token.HashResetSecret(c.Param("token"))
	u, err := h.Users.GetByResetTokenHash(ctx, digest)
	if err != nil {
		if err == repository.ErrNotFound {
			return httpx.BadRequest("token is invalid or has expired")
		}
		return err
	}

	hash, err := password.Hash(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	// Sets the new hash, stamps password_changed_at and clears both reset
	// columns in one statement.
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	signed, exp, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.JWTTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{Token: signed, Expires: exp, User: publicUser(u)})
}

// UpdatePassword lets a logged-in user change their password. Requires the
// Protect stage; the current password must verify before anything changes.
// Tokens issued before the change stop working at the next Protect check.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u := middleware.CurrentUser(c)

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	if !password.Verify(u.PasswordHash, req.CurrentPassword) {
		return httpx.Unauthorized("your current password is wrong")
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		return err
	}

	hash, err := password.Hash(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	signed, exp, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.JWTTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResp{Token: signed, Expires: exp, User: publicUser(u)})
}
