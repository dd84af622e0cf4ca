package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/middleware"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/query"
	"github.com/trekhub/tour-api/internal/repository"
)

// UserHandler bundles dependencies for the self-service and admin user
// endpoints.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

// filterFields is the whitelist copy guarding against mass assignment:
// only explicitly allowed keys survive, everything else in the body is
// dropped before it can reach storage.
func filterFields(body map[string]any, allowed ...string) map[string]any {
	out := make(map[string]any, len(allowed))
	for _, k := range allowed {
		if v, ok := body[k]; ok {
			out[k] = v
		}
	}
	return out
}

// UpdateMe updates the caller's own profile. Password fields are rejected
// outright (the dedicated endpoint handles those) and of the rest only the
// allow-list {name, email} is applied.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	u := middleware.CurrentUser(c)

	var body map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	if _, ok := body["password"]; ok {
		return httpx.BadRequest("this route is not for password updates, use /updateMyPassword")
	}
	if _, ok := body["password_confirm"]; ok {
		return httpx.BadRequest("this route is not for password updates, use /updateMyPassword")
	}

	fields := filterFields(body, "name", "email")
	if len(fields) == 0 {
		return httpx.BadRequest("nothing to update: provide name and/or email")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, u.ID, fields); err != nil {
		if err == repository.ErrEmailExists {
			return httpx.Conflict("email already registered")
		}
		return err
	}

	updated, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(updated)})
}

// DeleteMe deactivates the caller's account. The record persists; default
// listings stop showing it and its tokens stop passing Protect.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	u := middleware.CurrentUser(c)

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Deactivate(ctx, u.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(middleware.CurrentUser(c))})
}

// ----- admin endpoints -----

// List runs the query engine over active users. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	sp := query.Parse(c.QueryParams(), &repository.UserSchema)

	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx, sp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"results": len(users), "users": users})
}

// Get fetches one user by id. Admin only.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no user found with that id")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(u)})
}

// Update applies the admin allow-list {name, email, role, active} to a
// user. Still a whitelist copy: unknown fields are dropped.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	fields := filterFields(body, "name", "email", "role", "active")
	if len(fields) == 0 {
		return httpx.BadRequest("nothing to update")
	}
	if role, ok := fields["role"].(string); ok && !model.ValidRole(role) {
		return httpx.BadRequest("invalid role")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.AdminUpdate(ctx, id, fields); err != nil {
		switch err {
		case repository.ErrNotFound:
			return httpx.NotFound("no user found with that id")
		case repository.ErrEmailExists:
			return httpx.Conflict("email already registered")
		}
		return err
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(u)})
}

// Delete removes a user row entirely. Admin only; self-service deletion is
// the soft DeleteMe.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no user found with that id")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, httpx.BadRequest("invalid id")
	}
	return id, nil
}
