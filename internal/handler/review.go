package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/middleware"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/query"
	"github.com/trekhub/tour-api/internal/repository"
)

// ReviewHandler bundles dependencies for the review endpoints.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Tours   *repository.TourRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo, tours *repository.TourRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Tours: tours}
}

type reviewReq struct {
	Rating int    `json:"rating"`
	Body   string `json:"review"`
}

// List runs the query engine over all reviews.
func (h *ReviewHandler) List(c echo.Context) error {
	return h.list(c, 0)
}

// ListForTour scopes the listing to one tour taken from the URL path.
func (h *ReviewHandler) ListForTour(c echo.Context) error {
	tourID, err := pathID(c)
	if err != nil {
		return err
	}
	return h.list(c, tourID)
}

func (h *ReviewHandler) list(c echo.Context, tourID uint64) error {
	sp := query.Parse(c.QueryParams(), &repository.ReviewSchema)

	ctx, cancel := dbCtx(c)
	defer cancel()
	reviews, err := h.Reviews.List(ctx, sp, tourID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"results": len(reviews), "reviews": reviews})
}

// Create posts a review on a tour. The author is the authenticated user;
// nothing in the body can attribute the review to someone else.
func (h *ReviewHandler) Create(c echo.Context) error {
	u := middleware.CurrentUser(c)
	tourID, err := pathID(c)
	if err != nil {
		return err
	}

	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return httpx.BadRequest("rating must be between 1 and 5")
	}
	if req.Body == "" {
		return httpx.BadRequest("a review cannot be empty")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Tours.Get(ctx, tourID); err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no tour found with that id")
		}
		return err
	}

	id, err := h.Reviews.Create(ctx, &model.Review{
		TourID: tourID, UserID: u.ID, Rating: req.Rating, Body: req.Body,
	})
	if err != nil {
		return err
	}
	rv, err := h.Reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"review": rv})
}

// Delete removes a review. The author may delete their own; admins may
// delete any.
func (h *ReviewHandler) Delete(c echo.Context) error {
	u := middleware.CurrentUser(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	rv, err := h.Reviews.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no review found with that id")
		}
		return err
	}
	if rv.UserID != u.ID && u.Role != model.RoleAdmin {
		return httpx.Forbidden("you can only delete your own reviews")
	}

	if err := h.Reviews.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
