package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/query"
	"github.com/trekhub/tour-api/internal/repository"
)

// TourHandler bundles dependencies for the tour endpoints.
type TourHandler struct {
	Tours *repository.TourRepo
}

func NewTourHandler(tours *repository.TourRepo) *TourHandler {
	return &TourHandler{Tours: tours}
}

type tourReq struct {
	Name          string  `json:"name"`
	Duration      int     `json:"duration"`
	MaxGroupSize  int     `json:"max_group_size"`
	Difficulty    string  `json:"difficulty"`
	Price         float64 `json:"price"`
	PriceDiscount float64 `json:"price_discount"`
	Summary       string  `json:"summary"`
	Description   string  `json:"description"`
	Secret        bool    `json:"secret"`
}

func (r tourReq) validate() error {
	switch {
	case r.Name == "":
		return httpx.BadRequest("a tour must have a name")
	case r.Duration <= 0:
		return httpx.BadRequest("a tour must have a duration")
	case r.MaxGroupSize <= 0:
		return httpx.BadRequest("a tour must have a group size")
	case !model.ValidDifficulty(r.Difficulty):
		return httpx.BadRequest("difficulty is either: easy, medium or difficult")
	case r.Price <= 0:
		return httpx.BadRequest("a tour must have a price")
	case r.PriceDiscount < 0 || (r.PriceDiscount > 0 && r.PriceDiscount >= r.Price):
		return httpx.BadRequest("discount price should be below regular price")
	case r.Summary == "":
		return httpx.BadRequest("a tour must have a summary")
	}
	return nil
}

// List runs the query engine over non-secret tours.
func (h *TourHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParams())
}

// TopCheap is the alias listing: the five best-rated tours, cheapest first
// on ties, with a reduced projection. It presets the query parameters and
// reuses the ordinary listing path.
func (h *TourHandler) TopCheap(c echo.Context) error {
	params := url.Values{}
	params.Set("limit", "5")
	params.Set("sort", "-ratings_average,price")
	params.Set("fields", "name,price,ratings_average,summary,difficulty")
	return h.list(c, params)
}

func (h *TourHandler) list(c echo.Context, params url.Values) error {
	sp := query.Parse(params, &repository.TourSchema)

	ctx, cancel := dbCtx(c)
	defer cancel()
	tours, err := h.Tours.List(ctx, sp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"results": len(tours), "tours": tours})
}

// Stats returns per-difficulty aggregates.
func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}

// Get fetches one tour by id.
func (h *TourHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	t, err := h.Tours.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no tour found with that id")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"tour": t})
}

// Create inserts a tour. Restricted to admin and lead-guide by the router.
func (h *TourHandler) Create(c echo.Context) error {
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	id, err := h.Tours.Create(ctx, &model.Tour{
		Name: req.Name, Duration: req.Duration, MaxGroupSize: req.MaxGroupSize,
		Difficulty: req.Difficulty, Price: req.Price, PriceDiscount: req.PriceDiscount,
		Summary: req.Summary, Description: req.Description, Secret: req.Secret,
	})
	if err != nil {
		if err == repository.ErrNameExists {
			return httpx.Conflict("a tour with that name already exists")
		}
		return err
	}

	t, err := h.Tours.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"tour": t})
}

// Update applies allow-listed fields to a tour.
func (h *TourHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return httpx.BadRequest("invalid request body")
	}
	fields := filterFields(body,
		"name", "duration", "max_group_size", "difficulty", "price",
		"price_discount", "summary", "description", "secret")
	if len(fields) == 0 {
		return httpx.BadRequest("nothing to update")
	}
	if d, ok := fields["difficulty"].(string); ok && !model.ValidDifficulty(d) {
		return httpx.BadRequest("difficulty is either: easy, medium or difficult")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tours.Update(ctx, id, fields); err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no tour found with that id")
		}
		return err
	}

	t, err := h.Tours.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"tour": t})
}

// Delete removes a tour.
func (h *TourHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tours.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return httpx.NotFound("no tour found with that id")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
