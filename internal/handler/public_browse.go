package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/repository"
)

// PublicHandler serves the unauthenticated catalog: cinemas, halls and
// scheduled shows.
type PublicHandler struct {
	CinemaRepo *repository.CinemaRepo
	HallRepo   *repository.HallRepo
	ShowRepo   *repository.ShowRepo
}

func NewPublicHandler(cinemaRepo *repository.CinemaRepo, hallRepo *repository.HallRepo, showRepo *repository.ShowRepo) *PublicHandler {
	if cinemaRepo == nil || hallRepo == nil || showRepo == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{CinemaRepo: cinemaRepo, HallRepo: hallRepo, ShowRepo: showRepo}
}

// ListCinemas handles GET /v1/cinemas.
func (h *PublicHandler) ListCinemas(c echo.Context) error {
	cinemas, err := h.CinemaRepo.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cinemas": cinemas})
}

// ListHalls handles GET /v1/cinemas/:id/halls.
func (h *PublicHandler) ListHalls(c echo.Context) error {
	cinemaID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cinema id"})
	}
	ctx := c.Request().Context()
	if _, err := h.CinemaRepo.GetByID(ctx, cinemaID); err != nil {
		return fail(c, err)
	}
	halls, err := h.HallRepo.ListByCinema(ctx, cinemaID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"halls": halls})
}

// ListShows handles GET /v1/halls/:id/shows.
func (h *PublicHandler) ListShows(c echo.Context) error {
	hallID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hall id"})
	}
	ctx := c.Request().Context()
	if _, err := h.HallRepo.GetByID(ctx, hallID); err != nil {
		return fail(c, err)
	}
	shows, err := h.ShowRepo.ListByHall(ctx, hallID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": shows})
}

// GetShow handles GET /v1/shows/:id.
func (h *PublicHandler) GetShow(c echo.Context) error {
	showID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	show, err := h.ShowRepo.GetByID(c.Request().Context(), showID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, show)
}
