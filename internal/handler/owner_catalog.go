package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/model"
	"github.com/cinebooker/cinebooker/internal/repository"
)

// OwnerCatalogHandler lets owners provision cinemas and halls. Creating
// a hall also materializes its physical seat grid, which show
// scheduling later copies into per-show inventory.
type OwnerCatalogHandler struct {
	CinemaRepo *repository.CinemaRepo
	HallRepo   *repository.HallRepo
	SeatRepo   *repository.SeatRepo
}

func NewOwnerCatalogHandler(cinemaRepo *repository.CinemaRepo, hallRepo *repository.HallRepo, seatRepo *repository.SeatRepo) *OwnerCatalogHandler {
	if cinemaRepo == nil || hallRepo == nil || seatRepo == nil {
		panic("nil repository passed to NewOwnerCatalogHandler")
	}
	return &OwnerCatalogHandler{CinemaRepo: cinemaRepo, HallRepo: hallRepo, SeatRepo: seatRepo}
}

// CreateCinema handles POST /v1/cinemas.
func (h *OwnerCatalogHandler) CreateCinema(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	cinema := &model.Cinema{OwnerID: userID, Name: body.Name}
	if err := h.CinemaRepo.Create(c.Request().Context(), cinema); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, cinema)
}

// CreateHall handles POST /v1/halls. seat_rows and seat_cols define the
// seat grid generated for the hall.
func (h *OwnerCatalogHandler) CreateHall(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		CinemaID uint64 `json:"cinema_id"`
		Name     string `json:"name"`
		SeatRows uint32 `json:"seat_rows"`
		SeatCols uint32 `json:"seat_cols"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" || body.SeatRows == 0 || body.SeatCols == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, seat_rows and seat_cols are required"})
	}

	ctx := c.Request().Context()
	var cinemaID *uint64
	if body.CinemaID != 0 {
		cinema, err := h.CinemaRepo.GetByID(ctx, body.CinemaID)
		if err != nil {
			return fail(c, err)
		}
		if cinema.OwnerID != userID {
			return fail(c, repository.ErrForbidden)
		}
		cinemaID = &body.CinemaID
	}

	hall := &model.Hall{
		OwnerID:  userID,
		CinemaID: cinemaID,
		Name:     body.Name,
		SeatRows: body.SeatRows,
		SeatCols: body.SeatCols,
		IsActive: true,
	}
	if err := h.HallRepo.Create(ctx, hall); err != nil {
		return fail(c, err)
	}
	if err := h.SeatRepo.CreateGrid(ctx, hall.ID, hall.SeatRows, hall.SeatCols); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, hall)
}
