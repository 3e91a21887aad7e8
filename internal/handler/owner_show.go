package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/model"
	"github.com/cinebooker/cinebooker/internal/repository"
)

// OwnerShowHandler covers the owner side of a show's life: scheduling,
// repricing, force-releasing locks and inspecting bookings.
type OwnerShowHandler struct {
	HallRepo     *repository.HallRepo
	SeatRepo     *repository.SeatRepo
	ShowRepo     *repository.ShowRepo
	ShowSeatRepo *repository.ShowSeatRepo
	BookingRepo  *repository.BookingRepo
	Store        *repository.Store
}

func NewOwnerShowHandler(hallRepo *repository.HallRepo, seatRepo *repository.SeatRepo, showRepo *repository.ShowRepo, showSeatRepo *repository.ShowSeatRepo, bookingRepo *repository.BookingRepo, store *repository.Store) *OwnerShowHandler {
	if hallRepo == nil || seatRepo == nil || showRepo == nil || showSeatRepo == nil || bookingRepo == nil || store == nil {
		panic("nil dependency passed to NewOwnerShowHandler")
	}
	return &OwnerShowHandler{
		HallRepo:     hallRepo,
		SeatRepo:     seatRepo,
		ShowRepo:     showRepo,
		ShowSeatRepo: showSeatRepo,
		BookingRepo:  bookingRepo,
		Store:        store,
	}
}

// CreateShow handles POST /v1/shows. Scheduling a show copies the
// hall's seat grid into per-show inventory at the base price, all in
// one transaction.
func (h *OwnerShowHandler) CreateShow(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		HallID         uint64 `json:"hall_id"`
		MovieTitle     string `json:"movie_title"`
		StartsAt       string `json:"starts_at"`
		EndsAt         string `json:"ends_at"`
		BasePriceCents uint32 `json:"base_price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.MovieTitle = strings.TrimSpace(body.MovieTitle)
	if body.HallID == 0 || body.MovieTitle == "" || body.BasePriceCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hall_id, movie_title and base_price_cents are required"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	endsAt, err := time.Parse(time.RFC3339, body.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
	}
	if !endsAt.After(startsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}

	ctx := c.Request().Context()
	if _, err := h.HallRepo.GetByIDForOwner(ctx, body.HallID, userID); err != nil {
		return fail(c, err)
	}
	seats, err := h.SeatRepo.GetByHall(ctx, body.HallID)
	if err != nil {
		return fail(c, err)
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "hall has no seats"})
	}
	seatIDs := make([]uint64, len(seats))
	for i, s := range seats {
		seatIDs[i] = s.ID
	}

	show := &model.Show{
		HallID:         body.HallID,
		MovieTitle:     body.MovieTitle,
		StartsAt:       startsAt.UTC(),
		EndsAt:         endsAt.UTC(),
		BasePriceCents: body.BasePriceCents,
		Status:         model.ShowScheduled,
	}
	if err := h.Store.CreateShowWithSeats(ctx, show, seatIDs); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "another show overlaps this time window"})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, show)
}

// UpdatePrice handles PATCH /v1/shows/:id/price. Only seats still
// available are repriced; pending bookings keep the amount captured at
// lock time.
func (h *OwnerShowHandler) UpdatePrice(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		PriceCents uint32 `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil || body.PriceCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_cents is required"})
	}

	ctx := c.Request().Context()
	if err := h.ownerCheck(c, showID, userID); err != nil {
		return fail(c, err)
	}
	updated, err := h.ShowSeatRepo.UpdatePriceWhereAvailable(ctx, showID, body.PriceCents)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats_repriced": updated})
}

// ReleaseLocks handles POST /v1/shows/:id/release-locks. It frees every
// locked seat of the show regardless of expiry and cancels the pending
// bookings that held them.
func (h *OwnerShowHandler) ReleaseLocks(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if err := h.ownerCheck(c, showID, userID); err != nil {
		return fail(c, err)
	}
	result, err := h.Store.ReleaseShowLocks(c.Request().Context(), showID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListBookings handles GET /v1/shows/:id/bookings.
func (h *OwnerShowHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if err := h.ownerCheck(c, showID, userID); err != nil {
		return fail(c, err)
	}
	bookings, err := h.BookingRepo.ListByShow(c.Request().Context(), showID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "bookings": bookings})
}

// ownerCheck verifies the show's hall belongs to the caller.
func (h *OwnerShowHandler) ownerCheck(c echo.Context, showID, userID uint64) error {
	ownerID, err := h.ShowRepo.OwnerID(c.Request().Context(), showID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return repository.ErrForbidden
	}
	return nil
}
