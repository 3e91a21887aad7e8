package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/queue"
	"github.com/cinebooker/cinebooker/internal/repository"
	"github.com/cinebooker/cinebooker/internal/service"
)

// BookingHandler serves the customer-facing reservation flow: seat
// maps, reservations, payment and cancellation.
type BookingHandler struct {
	Svc          *service.BookingService
	ShowRepo     *repository.ShowRepo
	HallRepo     *repository.HallRepo
	ShowSeatRepo *repository.ShowSeatRepo
	BookingRepo  *repository.BookingRepo
}

func NewBookingHandler(svc *service.BookingService, showRepo *repository.ShowRepo, hallRepo *repository.HallRepo, showSeatRepo *repository.ShowSeatRepo, bookingRepo *repository.BookingRepo) *BookingHandler {
	if svc == nil || showRepo == nil || hallRepo == nil || showSeatRepo == nil || bookingRepo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Svc:          svc,
		ShowRepo:     showRepo,
		HallRepo:     hallRepo,
		ShowSeatRepo: showSeatRepo,
		BookingRepo:  bookingRepo,
	}
}

// SeatMap handles GET /v1/shows/:id/seats. Expired locks are swept
// before the map is read so customers never see seats held by dead
// sessions.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	showID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	ctx := c.Request().Context()
	if _, err := h.ShowRepo.GetByID(ctx, showID); err != nil {
		return fail(c, err)
	}

	// Lazy sweep; a failure here only means slightly staler locks.
	if _, err := h.Svc.Sweep(ctx, time.Now().UTC()); err != nil {
		c.Logger().Warnf("lazy sweep failed: %v", err)
	}

	seats, err := h.ShowSeatRepo.ListByShow(ctx, showID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": seats})
}

// Reserve handles POST /v1/shows/:id/bookings. The request body carries
// the seat selection; all seats are locked and the pending booking is
// created in one atomic step.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	booking, err := h.Svc.Reserve(c.Request().Context(), userID, showID, body.SeatIDs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, booking)
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	bookings, err := h.BookingRepo.ListByUser(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]echo.Map, 0, len(bookings))
	for _, b := range bookings {
		labels, err := h.BookingRepo.SeatLabels(ctx, b.ID)
		if err != nil {
			return fail(c, err)
		}
		out = append(out, echo.Map{"booking": b, "seats": labels})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	booking, err := h.BookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return fail(c, err)
	}
	if booking.UserID != userID {
		return fail(c, repository.ErrForbidden)
	}
	labels, err := h.BookingRepo.SeatLabels(ctx, bookingID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking, "seats": labels})
}

// InitiatePayment handles POST /v1/bookings/:id/payment. It opens a
// checkout session for a pending booking and returns the hosted
// checkout URL.
func (h *BookingHandler) InitiatePayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	session, err := h.Svc.InitiatePayment(c.Request().Context(), userID, bookingID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":   session.ID,
		"checkout_url": session.URL,
		"amount_cents": session.AmountCents,
	})
}

// ConfirmPayment handles GET /v1/bookings/:id/confirm. The gateway
// redirects the customer here after checkout; safe to hit repeatedly.
func (h *BookingHandler) ConfirmPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	booking, approvedNow, err := h.Svc.ConfirmPayment(c.Request().Context(), userID, bookingID, c.QueryParam("session_id"))
	if err != nil {
		return fail(c, err)
	}
	if approvedNow {
		h.publishApproved(booking.ID, booking.UserID, booking.ShowID, booking.AmountCents, booking.ConfirmationCode)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":        booking.ID,
		"status":            booking.Status,
		"confirmation_code": booking.ConfirmationCode,
		"amount_cents":      booking.AmountCents,
	})
}

// Cancel handles DELETE /v1/bookings/:id. Pending bookings release
// their seats immediately; terminal bookings are rejected.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), userID, bookingID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": bookingID, "status": "CANCELLED"})
}

// publishApproved emits the booking.approved event in the background.
// Publish failures are logged inside the queue package and never affect
// the customer's response.
func (h *BookingHandler) publishApproved(bookingID, userID, showID uint64, amountCents uint64, code *string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		ev := queue.BookingApprovedEvent{
			BookingID:   bookingID,
			UserID:      userID,
			ShowID:      showID,
			AmountCents: amountCents,
			ApprovedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if code != nil {
			ev.ConfirmationCode = *code
		}
		if show, err := h.ShowRepo.GetByID(ctx, showID); err == nil {
			ev.MovieTitle = show.MovieTitle
			ev.StartsAt = show.StartsAt.Format(time.RFC3339)
			if hall, err := h.HallRepo.GetByID(ctx, show.HallID); err == nil {
				ev.HallName = hall.Name
			}
		}
		if labels, err := h.BookingRepo.SeatLabels(ctx, bookingID); err == nil {
			ev.SeatLabels = labels
		}
		_ = queue.PublishBookingApproved(ctx, ev)
	}()
}
