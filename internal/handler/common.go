package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/repository"
	"github.com/cinebooker/cinebooker/internal/service"
)

// getUserID extracts the authenticated user id from the context, where
// JWTAuth stored the token's subject claim.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

// fail translates domain errors into JSON error responses. Unknown
// errors become an opaque 500.
func fail(c echo.Context, err error) error {
	var unavailable *repository.SeatUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "seats unavailable, please reselect",
			"seat_ids": unavailable.SeatIDs,
		})
	case errors.Is(err, repository.ErrShowNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrCinemaNotFound),
		errors.Is(err, repository.ErrHallNotFound),
		errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNoSeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSessionExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation session expired, please reselect seats"})
	case errors.Is(err, service.ErrPaymentNotCompleted):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment not completed"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
