package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/handler"
	"github.com/cinebooker/cinebooker/internal/middleware"
)

// RegisterCustomer registers the reservation flow under /v1. All routes
// require a valid JWT and the CUSTOMER role. A customer reserves seats,
// opens a checkout session, confirms payment after checkout, and can
// cancel a pending booking to free its seats immediately.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/shows/:id/bookings", b.Reserve)
	g.GET("/my-bookings", b.MyBookings)
	g.GET("/bookings/:id", b.GetBooking)
	g.POST("/bookings/:id/payment", b.InitiatePayment)
	g.GET("/bookings/:id/confirm", b.ConfirmPayment)
	g.DELETE("/bookings/:id", b.Cancel)
}
