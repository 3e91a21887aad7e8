// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated catalog endpoints. The
// response cache covers the catalog reads only. The seat map lives on
// the booking handler because reading it triggers a lazy sweep of
// expired locks, and it is never cached: its body reflects live lock
// status.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/cinemas", p.ListCinemas, cache)
	e.GET("/v1/cinemas/:id/halls", p.ListHalls, cache)
	e.GET("/v1/halls/:id/shows", p.ListShows, cache)
	e.GET("/v1/shows/:id", p.GetShow, cache)
	e.GET("/v1/shows/:id/seats", b.SeatMap)
}
