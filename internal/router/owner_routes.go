package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebooker/cinebooker/internal/handler"
	"github.com/cinebooker/cinebooker/internal/middleware"
)

// RegisterOwner registers the owner endpoints under /v1. All routes
// require a valid JWT with the OWNER role.
func RegisterOwner(e *echo.Echo, cat *handler.OwnerCatalogHandler, shows *handler.OwnerShowHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER"),
	)
	g.POST("/cinemas", cat.CreateCinema)
	g.POST("/halls", cat.CreateHall)

	g.POST("/shows", shows.CreateShow)
	g.PATCH("/shows/:id/price", shows.UpdatePrice)
	g.POST("/shows/:id/release-locks", shows.ReleaseLocks)
	g.GET("/shows/:id/bookings", shows.ListBookings)
}
