package http

import "github.com/labstack/echo/v4"

// Handler mounts its routes on the server's API group (default "/api").
type Handler interface {
	RegisterRoutes(api *echo.Group)
}
