package server

import (
	"github.com/afriplan/takeoff/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api")

	// Take-off runs
	apiRoutes.POST("/projects/:id/takeoff", routes.StartTakeoffHandler)
	apiRoutes.GET("/runs/:id", routes.GetRunHandler)
	apiRoutes.GET("/runs/:id/report", routes.GetRunReportHandler)

	// Correction log
	apiRoutes.POST("/runs/:id/corrections", routes.RecordCorrectionHandler)
	apiRoutes.GET("/runs/:id/corrections", routes.ListCorrectionsHandler)
}
