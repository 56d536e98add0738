package server

import (
	"net/http"
	"time"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/telemetry", s.TelemetryHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// TelemetryHandler serves the last polled inverter snapshot as JSON.
func (s *Server) TelemetryHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetTelemetryRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "telemetry: FAIL")
	}
	response, ok := res.(domain.GetTelemetryResponse)
	if !ok || response.HasResponseError() || response.Telemetry == nil {
		return c.String(http.StatusServiceUnavailable, "telemetry: FAIL")
	}
	return c.JSON(http.StatusOK, response.Telemetry)
}
