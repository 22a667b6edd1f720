package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/venafi/tls-responder/internal/app/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConfigureSystemServer creates the plain HTTP system server with health and metrics endpoints. It is skipped
// when no metrics address is configured.
func ConfigureSystemServer(lifecycle fx.Lifecycle, shutdowner fx.Shutdowner, cfg *domain.ServerConfig, metrics *Metrics) error {
	if cfg.MetricsAddress == "" {
		return nil
	}

	e := NewSystemServer(metrics)

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.MetricsAddress); err != nil && err != http.ErrServerClosed {
					zap.L().Error("failed to start system server", zap.Error(err))
					if err = shutdowner.Shutdown(); err != nil {
						zap.L().Error("fx shutdown error", zap.Error(err))
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})

	return nil
}

// NewSystemServer returns the echo engine serving /healthz and /metrics
func NewSystemServer(metrics *Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return e
}
