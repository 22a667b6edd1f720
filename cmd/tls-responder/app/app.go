package app

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/responder"
	"github.com/venafi/tls-responder/internal/config"
	"github.com/venafi/tls-responder/internal/handler/web"
	"github.com/venafi/tls-responder/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var flagKeys = map[string]string{
	"host":            "listen.host",
	"port":            "listen.port",
	"cert":            "tls.cert",
	"key":             "tls.key",
	"min-tls":         "tls.minversion",
	"metrics-address": "metrics.address",
	"log-level":       "log.level",
}

// New builds the responder application. The certificate and key are loaded while the application is built, so
// a CertificateLoadError surfaces through Err() before anything is bound.
func New(cfg *domain.ServerConfig, level zapcore.Level, opts ...fx.Option) *fx.App {
	options := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			func() (*zap.Logger, error) {
				return logging.Configure(level)
			},
			responder.LoadKeyPair,
			responder.NewTLSConfig,
			web.NewMetrics,
			web.ConfigureHTTPServers,
			fx.Annotate(responder.NewGreetingService, fx.As(new(web.GreetingService))),
		),
		fx.Invoke(
			web.RegisterHandlers,
			web.ConfigureSystemServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))}
		}),
	}

	app := fx.New(append(options, opts...)...)
	if app.Err() == nil {
		zap.L().Info("TLS responder starting", zap.String("address", cfg.Address()), zap.String("certificate", cfg.CertificatePath))
	}

	return app
}

// Serve will start the application and block until it is signalled or shut down
func Serve(app *fx.App) error {
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		return err
	}

	signal := <-app.Done()
	zap.L().Info("TLS responder shutting down", zap.String("signal", signal.String()))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()

	return app.Stop(stopCtx)
}

// NewCLI returns the tls-responder command
func NewCLI() *cli.App {
	return &cli.App{
		Name:  "tls-responder",
		Usage: "serve a fixed greeting over HTTPS using a certificate from generate-cert",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML configuration `FILE`"},
			&cli.StringFlag{Name: "host", Usage: "listen host, empty for all interfaces"},
			&cli.IntFlag{Name: "port", Value: 3443, Usage: "listen port"},
			&cli.StringFlag{Name: "cert", Value: "certs/server.cert", Usage: "PEM certificate `FILE`"},
			&cli.StringFlag{Name: "key", Value: "certs/server.key", Usage: "PEM private key `FILE`"},
			&cli.StringFlag{Name: "min-tls", Value: "1.2", Usage: "minimum TLS version, 1.2 or 1.3"},
			&cli.StringFlag{Name: "metrics-address", Usage: "plain HTTP address for /metrics and /healthz, disabled when empty"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"), config.FlagOverrides(c, flagKeys))
			if err != nil {
				return err
			}

			var level zapcore.Level
			level, err = logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}

			return Serve(New(cfg.ServerConfig(), level))
		},
	}
}
