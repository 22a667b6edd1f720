// Package web contains the TLS web server and its registered handlers
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/venafi/tls-responder/internal/app/domain"
	"go.uber.org/atomic"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate go run github.com/golang/mock/mockgen -source ./web.go -destination=./mocks/mock_web.go -package=mocks

// GreetingService interfaces for answering requests
type GreetingService interface {
	HandleGreeting(c echo.Context) error
}

// State is the lifecycle state of a Server
type State string

const (
	// StateUnstarted is the state before Start is called
	StateUnstarted State = "unstarted"
	// StateListening is the state while connections are accepted
	StateListening State = "listening"
	// StateStopped is the state after Stop
	StateStopped State = "stopped"
)

// Server terminates TLS on the configured address and hands decrypted requests to echo
type Server struct {
	Echo *echo.Echo

	config     *domain.ServerConfig
	tlsConfig  *tls.Config
	shutdowner fx.Shutdowner
	listener   net.Listener
	state      *atomic.String
}

// NewServer will return a new Server, nothing is bound until Start
func NewServer(cfg *domain.ServerConfig, tlsConfig *tls.Config, metrics *Metrics, shutdowner fx.Shutdowner) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.TLSServer.TLSConfig = tlsConfig
	e.TLSServer.ReadHeaderTimeout = cfg.ReadHeaderTimeout
	e.TLSServer.ErrorLog = newErrorLog(metrics)
	e.TLSServer.ConnState = metrics.TrackConnState

	return &Server{
		Echo:       e,
		config:     cfg,
		tlsConfig:  tlsConfig,
		shutdowner: shutdowner,
		state:      atomic.NewString(string(StateUnstarted)),
	}
}

// ConfigureHTTPServers creates the TLS server and ties its start and stop to the fx lifecycle
func ConfigureHTTPServers(lifecycle fx.Lifecycle, shutdowner fx.Shutdowner, cfg *domain.ServerConfig, tlsConfig *tls.Config, metrics *Metrics) (*Server, error) {
	s := NewServer(cfg, tlsConfig, metrics, shutdowner)

	lifecycle.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})

	return s, nil
}

// Start will bind the configured address and serve TLS connections in the background. A bind failure is
// returned as a *domain.BindError.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.config.Address())
	if err != nil {
		zap.L().Error("failed to bind listen address", zap.String("address", s.config.Address()), zap.Error(err))
		return &domain.BindError{Address: s.config.Address(), Err: err}
	}

	s.listener = ln
	s.state.Store(string(StateListening))

	zap.L().Info("secure server running", zap.String("url", "https://"+ln.Addr().String()))

	go func() {
		if err := s.Echo.TLSServer.ServeTLS(ln, "", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("TLS server stopped unexpectedly", zap.Error(err))
			s.state.Store(string(StateStopped))
			if s.shutdowner == nil {
				return
			}
			if err = s.shutdowner.Shutdown(); err != nil {
				zap.L().Error("fx shutdown error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop will close the listener and wait for active requests to finish until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	s.state.Store(string(StateStopped))
	zap.L().Info("secure server stopping")
	return s.Echo.Shutdown(ctx)
}

// State returns the current lifecycle state
func (s *Server) State() State {
	return State(s.state.Load())
}

// Address returns the bound address, or the configured one before Start
func (s *Server) Address() string {
	if s.listener == nil {
		return s.config.Address()
	}
	return s.listener.Addr().String()
}

// RegisterHandlers will answer every request with the greeting service. The handler is installed as the last
// pre-router middleware so no method or path can miss it.
func RegisterHandlers(s *Server, svc GreetingService, metrics *Metrics) error {
	e := s.Echo

	e.Pre(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Pre(requestLogger())
	e.Pre(middleware.Recover())
	e.Pre(metrics.Middleware())
	e.Pre(func(echo.HandlerFunc) echo.HandlerFunc {
		return svc.HandleGreeting
	})

	return nil
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("request",
				zap.String("id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.String("remoteIp", v.RemoteIP),
				zap.Duration("latency", v.Latency))
			return nil
		},
	})
}
