package web

import (
	"bytes"
	"log"

	"github.com/venafi/tls-responder/internal/app/domain"
	"go.uber.org/zap"
)

var handshakeErrorPrefix = []byte("http: TLS handshake error")

// errorLogWriter receives net/http server errors. Failed handshakes are counted and logged at debug level,
// the connection has already been dropped by the time they are reported.
type errorLogWriter struct {
	metrics *Metrics
}

func newErrorLog(metrics *Metrics) *log.Logger {
	return log.New(&errorLogWriter{metrics: metrics}, "", 0)
}

func (w *errorLogWriter) Write(p []byte) (int, error) {
	message := string(bytes.TrimSpace(p))

	if bytes.HasPrefix(p, handshakeErrorPrefix) {
		w.metrics.HandshakeFailures.Inc()
		zap.L().Debug("connection dropped", zap.String("detail", message), zap.Error(domain.ErrHandshakeFailure))
		return len(p), nil
	}

	zap.L().Warn("http server error", zap.String("detail", message))
	return len(p), nil
}
