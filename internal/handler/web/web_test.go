package web

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/provisioner"
	"github.com/venafi/tls-responder/internal/app/responder"
	"github.com/venafi/tls-responder/internal/handler/web/mocks"
)

type testServer struct {
	server  *Server
	metrics *Metrics
	client  *http.Client
	roots   *x509.CertPool
}

func startTestServer(t *testing.T) *testServer {
	dir := t.TempDir()
	cfg := &domain.ServerConfig{
		ListenHost:        "127.0.0.1",
		ListenPort:        0,
		CertificatePath:   filepath.Join(dir, "certs", "server.cert"),
		KeyPath:           filepath.Join(dir, "certs", "server.key"),
		MinTLSVersion:     "1.2",
		ReadHeaderTimeout: 5 * time.Second,
	}

	_, err := provisioner.NewProvisioner(provisioner.NewX509Provider()).Provision(&domain.ProvisionRequest{
		SubjectCommonName:  "localhost",
		ValidityDays:       1,
		KeySizeBits:        2048,
		SignatureAlgorithm: domain.SignatureAlgorithmSHA256,
	}, cfg.CertificatePath, cfg.KeyPath)
	require.NoError(t, err)

	certificate, err := responder.LoadKeyPair(cfg)
	require.NoError(t, err)

	tlsConfig, err := responder.NewTLSConfig(cfg, certificate)
	require.NoError(t, err)

	metrics := NewMetrics()
	s := NewServer(cfg, tlsConfig, metrics, nil)
	require.Equal(t, StateUnstarted, s.State())

	require.NoError(t, RegisterHandlers(s, responder.NewGreetingService(), metrics))
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, StateListening, s.State())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})

	certificatePEM, err := os.ReadFile(cfg.CertificatePath)
	require.NoError(t, err)

	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(certificatePEM))

	return &testServer{
		server:  s,
		metrics: metrics,
		roots:   roots,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs:    roots,
					ServerName: "localhost",
				},
			},
		},
	}
}

func (ts *testServer) url(path string) string {
	return "https://" + ts.server.Address() + path
}

func TestRegisterHandlers(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		requests := []struct {
			method string
			path   string
		}{
			{http.MethodGet, "/"},
			{http.MethodPost, "/v1/testconnection"},
			{http.MethodPut, "/a/b/c"},
			{http.MethodDelete, "/healthz"},
			{"PURGE", "/cache"},
		}

		mockGreetingService := mocks.NewMockGreetingService(ctrl)
		mockGreetingService.EXPECT().
			HandleGreeting(gomock.Any()).
			DoAndReturn(func(c echo.Context) error {
				return c.String(http.StatusOK, "mocked")
			}).
			Times(len(requests))

		metrics := NewMetrics()
		s := NewServer(&domain.ServerConfig{}, &tls.Config{}, metrics, nil)
		require.NoError(t, RegisterHandlers(s, mockGreetingService, metrics))

		for _, r := range requests {
			recorder := httptest.NewRecorder()
			s.Echo.ServeHTTP(recorder, httptest.NewRequest(r.method, r.path, nil))

			require.Equal(t, http.StatusOK, recorder.Code, r.path)
			require.Equal(t, "mocked", recorder.Body.String())
			require.NotEmpty(t, recorder.Header().Get(echo.HeaderXRequestID))
		}

		require.Equal(t, float64(1), testutil.ToFloat64(metrics.Requests.WithLabelValues("other")))
		require.Equal(t, float64(0), testutil.ToFloat64(metrics.Requests.WithLabelValues("PURGE")))
		require.Equal(t, float64(1), testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet)))
	})

	t.Run("handler panic is recovered", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockGreetingService := mocks.NewMockGreetingService(ctrl)
		mockGreetingService.EXPECT().
			HandleGreeting(gomock.Any()).
			DoAndReturn(func(c echo.Context) error {
				panic("boom")
			})

		metrics := NewMetrics()
		s := NewServer(&domain.ServerConfig{}, &tls.Config{}, metrics, nil)
		require.NoError(t, RegisterHandlers(s, mockGreetingService, metrics))

		recorder := httptest.NewRecorder()
		s.Echo.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}

func TestServer(t *testing.T) {
	ts := startTestServer(t)

	t.Run("any method and path gets the greeting", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, "PURGE"} {
			for _, path := range []string{"/", "/index.html", "/deep/nested/path?q=1"} {
				request, err := http.NewRequest(method, ts.url(path), strings.NewReader("payload"))
				require.NoError(t, err)
				request.Header.Set("X-Custom", "value")

				response, err := ts.client.Do(request)
				require.NoError(t, err)

				body, err := io.ReadAll(response.Body)
				_ = response.Body.Close()
				require.NoError(t, err)

				require.Equal(t, http.StatusOK, response.StatusCode, method+" "+path)
				require.Equal(t, echo.MIMETextPlain, response.Header.Get(echo.HeaderContentType))
				require.Equal(t, responder.Greeting, string(body))
			}
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 20)

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				response, err := ts.client.Get(ts.url("/" + strconv.Itoa(i)))
				if err != nil {
					errs <- err
					return
				}
				defer func() {
					_ = response.Body.Close()
				}()
				body, err := io.ReadAll(response.Body)
				if err != nil {
					errs <- err
					return
				}
				if response.StatusCode != http.StatusOK || string(body) != responder.Greeting {
					errs <- errors.New("unexpected response " + response.Status)
				}
			}(i)
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
	})
}

func TestHandshakeRejection(t *testing.T) {
	ts := startTestServer(t)

	// an established connection that must survive the rejected handshakes
	response, err := ts.client.Get(ts.url("/before"))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()

	rejected := []*tls.Config{
		{
			RootCAs:    ts.roots,
			ServerName: "localhost",
			MinVersion: tls.VersionTLS10,
			MaxVersion: tls.VersionTLS11,
		},
		{
			RootCAs:      ts.roots,
			ServerName:   "localhost",
			MaxVersion:   tls.VersionTLS12,
			CipherSuites: []uint16{tls.TLS_RSA_WITH_AES_128_CBC_SHA},
		},
	}

	for _, config := range rejected {
		conn, err := tls.Dial("tcp", ts.server.Address(), config)
		if err == nil {
			err = conn.Handshake()
			_ = conn.Close()
		}
		require.Error(t, err)
	}

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ts.metrics.HandshakeFailures) >= float64(len(rejected))
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, StateListening, ts.server.State())

	response, err = ts.client.Get(ts.url("/after"))
	require.NoError(t, err)
	body, err := io.ReadAll(response.Body)
	_ = response.Body.Close()
	require.NoError(t, err)
	require.Equal(t, responder.Greeting, string(body))
}

func TestServerBindError(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = occupied.Close()
	}()

	port := occupied.Addr().(*net.TCPAddr).Port

	metrics := NewMetrics()
	s := NewServer(&domain.ServerConfig{ListenHost: "127.0.0.1", ListenPort: port}, &tls.Config{}, metrics, nil)

	err = s.Start(context.Background())

	var bindErr *domain.BindError
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, "127.0.0.1:"+strconv.Itoa(port), bindErr.Address)
	require.Equal(t, StateUnstarted, s.State())
}

func TestServerStop(t *testing.T) {
	ts := startTestServer(t)
	address := ts.server.Address()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, ts.server.Stop(ctx))
	require.Equal(t, StateStopped, ts.server.State())

	_, err := net.DialTimeout("tcp", address, time.Second)
	require.Error(t, err)
}

func TestServerListenerFailure(t *testing.T) {
	ts := startTestServer(t)
	require.Equal(t, StateListening, ts.server.State())

	require.NoError(t, ts.server.listener.Close())

	require.Eventually(t, func() bool {
		return ts.server.State() == StateStopped
	}, 5*time.Second, 10*time.Millisecond)
}
