package responder

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestHandleGreeting(t *testing.T) {
	e := echo.New()

	t.Parallel()

	t.Run("success", func(t *testing.T) {
		svc := NewGreetingService()

		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, "BREW"} {
			recorder, ctx := setup(e, method, "/any/path?x=1", strings.NewReader("ignored"))

			err := svc.HandleGreeting(ctx)
			require.NoError(t, err)

			response := recorder.Result() //nolint:bodyclose
			defer func() {
				_ = response.Body.Close()
			}()
			require.Equal(t, http.StatusOK, response.StatusCode)
			require.Equal(t, echo.MIMETextPlain, response.Header.Get(echo.HeaderContentType))
			require.Equal(t, Greeting, recorder.Body.String())
		}
	})
}

func setup(e *echo.Echo, method, path string, body io.Reader) (*httptest.ResponseRecorder, echo.Context) {
	request := httptest.NewRequest(method, path, body)
	recorder := httptest.NewRecorder()
	return recorder, e.NewContext(request, recorder)
}
