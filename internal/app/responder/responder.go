// Package responder answers every request on the TLS endpoint with a fixed greeting
package responder

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Greeting is the body of every response
const Greeting = "🔐 Hello, this is a secure HTTPS server!"

// GreetingServiceImpl implementation of web.GreetingService
type GreetingServiceImpl struct {
	body []byte
}

// NewGreetingService will return a new GreetingServiceImpl
func NewGreetingService() *GreetingServiceImpl {
	return &GreetingServiceImpl{
		body: []byte(Greeting),
	}
}

// HandleGreeting will respond with 200 and the greeting as plain text regardless of method, path or headers
func (svc *GreetingServiceImpl) HandleGreeting(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextPlain, svc.body)
}
