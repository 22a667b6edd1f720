package domain

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig represents the settings of a TLS responder process. It is built once at startup and not
// modified afterwards.
type ServerConfig struct {
	ListenHost        string
	ListenPort        int
	CertificatePath   string
	KeyPath           string
	MinTLSVersion     string
	ReadHeaderTimeout time.Duration
	// MetricsAddress is the plain HTTP address of the system server, empty disables it
	MetricsAddress string
}

// Address returns the host:port the responder binds
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.ListenPort))
}
