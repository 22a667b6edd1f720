package responder

import (
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/venafi/tls-responder/internal/app/domain"
)

// DefaultMinTLSVersion is used when no minimum version is configured
const DefaultMinTLSVersion = tls.VersionTLS12

// cipherSuites are the TLS 1.2 suites offered, TLS 1.3 suites are not configurable
var cipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// NewTLSConfig will return the server TLS configuration using certificate as its only identity
func NewTLSConfig(cfg *domain.ServerConfig, certificate tls.Certificate) (*tls.Config, error) {
	version, err := ParseTLSVersion(cfg.MinTLSVersion)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   version,
		CipherSuites: cipherSuites,
		NextProtos:   []string{"h2", "http/1.1"},
	}, nil
}

// ParseTLSVersion maps "1.2" or "1.3" to the tls package constant, empty selects DefaultMinTLSVersion
func ParseTLSVersion(value string) (uint16, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "tls") {
	case "":
		return DefaultMinTLSVersion, nil
	case "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	}

	return 0, fmt.Errorf(`unsupported minimum TLS version "%s", expected 1.2 or 1.3`, value)
}
