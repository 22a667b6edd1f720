package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for provisioning requests with unusable values
	ErrInvalidRequest = errors.New("invalid provision request")
	// ErrHandshakeFailure classifies a TLS handshake that failed on an accepted connection
	ErrHandshakeFailure = errors.New("tls handshake failure")
)

// DependencyUnavailableError is returned when a cryptographic provider cannot be loaded.
// Fallback holds instructions for producing the certificate another way.
type DependencyUnavailableError struct {
	Provider string
	Fallback string
	Err      error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf(`crypto provider "%s" is unavailable: %v`, e.Provider, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error {
	return e.Err
}

// FilesystemError is returned when certificate material cannot be written
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf(`%s "%s" failed: %v`, e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// CertificateLoadError is returned when the responder cannot read or parse its certificate or key
type CertificateLoadError struct {
	Path string
	Err  error
}

func (e *CertificateLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load certificate material: %v", e.Err)
	}
	return fmt.Sprintf(`failed to load certificate material from "%s": %v`, e.Path, e.Err)
}

func (e *CertificateLoadError) Unwrap() error {
	return e.Err
}

// BindError is returned when the listen address cannot be bound
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf(`failed to bind "%s": %v`, e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
