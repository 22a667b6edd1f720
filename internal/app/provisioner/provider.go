// Package provisioner generates self-signed certificates and writes them to disk
package provisioner

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/venafi/tls-responder/internal/app/domain"
)

//go:generate go run github.com/golang/mock/mockgen -source ./provider.go -destination=./mocks/mock_provider.go -package=mocks

const (
	// ProviderX509 is the built-in Go certificate generator
	ProviderX509 = "x509"
	// ProviderOpenSSL generates certificates with the openssl command
	ProviderOpenSSL = "openssl"
)

// CryptoProvider interfaces for generating certificate material
type CryptoProvider interface {
	// Name returns the name the provider is loaded by
	Name() string
	// Generate will create a new key pair and a certificate self-signed by it
	Generate(req *domain.ProvisionRequest) (*domain.CertificateMaterial, error)
}

var lookPath = exec.LookPath

// TryLoadCryptoProvider will probe for the named provider. When it cannot be used a
// *domain.DependencyUnavailableError carrying fallback instructions is returned.
func TryLoadCryptoProvider(name string) (CryptoProvider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderX509:
		return NewX509Provider(), nil
	case ProviderOpenSSL:
		path, err := lookPath("openssl")
		if err != nil {
			return nil, &domain.DependencyUnavailableError{
				Provider: ProviderOpenSSL,
				Fallback: fmt.Sprintf("rerun with --provider %s to use the built-in generator", ProviderX509),
				Err:      err,
			}
		}
		return NewOpenSSLProvider(path), nil
	}

	return nil, &domain.DependencyUnavailableError{
		Provider: name,
		Fallback: fmt.Sprintf("use one of the supported providers: %s, %s", ProviderX509, ProviderOpenSSL),
		Err:      errors.New("unknown provider"),
	}
}
