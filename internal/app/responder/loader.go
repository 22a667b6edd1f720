package responder

import (
	"crypto/tls"
	"errors"
	"os"

	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/material"
	"go.uber.org/zap"
)

// LoadCertificateMaterial will read and parse the certificate and key files. Any failure is returned as a
// *domain.CertificateLoadError.
func LoadCertificateMaterial(certificatePath, keyPath string) (*domain.CertificateMaterial, error) {
	certificatePEM, err := os.ReadFile(certificatePath)
	if err != nil {
		return nil, &domain.CertificateLoadError{Path: certificatePath, Err: err}
	}

	var keyPEM []byte
	keyPEM, err = os.ReadFile(keyPath)
	if err != nil {
		return nil, &domain.CertificateLoadError{Path: keyPath, Err: err}
	}

	var m *domain.CertificateMaterial
	m, err = material.Parse(certificatePEM, keyPEM)
	if err != nil {
		path := ""
		var parseErr *material.ParseError
		if errors.As(err, &parseErr) {
			switch parseErr.Part {
			case material.PartCertificate:
				path = certificatePath
			case material.PartPrivateKey:
				path = keyPath
			}
		}
		return nil, &domain.CertificateLoadError{Path: path, Err: err}
	}

	return m, nil
}

// NewKeyPair will build the TLS server identity from certificate material
func NewKeyPair(m *domain.CertificateMaterial) (tls.Certificate, error) {
	certificate, err := tls.X509KeyPair(m.Certificate, m.PrivateKey)
	if err != nil {
		return tls.Certificate{}, &domain.CertificateLoadError{Err: err}
	}

	return certificate, nil
}

// LoadKeyPair will load the configured certificate and key. The responder must not start listening when this
// fails.
func LoadKeyPair(cfg *domain.ServerConfig) (tls.Certificate, error) {
	m, err := LoadCertificateMaterial(cfg.CertificatePath, cfg.KeyPath)
	if err != nil {
		zap.L().Error("failed to load certificate material", zap.String("certificate", cfg.CertificatePath), zap.String("key", cfg.KeyPath), zap.Error(err))
		return tls.Certificate{}, err
	}

	var certificate tls.Certificate
	certificate, err = NewKeyPair(m)
	if err != nil {
		zap.L().Error("failed to build TLS key pair", zap.Error(err))
		return tls.Certificate{}, err
	}

	if certificate.Leaf == nil {
		certificate.Leaf, err = material.ParseCertificatePEM(m.Certificate)
		if err != nil {
			zap.L().Error("failed to parse leaf certificate", zap.Error(err))
			return tls.Certificate{}, &domain.CertificateLoadError{Path: cfg.CertificatePath, Err: err}
		}
	}

	zap.L().Info("loaded certificate material", zap.String("label", material.Label(m)), zap.String("keyId", m.KeyID), zap.Time("notAfter", m.NotAfter))
	return certificate, nil
}
