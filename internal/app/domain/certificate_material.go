// Package domain contains shared definitions.
package domain

import (
	"math/big"
	"time"
)

// CertificateMaterial represents a PEM encoded certificate and the private key it was issued for
type CertificateMaterial struct {
	// Certificate is the PEM encoded X.509 certificate
	Certificate []byte `json:"certificate"`
	// PrivateKey is the PEM encoded private key
	PrivateKey []byte `json:"privateKey"`
	// NotBefore is the start of the validity window
	NotBefore time.Time `json:"notBefore"`
	// NotAfter is the end of the validity window
	NotAfter time.Time `json:"notAfter"`
	// SubjectCommonName is the common name of the certificate subject
	SubjectCommonName string `json:"subjectCommonName"`
	// SerialNumber is the certificate serial number
	SerialNumber *big.Int `json:"serialNumber"`
	// KeyID is the base64url SHA-256 JWK thumbprint of the public key
	KeyID string `json:"keyId"`
}
