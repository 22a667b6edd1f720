package domain

import (
	"crypto/x509"
	"fmt"
	"strings"
)

// SignatureAlgorithm is the digest used when self-signing a certificate
type SignatureAlgorithm string

const (
	// SignatureAlgorithmSHA256 signs with SHA-256 and RSA
	SignatureAlgorithmSHA256 SignatureAlgorithm = "sha256"
	// SignatureAlgorithmSHA384 signs with SHA-384 and RSA
	SignatureAlgorithmSHA384 SignatureAlgorithm = "sha384"
	// SignatureAlgorithmSHA512 signs with SHA-512 and RSA
	SignatureAlgorithmSHA512 SignatureAlgorithm = "sha512"
)

// SupportedKeySizes lists the accepted RSA modulus sizes in bits
var SupportedKeySizes = []int{2048, 3072, 4096}

// ParseSignatureAlgorithm returns the SignatureAlgorithm for a digest name such as "SHA256"
func ParseSignatureAlgorithm(value string) (SignatureAlgorithm, error) {
	algorithm := SignatureAlgorithm(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := algorithm.x509(); !ok {
		return "", fmt.Errorf(`%w: unsupported signature algorithm "%s"`, ErrInvalidRequest, value)
	}

	return algorithm, nil
}

// X509 returns the x509 signature algorithm for RSA keys
func (a SignatureAlgorithm) X509() x509.SignatureAlgorithm {
	sa, _ := a.x509()
	return sa
}

func (a SignatureAlgorithm) x509() (x509.SignatureAlgorithm, bool) {
	switch a {
	case SignatureAlgorithmSHA256:
		return x509.SHA256WithRSA, true
	case SignatureAlgorithmSHA384:
		return x509.SHA384WithRSA, true
	case SignatureAlgorithmSHA512:
		return x509.SHA512WithRSA, true
	}

	return x509.UnknownSignatureAlgorithm, false
}

// ProvisionRequest contains the details for generating a self-signed certificate
type ProvisionRequest struct {
	SubjectCommonName  string             `json:"subjectCommonName"`
	ValidityDays       int                `json:"validityDays"`
	KeySizeBits        int                `json:"keySizeBits"`
	SignatureAlgorithm SignatureAlgorithm `json:"signatureAlgorithm"`
}

// Validate will check the request values are usable for generating a certificate
func (r *ProvisionRequest) Validate() error {
	if len(strings.TrimSpace(r.SubjectCommonName)) == 0 {
		return fmt.Errorf("%w: subject common name is empty", ErrInvalidRequest)
	}

	if r.ValidityDays <= 0 {
		return fmt.Errorf("%w: validity days must be positive, got %d", ErrInvalidRequest, r.ValidityDays)
	}

	supported := false
	for _, size := range SupportedKeySizes {
		if size == r.KeySizeBits {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: unsupported key size %d, expected one of %v", ErrInvalidRequest, r.KeySizeBits, SupportedKeySizes)
	}

	if _, ok := r.SignatureAlgorithm.x509(); !ok {
		return fmt.Errorf(`%w: unsupported signature algorithm "%s"`, ErrInvalidRequest, r.SignatureAlgorithm)
	}

	return nil
}
