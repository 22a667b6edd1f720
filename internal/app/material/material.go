// Package material parses and describes PEM encoded certificate and key pairs
package material

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/venafi/tls-responder/internal/app/domain"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/square/go-jose.v2"
)

const (
	pemTypeCertificate   = "CERTIFICATE"
	pemTypeRSAPrivateKey = "RSA PRIVATE KEY"
	pemTypeECPrivateKey  = "EC PRIVATE KEY"
	pemTypePrivateKey    = "PRIVATE KEY"
)

// Part names the half of a certificate and key pair a ParseError is about
type Part string

// Parts reported by ParseError
const (
	PartCertificate Part = "certificate"
	PartPrivateKey  Part = "private key"
	PartPair        Part = "pair"
)

// ParseError is returned by Parse
type ParseError struct {
	Part Part
	Err  error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse will decode a PEM certificate and private key, check that they belong together and return the
// described certificate material. Failures are a *ParseError naming the part that could not be used.
func Parse(certificatePEM, privateKeyPEM []byte) (*domain.CertificateMaterial, error) {
	certificate, err := ParseCertificatePEM(certificatePEM)
	if err != nil {
		return nil, &ParseError{Part: PartCertificate, Err: err}
	}

	var key crypto.Signer
	key, err = ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return nil, &ParseError{Part: PartPrivateKey, Err: err}
	}

	public, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !public.Equal(certificate.PublicKey) {
		return nil, &ParseError{Part: PartPair, Err: errors.New("private key does not match the certificate public key")}
	}

	var keyID string
	keyID, err = KeyID(certificate.PublicKey)
	if err != nil {
		return nil, &ParseError{Part: PartCertificate, Err: err}
	}

	return &domain.CertificateMaterial{
		Certificate:       certificatePEM,
		PrivateKey:        privateKeyPEM,
		NotBefore:         certificate.NotBefore,
		NotAfter:          certificate.NotAfter,
		SubjectCommonName: certificate.Subject.CommonName,
		SerialNumber:      certificate.SerialNumber,
		KeyID:             keyID,
	}, nil
}

// ParseCertificatePEM will return the first certificate found in the PEM content
func ParseCertificatePEM(content []byte) (*x509.Certificate, error) {
	var block *pem.Block

	remaining := content
	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}

		if block.Type != pemTypeCertificate {
			continue
		}

		certificate, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("error parsing TLS certificate: %w", err)
		}

		return certificate, nil
	}

	return nil, errors.New("no PEM encoded certificate found")
}

// ParsePrivateKeyPEM will return the first private key found in the PEM content. PKCS#1, SEC 1 and PKCS#8
// encodings are accepted.
func ParsePrivateKeyPEM(content []byte) (crypto.Signer, error) {
	var block *pem.Block

	remaining := content
	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}

		switch block.Type {
		case pemTypeRSAPrivateKey:
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("error parsing RSA private key: %w", err)
			}
			return key, nil
		case pemTypeECPrivateKey:
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("error parsing EC private key: %w", err)
			}
			return key, nil
		case pemTypePrivateKey:
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("error parsing PKCS#8 private key: %w", err)
			}
			switch k := key.(type) {
			case *rsa.PrivateKey:
				return k, nil
			case *ecdsa.PrivateKey:
				return k, nil
			default:
				return nil, fmt.Errorf("unsupported private key type %T", key)
			}
		}
	}

	return nil, errors.New("no PEM encoded private key found")
}

// EncodeCertificate will PEM encode DER certificate bytes
func EncodeCertificate(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: der})
}

// EncodeRSAPrivateKey will PEM encode an RSA key in PKCS#1 form
func EncodeRSAPrivateKey(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeRSAPrivateKey, Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// KeyID returns the RFC 7638 SHA-256 thumbprint of a public key, base64url encoded
func KeyID(public crypto.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: public}

	thumbprint, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("unable to compute key thumbprint: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// Label returns a short name for certificate material built from the common name, expiry date and the last
// digits of the serial number
func Label(m *domain.CertificateMaterial) string {
	suffix := ""
	if m.SerialNumber != nil && m.SerialNumber.BitLen() > 0 {
		sn := m.SerialNumber.String()
		if len(sn) > 4 {
			sn = sn[len(sn)-4:]
		}
		suffix = sn
	}

	return fmt.Sprintf("%s-%s-%s", m.SubjectCommonName, m.NotAfter.Format("060102"), suffix)
}

// NormalizeCommonName returns the NFC form of a subject common name
func NormalizeCommonName(input string) (string, error) {
	normalized, _, err := transform.String(norm.NFC, input)
	if err != nil {
		return "", fmt.Errorf("unable to normalize common name: %w", err)
	}

	return normalized, nil
}
