package provisioner

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/material"
)

var serialNumberLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// X509Provider implementation of CryptoProvider using crypto/x509
type X509Provider struct {
	random io.Reader
	now    func() time.Time
}

// NewX509Provider will return a new X509Provider
func NewX509Provider() *X509Provider {
	return &X509Provider{
		random: rand.Reader,
		now:    time.Now,
	}
}

// Name returns ProviderX509
func (p *X509Provider) Name() string {
	return ProviderX509
}

// Generate will create an RSA key and a certificate for the request common name signed by that key
func (p *X509Provider) Generate(req *domain.ProvisionRequest) (*domain.CertificateMaterial, error) {
	var err error

	if err = req.Validate(); err != nil {
		return nil, err
	}

	var cn string
	cn, err = material.NormalizeCommonName(req.SubjectCommonName)
	if err != nil {
		return nil, err
	}

	var key *rsa.PrivateKey
	key, err = rsa.GenerateKey(p.random, req.KeySizeBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %d bit RSA key: %w", req.KeySizeBits, err)
	}

	var serialNumber *big.Int
	serialNumber, err = rand.Int(p.random, serialNumberLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := p.now().UTC().Truncate(time.Second)

	template := &x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, req.ValidityDays),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		SignatureAlgorithm:    req.SignatureAlgorithm.X509(),
	}

	if ip := net.ParseIP(cn); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else if isHostname(cn) {
		template.DNSNames = []string{cn}
	}

	var der []byte
	der, err = x509.CreateCertificate(p.random, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return material.Parse(material.EncodeCertificate(der), material.EncodeRSAPrivateKey(key))
}
