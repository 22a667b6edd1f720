package provisioner

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/material"
	"go.uber.org/zap"
)

// OpenSSLProvider implementation of CryptoProvider running the openssl command
type OpenSSLProvider struct {
	path string
}

// NewOpenSSLProvider will return a new OpenSSLProvider for the openssl binary at path
func NewOpenSSLProvider(path string) *OpenSSLProvider {
	return &OpenSSLProvider{path: path}
}

// Name returns ProviderOpenSSL
func (p *OpenSSLProvider) Name() string {
	return ProviderOpenSSL
}

// Generate will run openssl req to create the key and certificate in a scratch directory and read them back
func (p *OpenSSLProvider) Generate(req *domain.ProvisionRequest) (*domain.CertificateMaterial, error) {
	var err error

	if err = req.Validate(); err != nil {
		return nil, err
	}

	var cn string
	cn, err = material.NormalizeCommonName(req.SubjectCommonName)
	if err != nil {
		return nil, err
	}

	var dir string
	dir, err = os.MkdirTemp("", "generate-cert-")
	if err != nil {
		return nil, &domain.FilesystemError{Op: "mkdir", Path: os.TempDir(), Err: err}
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	certificatePath := filepath.Join(dir, "server.cert")
	keyPath := filepath.Join(dir, "server.key")

	var stderr bytes.Buffer

	cmd := exec.Command(p.path, OpenSSLArgs(req, cn, certificatePath, keyPath)...)
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		zap.L().Error("openssl failed", zap.String("stderr", strings.TrimSpace(stderr.String())), zap.Error(err))
		return nil, fmt.Errorf("openssl failed: %w", err)
	}

	var certificatePEM, keyPEM []byte
	certificatePEM, err = os.ReadFile(certificatePath)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "read", Path: certificatePath, Err: err}
	}

	keyPEM, err = os.ReadFile(keyPath)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "read", Path: keyPath, Err: err}
	}

	return material.Parse(certificatePEM, keyPEM)
}

// OpenSSLArgs returns the openssl arguments producing the same material as the built-in generator
func OpenSSLArgs(req *domain.ProvisionRequest, cn, certificatePath, keyPath string) []string {
	return []string{
		"req", "-x509", "-nodes",
		"-newkey", "rsa:" + strconv.Itoa(req.KeySizeBits),
		"-" + string(req.SignatureAlgorithm),
		"-days", strconv.Itoa(req.ValidityDays),
		"-subj", "/CN=" + escapeSubject(cn),
		"-keyout", keyPath,
		"-out", certificatePath,
	}
}

// OpenSSLCommand returns a command line for generating the certificate by hand
func OpenSSLCommand(req *domain.ProvisionRequest, certificatePath, keyPath string) string {
	args := OpenSSLArgs(req, req.SubjectCommonName, certificatePath, keyPath)
	for i, arg := range args {
		args[i] = shellQuote(arg)
	}

	return fmt.Sprintf("openssl %s", strings.Join(args, " "))
}

// shellQuote wraps value in single quotes unless every character is safe to pass to a POSIX shell unquoted
func shellQuote(value string) string {
	if value != "" && strings.IndexFunc(value, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=+,@%", r))
	}) < 0 {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// escapeSubject escapes the characters openssl treats as separators in -subj values
func escapeSubject(value string) string {
	r := strings.NewReplacer(`\`, `\\`, "/", `\/`, "+", `\+`, "=", `\=`)
	return r.Replace(value)
}
