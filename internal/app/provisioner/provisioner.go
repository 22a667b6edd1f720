package provisioner

import (
	"os"
	"path/filepath"

	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/material"
	"go.uber.org/zap"
)

const (
	// DefaultCertificatePath is where the certificate is written when no path is configured
	DefaultCertificatePath = "certs/server.cert"
	// DefaultKeyPath is where the private key is written when no path is configured
	DefaultKeyPath = "certs/server.key"
)

// Provisioner generates certificate material with a CryptoProvider and stores it on disk
type Provisioner struct {
	Provider CryptoProvider
}

// NewProvisioner will return a new Provisioner
func NewProvisioner(provider CryptoProvider) *Provisioner {
	return &Provisioner{
		Provider: provider,
	}
}

// Generate will validate the request and generate new certificate material. Every call produces a new key.
func (p *Provisioner) Generate(req *domain.ProvisionRequest) (*domain.CertificateMaterial, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m, err := p.Provider.Generate(req)
	if err != nil {
		zap.L().Error("failed to generate certificate", zap.String("provider", p.Provider.Name()), zap.String("commonName", req.SubjectCommonName), zap.Error(err))
		return nil, err
	}

	zap.L().Info("generated self-signed certificate", zap.String("provider", p.Provider.Name()), zap.String("label", material.Label(m)), zap.String("keyId", m.KeyID), zap.Time("notAfter", m.NotAfter))
	return m, nil
}

// Write will store the certificate and private key, creating missing directories. Both files are staged next to
// their targets and renamed into place, so a failed run leaves the previous pair untouched. Existing files are
// replaced with the certificate at 0644 and the key at 0600.
func (p *Provisioner) Write(m *domain.CertificateMaterial, certificatePath, keyPath string) error {
	certificateTemp, err := stageFile(certificatePath, m.Certificate, 0o644)
	if err != nil {
		return err
	}
	defer removeStaged(certificateTemp)

	keyTemp, err := stageFile(keyPath, m.PrivateKey, 0o600)
	if err != nil {
		return err
	}
	defer removeStaged(keyTemp)

	previousKey, readErr := os.ReadFile(keyPath)
	hadKey := readErr == nil

	if err = rename(keyTemp, keyPath); err != nil {
		zap.L().Error("failed to replace file", zap.String("path", keyPath), zap.Error(err))
		return &domain.FilesystemError{Op: "rename", Path: keyPath, Err: err}
	}

	if err = rename(certificateTemp, certificatePath); err != nil {
		zap.L().Error("failed to replace file", zap.String("path", certificatePath), zap.Error(err))
		restoreKey(keyPath, previousKey, hadKey)
		return &domain.FilesystemError{Op: "rename", Path: certificatePath, Err: err}
	}

	zap.L().Info("certificate material written", zap.String("certificate", certificatePath), zap.String("key", keyPath))
	return nil
}

// Provision will generate new certificate material and write it to the given paths
func (p *Provisioner) Provision(req *domain.ProvisionRequest, certificatePath, keyPath string) (*domain.CertificateMaterial, error) {
	m, err := p.Generate(req)
	if err != nil {
		return nil, err
	}

	if err = p.Write(m, certificatePath, keyPath); err != nil {
		return nil, err
	}

	return m, nil
}

var rename = os.Rename

// stageFile writes content to a temporary file in the directory of path and returns its name
func stageFile(path string, content []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		zap.L().Error("failed to create directory", zap.String("path", dir), zap.Error(err))
		return "", &domain.FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		zap.L().Error("failed to write file", zap.String("path", path), zap.Error(err))
		return "", &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}

	_, err = f.Write(content)
	if err == nil {
		err = f.Chmod(perm)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		removeStaged(f.Name())
		zap.L().Error("failed to write file", zap.String("path", path), zap.Error(err))
		return "", &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}

	return f.Name(), nil
}

// removeStaged deletes a staged file that was not renamed into place
func removeStaged(name string) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("failed to remove staged file", zap.String("path", name), zap.Error(err))
	}
}

// restoreKey puts the previous key back after the certificate could not be replaced
func restoreKey(keyPath string, previous []byte, existed bool) {
	if !existed {
		removeStaged(keyPath)
		return
	}

	temp, err := stageFile(keyPath, previous, 0o600)
	if err == nil {
		defer removeStaged(temp)
		err = rename(temp, keyPath)
	}
	if err != nil {
		zap.L().Error("failed to restore previous private key", zap.String("path", keyPath), zap.Error(err))
	}
}
