package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/responder"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	a := NewCLI()
	a.Writer = &stdout
	a.ErrWriter = &stderr

	err := a.Run(append([]string{"generate-cert", "--log-level", "error"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestGenerateCert(t *testing.T) {
	t.Run("writes the pair", func(t *testing.T) {
		dir := t.TempDir()
		certificatePath := filepath.Join(dir, "certs", "server.cert")
		keyPath := filepath.Join(dir, "certs", "server.key")

		stdout, _, err := runCLI(t, "--cert", certificatePath, "--key", keyPath, "--common-name", "localhost", "--days", "30")
		require.NoError(t, err)
		require.Contains(t, stdout, certificatePath)
		require.Contains(t, stdout, keyPath)
		require.Contains(t, stdout, "You can now run: tls-responder")

		info, err := os.Stat(keyPath)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		m, err := responder.LoadCertificateMaterial(certificatePath, keyPath)
		require.NoError(t, err)
		require.Equal(t, "localhost", m.SubjectCommonName)
	})

	t.Run("unknown provider", func(t *testing.T) {
		dir := t.TempDir()
		certificatePath := filepath.Join(dir, "server.cert")

		_, stderr, err := runCLI(t, "--provider", "bogus", "--cert", certificatePath, "--key", filepath.Join(dir, "server.key"))
		require.Error(t, err)

		var unavailable *domain.DependencyUnavailableError
		require.True(t, errors.As(err, &unavailable))
		require.Contains(t, stderr, "Fallback:")
		require.Contains(t, stderr, "x509")
		require.NotContains(t, stderr, err.Error())

		_, err = os.Stat(certificatePath)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("invalid request", func(t *testing.T) {
		dir := t.TempDir()

		_, _, err := runCLI(t, "--key-size", "1024", "--cert", filepath.Join(dir, "server.cert"), "--key", filepath.Join(dir, "server.key"))
		require.Error(t, err)
		require.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("config file", func(t *testing.T) {
		dir := t.TempDir()
		certificatePath := filepath.Join(dir, "server.cert")
		keyPath := filepath.Join(dir, "server.key")
		configPath := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("cert:\n  commonname: example.test\n  algorithm: sha384\n"), 0o600))

		_, _, err := runCLI(t, "--config", configPath, "--cert", certificatePath, "--key", keyPath)
		require.NoError(t, err)

		m, err := responder.LoadCertificateMaterial(certificatePath, keyPath)
		require.NoError(t, err)
		require.Equal(t, "example.test", m.SubjectCommonName)
	})
}

func TestLogLevelDefault(t *testing.T) {
	for _, flag := range NewCLI().Flags {
		f, ok := flag.(*cli.StringFlag)
		if !ok || f.Name != "log-level" {
			continue
		}

		require.Equal(t, commandDefaults["log.level"], f.Value)
		return
	}

	t.Fatal("log-level flag not found")
}
