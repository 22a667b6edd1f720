package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"github.com/venafi/tls-responder/internal/app/domain"
	"github.com/venafi/tls-responder/internal/app/material"
	"github.com/venafi/tls-responder/internal/app/provisioner"
	"github.com/venafi/tls-responder/internal/config"
	"github.com/venafi/tls-responder/internal/logging"
	"go.uber.org/zap"
)

var flagKeys = map[string]string{
	"common-name": "cert.commonname",
	"days":        "cert.days",
	"key-size":    "cert.keysize",
	"algorithm":   "cert.algorithm",
	"provider":    "cert.provider",
	"cert":        "tls.cert",
	"key":         "tls.key",
	"log-level":   "log.level",
}

// commandDefaults override the shared configuration defaults for generate-cert
var commandDefaults = map[string]interface{}{
	"log.level": "warn",
}

// NewCLI returns the generate-cert command
func NewCLI() *cli.App {
	return &cli.App{
		Name:  "generate-cert",
		Usage: "create a self-signed certificate and private key for tls-responder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML configuration `FILE`"},
			&cli.StringFlag{Name: "common-name", Value: "localhost", Usage: "subject common name"},
			&cli.IntFlag{Name: "days", Value: 365, Usage: "validity period in days"},
			&cli.IntFlag{Name: "key-size", Value: 2048, Usage: "RSA key size, 2048, 3072 or 4096"},
			&cli.StringFlag{Name: "algorithm", Value: "sha256", Usage: "signature digest, sha256, sha384 or sha512"},
			&cli.StringFlag{Name: "provider", Value: provisioner.ProviderX509, Usage: "crypto provider, x509 or openssl"},
			&cli.StringFlag{Name: "cert", Value: provisioner.DefaultCertificatePath, Usage: "certificate output `FILE`"},
			&cli.StringFlag{Name: "key", Value: provisioner.DefaultKeyPath, Usage: "private key output `FILE`"},
			&cli.StringFlag{Name: "log-level", Value: commandDefaults["log.level"].(string), Usage: "debug, info, warn or error"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadWithDefaults(c.String("config"), commandDefaults, config.FlagOverrides(c, flagKeys))
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if _, err = logging.Configure(level); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	req, err := cfg.ProvisionRequest()
	if err != nil {
		return err
	}

	provider, err := provisioner.TryLoadCryptoProvider(cfg.Cert.Provider)
	if err != nil {
		reportUnavailable(c.App.ErrWriter, err, req, cfg)
		return err
	}

	m, err := provisioner.NewProvisioner(provider).Provision(req, cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		return err
	}

	zap.L().Info("certificate provisioned",
		zap.String("provider", provider.Name()),
		zap.String("label", material.Label(m)),
		zap.String("keyID", m.KeyID))

	w := c.App.Writer
	_, _ = fmt.Fprintf(w, "Certificate written to %s\n", cfg.TLS.Cert)
	_, _ = fmt.Fprintf(w, "Private key written to %s\n", cfg.TLS.Key)
	_, _ = fmt.Fprintf(w, "Valid until %s for %s\n", m.NotAfter.UTC().Format("2006-01-02"), m.SubjectCommonName)
	_, _ = fmt.Fprintln(w, "You can now run: tls-responder")

	return nil
}

// reportUnavailable prints the fallback instructions, the error itself is reported by the caller
func reportUnavailable(w io.Writer, err error, req *domain.ProvisionRequest, cfg *config.Config) {
	var unavailable *domain.DependencyUnavailableError
	if !errors.As(err, &unavailable) {
		return
	}

	_, _ = fmt.Fprintf(w, "Fallback: %s\n", unavailable.Fallback)
	if unavailable.Provider != provisioner.ProviderOpenSSL {
		return
	}

	_, _ = fmt.Fprintln(w, "Or, with openssl installed elsewhere, run:")
	_, _ = fmt.Fprintf(w, "  %s\n", provisioner.OpenSSLCommand(req, cfg.TLS.Cert, cfg.TLS.Key))
}
