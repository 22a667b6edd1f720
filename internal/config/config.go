// Package config loads the settings shared by generate-cert and tls-responder.
//
// Values are layered, later sources override earlier ones: built-in defaults, an optional YAML file,
// TLS_RESPONDER_* environment variables and finally command line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/urfave/cli/v2"
	"github.com/venafi/tls-responder/internal/app/domain"
)

// EnvPrefix is the prefix of environment variables read by Load, TLS_RESPONDER_LISTEN_PORT maps to listen.port
const EnvPrefix = "TLS_RESPONDER_"

// Config is the root configuration
type Config struct {
	Listen  ListenSection  `koanf:"listen"`
	TLS     TLSSection     `koanf:"tls"`
	HTTP    HTTPSection    `koanf:"http"`
	Metrics MetricsSection `koanf:"metrics"`
	Cert    CertSection    `koanf:"cert"`
	Log     LogSection     `koanf:"log"`
}

// ListenSection configures the responder listen address
type ListenSection struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// TLSSection configures the certificate and key files and protocol versions
type TLSSection struct {
	Cert       string `koanf:"cert"`
	Key        string `koanf:"key"`
	MinVersion string `koanf:"minversion"`
}

// HTTPSection configures connection hardening
type HTTPSection struct {
	ReadHeaderTimeout time.Duration `koanf:"readheadertimeout"`
}

// MetricsSection configures the system server
type MetricsSection struct {
	Address string `koanf:"address"`
}

// LogSection configures logging
type LogSection struct {
	Level string `koanf:"level"`
}

// CertSection configures certificate generation
type CertSection struct {
	CommonName string `koanf:"commonname"`
	Days       int    `koanf:"days"`
	KeySize    int    `koanf:"keysize"`
	Algorithm  string `koanf:"algorithm"`
	Provider   string `koanf:"provider"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"listen.host":            "",
		"listen.port":            3443,
		"tls.cert":               "certs/server.cert",
		"tls.key":                "certs/server.key",
		"tls.minversion":         "1.2",
		"http.readheadertimeout": 10 * time.Second,
		"metrics.address":        "",
		"cert.commonname":        "localhost",
		"cert.days":              365,
		"cert.keysize":           2048,
		"cert.algorithm":         "sha256",
		"cert.provider":          "x509",
		"log.level":              "info",
	}
}

// Load will build the configuration from the defaults, the YAML file at path (skipped when empty), the
// environment and overrides
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	return LoadWithDefaults(path, nil, overrides)
}

// LoadWithDefaults is Load with command specific defaults layered over the built-in ones
func LoadWithDefaults(path string, defaults, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
			return nil, fmt.Errorf("load command defaults: %w", err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// envKey maps TLS_RESPONDER_TLS_MINVERSION to tls.minversion
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// FlagOverrides returns the values of the flags set on the command line keyed by their configuration path
func FlagOverrides(c *cli.Context, keys map[string]string) map[string]interface{} {
	overrides := map[string]interface{}{}
	for flag, key := range keys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}

	return overrides
}

// ServerConfig returns the responder settings
func (c *Config) ServerConfig() *domain.ServerConfig {
	return &domain.ServerConfig{
		ListenHost:        c.Listen.Host,
		ListenPort:        c.Listen.Port,
		CertificatePath:   c.TLS.Cert,
		KeyPath:           c.TLS.Key,
		MinTLSVersion:     c.TLS.MinVersion,
		ReadHeaderTimeout: c.HTTP.ReadHeaderTimeout,
		MetricsAddress:    c.Metrics.Address,
	}
}

// ProvisionRequest returns the certificate generation settings as a validated request
func (c *Config) ProvisionRequest() (*domain.ProvisionRequest, error) {
	algorithm, err := domain.ParseSignatureAlgorithm(c.Cert.Algorithm)
	if err != nil {
		return nil, err
	}

	req := &domain.ProvisionRequest{
		SubjectCommonName:  c.Cert.CommonName,
		ValidityDays:       c.Cert.Days,
		KeySizeBits:        c.Cert.KeySize,
		SignatureAlgorithm: algorithm,
	}

	if err = req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}
