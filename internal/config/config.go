// Package config provides configuration management for go-spendpi.
package config

import (
	"errors"
	"fmt"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default web settings
	DefaultListenPort = 11980
	MinListenPort     = 1024
	MaxListenPort     = 65535

	// EnvWebPort overrides WebConfig.ListenPort when set
	EnvWebPort = "SPENDPI_WEB_PORT"
)

// DefaultTrustedProxies covers common reverse proxy setups (nginx on loopback or a private network)
var DefaultTrustedProxies = []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// MainConfig holds the main configuration for go-spendpi
type MainConfig struct {
	// Web interface settings
	Web WebConfig `json:"web" toml:"web" yaml:"web"`

	AppVersion string `json:"app_version" toml:"app_version" yaml:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort     int      `json:"listen_port" toml:"listen_port" yaml:"listen_port"`
	SSL            bool     `json:"ssl" toml:"ssl" yaml:"ssl"`
	CertFile       string   `json:"cert_file,omitempty" toml:"cert_file" yaml:"cert_file,omitempty"`
	KeyFile        string   `json:"key_file,omitempty" toml:"key_file" yaml:"key_file,omitempty"`
	TemplatesDir   string   `json:"templates_dir,omitempty" toml:"templates_dir" yaml:"templates_dir,omitempty"` // empty: use embedded templates
	Debug          bool     `json:"debug" toml:"debug" yaml:"debug"`                                             // gin debug mode and template hot reload
	TrustedProxies []string `json:"trusted_proxies,omitempty" toml:"trusted_proxies" yaml:"trusted_proxies,omitempty"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort:     DefaultListenPort,
			SSL:            false,
			TrustedProxies: append([]string(nil), DefaultTrustedProxies...),
		},
	}
}

// Validate checks the web settings before the server is built
func (w *WebConfig) Validate() error {
	if w == nil {
		return errors.New("web config is nil")
	}
	if w.ListenPort < MinListenPort || w.ListenPort > MaxListenPort {
		return fmt.Errorf("invalid port number: %d (must be between %d and %d)", w.ListenPort, MinListenPort, MaxListenPort)
	}
	if w.SSL && (w.CertFile == "" || w.KeyFile == "") {
		return errors.New("SSL enabled but cert_file or key_file not specified in config")
	}
	return nil
}

// Scheme returns the URL scheme the server listens with
func (w *WebConfig) Scheme() string {
	if w.SSL {
		return "https"
	}
	return "http"
}
