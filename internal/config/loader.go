package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadConfig starts from NewDefaultConfig, overlays the file at path (if any)
// and then the environment. The file format is chosen by extension:
// .json, .toml, .yaml or .yml.
func LoadConfig(path string) (*MainConfig, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Printf("[CONFIG]: Loaded configuration from %s", path)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.AppVersion == "" {
		cfg.AppVersion = AppVersion
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *MainConfig) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return noKeysIsDefaults(dec.Decode(cfg))
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return noKeysIsDefaults(dec.Decode(cfg))
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// noKeysIsDefaults treats an empty document like an empty TOML file: defaults stay
func noKeysIsDefaults(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func applyEnv(cfg *MainConfig) error {
	portEnv := os.Getenv(EnvWebPort)
	if portEnv == "" {
		return nil
	}
	p, err := strconv.Atoi(portEnv)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", EnvWebPort, portEnv, err)
	}
	cfg.Web.ListenPort = p
	log.Printf("[CONFIG]: Port overridden by environment variable: %d", p)
	return nil
}
