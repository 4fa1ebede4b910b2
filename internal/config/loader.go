package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	pkgconfig "github.com/goran-ethernal/ChainDemux/pkg/config"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

var decoders = map[Format]func(data []byte, cfg *pkgconfig.Config) error{
	FormatYAML: func(data []byte, cfg *pkgconfig.Config) error {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(cfg)
	},
	FormatJSON: func(data []byte, cfg *pkgconfig.Config) error {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	},
	FormatTOML: func(data []byte, cfg *pkgconfig.Config) error {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	},
}

var extensions = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".toml": FormatTOML,
}

// FormatFromPath detects the configuration format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))

	format, ok := extensions[ext]
	if !ok {
		supported := make([]string, 0, len(extensions))
		for e := range extensions {
			supported = append(supported, e)
		}
		slices.Sort(supported)

		return "", fmt.Errorf("unsupported config file format: %s (supported: %s)", ext, strings.Join(supported, ", "))
	}

	return format, nil
}

// LoadFromFile loads configuration from a file, auto-detecting the format by extension.
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	return load(path, format)
}

// LoadFromYAML loads configuration from a YAML file.
func LoadFromYAML(path string) (*pkgconfig.Config, error) {
	return load(path, FormatYAML)
}

// LoadFromJSON loads configuration from a JSON file.
func LoadFromJSON(path string) (*pkgconfig.Config, error) {
	return load(path, FormatJSON)
}

// LoadFromTOML loads configuration from a TOML file.
func LoadFromTOML(path string) (*pkgconfig.Config, error) {
	return load(path, FormatTOML)
}

// Parse decodes configuration held in memory, then applies environment overrides and defaults
// and validates the result.
func Parse(data []byte, format Format) (*pkgconfig.Config, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	var cfg pkgconfig.Config
	if err := decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", strings.ToUpper(string(format)), err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func load(path string, format Format) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, format)
}
