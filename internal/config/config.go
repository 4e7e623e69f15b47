// Package config loads service configuration from config.yaml and XRAY_*
// environment variables.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Oracle   OracleConfig   `koanf:"oracle"`
	Analysis AnalysisConfig `koanf:"analysis"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres, mysql, memory
	DSN    string `koanf:"dsn"`
}

type OracleConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// AnalysisConfig carries the engine budgets. Defaults match the documented
// sliding-window parameters.
type AnalysisConfig struct {
	MaxPayloadBytes    int     `koanf:"max_payload_bytes"`
	SampleSize         int     `koanf:"sample_size"`
	MinSampleSize      int     `koanf:"min_sample_size"`
	StringTruncate     int     `koanf:"string_truncate"`
	WindowSize         int     `koanf:"window_size"`
	MaxOutputTokens    int     `koanf:"max_output_tokens"`
	Temperature        float64 `koanf:"temperature"`
	ContextTokenBudget int     `koanf:"context_token_budget"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (when present) and then applies XRAY_* environment
// overrides; XRAY_SERVER__PORT=9090 sets server.port.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// Missing file is fine, env vars take over.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("XRAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "XRAY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":                  8080,
		"storage.driver":               "sqlite",
		"storage.dsn":                  "./xray.db",
		"oracle.base_url":              "https://api.cerebras.ai/v1",
		"oracle.model":                 "llama-3.3-70b",
		"oracle.timeout_seconds":       180,
		"analysis.max_payload_bytes":   20000,
		"analysis.sample_size":         100,
		"analysis.min_sample_size":     10,
		"analysis.string_truncate":     2000,
		"analysis.window_size":         2,
		"analysis.max_output_tokens":   1000,
		"analysis.temperature":         0.1,
		"analysis.context_token_budget": 65536,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// The API key usually arrives as ${CEREBRAS_API_KEY} in config.yaml.
	cfg.Oracle.APIKey = substituteEnvVars(cfg.Oracle.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
