package config

import (
	"encoding/json"
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `json:"server"`
	LogLevel  string          `json:"logLevel"`
	Session   SessionConfig   `json:"session"`
	Sourcemap SourcemapConfig `json:"sourcemap"`
	Stack     StackConfig     `json:"stack"`
	Sandbox   SandboxConfig   `json:"sandbox"`
}

type ServerConfig struct {
	Port           string   `json:"port"`
	SessionTimeout Duration `json:"sessionTimeout"`
}

type SessionConfig struct {
	// Number of grips kept per session
	GripCacheSize int `json:"gripCacheSize"`
}

type SourcemapConfig struct {
	CacheExpiration Duration `json:"cacheExpiration"`
	CleanupInterval Duration `json:"cleanupInterval"`
}

// StackConfig lists the patterns that mark a frame as debugger-internal
type StackConfig struct {
	InternalFunctionPatterns []string `json:"internalFunctionPatterns"`
	InternalSourcePatterns   []string `json:"internalSourcePatterns"`
}

type SandboxConfig struct {
	WasmPath string `json:"wasmPath"`
}

// Duration is a time.Duration written as a string ("5m") in JSON
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file overrides a field
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "3000",
			SessionTimeout: Duration{30 * time.Minute},
		},
		LogLevel: "info",
		Session:  SessionConfig{GripCacheSize: 1024},
		Sourcemap: SourcemapConfig{
			CacheExpiration: Duration{5 * time.Minute},
			CleanupInterval: Duration{10 * time.Minute},
		},
		Stack: StackConfig{
			InternalFunctionPatterns: []string{`^_[fF]irebug`},
			InternalSourcePatterns:   []string{`^\s*with\s*\(\s*_[fF]irebug`},
		},
		Sandbox: SandboxConfig{WasmPath: "./wasm/dist/sandbox.wasm"},
	}
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	return Parse(data)
}

// Parse decodes data over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := validate(config); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return config, nil
}

// validate checks if the configuration is valid
func validate(config *Config) error {
	if config.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if config.Server.SessionTimeout.Duration < 0 {
		return errors.New("server.sessionTimeout must not be negative")
	}
	if _, err := zapcore.ParseLevel(config.LogLevel); err != nil {
		return errors.Wrapf(err, "logLevel %q", config.LogLevel)
	}
	if config.Session.GripCacheSize < 0 {
		return errors.New("session.gripCacheSize must not be negative")
	}
	if config.Sourcemap.CacheExpiration.Duration <= 0 || config.Sourcemap.CleanupInterval.Duration <= 0 {
		return errors.New("sourcemap.cacheExpiration and sourcemap.cleanupInterval need to be > 0")
	}

	for _, p := range config.Stack.InternalFunctionPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return errors.Wrapf(err, "stack.internalFunctionPatterns %q", p)
		}
	}
	for _, p := range config.Stack.InternalSourcePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return errors.Wrapf(err, "stack.internalSourcePatterns %q", p)
		}
	}

	return nil
}
