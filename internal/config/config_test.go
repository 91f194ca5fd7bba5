package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"server": {"port": "8080"}}`))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTimeout.Duration)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1024, cfg.Session.GripCacheSize)
	assert.Equal(t, []string{`^_[fF]irebug`}, cfg.Stack.InternalFunctionPatterns)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"logLevel": "debug",
		"session": {"gripCacheSize": 16},
		"sourcemap": {"cacheExpiration": "1m", "cleanupInterval": "2m"},
		"stack": {"internalFunctionPatterns": ["^__zone"], "internalSourcePatterns": []},
		"sandbox": {"wasmPath": "/opt/sandbox.wasm"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 16, cfg.Session.GripCacheSize)
	assert.Equal(t, time.Minute, cfg.Sourcemap.CacheExpiration.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Sourcemap.CleanupInterval.Duration)
	assert.Equal(t, []string{"^__zone"}, cfg.Stack.InternalFunctionPatterns)
	assert.Empty(t, cfg.Stack.InternalSourcePatterns)
	assert.Equal(t, "/opt/sandbox.wasm", cfg.Sandbox.WasmPath)
}

func TestParseInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"malformed json":   `{`,
		"bad duration":     `{"sourcemap": {"cacheExpiration": "soon"}}`,
		"zero duration":    `{"sourcemap": {"cleanupInterval": "0s"}}`,
		"bad log level":    `{"logLevel": "loud"}`,
		"negative cache":   `{"session": {"gripCacheSize": -1}}`,
		"bad pattern":      `{"stack": {"internalFunctionPatterns": ["("]}}`,
		"bad src pattern":  `{"stack": {"internalSourcePatterns": ["["]}}`,
		"empty port":       `{"server": {"port": ""}}`,
		"negative timeout": `{"server": {"sessionTimeout": "-1s"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": "4000"}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
