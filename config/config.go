// Package config holds the server's tunables: the session key and the
// defaults spec.md §4.E/§9 leave to the implementation (connect timeout,
// read cap, idle ceiling, queue watermarks).
package config

import (
	"fmt"
	"time"

	goconfig "github.com/go-zoox/config"
	"github.com/go-zoox/fs"

	"github.com/go-zoox/httunnel/connection"
	"github.com/go-zoox/httunnel/dispatch"
	"github.com/go-zoox/httunnel/janitor"
)

// Config is the full set of server tunables. Every field has a
// spec-grounded default; nothing here is required.
type Config struct {
	Port int `config:"port"`

	// SessionKey is the shared secret (spec §3) the cookie must decode
	// to. A config file or the --session-key flag overrides the built-in
	// development default — there are no environment variables (spec §6).
	SessionKey string `config:"sessionKey"`

	ConnectTimeout time.Duration `config:"connectTimeout"`
	ReadCapBytes   int           `config:"readCapBytes"`

	HighWaterMark int `config:"highWaterMark"`
	LowWaterMark  int `config:"lowWaterMark"`

	IdleTimeout     time.Duration `config:"idleTimeout"`
	JanitorInterval time.Duration `config:"janitorInterval"`
}

// Default returns the built-in tunables (spec §4.E/§9 suggested values).
func Default() *Config {
	return &Config{
		Port:            8080,
		SessionKey:      "changeme",
		ConnectTimeout:  dispatch.DefaultConnectTimeout,
		ReadCapBytes:    dispatch.DefaultReadCap,
		HighWaterMark:   connection.DefaultHighWaterMark,
		LowWaterMark:    connection.DefaultLowWaterMark,
		IdleTimeout:     janitor.DefaultIdleTimeout,
		JanitorInterval: janitor.DefaultInterval,
	}
}

// LoadFile overlays cfg with values from an optional config file, the
// same way the teacher's command/server.go loads its ServerConfig: check
// existence first, then delegate parsing to go-zoox/config.
func LoadFile(cfg *Config, filepath string) error {
	if !fs.IsExist(filepath) {
		return fmt.Errorf("config file not found at %s", filepath)
	}

	if err := goconfig.Load(cfg, &goconfig.LoadOptions{
		FilePath: filepath,
	}); err != nil {
		return fmt.Errorf("failed to load config file at %s: %v", filepath, err)
	}

	return nil
}
