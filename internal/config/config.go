package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

// Config is intentionally small and JSON-friendly.
// Zero values are replaced by Default() values in Normalize.
type Config struct {
	// Addr is the listen address. The launcher historically listens on port 80.
	Addr string `json:"addr"`

	// AssetRoot is the read-only "ROM" directory holding index.html,
	// message.html and any other HTML documents.
	// Empty means the assets embedded in the binary are served.
	AssetRoot string `json:"assetRoot,omitempty"`

	// DataRoot is the writable "mount" directory. Logs live here and the
	// uploaded script is installed here (required).
	DataRoot string `json:"dataRoot"`

	// ScriptName is the file under DataRoot that an upload overwrites.
	// Default: index.js
	ScriptName string `json:"scriptName,omitempty"`

	// LogFiles are the names under DataRoot removed by /command/deleteAll.
	LogFiles []string `json:"logFiles,omitempty"`

	// BoundaryToken is the substring that marks a multipart boundary line when
	// the request does not carry a boundary parameter in its Content-Type.
	BoundaryToken string `json:"boundaryToken,omitempty"`

	// HostToken is replaced by the request Host in served HTML documents.
	HostToken string `json:"hostToken,omitempty"`

	// MessageToken is replaced by the status message in message.html.
	MessageToken string `json:"messageToken,omitempty"`

	// MaxBodyBytes bounds the buffered request body.
	MaxBodyBytes int64 `json:"maxBodyBytes,omitempty"`

	// MaxConns caps simultaneously open client connections.
	MaxConns int `json:"maxConns,omitempty"`

	// RebootCommand is run (argv form) after the server closes on /command/reboot.
	// Empty: the process exits and the supervisor is expected to restart the device.
	RebootCommand []string `json:"rebootCommand,omitempty"`

	// ShutdownTimeoutMs bounds how long in-flight responses may take to drain.
	ShutdownTimeoutMs int `json:"shutdownTimeoutMs,omitempty"`

	// WatchAssets reloads message.html when it changes under AssetRoot.
	WatchAssets bool `json:"watchAssets,omitempty"`
}

// Default returns the launcher defaults. DataRoot has no default.
func Default() Config {
	return Config{
		Addr:       "0.0.0.0:80",
		ScriptName: "index.js",
		LogFiles: []string{
			"total_size.log",
			"segment_utilization.log",
			"time.log",
			"object_lifespan.log",
			"object_allocation.log",
		},
		BoundaryToken:     "------",
		HostToken:         "IPADDR",
		MessageToken:      "MESSAGE",
		MaxBodyBytes:      1 << 20,
		MaxConns:          4,
		ShutdownTimeoutMs: 5000,
	}
}

// Decode reads a JSON config file as written, without defaults. Callers that
// layer flags on top normalize afterwards.
func Decode(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads a JSON config file and normalizes it.
func Load(path string) (Config, error) {
	cfg, err := Decode(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize fills unset fields from Default and validates the rest.
func (c *Config) Normalize() error {
	def := Default()

	if strings.TrimSpace(c.DataRoot) == "" {
		return errors.New("config: dataRoot is required")
	}
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.ScriptName == "" {
		c.ScriptName = def.ScriptName
	}
	if strings.ContainsAny(c.ScriptName, "/\\") || c.ScriptName == "." || c.ScriptName == ".." {
		return fmt.Errorf("config: scriptName %q must be a plain file name", c.ScriptName)
	}
	if c.LogFiles == nil {
		c.LogFiles = def.LogFiles
	}
	for i, name := range c.LogFiles {
		if strings.ContainsAny(name, "/\\") || name == "" || name == ".." {
			return fmt.Errorf("config: logFiles[%d]=%q must be a plain file name", i, name)
		}
	}
	if c.BoundaryToken == "" {
		c.BoundaryToken = def.BoundaryToken
	}
	if c.HostToken == "" {
		c.HostToken = def.HostToken
	}
	if c.MessageToken == "" {
		c.MessageToken = def.MessageToken
	}
	if c.MaxBodyBytes <= 0 {
		if c.MaxBodyBytes < 0 {
			log.Printf("[config] maxBodyBytes=%d is invalid, falling back to %d", c.MaxBodyBytes, def.MaxBodyBytes)
		}
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.MaxConns <= 0 {
		if c.MaxConns < 0 {
			log.Printf("[config] maxConns=%d is invalid, falling back to %d", c.MaxConns, def.MaxConns)
		}
		c.MaxConns = def.MaxConns
	}
	if c.ShutdownTimeoutMs <= 0 {
		c.ShutdownTimeoutMs = def.ShutdownTimeoutMs
	}
	if c.WatchAssets && c.AssetRoot == "" {
		log.Printf("[config] watchAssets ignored: assets are embedded")
		c.WatchAssets = false
	}
	return nil
}
