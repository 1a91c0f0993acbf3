package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "launcher.json")
	if err := os.WriteFile(p, []byte(`{"dataRoot":"/mnt","addr":":8080"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.ScriptName != "index.js" {
		t.Fatalf("scriptName = %q", cfg.ScriptName)
	}
	if len(cfg.LogFiles) != 5 {
		t.Fatalf("expected default log files, got %v", cfg.LogFiles)
	}
	if cfg.BoundaryToken != "------" || cfg.HostToken != "IPADDR" || cfg.MessageToken != "MESSAGE" {
		t.Fatalf("unexpected tokens: %+v", cfg)
	}
	if cfg.MaxBodyBytes != 1<<20 || cfg.MaxConns != 4 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"missing data root": {},
		"script with slash": {DataRoot: "/mnt", ScriptName: "../index.js"},
		"log with slash":    {DataRoot: "/mnt", LogFiles: []string{"a/b.log"}},
	}
	for name, cfg := range cases {
		c := cfg
		if err := c.Normalize(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNormalizeEmbeddedAssetsDisablesWatch(t *testing.T) {
	c := Config{DataRoot: "/mnt", WatchAssets: true}
	if err := c.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.WatchAssets {
		t.Fatalf("watchAssets should be disabled without an asset root")
	}
}

func TestLoadBadJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(p, []byte(`{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDecodeKeepsFieldsAsWritten(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "launcher.json")
	if err := os.WriteFile(p, []byte(`{"dataRoot":"/mnt","watchAssets":true}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Decode(p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !cfg.WatchAssets || cfg.ScriptName != "" {
		t.Fatalf("decode should not normalize: %+v", cfg)
	}

	cfg.AssetRoot = "/rom"
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !cfg.WatchAssets {
		t.Fatalf("watchAssets lost with an asset root set")
	}
}
