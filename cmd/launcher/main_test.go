package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromFlags(t *testing.T) {
	data := t.TempDir()
	cfg, err := loadConfig("", ":8080", "", data, "main.js", false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DataRoot != data || cfg.ScriptName != "main.js" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AssetRoot != "" {
		t.Fatalf("asset root should stay embedded, got %q", cfg.AssetRoot)
	}
}

func TestLoadConfigRequiresData(t *testing.T) {
	if _, err := loadConfig("", "", "", "", "", false); err == nil {
		t.Fatalf("expected error without -data")
	}
}

func TestLoadConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "launcher.json")
	body := `{"dataRoot":"` + filepath.ToSlash(dir) + `","addr":":80","assetRoot":"rom"}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadConfig(p, ":9090", "", "", "", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("flag should override addr, got %q", cfg.Addr)
	}
	if !filepath.IsAbs(cfg.AssetRoot) {
		t.Fatalf("asset root should be absolute, got %q", cfg.AssetRoot)
	}
	if !cfg.WatchAssets {
		t.Fatalf("watch flag lost")
	}
}

func TestLoadConfigWatchFromFileWithAssetsFlag(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "launcher.json")
	body := `{"dataRoot":"` + filepath.ToSlash(dir) + `","watchAssets":true}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadConfig(p, "", filepath.Join(dir, "rom"), "", "", false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.WatchAssets {
		t.Fatalf("watchAssets from the file was dropped before -assets applied")
	}
	if cfg.ScriptName != "index.js" {
		t.Fatalf("defaults not filled: %+v", cfg)
	}
}

func TestLifecycleTerminateOnce(t *testing.T) {
	l := newLifecycle()
	l.Terminate()
	l.Terminate()
	select {
	case <-l.requested:
	default:
		t.Fatalf("terminate did not signal")
	}
}
