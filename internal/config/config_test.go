package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Server.Port != def.Server.Port {
		t.Errorf("expected default port %d, got %d", def.Server.Port, cfg.Server.Port)
	}
	if cfg.Embed.ExifTool != def.Embed.ExifTool {
		t.Errorf("expected default exiftool %q, got %q", def.Embed.ExifTool, cfg.Embed.ExifTool)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 9191

[storage]
root = "/tmp/stock-sessions"

[ftp]
host = "ftp.example.com:2121"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Root != "/tmp/stock-sessions" {
		t.Errorf("unexpected storage root %q", cfg.Storage.Root)
	}
	if cfg.FTP.Host != "ftp.example.com:2121" {
		t.Errorf("unexpected ftp host %q", cfg.FTP.Host)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Gemini.Model != Default().Gemini.Model {
		t.Errorf("expected default model, got %q", cfg.Gemini.Model)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[storage]\nroot = \"/from/file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STOCK_STORAGE_ROOT", "/from/env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Root != "/from/env" {
		t.Errorf("expected env override, got %q", cfg.Storage.Root)
	}
}

func TestLoad_InvalidPortRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid port")
	}
}
