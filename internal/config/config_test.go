// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Server.Port != 8990 {
		t.Errorf("Port = %d, want 8990", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.Gemini.Model)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Client.Endpoint != "http://127.0.0.1:8990" {
		t.Errorf("Endpoint = %q", cfg.Client.Endpoint)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1"

[client]
endpoint = "http://127.0.0.1:9999"

[server]
port = 9999

[gemini]
model = "gemini-2.0-pro"

[ui]
markdown = false
theme = "dark"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-2.0-pro" {
		t.Errorf("Model = %q", cfg.Gemini.Model)
	}
	if cfg.UI.Markdown {
		t.Error("Markdown should be disabled")
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("OCEPA_PORT", "7777")
	t.Setenv("OCEPA_DATA_DIR", "/tmp/ocepa-test")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Gemini.APIKey)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Storage.Dir != "/tmp/ocepa-test" {
		t.Errorf("Storage.Dir = %q", cfg.Storage.Dir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Client.Endpoint = "not a url"
	cfg.Server.Port = 99999
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	msg := err.Error()
	for _, want := range []string{"client.endpoint", "server.port", "ui.theme"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing field %q", msg, want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Port = 8765
	cfg.UI.Theme = "light"
	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.Port != 8765 || loaded.UI.Theme != "light" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestStorageDirDefaultsToConfigDir(t *testing.T) {
	cfg := Default()
	dir, err := cfg.StorageDir()
	if err != nil {
		t.Fatalf("StorageDir: %v", err)
	}
	if !strings.HasSuffix(dir, ".ocepa") {
		t.Errorf("dir = %q, want ~/.ocepa", dir)
	}

	cfg.Storage.Dir = "/data/ocepa"
	dir, _ = cfg.StorageDir()
	if dir != "/data/ocepa" {
		t.Errorf("dir = %q", dir)
	}
}
