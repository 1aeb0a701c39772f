package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReturnsDefaultsWhenMissing(t *testing.T) {
	t.Setenv(envConfigDir, t.TempDir())

	v, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	settings, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if settings.DefaultTheme != "" {
		t.Fatalf("expected empty default theme, got %q", settings.DefaultTheme)
	}
	if settings.Logging.Level != "info" || settings.Logging.Format != "json" {
		t.Fatalf("unexpected logging defaults %+v", settings.Logging)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDir, dir)

	body := "default_theme = \"themes:dark.json\"\n\n" +
		"[theme_roots]\nthemes = \"/opt/stagtheme/themes\"\n\n" +
		"[logging]\nlevel = \"debug\"\nformat = \"console\"\n"
	if err := os.WriteFile(filepath.Join(dir, "stagtheme.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	settings, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if settings.DefaultTheme != "themes:dark.json" {
		t.Fatalf("unexpected default theme %q", settings.DefaultTheme)
	}
	if settings.ThemeRoots["themes"] != "/opt/stagtheme/themes" {
		t.Fatalf("unexpected roots %v", settings.ThemeRoots)
	}
	if settings.Logging.Level != "debug" || settings.Logging.Format != "console" {
		t.Fatalf("unexpected logging settings %+v", settings.Logging)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDir, dir)
	if err := os.WriteFile(filepath.Join(dir, "stagtheme.toml"), []byte("=broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
