package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/grib/grib"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
cache_dir = "/var/cache/grib"
compression = "zstd"
log_level = "debug"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if fc.CacheDir != "/var/cache/grib" {
		t.Errorf("cache_dir %q", fc.CacheDir)
	}
	if fc.Compression != "zstd" {
		t.Errorf("compression %q", fc.Compression)
	}
	if fc.LogLevel != "debug" {
		t.Errorf("log_level %q", fc.LogLevel)
	}
}

func TestLoadFileConfig_Malformed(t *testing.T) {
	path := writeConfig(t, `cache_dir = [not toml`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyFileConfig_FlagPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheDir = "/from/flag"

	fc := FileConfig{CacheDir: "/from/file", LogLevel: "debug"}
	ApplyFileConfig(&cfg, fc, map[string]bool{"cache-dir": true})

	if cfg.CacheDir != "/from/flag" {
		t.Errorf("explicit flag overridden: %q", cfg.CacheDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("file value not applied: %q", cfg.LogLevel)
	}
}

func TestSidecarCompression(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want grib.SidecarCompression
	}{
		{"", grib.SidecarCompressionNone},
		{"none", grib.SidecarCompressionNone},
		{"zstd", grib.SidecarCompressionZstd},
	} {
		got, err := Config{Compression: tc.in}.SidecarCompression()
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := (Config{Compression: "lz4"}).SidecarCompression(); err == nil {
		t.Error("expected error for unknown compression")
	}
}
