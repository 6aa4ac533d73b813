// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bist.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BIST_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AppID != "00000000000000000000000000000001" || cfg.EchoPayload != "0123456" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OutputBuffer != 100 || !cfg.UninstallAfter {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
package: /tmp/Bist.acp
echo_payload: hello
output_buffer: 64
uninstall_after: false
log:
  file: /tmp/bist.log
  max_backups: 1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Package != "/tmp/Bist.acp" || cfg.EchoPayload != "hello" || cfg.OutputBuffer != 64 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.UninstallAfter {
		t.Fatal("uninstall_after not applied")
	}
	if cfg.Log.File != "/tmp/bist.log" || cfg.Log.MaxBackups != 1 || cfg.Log.MaxSizeMB != 10 {
		t.Fatalf("log values not merged: %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BIST_CONFIG", "")
	t.Setenv("BIST_ECHO_PAYLOAD", "from-env")
	t.Setenv("BIST_UNINSTALL_AFTER", "false")
	t.Setenv("BIST_LOG_FILE", "/tmp/env.log")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.EchoPayload != "from-env" || cfg.UninstallAfter || cfg.Log.File != "/tmp/env.log" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"short app id", "app_id: \"01\"\n"},
		{"non hex app id", "app_id: zz000000000000000000000000000001\n"},
		{"empty package", "package: \"\"\n"},
		{"empty echo payload", "echo_payload: \"\"\n"},
		{"echo payload too long", "echo_payload: " + strings.Repeat("a", 257) + "\n"},
		{"zero output buffer", "output_buffer: 0\n"},
		{"timeout too large", "timeout_sec: 301\n"},
		{"bad log size", "log:\n  max_size_mb: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
