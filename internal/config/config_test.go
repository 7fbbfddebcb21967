/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Editor.HistoryLimit != 50 || cfg.Editor.PageNameFormat != "Page %d" {
		t.Fatalf("unexpected editor defaults: %#v", cfg.Editor)
	}
	if st := cfg.Editor.Style(); st.FontFamily != "Inter" || st.FontSize != 16 || st.BackgroundOpacity != 100 {
		t.Fatalf("unexpected default style: %#v", st)
	}
	if !cfg.Storage.IndexEnabled || cfg.Storage.BackupsKeep != 10 {
		t.Fatalf("unexpected storage defaults: %#v", cfg.Storage)
	}
}

func TestPartialFileKeepsOtherDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	data := "editor:\n  history_limit: 20\n  default_style:\n    font_family: Georgia\n    background_opacity: 150\n"
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(p)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Editor.HistoryLimit != 20 || cfg.Editor.DefaultStyle.FontFamily != "Georgia" {
		t.Fatalf("file values not applied: %#v", cfg.Editor)
	}
	if cfg.Editor.DefaultStyle.BackgroundOpacity != 100 {
		t.Fatalf("opacity should clamp to 100, got %d", cfg.Editor.DefaultStyle.BackgroundOpacity)
	}
	if !cfg.Storage.IndexEnabled || cfg.Editor.DefaultStyle.FontSize != 16 {
		t.Fatalf("unmentioned fields should keep defaults: %#v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Defaults()
	cfg.Storage.IndexEnabled = false
	cfg.Editor.PageNameFormat = "Screen %d"
	if err := SaveTo(p, cfg); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}
	got, err := LoadFrom(p)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if got.Storage.IndexEnabled || got.Editor.PageNameFormat != "Screen %d" {
		t.Fatalf("values lost: %#v", got)
	}
}

func TestInvalidNameFormatIgnored(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Editor.PageNameFormat = "Page %s %d"
	mergeInto(&dst, &src, nil)
	if dst.Editor.PageNameFormat != "Page %d" {
		t.Fatalf("invalid format accepted: %q", dst.Editor.PageNameFormat)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/pgc.log"
	mergeInto(&dst, &src, nil)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/pgc.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvHistoryLimit, "7")
	t.Setenv(EnvIndexEnabled, "off")
	t.Setenv(EnvDeviceMode, "mobile")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.HistoryLimit != 7 || cfg.Storage.IndexEnabled || cfg.General.DeviceMode != "mobile" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if cfg.Logging.Level != "error" || !cfg.Logging.Source {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	if name, ok := EnvOverrideFor("editor.history_limit"); !ok || name != EnvHistoryLimit {
		t.Fatalf("EnvOverrideFor = %q,%v", name, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("unset env should not report an override")
	}
}
