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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pagecraft/internal/domain"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown keys are ignored on load.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
	// DeviceMode is the canvas mode new documents start in.
	DeviceMode string `yaml:"device_mode"`
}

// EditorConfig tunes the editing engine.
type EditorConfig struct {
	HistoryLimit   int         `yaml:"history_limit"`
	MinBlockWidth  float64     `yaml:"min_block_width"`
	MinBlockHeight float64     `yaml:"min_block_height"`
	PageNameFormat string      `yaml:"page_name_format"` // must contain one %d
	Snap           SnapConfig  `yaml:"snap"`
	DefaultStyle   StyleConfig `yaml:"default_style"`
}

// SnapConfig enables smart-guide snapping while dragging blocks. Off by default.
type SnapConfig struct {
	Threshold float64 `yaml:"threshold"`
	Edges     bool    `yaml:"edges"`
	Centers   bool    `yaml:"centers"`
}

type StyleConfig struct {
	FontFamily        string `yaml:"font_family"`
	FontSize          int    `yaml:"font_size"`
	TextColor         string `yaml:"text_color"`
	BackgroundColor   string `yaml:"background_color"`
	BackgroundOpacity int    `yaml:"background_opacity"`
}

type StorageConfig struct {
	BackupsKeep  int  `yaml:"backups_keep"`
	IndexEnabled bool `yaml:"index_enabled"`
	// AutosaveOnCrash writes the open document next to the crash report.
	AutosaveOnCrash bool `yaml:"autosave_on_crash"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	st := domain.DefaultBlockStyle()
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system", DeviceMode: string(domain.DeviceDesktop)},
		Editor: EditorConfig{
			HistoryLimit:   50,
			MinBlockWidth:  domain.MinBlockWidth,
			MinBlockHeight: domain.MinBlockHeight,
			PageNameFormat: "Page %d",
			DefaultStyle: StyleConfig{
				FontFamily:        st.FontFamily,
				FontSize:          st.FontSize,
				TextColor:         st.TextColor,
				BackgroundColor:   st.BackgroundColor,
				BackgroundOpacity: st.BackgroundOpacity,
			},
		},
		Storage: StorageConfig{BackupsKeep: 10, IndexEnabled: true, AutosaveOnCrash: true},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PGC_CONFIG"
	EnvDeviceMode     = "PGC_DEVICE_MODE"
	EnvHistoryLimit   = "PGC_HISTORY_LIMIT"
	EnvPageNameFormat = "PGC_PAGE_NAME_FORMAT"
	EnvBackupsKeep    = "PGC_BACKUPS_KEEP"
	EnvIndexEnabled   = "PGC_INDEX_ENABLED"
	EnvLogLevel       = "PGC_LOG_LEVEL"
	EnvLogFormat      = "PGC_LOG_FORMAT"
	EnvLogSource      = "PGC_LOG_SOURCE"
	EnvLogFile        = "PGC_LOG_FILE"
)

// Style converts the configured default style into the domain type.
func (e EditorConfig) Style() domain.BlockStyle {
	return domain.BlockStyle{
		FontFamily:        e.DefaultStyle.FontFamily,
		FontSize:          e.DefaultStyle.FontSize,
		TextColor:         e.DefaultStyle.TextColor,
		BackgroundColor:   e.DefaultStyle.BackgroundColor,
		BackgroundOpacity: domain.ClampOpacity(e.DefaultStyle.BackgroundOpacity),
	}
}

// ConfigPath returns the per-user config file path. PGC_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PageCraft")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageCraft")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "pagecraft")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "pagecraft")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and applies
// environment overrides. A missing file is not an error.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg, data)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the config as YAML to the user config path.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// mergeInto copies set fields of src over dst. Booleans are only taken when
// the raw YAML mentions them, so a partial file keeps the default for the rest.
func mergeInto(dst *AppConfig, src *AppConfig, raw []byte) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.General.Theme); s != "" {
		dst.General.Theme = s
	}
	if m := strings.ToLower(strings.TrimSpace(src.General.DeviceMode)); m == string(domain.DeviceDesktop) || m == string(domain.DeviceMobile) {
		dst.General.DeviceMode = m
	}

	e := src.Editor
	if e.HistoryLimit > 0 {
		dst.Editor.HistoryLimit = e.HistoryLimit
	}
	if e.MinBlockWidth > 0 {
		dst.Editor.MinBlockWidth = e.MinBlockWidth
	}
	if e.MinBlockHeight > 0 {
		dst.Editor.MinBlockHeight = e.MinBlockHeight
	}
	if validNameFormat(e.PageNameFormat) {
		dst.Editor.PageNameFormat = e.PageNameFormat
	}
	if e.Snap.Threshold > 0 {
		dst.Editor.Snap = e.Snap
	}
	ds := &dst.Editor.DefaultStyle
	if s := strings.TrimSpace(e.DefaultStyle.FontFamily); s != "" {
		ds.FontFamily = s
	}
	if e.DefaultStyle.FontSize > 0 {
		ds.FontSize = e.DefaultStyle.FontSize
	}
	if s := strings.TrimSpace(e.DefaultStyle.TextColor); s != "" {
		ds.TextColor = s
	}
	if s := strings.TrimSpace(e.DefaultStyle.BackgroundColor); s != "" {
		ds.BackgroundColor = s
	}
	if mentions(raw, "background_opacity") {
		ds.BackgroundOpacity = domain.ClampOpacity(e.DefaultStyle.BackgroundOpacity)
	}

	if src.Storage.BackupsKeep > 0 {
		dst.Storage.BackupsKeep = src.Storage.BackupsKeep
	}
	if mentions(raw, "index_enabled") {
		dst.Storage.IndexEnabled = src.Storage.IndexEnabled
	}
	if mentions(raw, "autosave_on_crash") {
		dst.Storage.AutosaveOnCrash = src.Storage.AutosaveOnCrash
	}

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func mentions(raw []byte, key string) bool {
	return strings.Contains(string(raw), key+":")
}

func validNameFormat(f string) bool {
	return strings.Count(f, "%d") == 1 && strings.Count(f, "%") == 1
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvDeviceMode))); v == string(domain.DeviceDesktop) || v == string(domain.DeviceMobile) {
		cfg.General.DeviceMode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.HistoryLimit = n
		}
	}
	if v := os.Getenv(EnvPageNameFormat); validNameFormat(v) {
		cfg.Editor.PageNameFormat = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackupsKeep)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Storage.BackupsKeep = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexEnabled)); v != "" {
		cfg.Storage.IndexEnabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"general.device_mode":     EnvDeviceMode,
	"editor.history_limit":    EnvHistoryLimit,
	"editor.page_name_format": EnvPageNameFormat,
	"storage.backups_keep":    EnvBackupsKeep,
	"storage.index_enabled":   EnvIndexEnabled,
	"logging.level":           EnvLogLevel,
	"logging.format":          EnvLogFormat,
	"logging.source":          EnvLogSource,
	"logging.file":            EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
