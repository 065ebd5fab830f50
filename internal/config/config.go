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
	"time"

	applog "dinkwriter/internal/log"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the YAML configuration of the dinkwriter tools.
// Environment variables (and a .env file in the working directory) are read-only overrides.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type ParserConfig struct {
	// IncludeOrder is "stack" (last discovered include first) or "declaration".
	IncludeOrder string  `yaml:"include_order"`
	MinOverlap   float64 `yaml:"min_overlap"`
	// Reconcile makes "parse" reuse snippet ids from the latest stored snapshot.
	Reconcile bool `yaml:"reconcile"`
}

type CompilerConfig struct {
	ExePath       string `yaml:"exe_path"`
	DestFolder    string `yaml:"dest_folder"`
	ProjectFile   string `yaml:"project_file"`
	DinkStructure bool   `yaml:"dink_structure"`
	TimeoutMs     int    `yaml:"timeout_ms"`
}

type StorageConfig struct {
	IndexPath     string `yaml:"index_path"`
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Parser        ParserConfig   `yaml:"parser"`
	Compiler      CompilerConfig `yaml:"compiler"`
	Storage       StorageConfig  `yaml:"storage"`
	Logging       LoggingConfig  `yaml:"logging"`
}

const (
	IncludeOrderStack       = "stack"
	IncludeOrderDeclaration = "declaration"

	// FileName is looked up in the working directory before the per-user config.
	FileName = "dinkwriter.yaml"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Parser:        ParserConfig{IncludeOrder: IncludeOrderStack, MinOverlap: 0.5},
		Compiler:      CompilerConfig{TimeoutMs: 60000},
		Storage:       StorageConfig{IndexPath: ".dinkwriter/index.sqlite", KeepSnapshots: 20},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvCompilerPath = "DINK_COMPILER_PATH"
	EnvDestFolder   = "DINK_DEST_FOLDER"
	EnvIncludeOrder = "DINK_INCLUDE_ORDER"
	EnvMinOverlap   = "DINK_MIN_OVERLAP"
	EnvIndexPath    = "DINK_INDEX_PATH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "DINK_LOG_LEVEL"
	EnvLogFormat = "DINK_LOG_FORMAT"
	EnvLogSource = "DINK_LOG_SOURCE"
	EnvLogFile   = "DINK_LOG_FILE"
)

// userConfigDir is swapped in tests.
var userConfigDir = defaultUserConfigDir

func defaultUserConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "DinkWriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "DinkWriter")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "dinkwriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "dinkwriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Resolve picks the config file: the explicit path if given, ./dinkwriter.yaml if present,
// otherwise the per-user file (which may not exist yet).
func Resolve(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}
	return ConfigPath()
}

// Load reads the config file chosen by Resolve (if present), applies defaults, loads .env and
// merges environment overrides. An explicit path that cannot be read or parsed is an error;
// a missing implicit file is not. It returns the path that was considered.
func Load(explicit string) (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Resolve(explicit)
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, path, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case explicit != "":
		return cfg, path, fmt.Errorf("read config %s: %w", path, err)
	}
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// Save writes the config YAML to path, or to the per-user file when path is empty.
func Save(cfg AppConfig, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values no component can work with.
func (c AppConfig) Validate() error {
	switch c.Parser.IncludeOrder {
	case IncludeOrderStack, IncludeOrderDeclaration:
	default:
		return fmt.Errorf("parser.include_order: unknown value %q (want %q or %q)", c.Parser.IncludeOrder, IncludeOrderStack, IncludeOrderDeclaration)
	}
	if c.Parser.MinOverlap < 0 || c.Parser.MinOverlap > 1 {
		return fmt.Errorf("parser.min_overlap: %v is outside [0,1]", c.Parser.MinOverlap)
	}
	if c.Storage.KeepSnapshots < 0 {
		return fmt.Errorf("storage.keep_snapshots: must not be negative")
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.ToLower(strings.TrimSpace(src.Parser.IncludeOrder)); v != "" {
		dst.Parser.IncludeOrder = v
	}
	if src.Parser.MinOverlap != 0 {
		dst.Parser.MinOverlap = src.Parser.MinOverlap
	}
	dst.Parser.Reconcile = src.Parser.Reconcile
	if v := strings.TrimSpace(src.Compiler.ExePath); v != "" {
		dst.Compiler.ExePath = v
	}
	if v := strings.TrimSpace(src.Compiler.DestFolder); v != "" {
		dst.Compiler.DestFolder = v
	}
	if v := strings.TrimSpace(src.Compiler.ProjectFile); v != "" {
		dst.Compiler.ProjectFile = v
	}
	dst.Compiler.DinkStructure = src.Compiler.DinkStructure
	if src.Compiler.TimeoutMs != 0 {
		dst.Compiler.TimeoutMs = src.Compiler.TimeoutMs
	}
	if v := strings.TrimSpace(src.Storage.IndexPath); v != "" {
		dst.Storage.IndexPath = v
	}
	if src.Storage.KeepSnapshots != 0 {
		dst.Storage.KeepSnapshots = src.Storage.KeepSnapshots
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvCompilerPath)); v != "" {
		cfg.Compiler.ExePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDestFolder)); v != "" {
		cfg.Compiler.DestFolder = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIncludeOrder)); v != "" {
		cfg.Parser.IncludeOrder = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMinOverlap)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Parser.MinOverlap = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexPath)); v != "" {
		cfg.Storage.IndexPath = v
	}
	// logging overrides
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

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"compiler.exe_path":    EnvCompilerPath,
		"compiler.dest_folder": EnvDestFolder,
		"parser.include_order": EnvIncludeOrder,
		"parser.min_overlap":   EnvMinOverlap,
		"storage.index_path":   EnvIndexPath,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Timeout returns the compiler timeout; zero or negative values mean no timeout.
func (c CompilerConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// LogOptions converts the logging section for applog.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
