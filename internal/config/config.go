// Package config loads cree.toml and merges it with CLI flags and
// built-in defaults.
package config

import (
	"os"

	"github.com/pelletier/go-toml"

	"github.com/janstaffa/cree-go/internal/errs"
)

// DefaultPort and DefaultChunkSize are the built-in fallbacks used when
// neither a flag nor the config file supplies a value.
const (
	DefaultPort      uint16 = 80
	DefaultChunkSize uint64 = 1024 * 1024
)

// Headers mirrors the [headers] table in cree.toml.
type Headers struct {
	ContentSecurityPolicy *string `toml:"content_security_policy"`
}

// Config is the fully-typed shape of cree.toml. Every field is optional;
// Resolve fills in defaults and CLI overrides.
type Config struct {
	Port           *uint16 `toml:"port"`
	EnablePHP      *bool   `toml:"enable_php"`
	RootDirectory  *string `toml:"root_directory"`
	PHPPath        *string `toml:"php_path"`
	UseCompression *bool   `toml:"use_compression"`
	PCChunkSize    *uint64 `toml:"pc_chunk_size"`
	Headers        Headers `toml:"headers"`
}

// Load reads and decodes path. A missing file is not an error — it
// yields a zero Config, all fields defaulted downstream. A present but
// malformed file is an *errs.Error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errs.NewFileOpen(path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.NewFileOpen(path, err)
	}
	return &cfg, nil
}

// Resolved is the fully-defaulted configuration the server assembly
// component consumes.
type Resolved struct {
	Port                  uint16
	EnablePHP             bool
	RootDirectory         string
	PHPPath               string
	UseCompression        bool
	PCChunkSize           uint64
	ContentSecurityPolicy string
}

// Overrides carries the CLI-supplied values, which win over the config
// file, which in turn wins over built-in defaults. A nil field in
// Overrides means "not set on the command line".
type Overrides struct {
	Path *string
	Port *uint16
}

// Resolve merges cfg with CLI overrides and built-in defaults, in that
// precedence order (CLI > file > default).
func Resolve(cfg *Config, ov Overrides) Resolved {
	r := Resolved{
		Port:           DefaultPort,
		UseCompression: true,
		PCChunkSize:    DefaultChunkSize,
	}

	if cfg.Port != nil {
		r.Port = *cfg.Port
	}
	if cfg.EnablePHP != nil {
		r.EnablePHP = *cfg.EnablePHP
	}
	if cfg.RootDirectory != nil {
		r.RootDirectory = *cfg.RootDirectory
	}
	if cfg.PHPPath != nil {
		r.PHPPath = *cfg.PHPPath
	}
	if cfg.UseCompression != nil {
		r.UseCompression = *cfg.UseCompression
	}
	if cfg.PCChunkSize != nil {
		r.PCChunkSize = *cfg.PCChunkSize
	}
	if cfg.Headers.ContentSecurityPolicy != nil {
		r.ContentSecurityPolicy = *cfg.Headers.ContentSecurityPolicy
	}

	if ov.Path != nil {
		r.RootDirectory = *ov.Path
	}
	if ov.Port != nil {
		r.Port = *ov.Port
	}
	return r
}
