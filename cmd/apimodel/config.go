package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/reoring/apimodel"
)

// config holds CLI defaults. Environment variables (APIMODEL_*) seed the
// values, command line flags override them.
type config struct {
	// Input format: "auto", "json", "yaml"
	Format string `env:"FORMAT" envDefault:"auto"`

	// Output format for normalize: "" (same as input), "json", "yaml"
	Out string `env:"OUT" envDefault:""`

	// Unknown key policy: "passthrough", "strip", "strict"
	Unknown string `env:"UNKNOWN" envDefault:"passthrough"`

	// Duplicate key severity: "ignore", "warn", "error"
	Duplicates string `env:"DUPLICATES" envDefault:"ignore"`

	// Nesting limit; 0 disables it
	MaxDepth int `env:"MAX_DEPTH" envDefault:"0"`

	// Input size limit in bytes; 0 disables it
	MaxBytes int64 `env:"MAX_BYTES" envDefault:"0"`

	// Inputs parsed concurrently; values below 2 parse sequentially
	Parallel int `env:"PARALLEL" envDefault:"1"`

	// Log level: "debug", "info", "warn", "error"
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	// Log format: "json", "text"
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Log file path (empty for stderr)
	LogOutput string `env:"LOG_OUTPUT" envDefault:""`

	// Max log file size in MB
	LogMaxSize int `env:"LOG_MAX_SIZE" envDefault:"10"`

	// Number of rotated log files to keep
	LogMaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"3"`
}

const envPrefix = "APIMODEL_"

// loadConfig reads defaults from environ (KEY=VALUE pairs).
func loadConfig(environ []string) (*config, error) {
	cfg := &config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix, Environment: env.ToMap(environ)}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// bind registers the flags shared by the parsing subcommands.
func (c *config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Format, "format", c.Format, "input format (auto, json, yaml)")
	fs.StringVar(&c.Unknown, "unknown", c.Unknown, "unknown key policy (passthrough, strip, strict)")
	fs.StringVar(&c.Duplicates, "dup", c.Duplicates, "duplicate key severity (ignore, warn, error)")
	fs.IntVar(&c.MaxDepth, "max-depth", c.MaxDepth, "maximum nesting depth (0 = unlimited)")
	fs.Int64Var(&c.MaxBytes, "max-bytes", c.MaxBytes, "maximum input size in bytes (0 = unlimited)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (json, text)")
	fs.StringVar(&c.LogOutput, "log-output", c.LogOutput, "log file path (empty for stderr)")
	fs.IntVar(&c.Parallel, "parallel", c.Parallel, "number of inputs parsed concurrently")
}

// Validate checks enumerated settings and limits.
func (c *config) Validate() error {
	validFormats := map[string]bool{"auto": true, "json": true, "yaml": true}
	if !validFormats[strings.ToLower(c.Format)] {
		return fmt.Errorf("invalid format: %s", c.Format)
	}
	validOut := map[string]bool{"": true, "json": true, "yaml": true}
	if !validOut[strings.ToLower(c.Out)] {
		return fmt.Errorf("invalid output format: %s", c.Out)
	}
	if _, ok := apimodel.ParseUnknownPolicy(strings.ToLower(c.Unknown)); !ok {
		return fmt.Errorf("invalid unknown key policy: %s", c.Unknown)
	}
	if _, ok := apimodel.ParseSeverity(strings.ToLower(c.Duplicates)); !ok {
		return fmt.Errorf("invalid duplicate key severity: %s", c.Duplicates)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth cannot be negative")
	}
	if c.MaxBytes < 0 {
		return fmt.Errorf("max bytes cannot be negative")
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel cannot be negative")
	}
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}
	return nil
}

func (c *config) policy() apimodel.UnknownPolicy {
	p, _ := apimodel.ParseUnknownPolicy(strings.ToLower(c.Unknown))
	return p
}

// parseOpt maps the config onto library parse options. warn receives
// non-fatal issues.
func (c *config) parseOpt(warn func(apimodel.Issue)) apimodel.ParseOpt {
	sev, _ := apimodel.ParseSeverity(strings.ToLower(c.Duplicates))
	return apimodel.ParseOpt{
		Strictness: apimodel.Strictness{OnDuplicateKey: sev},
		MaxDepth:   c.MaxDepth,
		MaxBytes:   c.MaxBytes,
		Warnings:   warn,
	}
}

// formatFor resolves "auto" from the input name; stdin defaults to JSON.
func (c *config) formatFor(name string) string {
	f := strings.ToLower(c.Format)
	if f != "auto" {
		return f
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return "yaml"
	}
	return "json"
}
