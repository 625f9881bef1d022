// Package config loads engine configuration from a YAML file, validated and
// defaulted by an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Journal key modes.
const (
	JournalKeysRecord  = "record"
	JournalKeysDiscard = "discard"
)

// Config holds engine settings.
type Config struct {
	IconQuota        int    `json:"icon_quota" yaml:"icon_quota"`
	WidgetQuota      int    `json:"widget_quota" yaml:"widget_quota"`
	EnvelopeChecksum string `json:"envelope_checksum" yaml:"envelope_checksum"`
	JournalKeys      string `json:"journal_keys" yaml:"journal_keys"`
	MaxJournalBytes  int64  `json:"max_journal_bytes" yaml:"max_journal_bytes"`
	DPI              int    `json:"dpi" yaml:"dpi"`
	ResourcesDir     string `json:"resources_dir" yaml:"resources_dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema has no valid defaults: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates YAML data against the schema and fills defaults.
// Unknown keys and out-of-range values are rejected.
func Parse(data []byte) (*Config, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	return &cfg, nil
}

// formatCUEError flattens a CUE error list into one message.
func formatCUEError(err error) error {
	msg := cueerrors.Details(err, nil)
	return fmt.Errorf("invalid config: %s", msg)
}
