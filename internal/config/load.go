package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/itsmostafa/goplay/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot mirrors the accepted top-level attributes and blocks of goplay.hcl.
type fileRoot struct {
	CellTimeout    *string   `hcl:"cell_timeout,optional"`
	DefaultEngine  *string   `hcl:"default_engine,optional"`
	LessonsDir     *string   `hcl:"lessons_dir,optional"`
	Exclude        *[]string `hcl:"exclude,optional"`
	MaxOutputChars *int      `hcl:"max_output_chars,optional"`
	MaxCallDepth   *int      `hcl:"max_call_depth,optional"`
	Log            *logBlock `hcl:"log,block"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Load reads the HCL file at path on top of Default(). An empty path means
// DefaultFile, which may be absent; an explicitly named file must exist.
func Load(ctx context.Context, path string) (Config, error) {
	logger := ctxlog.FromContext(ctx)

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logger.Debug("No config file found, using defaults.", "path", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(src, path)
	if err != nil {
		return Config{}, err
	}
	logger.Debug("Config file loaded.", "path", path, "engine", cfg.DefaultEngine, "timeout", cfg.CellTimeout)
	return cfg, nil
}

// Parse decodes HCL source into a Config. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (Config, error) {
	cfg := Default()

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(), &root)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config file %s: %w", filename, diags)
	}

	if root.CellTimeout != nil {
		d, err := time.ParseDuration(*root.CellTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid cell_timeout %q: %w", *root.CellTimeout, err)
		}
		cfg.CellTimeout = d
	}
	if root.DefaultEngine != nil {
		cfg.DefaultEngine = *root.DefaultEngine
	}
	if root.LessonsDir != nil {
		cfg.LessonsDir = *root.LessonsDir
	}
	if root.Exclude != nil {
		cfg.Exclude = *root.Exclude
	}
	if root.MaxOutputChars != nil {
		cfg.MaxOutputChars = *root.MaxOutputChars
	}
	if root.MaxCallDepth != nil {
		cfg.MaxCallDepth = *root.MaxCallDepth
	}
	if root.Log != nil {
		if root.Log.Level != nil {
			cfg.LogLevel = strings.ToLower(*root.Log.Level)
		}
		if root.Log.Format != nil {
			cfg.LogFormat = strings.ToLower(*root.Log.Format)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// evalContext exposes the process environment as `env.NAME` so config
// files can write `lessons_dir = "${env.HOME}/lessons"`.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclIdentifier(name) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func hclIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}
