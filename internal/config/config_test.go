package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	src := `
cell_timeout     = "500ms"
default_engine   = "js"
lessons_dir      = "course"
exclude          = ["drafts"]
max_output_chars = 100
max_call_depth   = 32

log {
  level  = "DEBUG"
  format = "json"
}
`
	cfg, err := Parse([]byte(src), "goplay.hcl")
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.CellTimeout)
	assert.Equal(t, "js", cfg.DefaultEngine)
	assert.Equal(t, "course", cfg.LessonsDir)
	assert.Equal(t, []string{"drafts"}, cfg.Exclude)
	assert.Equal(t, 100, cfg.MaxOutputChars)
	assert.Equal(t, 32, cfg.MaxCallDepth)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParseKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := Parse([]byte(`default_engine = "tengo"`), "goplay.hcl")
	require.NoError(t, err)

	want := Default()
	want.DefaultEngine = "tengo"
	assert.Equal(t, want, cfg)
}

func TestParseEnvVariables(t *testing.T) {
	t.Setenv("GOPLAY_TEST_DIR", "/tmp/lessons")

	cfg, err := Parse([]byte(`lessons_dir = "${env.GOPLAY_TEST_DIR}/basics"`), "goplay.hcl")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lessons/basics", cfg.LessonsDir)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "syntax error", src: `cell_timeout = `},
		{name: "unknown attribute", src: `colour = "red"`},
		{name: "bad duration", src: `cell_timeout = "soon"`},
		{name: "negative timeout", src: `cell_timeout = "-1s"`},
		{name: "bad log format", src: "log {\n  format = \"xml\"\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "goplay.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing default file falls back to defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := Load(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "nope.hcl"))
		assert.Error(t, err)
	})

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.hcl")
		require.NoError(t, os.WriteFile(path, []byte(`max_call_depth = 8`), 0644))

		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.MaxCallDepth)
	})
}
