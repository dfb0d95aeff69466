// Package engines provides the language engines cells run on: the native
// swiftlet interpreter, JavaScript through goja, and tengo.
package engines

import (
	"fmt"
	"slices"
	"strings"

	"github.com/itsmostafa/goplay/internal/config"
	"github.com/itsmostafa/goplay/internal/eval"
)

// factories builds each engine from the configuration.
var factories = map[string]func(cfg config.Config) eval.Engine{
	"swift": func(cfg config.Config) eval.Engine { return NewNative(cfg.MaxCallDepth) },
	"js":    func(cfg config.Config) eval.Engine { return NewJS(cfg.MaxCallDepth) },
	"tengo": func(cfg config.Config) eval.Engine { return NewTengo() },
}

// aliases maps alternative spellings accepted by --engine and config.
var aliases = map[string]string{
	"swiftlet":   "swift",
	"native":     "swift",
	"javascript": "js",
	"goja":       "js",
}

// Descriptions are one-line summaries shown by `goplay engines`.
var Descriptions = map[string]string{
	"swift": "native interpreter for a Swift subset; failed cells roll back",
	"js":    "JavaScript (goja); failed cells keep partial changes",
	"tengo": "tengo scripts; failed cells roll back",
}

// Names lists the engine names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns the canonical engine name for name or an alias.
func Resolve(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	if _, ok := factories[name]; !ok {
		return "", fmt.Errorf("unknown engine %q (valid options: %s)", name, strings.Join(Names(), ", "))
	}
	return name, nil
}

// New creates the engine registered under name.
func New(name string, cfg config.Config) (eval.Engine, error) {
	canonical, err := Resolve(name)
	if err != nil {
		return nil, err
	}
	return factories[canonical](cfg), nil
}

// Registry creates engines on first use and hands out the same instance
// afterwards.
type Registry struct {
	cfg     config.Config
	engines map[string]eval.Engine
}

// NewRegistry creates a Registry for cfg.
func NewRegistry(cfg config.Config) *Registry {
	return &Registry{cfg: cfg, engines: map[string]eval.Engine{}}
}

// Get returns the engine for name, creating it if needed.
func (r *Registry) Get(name string) (eval.Engine, error) {
	canonical, err := Resolve(name)
	if err != nil {
		return nil, err
	}
	if e, ok := r.engines[canonical]; ok {
		return e, nil
	}
	e, err := New(canonical, r.cfg)
	if err != nil {
		return nil, err
	}
	r.engines[canonical] = e
	return e, nil
}

// Loaded lists the engines created so far, sorted.
func (r *Registry) Loaded() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
