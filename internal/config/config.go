package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/goccy/go-yaml"

	"github.com/typesync/typesync/internal/emit"
)

// FileNames are the config files Find looks for, in order.
var FileNames = []string{"typesync.json", "typesync.yaml", "typesync.yml"}

// Config represents the typesync configuration.
type Config struct {
	// Package is the Go package holding the handlers: an import path or a
	// directory relative to the config file ("./api").
	Package string        `json:"package" yaml:"package"`
	Routes  []RouteConfig `json:"routes" yaml:"routes"`

	Output      OutputConfig      `json:"output" yaml:"output"`
	Naming      NamingConfig      `json:"naming" yaml:"naming"`
	Translators TranslatorsConfig `json:"translators" yaml:"translators"`
	Inference   InferenceConfig   `json:"inference" yaml:"inference"`

	SkipUnannotated bool   `json:"skip_unannotated,omitempty" yaml:"skip_unannotated"` // skip routes without a declared return type
	StopOnError     bool   `json:"stop_on_error,omitempty" yaml:"stop_on_error"`       // abort at the first unit that fails
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint"`                 // prefix for every generated URL

	Log         LogConfig         `json:"log" yaml:"log"`
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics"`
}

// RouteConfig declares one route of the handler package.
type RouteConfig struct {
	Name    string   `json:"name" yaml:"name"`
	Rule    string   `json:"rule" yaml:"rule"`                       // "/users/<int:id>" or "GET /users/{id}"
	Methods []string `json:"methods,omitempty" yaml:"methods"`       // default: the rule's method, then GET
	Handler string   `json:"handler,omitempty" yaml:"handler"`       // function serving every method
	// Handlers overrides Handler per method.
	Handlers   map[string]string `json:"handlers,omitempty" yaml:"handlers"`
	BodyLoader string            `json:"body_loader,omitempty" yaml:"body_loader"` // function whose result is the JSON body
}

// OutputConfig specifies where the TypeScript files are written.
type OutputConfig struct {
	Dir       string `json:"dir" yaml:"dir"`
	TypesFile string `json:"types_file" yaml:"types_file"`
	APIsFile  string `json:"apis_file" yaml:"apis_file"`
	Format    bool   `json:"format,omitempty" yaml:"format"` // run the project's formatter afterwards
}

// NamingConfig holds the name templates; see emit.Expand.
type NamingConfig struct {
	ReturnType string `json:"return_type" yaml:"return_type"`
	ArgsType   string `json:"args_type" yaml:"args_type"`
	Function   string `json:"function" yaml:"function"`
}

// TranslatorsConfig lists translator plugins and priority overrides.
type TranslatorsConfig struct {
	Plugins    []string       `json:"plugins,omitempty" yaml:"plugins"`
	Priorities map[string]int `json:"priorities,omitempty" yaml:"priorities"`
}

// InferenceConfig controls return type inference.
type InferenceConfig struct {
	Enabled   bool `json:"enabled" yaml:"enabled"`
	AllowEval bool `json:"allow_eval" yaml:"allow_eval"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// DiagnosticsConfig controls diagnostic reporting.
type DiagnosticsConfig struct {
	Strict bool `json:"strict" yaml:"strict"` // warnings fail the run
	Quiet  bool `json:"quiet" yaml:"quiet"`   // warnings are dropped
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	n := emit.DefaultNaming()
	return Config{
		Package: ".",
		Output: OutputConfig{
			Dir:       ".",
			TypesFile: "types.ts",
			APIsFile:  "apis.ts",
		},
		Naming: NamingConfig{
			ReturnType: n.ReturnType,
			ArgsType:   n.ArgsType,
			Function:   n.Function,
		},
		Log: LogConfig{Level: "info"},
	}
}

// EmitNaming converts the templates for the emitter.
func (n NamingConfig) EmitNaming() emit.Naming {
	return emit.Naming{ReturnType: n.ReturnType, ArgsType: n.ArgsType, Function: n.Function}
}

// Find returns the first config file of FileNames present in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s found in %s", strings.Join(FileNames, ", "), dir)
}

// Load reads and parses a typesync config file. JSON and YAML are accepted,
// chosen by extension; unknown keys are rejected in both. Environment
// variables in YAML files are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	config := DefaultConfig()
	switch ext := filepath.Ext(path); ext {
	case ".json":
		err = json.Unmarshal(data, &config, json.RejectUnknownMembers(true))
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))), yaml.DisallowUnknownField())
		err = dec.Decode(&config)
	default:
		err = fmt.Errorf("unsupported extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", path, err)
	}

	return &config, nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if result.IsValid() {
		return nil
	}
	errs := make([]error, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = errors.New(e)
	}
	return errors.Join(errs...)
}
