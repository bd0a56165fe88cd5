package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/typesync/typesync/internal/config"
	"github.com/typesync/typesync/internal/translate"
)

// options holds the command-line flags shared by every subcommand. Flags
// that were set override the config file.
type options struct {
	configPath string
	outDir     string

	translators []string
	priorities  []string

	skipUnannotated bool
	inference       bool
	inferenceEval   bool

	typesFile, apisFile string

	returnTypeFormat   string
	argsTypeFormat     string
	functionNameFormat string

	stopOnError bool
	strict      bool
	quiet       bool
	force       bool
	format      bool
	logLevel    string
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (default: typesync.json, typesync.yaml or typesync.yml in the working directory)")
	fs.StringVarP(&o.outDir, "out-dir", "o", "", "directory the TypeScript files are written to")
	fs.StringArrayVarP(&o.translators, "translator", "t", nil, "translator plugin to load (repeatable)")
	fs.StringArrayVar(&o.priorities, "translator-priority", nil, "override a translator priority as ID:PRIORITY (repeatable)")
	fs.BoolVar(&o.skipUnannotated, "skip-unannotated", false, "skip handlers without a declared return type")
	fs.BoolVarP(&o.inference, "inference", "i", false, "infer undeclared return types from handler bodies")
	fs.BoolVar(&o.inferenceEval, "inference-can-eval", false, "let inference evaluate expressions it cannot resolve statically")
	fs.StringVar(&o.typesFile, "types-file", "", "name of the generated types file")
	fs.StringVar(&o.apisFile, "apis-file", "", "name of the generated apis file")
	fs.StringVar(&o.returnTypeFormat, "return-type-format", "", "name template of return types")
	fs.StringVar(&o.argsTypeFormat, "args-type-format", "", "name template of argument types")
	fs.StringVar(&o.functionNameFormat, "function-name-format", "", "name template of API functions")
	fs.BoolVar(&o.stopOnError, "stop-on-error", false, "abort at the first route that cannot be translated")
	fs.BoolVar(&o.strict, "strict", false, "treat warnings as errors")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress warnings")
	fs.BoolVar(&o.force, "force", false, "regenerate even when nothing changed")
	fs.BoolVar(&o.format, "format", false, "run the project's formatter over the generated files")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// apply copies the flags that were set on fs into cfg and revalidates it.
func (o *options) apply(cfg *config.Config, fs *pflag.FlagSet) error {
	set := fs.Changed
	if set("out-dir") {
		cfg.Output.Dir = o.outDir
	}
	cfg.Translators.Plugins = append(cfg.Translators.Plugins, o.translators...)
	for _, p := range o.priorities {
		id, prio, err := translate.ParsePriority(p)
		if err != nil {
			return err
		}
		if cfg.Translators.Priorities == nil {
			cfg.Translators.Priorities = make(map[string]int)
		}
		cfg.Translators.Priorities[id] = prio
	}
	if set("skip-unannotated") {
		cfg.SkipUnannotated = o.skipUnannotated
	}
	if set("inference") {
		cfg.Inference.Enabled = o.inference
	}
	if set("inference-can-eval") {
		cfg.Inference.AllowEval = o.inferenceEval
	}
	if set("types-file") {
		cfg.Output.TypesFile = o.typesFile
	}
	if set("apis-file") {
		cfg.Output.APIsFile = o.apisFile
	}
	if set("return-type-format") {
		cfg.Naming.ReturnType = o.returnTypeFormat
	}
	if set("args-type-format") {
		cfg.Naming.ArgsType = o.argsTypeFormat
	}
	if set("function-name-format") {
		cfg.Naming.Function = o.functionNameFormat
	}
	if set("stop-on-error") {
		cfg.StopOnError = o.stopOnError
	}
	if set("strict") {
		cfg.Diagnostics.Strict = o.strict
	}
	if set("quiet") {
		cfg.Diagnostics.Quiet = o.quiet
	}
	if set("format") {
		cfg.Output.Format = o.format
	}
	if set("log-level") {
		cfg.Log.Level = o.logLevel
	}
	return cfg.Validate()
}

// ConfigResult holds the result of loading a typesync config file.
type ConfigResult struct {
	Config *config.Config
	Path   string // resolved absolute path to the config file
	Dir    string // directory containing the config file
}

// loadOrDiscoverConfig loads the config at configPath, or the first of
// config.FileNames found in cwd when configPath is empty. Unlike most
// tools, typesync cannot run without a config: the routes live there.
func loadOrDiscoverConfig(configPath, cwd string) (*ConfigResult, error) {
	resolved := configPath
	if resolved == "" {
		found, err := config.Find(cwd)
		if err != nil {
			return nil, err
		}
		resolved = found
	} else if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cwd, resolved)
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, err
	}
	return &ConfigResult{Config: cfg, Path: resolved, Dir: filepath.Dir(resolved)}, nil
}

// newLogger returns a text logger on stderr. An empty level means info.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}
