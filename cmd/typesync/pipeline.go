package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/spf13/pflag"

	"github.com/typesync/typesync/internal/buildcache"
	"github.com/typesync/typesync/internal/config"
	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/emit"
	"github.com/typesync/typesync/internal/gosource"
	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/routes"
	"github.com/typesync/typesync/internal/translate"
)

// errGenerationFailed is returned when diagnostics contain errors. The
// diagnostics themselves have already been logged.
var errGenerationFailed = errors.New("generation failed")

// TimingReport collects timing data for each pipeline phase.
type TimingReport struct {
	Load    time.Duration
	Extract time.Duration
	Emit    time.Duration
	Total   time.Duration
}

// Log writes the timing breakdown at debug level.
func (t *TimingReport) Log(logger *slog.Logger) {
	logger.Debug("timing",
		"load", t.Load.Round(time.Millisecond),
		"extract", t.Extract.Round(time.Millisecond),
		"emit", t.Emit.Round(time.Millisecond),
		"total", t.Total.Round(time.Millisecond),
	)
}

// generator runs one generation over an effective config.
type generator struct {
	cfg        *config.Config
	configPath string
	dir        string // relative paths in cfg are resolved against dir
	logger     *slog.Logger
	force      bool
	timing     TimingReport
}

// newGenerator loads the config, applies the flags and builds the logger.
func newGenerator(opts *options, fs *pflag.FlagSet, cwd string) (*generator, error) {
	res, err := loadOrDiscoverConfig(opts.configPath, cwd)
	if err != nil {
		return nil, err
	}
	if err := opts.apply(res.Config, fs); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", res.Path, err)
	}
	logger, err := newLogger(res.Config.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", res.Path)
	return &generator{cfg: res.Config, configPath: res.Path, dir: res.Dir, logger: logger, force: opts.force}, nil
}

func (g *generator) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.dir, p)
}

func (g *generator) outDir() string { return g.path(g.cfg.Output.Dir) }

func (g *generator) outputs() []string {
	return []string{
		filepath.Join(g.outDir(), g.cfg.Output.TypesFile),
		filepath.Join(g.outDir(), g.cfg.Output.APIsFile),
	}
}

// plugins returns the resolved paths of the configured translator plugins.
func (g *generator) plugins() []string {
	paths := make([]string, len(g.cfg.Translators.Plugins))
	for i, p := range g.cfg.Translators.Plugins {
		paths[i] = g.path(p)
	}
	return paths
}

func (g *generator) importPath() (string, error) {
	return gosource.ImportPath(g.dir, g.cfg.Package)
}

// registry returns the built-in translators plus the configured plugins,
// with priority overrides applied. A plugin that cannot be loaded is fatal.
func (g *generator) registry() (*translate.Registry, error) {
	reg := translate.NewRegistry()
	for _, p := range g.plugins() {
		r, err := translate.LoadPlugin(p)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(r); err != nil {
			return nil, &translate.PluginLoadError{Path: p, Err: err}
		}
		g.logger.Debug("loaded translator plugin", "path", p, "id", r.ID)
	}
	for id, prio := range g.cfg.Translators.Priorities {
		if err := reg.SetPriority(id, prio); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// fingerprints returns the config and source hashes the build cache is
// keyed on. The source hash covers the Go files and the plugin binaries.
func (g *generator) fingerprints(ctx context.Context, importPath string) (string, string, error) {
	data, err := json.Marshal(struct {
		Version string         `json:"version"`
		Config  *config.Config `json:"config"`
	}{version, g.cfg}, json.Deterministic(true))
	if err != nil {
		return "", "", fmt.Errorf("hashing config: %w", err)
	}
	files, err := gosource.Files(ctx, g.dir, importPath)
	if err != nil {
		return "", "", err
	}
	sources, err := buildcache.Fingerprint(ctx, append(files, g.plugins()...))
	if err != nil {
		return "", "", err
	}
	return buildcache.HashBytes(data), sources, nil
}

// extract loads the handler package and translates every route. Route
// problems are recorded in diags; the error is reserved for failures that
// stop the run.
func (g *generator) extract(ctx context.Context, importPath string, diags *diagnostic.Collector) ([]routes.Unit, error) {
	reg, err := g.registry()
	if err != nil {
		diags.Error(diagnostic.CategoryPluginLoad, diagnostic.Location{File: g.configPath}, err.Error())
		return nil, err
	}

	start := time.Now()
	prog, err := gosource.Load(ctx, g.dir, g.logger, importPath)
	if err != nil {
		return nil, err
	}
	pkg, ok := prog.Package(importPath)
	if !ok {
		return nil, fmt.Errorf("package %s was not loaded", importPath)
	}
	g.timing.Load = time.Since(start)

	start = time.Now()
	rs := g.routes(pkg, diags)

	var engine *infer.Engine
	if g.cfg.Inference.Enabled {
		engine = infer.New(infer.Options{AllowEval: g.cfg.Inference.AllowEval, Logger: g.logger})
	}
	x := routes.NewExtractor(routes.Options{
		Registry:        reg,
		Engine:          engine,
		SkipUnannotated: g.cfg.SkipUnannotated,
		StopOnError:     g.cfg.StopOnError,
		Diagnostics:     diags,
		Logger:          g.logger,
	})
	units, err := x.ExtractAll(rs)
	g.timing.Extract = time.Since(start)
	return units, err
}

// routes resolves the configured routes against pkg. A route naming a
// missing handler is reported and left out.
func (g *generator) routes(pkg *gosource.Package, diags *diagnostic.Collector) []*routes.Route {
	var rs []*routes.Route
	for _, rc := range g.cfg.Routes {
		loc := diagnostic.Location{Route: rc.Name}
		invalid := func(err error) {
			diags.Error(diagnostic.CategoryRouteInvalid, loc, err.Error())
		}

		rule, err := routes.ParseRule(rc.Rule)
		if err != nil {
			invalid(err)
			continue
		}
		handlers := make(map[string]routes.Handler)
		ok := true
		add := func(method, name string) {
			fn, err := pkg.Func(name)
			if err != nil {
				invalid(err)
				ok = false
				return
			}
			handlers[method] = fn
		}
		if rc.Handler != "" {
			add("", rc.Handler)
		}
		for method, name := range rc.Handlers {
			add(method, name)
		}
		var bodyLoader infer.Callable
		if rc.BodyLoader != "" {
			fn, err := pkg.Func(rc.BodyLoader)
			if err != nil {
				invalid(err)
				ok = false
			} else {
				bodyLoader = fn
			}
		}
		if !ok {
			continue
		}

		r, err := routes.New(rc.Name, rule, rc.Methods, handlers, bodyLoader)
		if err != nil {
			invalid(err)
			continue
		}
		rs = append(rs, r)
	}
	return rs
}

// build runs the whole pipeline: cache check, extraction, emission. It
// reports whether the run was skipped because nothing changed.
func (g *generator) build(ctx context.Context) (skipped bool, err error) {
	start := time.Now()
	defer func() {
		g.timing.Total = time.Since(start)
		g.timing.Log(g.logger)
	}()

	importPath, err := g.importPath()
	if err != nil {
		return false, err
	}
	cachePath := buildcache.CachePath(g.outDir())
	configHash, sourcesHash, err := g.fingerprints(ctx, importPath)
	if err != nil {
		return false, err
	}
	if !g.force && buildcache.Load(cachePath).IsValid(configHash, sourcesHash) {
		g.logger.Info("generated files are up to date", "dir", g.outDir())
		return true, nil
	}

	diags := diagnostic.NewCollector(g.cfg.Diagnostics.Strict, g.cfg.Diagnostics.Quiet)
	for _, w := range g.cfg.ValidateDetailed().Warnings {
		diags.Warn(diagnostic.CategoryConfigInvalid, diagnostic.Location{File: g.configPath}, w)
	}
	units, err := g.extract(ctx, importPath, diags)
	diags.LogTo(g.logger)
	if err != nil {
		buildcache.Delete(cachePath)
		return false, err
	}

	emitStart := time.Now()
	w, err := emit.New(emit.Options{
		Naming:    g.cfg.Naming.EmitNaming(),
		TypesFile: g.cfg.Output.TypesFile,
		Endpoint:  g.cfg.Endpoint,
	})
	if err != nil {
		return false, err
	}
	out, err := w.Generate(units)
	if err != nil {
		return false, err
	}
	if err := emit.WriteFiles(g.outDir(), g.cfg.Output.TypesFile, g.cfg.Output.APIsFile, out); err != nil {
		return false, err
	}
	if g.cfg.Output.Format {
		emit.Format(ctx, g.logger, g.outDir(), g.cfg.Output.TypesFile, g.cfg.Output.APIsFile)
	}
	g.timing.Emit = time.Since(emitStart)

	if diags.HasErrors() {
		buildcache.Delete(cachePath)
		g.logger.Error("generation finished with errors", "summary", diags.Summary())
		return false, errGenerationFailed
	}
	if err := buildcache.Save(cachePath, buildcache.New(configHash, sourcesHash, g.outputs())); err != nil {
		g.logger.Warn("could not save build cache", "error", err)
	}
	g.logger.Info("generated TypeScript client", "units", len(units), "dir", g.outDir(), "summary", diags.Summary())
	return false, nil
}
