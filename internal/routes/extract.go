package routes

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/typesync/typesync/internal/annotations"
	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/translate"
	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// ErrUnitFailed is returned by Extract under StopOnError when a unit could
// not be translated.
var ErrUnitFailed = errors.New("route unit failed")

// Options configures an Extractor.
type Options struct {
	Registry *translate.Registry
	// Engine infers undeclared return types. Nil disables inference.
	Engine *infer.Engine
	// SkipUnannotated skips units whose return type is undeclared instead
	// of inferring it.
	SkipUnannotated bool
	// StopOnError makes Extract return at the first failed unit.
	StopOnError bool
	Diagnostics *diagnostic.Collector
	Logger      *slog.Logger
}

// Unit is the translated contract of one route and method.
type Unit struct {
	Route   *Route
	Method  string
	Handler string

	Return tstype.Type
	Args   tstype.Type
	Body   tstype.Type

	// Inferred reports that Return came from inference.
	Inferred bool
	// Failed reports that some mode could not be translated and was
	// replaced by unknown.
	Failed bool
}

// Extractor translates routes into units.
type Extractor struct {
	opts Options
}

// NewExtractor returns an Extractor. A nil Registry uses the built-in
// translators only.
func NewExtractor(opts Options) *Extractor {
	if opts.Registry == nil {
		opts.Registry = translate.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{opts: opts}
}

// Extract translates every method of r. Skipped units are left out. The
// error is non-nil only under StopOnError.
func (x *Extractor) Extract(r *Route) ([]Unit, error) {
	var units []Unit
	for _, method := range r.Methods {
		unit, ok, err := x.unit(r, method)
		if err != nil {
			return units, err
		}
		if ok {
			units = append(units, unit)
		}
	}
	return units, nil
}

// ExtractAll translates every route in order.
func (x *Extractor) ExtractAll(rs []*Route) ([]Unit, error) {
	var units []Unit
	for _, r := range rs {
		u, err := x.Extract(r)
		units = append(units, u...)
		if err != nil {
			return units, err
		}
	}
	return units, nil
}

func (x *Extractor) unit(r *Route, method string) (Unit, bool, error) {
	h, _ := r.Handler(method)
	unit := Unit{Route: r, Method: method, Handler: h.Name()}
	ctx := func(mode translate.Mode) *translate.Context {
		return &translate.Context{
			Route:       r.Name,
			Rule:        r.Rule.URL(),
			Handler:     h.Name(),
			Method:      method,
			Mode:        mode,
			Inferred:    mode == translate.ModeReturn && unit.Inferred,
			Diagnostics: x.opts.Diagnostics,
		}
	}

	ret, declared := h.Result()
	if !declared {
		if x.opts.SkipUnannotated {
			x.opts.Logger.Debug("skipping unannotated handler", "route", r.Name, "method", method, "handler", h.Name())
			return Unit{}, false, nil
		}
		d, err := x.infer(h)
		if err != nil {
			x.fail(ctx(translate.ModeReturn), h, diagnostic.CategoryInferenceUnavailable, err)
			unit.Failed = true
		}
		ret, unit.Inferred = d, true
	}

	if ret != nil {
		node := typenode.Build(ret)
		if skipped(node) {
			x.opts.Logger.Debug("skipping unit", "route", r.Name, "method", method)
			return Unit{}, false, nil
		}
		unit.Return = x.translate(ctx(translate.ModeReturn), h, node, &unit)
	} else {
		unit.Return = tstype.UnknownType
	}

	unit.Args = x.translate(ctx(translate.ModeArgs), h, typenode.Build(r.Rule.Args()), &unit)
	unit.Body = x.translate(ctx(translate.ModeJSON), h, typenode.Build(x.body(r, h)), &unit)

	x.opts.Logger.Debug("extracted unit", "route", r.Name, "method", method, "inferred", unit.Inferred, "failed", unit.Failed)
	if unit.Failed && x.opts.StopOnError {
		return unit, false, fmt.Errorf("%s %s: %w", r.Name, method, ErrUnitFailed)
	}
	return unit, true, nil
}

func (x *Extractor) infer(c infer.Callable) (typenode.Descriptor, error) {
	if x.opts.Engine == nil {
		return nil, fmt.Errorf("%w: %s declares no return type and inference is disabled", infer.ErrInferenceUnavailable, c.Name())
	}
	return x.opts.Engine.Infer(c)
}

// body returns the JSON body descriptor: the handler's own declaration,
// then the route's body loader, then void.
func (x *Extractor) body(r *Route, h Handler) typenode.Descriptor {
	if d, ok := h.BodyType(); ok {
		return d
	}
	if r.BodyLoader == nil {
		return descriptor.Void()
	}
	if d, ok := r.BodyLoader.Result(); ok {
		return d
	}
	if x.opts.Engine != nil {
		d, err := x.opts.Engine.Infer(r.BodyLoader)
		if err == nil {
			return d
		}
		x.opts.Logger.Warn("body loader inference failed", "route", r.Name, "loader", r.BodyLoader.Name(), "error", err)
	}
	return descriptor.Any()
}

func (x *Extractor) translate(ctx *translate.Context, h Handler, node *typenode.Node, unit *Unit) tstype.Type {
	out, err := x.opts.Registry.NewChain(ctx).Translate(node, nil)
	if err != nil {
		x.fail(ctx, h, diagnostic.CategoryTypeUnsupported, err)
		unit.Failed = true
		return tstype.UnknownType
	}
	return out
}

func (x *Extractor) fail(ctx *translate.Context, h Handler, category diagnostic.Category, err error) {
	loc := ctx.Location()
	if p, ok := h.(Positioner); ok {
		loc.File, loc.Line = p.Position()
	}
	x.opts.Diagnostics.Error(category, loc, err.Error())
	x.opts.Logger.Debug("unit failed", "location", loc.String(), "error", err)
}

// skipped reports whether the outer annotation chain of node carries Skip.
func skipped(node *typenode.Node) bool {
	for node.Kind() == typenode.KindAnnotated {
		if _, ok := node.Annotation.(annotations.Skip); ok {
			return true
		}
		if len(node.Args) == 0 {
			return false
		}
		node = node.Args[0]
	}
	return false
}
