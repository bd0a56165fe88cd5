// Package gosource reads a Go package of HTTP handlers with go/packages and
// exposes its types as typenode descriptors and its functions as inference
// callables.
package gosource

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"

	"github.com/typesync/typesync/internal/typenode"
)

// TSXPath is the import path of the marker package.
const TSXPath = "github.com/typesync/typesync/tsx"

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedModule

// Program is a set of type-checked packages sharing one file set.
type Program struct {
	Fset   *token.FileSet
	logger *slog.Logger

	pkgs  map[string]*Package
	decls map[*types.Func]funcDecl
	funcs map[*types.Func]*Func
	enums map[*types.TypeName][]any
}

type funcDecl struct {
	pkg  *Package
	decl *ast.FuncDecl
}

// Package is one type-checked package with syntax.
type Package struct {
	prog  *Program
	Types *types.Package
	Info  *types.Info
	Files []*ast.File
}

// NewProgram returns an empty program over fset.
func NewProgram(fset *token.FileSet, logger *slog.Logger) *Program {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Program{
		Fset:   fset,
		logger: logger,
		pkgs:   make(map[string]*Package),
		decls:  make(map[*types.Func]funcDecl),
		funcs:  make(map[*types.Func]*Func),
		enums:  make(map[*types.TypeName][]any),
	}
}

// Add registers a type-checked package and indexes its function
// declarations.
func (p *Program) Add(pkg *types.Package, info *types.Info, files []*ast.File) *Package {
	out := &Package{prog: p, Types: pkg, Info: info, Files: files}
	p.pkgs[pkg.Path()] = out
	for _, f := range files {
		for _, d := range f.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Recv != nil {
				continue
			}
			if obj, ok := info.Defs[fd.Name].(*types.Func); ok {
				p.decls[obj] = funcDecl{pkg: out, decl: fd}
			}
		}
	}
	return out
}

// Package returns a loaded package by import path.
func (p *Program) Package(path string) (*Package, bool) {
	pkg, ok := p.pkgs[path]
	return pkg, ok
}

// Load loads the packages matching patterns, relative to dir, with full
// syntax and type information for the matched packages.
func Load(ctx context.Context, dir string, logger *slog.Logger, patterns ...string) (*Program, error) {
	fset := token.NewFileSet()
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     dir,
		Fset:    fset,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", strings.Join(patterns, " "), err)
	}
	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("loading %s: %w", strings.Join(patterns, " "), errors.Join(errs...))
	}
	prog := NewProgram(fset, logger)
	for _, pkg := range pkgs {
		prog.Add(pkg.Types, pkg.TypesInfo, pkg.Syntax)
		logger.Debug("loaded package", "path", pkg.PkgPath, "files", len(pkg.Syntax))
	}
	return prog, nil
}

// Files lists the Go files of the packages matching patterns and of every
// package of the main module they import, without type-checking anything.
// A change to any of them can change the generated types.
func Files(ctx context.Context, dir string, patterns ...string) ([]string, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedImports | packages.NeedDeps | packages.NeedModule,
		Dir:     dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", strings.Join(patterns, " "), err)
	}
	var files []string
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		if pkg.Module == nil || !pkg.Module.Main {
			return
		}
		files = append(files, pkg.GoFiles...)
	})
	return files, nil
}

// ModulePath returns the module path declared by the go.mod file in dir or
// its closest parent.
func ModulePath(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return "", fmt.Errorf("%s: go.mod declares no module", dir)
			}
			return path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		dir = parent
	}
}

// ImportPath resolves a package reference from configuration. Relative
// directories ("./api") are joined to the module path of dir; anything else
// is already an import path.
func ImportPath(dir, ref string) (string, error) {
	if !strings.HasPrefix(ref, ".") {
		return ref, nil
	}
	mod, err := ModulePath(dir)
	if err != nil {
		return "", err
	}
	rel := filepath.ToSlash(filepath.Clean(ref))
	if rel == "." {
		return mod, nil
	}
	return mod + "/" + strings.TrimPrefix(rel, "./"), nil
}

// Func returns the package-level function name.
func (pkg *Package) Func(name string) (*Func, error) {
	obj, ok := pkg.Types.Scope().Lookup(name).(*types.Func)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", pkg.Types.Path(), name, ErrNotFunc)
	}
	return pkg.prog.function(obj), nil
}

// Describe returns the descriptor of a Go type.
func (pkg *Package) Describe(t types.Type) typenode.Descriptor {
	return pkg.prog.describe(t)
}

// fileOf returns the file containing pos.
func (pkg *Package) fileOf(pos token.Pos) *ast.File {
	for _, f := range pkg.Files {
		if f.FileStart <= pos && pos <= f.FileEnd {
			return f
		}
	}
	return nil
}

func (p *Program) function(obj *types.Func) *Func {
	if fn, ok := p.funcs[obj]; ok {
		return fn
	}
	fn := &Func{prog: p, obj: obj}
	if d, ok := p.decls[obj]; ok {
		fn.pkg, fn.decl = d.pkg, d.decl
	}
	p.funcs[obj] = fn
	return fn
}
