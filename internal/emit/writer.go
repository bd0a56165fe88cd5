// Package emit writes the TypeScript client for extracted route units: a
// types file with one return type and one request-arguments interface per
// unit, and an apis file with a makeAPI factory holding one async function
// per unit.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/typesync/typesync/internal/routes"
	"github.com/typesync/typesync/internal/tstype"
)

const indent = "    "

const typesHeader = `export interface RequestArgs {
    headers?: Record<string, string>;
}

export interface RequestOptions extends RequestArgs {
    method: string;
    body?: unknown;
}

export type RequestFunction = (
    endpoint: string, options: RequestOptions
// eslint-disable-next-line @typescript-eslint/no-explicit-any
) => Promise<any>;

`

const buildURL = `// eslint-disable-next-line @typescript-eslint/no-explicit-any
export function buildUrl(rule: string, params: Record<string, any>) {
    return rule.replace(/<([a-zA-Z_]+[a-zA-Z_0-9]*)>/g, (_, key) => {
        return String(params[key]);
    });
}

`

// Options configures a Writer.
type Options struct {
	Naming Naming
	// TypesFile is the file name of the types module, as imported by the
	// apis module.
	TypesFile string
	// Endpoint is prepended to every rule URL.
	Endpoint string
}

// Writer renders units into the two TypeScript modules.
type Writer struct {
	opts     Options
	renderer *tstype.Renderer
}

// New returns a Writer after validating the naming templates.
func New(opts Options) (*Writer, error) {
	if err := opts.Naming.Validate(); err != nil {
		return nil, err
	}
	if opts.TypesFile == "" {
		opts.TypesFile = "types.ts"
	}
	return &Writer{opts: opts, renderer: tstype.NewRenderer()}, nil
}

// Output is the generated text of both modules.
type Output struct {
	Types string
	APIs  string
}

type unitNames struct {
	ret, args, fn string
}

// Generate renders units in order. Two units producing the same generated
// name are an error.
func (w *Writer) Generate(units []routes.Unit) (Output, error) {
	var types, apis strings.Builder
	types.WriteString(typesHeader)

	module := strings.TrimSuffix(w.opts.TypesFile, ".ts")
	fmt.Fprintf(&apis, "import * as types from \"./%s\";\n\n", module)
	apis.WriteString(buildURL)
	apis.WriteString("export function makeAPI(requestFn: types.RequestFunction) {\n")

	taken := make(map[string]string)
	var fns []string
	for _, u := range units {
		names, err := w.names(u)
		if err != nil {
			return Output{}, err
		}
		owner := u.Route.Name + " " + u.Method
		for _, n := range []string{names.ret, names.args, "fn:" + names.fn} {
			if prev, ok := taken[n]; ok {
				return Output{}, fmt.Errorf("%s and %s both generate %s", prev, owner, strings.TrimPrefix(n, "fn:"))
			}
			taken[n] = owner
		}
		hasArgs := w.writeTypes(&types, u, names)
		w.writeFunction(&apis, u, names, hasArgs)
		fns = append(fns, names.fn)
	}

	apis.WriteString(indent + "return {\n")
	for _, fn := range fns {
		apis.WriteString(indent + indent + fn + ",\n")
	}
	apis.WriteString(indent + "};\n}\n")
	return Output{Types: types.String(), APIs: apis.String()}, nil
}

func (w *Writer) names(u routes.Unit) (unitNames, error) {
	var n unitNames
	var err error
	if n.ret, err = Expand(w.opts.Naming.ReturnType, u.Route.Name, u.Method); err != nil {
		return n, err
	}
	if n.args, err = Expand(w.opts.Naming.ArgsType, u.Route.Name, u.Method); err != nil {
		return n, err
	}
	n.fn, err = Expand(w.opts.Naming.Function, u.Route.Name, u.Method)
	return n, err
}

// declare writes "type name = t;" plus the helper declarations t needs.
func (w *Writer) declare(sb *strings.Builder, export bool, name string, t tstype.Type) string {
	if t == nil {
		t = tstype.UndefinedType
	}
	root, helpers := tstype.Hoist(t, name)
	text := w.renderer.Render(root, name)
	if export {
		sb.WriteString("export ")
	}
	fmt.Fprintf(sb, "type %s = %s;\n", name, text)
	for _, h := range helpers {
		fmt.Fprintf(sb, "type %s = %s;\n", h.Name, w.renderer.Render(h.Type, h.Name))
	}
	return text
}

// writeTypes writes the declarations of one unit and reports whether it
// takes path arguments.
func (w *Writer) writeTypes(sb *strings.Builder, u routes.Unit, names unitNames) bool {
	w.declare(sb, true, names.ret, u.Return)

	argsName := fmt.Sprintf("_%s%sArgs", u.Route.Name, u.Method)
	bodyName := fmt.Sprintf("_%s%sBody", u.Route.Name, u.Method)
	hasArgs := w.declare(sb, false, argsName, u.Args) != tstype.UndefinedType.Name
	hasBody := w.declare(sb, false, bodyName, u.Body) != tstype.UndefinedType.Name

	fmt.Fprintf(sb, "export interface %s extends RequestArgs {\n", names.args)
	fmt.Fprintf(sb, "%sargs%s: %s;\n", indent, optional(hasArgs), argsName)
	fmt.Fprintf(sb, "%sbody%s: %s;\n", indent, optional(hasBody), bodyName)
	sb.WriteString("}\n\n")
	return hasArgs
}

func optional(present bool) string {
	if present {
		return ""
	}
	return "?"
}

func (w *Writer) writeFunction(sb *strings.Builder, u routes.Unit, names unitNames, hasArgs bool) {
	url := w.opts.Endpoint + u.Route.Rule.URL()
	endpoint := fmt.Sprintf("%q", url)
	if hasArgs {
		endpoint = fmt.Sprintf("buildUrl(%q, params.args)", url)
	}
	fmt.Fprintf(sb, "%sasync function %s(params: types.%s): Promise<types.%s> {\n", indent, names.fn, names.args, names.ret)
	fmt.Fprintf(sb, "%s%sconst endpoint = %s;\n", indent, indent, endpoint)
	fmt.Fprintf(sb, "%s%sreturn await requestFn(\n", indent, indent)
	fmt.Fprintf(sb, "%s%s%sendpoint,\n", indent, indent, indent)
	fmt.Fprintf(sb, "%s%s%s{method: %q, ...params}\n", indent, indent, indent, u.Method)
	fmt.Fprintf(sb, "%s%s);\n", indent, indent)
	fmt.Fprintf(sb, "%s}\n\n", indent)
}

// WriteFiles writes out into dir. Files whose content is unchanged are not
// rewritten, so file watchers downstream are not triggered.
func WriteFiles(dir, typesFile, apisFile string, out Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, typesFile), out.Types); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, apisFile), out.APIs)
}

func writeFile(path, content string) error {
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
