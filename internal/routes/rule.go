// Package routes models the configured routes of a handler package and
// extracts the argument, body and return types of every route and method.
package routes

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/typenode"
)

// Path segment converters.
const (
	ConverterDefault = ""
	ConverterString  = "string"
	ConverterPath    = "path"
	ConverterUUID    = "uuid"
	ConverterInt     = "int"
	ConverterFloat   = "float"
)

// segmentPattern matches "<name>", "<conv:name>", "<conv(args):name>",
// "{name}" and "{name...}".
var segmentPattern = regexp2.MustCompile(
	`<(?:(?<conv>[A-Za-z_][A-Za-z0-9_]*)(?:\([^)]*\))?:)?(?<name>[A-Za-z_][A-Za-z0-9_]*)>`+
		`|\{(?<wild>[A-Za-z_][A-Za-z0-9_]*)(?<rest>\.\.\.)?\}`,
	regexp2.None,
)

// Segment is one variable path segment.
type Segment struct {
	Name      string
	Converter string
}

// Type returns the argument type a converter produces.
func (s Segment) Type() typenode.Descriptor {
	switch s.Converter {
	case ConverterInt:
		return descriptor.Int()
	case ConverterFloat:
		return descriptor.Float()
	}
	return descriptor.String()
}

// Rule is a parsed URL rule.
type Rule struct {
	Pattern  string // as configured
	Method   string // method prefix of a "GET /path" pattern, if any
	Segments []Segment
	url      string
}

// ParseRule parses a URL rule in Flask ("<int:id>") or net/http ("{id}")
// syntax.
func ParseRule(pattern string) (*Rule, error) {
	r := &Rule{Pattern: pattern}
	path := strings.TrimSpace(pattern)
	if method, rest, ok := strings.Cut(path, " "); ok && !strings.Contains(method, "/") {
		r.Method = strings.ToUpper(method)
		path = strings.TrimSpace(rest)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("rule %q: path must start with /", pattern)
	}

	var sb strings.Builder
	seen := make(map[string]bool)
	last := 0
	m, err := segmentPattern.FindStringMatch(path)
	for ; m != nil && err == nil; m, err = segmentPattern.FindNextMatch(m) {
		seg := Segment{Name: m.GroupByName("name").String(), Converter: m.GroupByName("conv").String()}
		if seg.Name == "" {
			seg.Name = m.GroupByName("wild").String()
			if m.GroupByName("rest").Length > 0 {
				seg.Converter = ConverterPath
			}
		}
		if seen[seg.Name] {
			return nil, fmt.Errorf("rule %q: duplicate segment %q", pattern, seg.Name)
		}
		seen[seg.Name] = true
		r.Segments = append(r.Segments, seg)

		if err := literalText(pattern, path[last:m.Index]); err != nil {
			return nil, err
		}
		sb.WriteString(path[last:m.Index])
		sb.WriteString("<" + seg.Name + ">")
		last = m.Index + m.Length
	}
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", pattern, err)
	}
	if err := literalText(pattern, path[last:]); err != nil {
		return nil, err
	}
	sb.WriteString(path[last:])
	r.url = sb.String()
	return r, nil
}

func literalText(pattern, s string) error {
	if strings.ContainsAny(s, "<>{}") {
		return fmt.Errorf("rule %q: malformed segment near %q", pattern, s)
	}
	return nil
}

// URL returns the rule with every segment written as "<name>".
func (r *Rule) URL() string { return r.url }

// Args returns the argument type of the rule: a record with one field per
// segment, or void when the rule has none.
func (r *Rule) Args() typenode.Descriptor {
	if len(r.Segments) == 0 {
		return descriptor.Void()
	}
	rec := descriptor.NewRecord("Args")
	for _, s := range r.Segments {
		rec.Field(s.Name, s.Type())
	}
	return rec.Of()
}
