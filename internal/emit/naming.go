package emit

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Naming holds the templates for generated names. A template mixes literal
// text with placeholders such as {r_pc} (route, PascalCase) or {m_uc}
// (method, upper case); see Expand.
type Naming struct {
	ReturnType string
	ArgsType   string
	Function   string
}

// DefaultNaming returns the templates used when none are configured.
func DefaultNaming() Naming {
	return Naming{
		ReturnType: "{r_pc}{m_uc}ReturnType",
		ArgsType:   "{r_pc}{m_uc}ArgsType",
		Function:   "{m_lc}{r_pc}",
	}
}

// Validate checks that every template only uses known placeholders.
func (n Naming) Validate() error {
	var errs []error
	for _, t := range []struct{ field, tmpl string }{
		{"return_type", n.ReturnType},
		{"args_type", n.ArgsType},
		{"function", n.Function},
	} {
		field, tmpl := t.field, t.tmpl
		if tmpl == "" {
			errs = append(errs, fmt.Errorf("naming.%s: empty template", field))
			continue
		}
		if _, err := Expand(tmpl, "route", "GET"); err != nil {
			errs = append(errs, fmt.Errorf("naming.%s: %w", field, err))
		}
	}
	return errors.Join(errs...)
}

var placeholder = regexp2.MustCompile(`\{(?<key>[^{}]*)\}`, regexp2.None)

// Expand fills a template for one route and method. Placeholders are
// "r_" (route) or "m_" (method) followed by a style:
//
//	pc  PascalCase   user_list -> UserList
//	cc  camelCase    user_list -> userList
//	sc  snake_case   UserList  -> user_list
//	uc  UPPER        user_list -> USERLIST
//	lc  lower        user_list -> userlist
//	d   unchanged
func Expand(tmpl, route, method string) (string, error) {
	values := nameMap(route, "r_")
	for k, v := range nameMap(method, "m_") {
		values[k] = v
	}
	var unknown []string
	out, err := placeholder.ReplaceFunc(tmpl, func(m regexp2.Match) string {
		key := m.GroupByName("key").String()
		v, ok := values[key]
		if !ok {
			unknown = append(unknown, key)
		}
		return v
	}, -1, -1)
	if err != nil {
		return "", err
	}
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown placeholder {%s} in %q", strings.Join(unknown, "}, {"), tmpl)
	}
	return out, nil
}

func nameMap(name, prefix string) map[string]string {
	return map[string]string{
		prefix + "pc": pascalCase(name),
		prefix + "cc": camelCase(name),
		prefix + "sc": snakeCase(name),
		prefix + "uc": cases.Upper(language.Und).String(strings.ReplaceAll(name, "_", "")),
		prefix + "lc": cases.Lower(language.Und).String(strings.ReplaceAll(name, "_", "")),
		prefix + "d":  name,
	}
}

// pascalCase upper-cases the first letter of every "_"-separated word and
// drops the separators. Other letters keep their case.
func pascalCase(s string) string {
	title := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for part := range strings.SplitSeq(s, "_") {
		sb.WriteString(title.String(part))
	}
	return sb.String()
}

func camelCase(s string) string {
	p := pascalCase(s)
	if p == "" {
		return p
	}
	_, size := utf8.DecodeRuneInString(p)
	return cases.Lower(language.Und).String(p[:size]) + p[size:]
}

var (
	acronymBoundary = regexp2.MustCompile(`([A-Z]+)([A-Z][a-z])`, regexp2.None)
	wordBoundary    = regexp2.MustCompile(`([a-z\d])([A-Z])`, regexp2.None)
)

func snakeCase(s string) string {
	for _, re := range []*regexp2.Regexp{acronymBoundary, wordBoundary} {
		if out, err := re.Replace(s, "$1_$2", -1, -1); err == nil {
			s = out
		}
	}
	return cases.Lower(language.Und).String(strings.ReplaceAll(s, "-", "_"))
}
