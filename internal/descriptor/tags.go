package descriptor

import (
	"reflect"
	"strings"
)

// JSONField describes how encoding/json treats a struct field.
type JSONField struct {
	Name     string // wire name
	Skip     bool   // json:"-"
	Optional bool   // omitempty or omitzero
	Tagged   bool   // a json tag supplied the name
}

// ParseJSONTag reads the json tag of a field declared as goName.
func ParseJSONTag(goName string, tag reflect.StructTag) JSONField {
	f := JSONField{Name: goName}
	raw, ok := tag.Lookup("json")
	if !ok {
		return f
	}
	if raw == "-" {
		f.Skip = true
		return f
	}
	name, opts, _ := strings.Cut(raw, ",")
	if name != "" {
		f.Name = name
		f.Tagged = true
	}
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == "omitempty" || opt == "omitzero" {
			f.Optional = true
		}
	}
	return f
}

// ValidateRules returns the comma separated rules of a validate tag and
// whether the tag is present at all.
func ValidateRules(tag reflect.StructTag) ([]string, bool) {
	raw, ok := tag.Lookup("validate")
	if !ok {
		return nil, false
	}
	var rules []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}
	return rules, true
}
