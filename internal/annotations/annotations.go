// Package annotations defines the metadata payloads frontends attach to
// annotated types and translators act on.
package annotations

import (
	"slices"
	"strings"
)

// HTTPMethods restricts a type to requests made with one of the listed
// methods. Under any other method the type contributes nothing.
type HTTPMethods struct {
	Methods []string
}

// Methods returns an HTTPMethods payload; names are upper-cased.
func Methods(names ...string) HTTPMethods {
	m := HTTPMethods{Methods: make([]string, len(names))}
	for i, n := range names {
		m.Methods[i] = strings.ToUpper(n)
	}
	return m
}

// Allows reports whether method is one of the listed methods.
func (m HTTPMethods) Allows(method string) bool {
	return slices.Contains(m.Methods, strings.ToUpper(method))
}

func (m HTTPMethods) String() string {
	return "methods(" + strings.Join(m.Methods, ", ") + ")"
}

// Skip excludes the annotated route unit from generation.
type Skip struct{}

func (Skip) String() string { return "skip" }
