package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/typesync/typesync/internal/routes"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

var identifier = regexp2.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`, regexp2.None)

var logLevels = []string{"debug", "info", "warn", "error"}

func isIdentifier(s string) bool {
	ok, _ := identifier.MatchString(s)
	return ok
}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}
	errorf := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}
	warnf := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	if c.Package == "" {
		errorf("package: must not be empty")
	}

	// Routes
	if len(c.Routes) == 0 {
		errorf("routes: at least one route required")
	}
	seen := make(map[string]bool)
	for i, r := range c.Routes {
		where := fmt.Sprintf("routes[%d]", i)
		if r.Name != "" {
			where = fmt.Sprintf("routes[%d] (%s)", i, r.Name)
		}
		switch {
		case !isIdentifier(r.Name):
			errorf("%s: name %q must be an identifier", where, r.Name)
		case seen[r.Name]:
			errorf("%s: duplicate route name", where)
		}
		seen[r.Name] = true

		if _, err := routes.ParseRule(r.Rule); err != nil {
			errorf("%s: %v", where, err)
		}
		if r.Handler == "" && len(r.Handlers) == 0 {
			errorf("%s: handler or handlers required", where)
		}
		methods := make([]string, len(r.Methods))
		for j, m := range r.Methods {
			methods[j] = strings.ToUpper(m)
		}
		for m, h := range r.Handlers {
			if h == "" {
				errorf("%s: handlers.%s is empty", where, m)
			}
			if len(methods) > 0 && !slices.Contains(methods, strings.ToUpper(m)) {
				warnf("%s: handlers.%s is not one of the route's methods %v and will never be used", where, m, r.Methods)
			}
		}
	}

	// Output
	if c.Output.Dir == "" {
		errorf("output.dir: must not be empty")
	}
	for field, name := range map[string]string{"output.types_file": c.Output.TypesFile, "output.apis_file": c.Output.APIsFile} {
		if filepath.Ext(name) != ".ts" {
			errorf("%s: %q must have a .ts extension", field, name)
		}
	}
	if c.Output.TypesFile == c.Output.APIsFile {
		errorf("output: types_file and apis_file must differ")
	}

	if err := c.Naming.EmitNaming().Validate(); err != nil {
		errorf("%v", err)
	}

	// Translators
	for id, prio := range c.Translators.Priorities {
		if id == "" {
			errorf("translators.priorities: empty translator id")
		}
		if prio < 0 {
			warnf("translators.priorities.%s: negative priority %d runs before every built-in", id, prio)
		}
	}

	// Inference
	if c.Inference.AllowEval && !c.Inference.Enabled {
		warnf("inference.allow_eval has no effect while inference.enabled is false")
	}
	if c.SkipUnannotated && c.Inference.Enabled {
		warnf("skip_unannotated: unannotated routes are skipped, so inference is never used")
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errorf("log.level: invalid value %q, must be one of %s", c.Log.Level, strings.Join(logLevels, ", "))
	}
	if c.Diagnostics.Strict && c.Diagnostics.Quiet {
		warnf("diagnostics: quiet drops the warnings strict would promote")
	}

	slices.Sort(result.Errors)
	slices.Sort(result.Warnings)
	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}
