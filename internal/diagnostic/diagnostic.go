package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Category classifies diagnostics for filtering.
type Category string

const (
	CategoryTypeUnsupported      Category = "type-unsupported"
	CategoryAmbiguousGeneric     Category = "ambiguous-generic"
	CategoryInferenceUnavailable Category = "inference-unavailable"
	CategoryPluginLoad           Category = "plugin-load"
	CategoryConfigInvalid        Category = "config-invalid"
	CategoryRouteInvalid         Category = "route-invalid"
)

// Location says which route unit or source position a diagnostic is about.
// Any field may be empty.
type Location struct {
	Route  string
	Method string
	Mode   string
	File   string
	Line   int // 1-based line number (0 = unknown)
}

// String formats the location as "file:line" and/or "route METHOD mode".
func (l Location) String() string {
	var parts []string
	if l.File != "" {
		if l.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", l.File, l.Line))
		} else {
			parts = append(parts, l.File)
		}
	}
	if l.Route != "" {
		unit := l.Route
		if l.Method != "" {
			unit += " " + l.Method
		}
		if l.Mode != "" {
			unit += " (" + strings.ToLower(l.Mode) + ")"
		}
		parts = append(parts, unit)
	}
	return strings.Join(parts, " ")
}

// Diagnostic represents a structured diagnostic message.
type Diagnostic struct {
	Severity Severity
	Category Category
	Location Location
	Message  string
	Hint     string // optional suggestion for fixing the issue
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	var sb strings.Builder

	if loc := d.Location.String(); loc != "" {
		sb.WriteString(loc)
		sb.WriteString(" - ")
	}

	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")

	if d.Category != "" {
		sb.WriteString("[")
		sb.WriteString(string(d.Category))
		sb.WriteString("] ")
	}

	sb.WriteString(d.Message)

	if d.Hint != "" {
		sb.WriteString("\n  hint: ")
		sb.WriteString(d.Hint)
	}

	return sb.String()
}

// Collector collects diagnostics during a generation run. A nil *Collector
// discards everything.
type Collector struct {
	diagnostics []Diagnostic
	strict      bool // if true, warnings become errors
	quiet       bool // if true, suppress warnings
}

// NewCollector creates a new diagnostic collector.
func NewCollector(strict, quiet bool) *Collector {
	return &Collector{
		strict: strict,
		quiet:  quiet,
	}
}

func (c *Collector) add(d Diagnostic) {
	if c == nil {
		return
	}
	if d.Severity != SeverityError && c.quiet {
		return
	}
	if d.Severity == SeverityWarning && c.strict {
		d.Severity = SeverityError
	}
	c.diagnostics = append(c.diagnostics, d)
}

// Warn adds a warning diagnostic.
func (c *Collector) Warn(category Category, loc Location, message string) {
	c.add(Diagnostic{Severity: SeverityWarning, Category: category, Location: loc, Message: message})
}

// WarnWithHint adds a warning with a suggestion.
func (c *Collector) WarnWithHint(category Category, loc Location, message, hint string) {
	c.add(Diagnostic{Severity: SeverityWarning, Category: category, Location: loc, Message: message, Hint: hint})
}

// Error adds an error diagnostic.
func (c *Collector) Error(category Category, loc Location, message string) {
	c.add(Diagnostic{Severity: SeverityError, Category: category, Location: loc, Message: message})
}

// Info adds an informational diagnostic.
func (c *Collector) Info(category Category, loc Location, message string) {
	c.add(Diagnostic{Severity: SeverityInfo, Category: category, Location: loc, Message: message})
}

// Diagnostics returns all collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	return c.diagnostics
}

// Reset drops all collected diagnostics, for reuse across watch rebuilds.
func (c *Collector) Reset() {
	if c != nil {
		c.diagnostics = nil
	}
}

func (c *Collector) count(sev Severity) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, d := range c.diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors returns true if any error-level diagnostics exist.
func (c *Collector) HasErrors() bool {
	return c.count(SeverityError) > 0
}

// ErrorCount returns the number of error diagnostics.
func (c *Collector) ErrorCount() int {
	return c.count(SeverityError)
}

// WarningCount returns the number of warning diagnostics.
func (c *Collector) WarningCount() int {
	return c.count(SeverityWarning)
}

// FormatAll formats all diagnostics as a multi-line string.
func (c *Collector) FormatAll() string {
	if c == nil || len(c.diagnostics) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range c.diagnostics {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// LogTo writes every diagnostic to logger at the level matching its
// severity.
func (c *Collector) LogTo(logger *slog.Logger) {
	if c == nil || logger == nil {
		return
	}
	for _, d := range c.diagnostics {
		attrs := []slog.Attr{slog.String("category", string(d.Category))}
		if loc := d.Location.String(); loc != "" {
			attrs = append(attrs, slog.String("at", loc))
		}
		if d.Hint != "" {
			attrs = append(attrs, slog.String("hint", d.Hint))
		}
		logger.LogAttrs(context.Background(), d.Severity.level(), d.Message, attrs...)
	}
}

// Summary returns a summary line like "2 warning(s), 1 error(s)".
func (c *Collector) Summary() string {
	if c == nil {
		return ""
	}
	warnings := c.WarningCount()
	errors := c.ErrorCount()

	parts := []string{}
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
