package main

import (
	"io"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/routes"
	"github.com/typesync/typesync/internal/tstype"
)

// unitDump is the JSON output of the dump command.
type unitDump struct {
	Route    string `json:"route"`
	Method   string `json:"method"`
	URL      string `json:"url"`
	Handler  string `json:"handler"`
	Return   string `json:"return"`
	Args     string `json:"args"`
	Body     string `json:"body"`
	Inferred bool   `json:"inferred,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
}

func newDumpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the translated type of every route as JSON (debug)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			g, err := newGenerator(opts, cmd.Flags(), cwd)
			if err != nil {
				return err
			}
			importPath, err := g.importPath()
			if err != nil {
				return err
			}
			diags := diagnostic.NewCollector(g.cfg.Diagnostics.Strict, g.cfg.Diagnostics.Quiet)
			units, err := g.extract(cmd.Context(), importPath, diags)
			diags.LogTo(g.logger)
			if err != nil {
				return err
			}
			return writeDump(cmd.OutOrStdout(), units)
		},
	}
}

// writeDump renders units with one renderer, so shared types print the
// same way throughout.
func writeDump(w io.Writer, units []routes.Unit) error {
	r := tstype.NewRenderer()
	out := make([]unitDump, len(units))
	for i, u := range units {
		out[i] = unitDump{
			Route:    u.Route.Name,
			Method:   u.Method,
			URL:      u.Route.Rule.URL(),
			Handler:  u.Handler,
			Return:   r.Render(u.Return, "Self"),
			Args:     r.Render(u.Args, "Self"),
			Body:     r.Render(u.Body, "Self"),
			Inferred: u.Inferred,
			Failed:   u.Failed,
		}
	}
	if err := json.MarshalWrite(w, out, jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
