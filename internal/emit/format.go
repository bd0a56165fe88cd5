package emit

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// formatter is a project formatter and the directory its config lives in.
type formatter struct {
	name    string // "prettier", "biome", "oxfmt"
	rootDir string
}

var formatterConfigs = []struct {
	name  string
	files []string
}{
	{"prettier", []string{".prettierrc", ".prettierrc.json", ".prettierrc.js", ".prettierrc.cjs", ".prettierrc.mjs", ".prettierrc.yml", ".prettierrc.yaml", ".prettierrc.toml", "prettier.config.js", "prettier.config.cjs", "prettier.config.mjs"}},
	{"biome", []string{"biome.json", "biome.jsonc"}},
	{"oxfmt", []string{".oxfmtrc", ".oxfmtrc.json", "oxfmt.json"}},
}

// Format runs the formatter configured for the project containing dir over
// the generated files. A missing formatter is not an error; a failing one
// is logged and otherwise ignored.
func Format(ctx context.Context, logger *slog.Logger, dir string, files ...string) {
	f := detectFormatter(dir)
	if f.name == "" {
		logger.Debug("no formatter configured", "dir", dir)
		return
	}
	paths := make([]string, len(files))
	for i, name := range files {
		paths[i] = filepath.Join(dir, name)
	}
	var cmd *exec.Cmd
	switch f.name {
	case "prettier":
		cmd = exec.CommandContext(ctx, "npx", append([]string{"prettier", "--write"}, paths...)...)
	case "biome":
		cmd = exec.CommandContext(ctx, "npx", append([]string{"@biomejs/biome", "format", "--write"}, paths...)...)
	case "oxfmt":
		cmd = exec.CommandContext(ctx, "npx", append([]string{"oxfmt", "--write"}, paths...)...)
	}
	cmd.Dir = f.rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Warn("formatter failed", "formatter", f.name, "error", err, "output", string(out))
		return
	}
	logger.Debug("formatted output", "formatter", f.name, "root", f.rootDir)
}

// detectFormatter walks up from dir looking for formatter config files.
func detectFormatter(dir string) formatter {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return formatter{}
	}
	for {
		for _, fc := range formatterConfigs {
			for _, name := range fc.files {
				if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
					return formatter{name: fc.name, rootDir: dir}
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return formatter{}
		}
		dir = parent
	}
}
