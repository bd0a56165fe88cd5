package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/typesync/typesync/internal/gosource"
	"github.com/typesync/typesync/internal/runner"
	"github.com/typesync/typesync/internal/watcher"
)

const watchDebounce = 200 * time.Millisecond

func newWatchCmd(opts *options) *cobra.Command {
	var execCmd string
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever the handler package or the config changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, opts, execCmd, poll)
		},
	}
	cmd.Flags().StringVar(&execCmd, "exec", "", "shell command to (re)start after every successful generation")
	cmd.Flags().DurationVar(&poll, "poll", watcher.DefaultPollInterval, "polling interval")
	return cmd
}

// runWatch builds once, then rebuilds on every debounced batch of changes
// to the Go sources, the config or a plugin until ctx is done. The config is reloaded on every run, so edits to it
// take effect without a restart. Failed runs are logged and watching goes
// on.
func runWatch(ctx context.Context, cmd *cobra.Command, opts *options, execCmd string, poll time.Duration) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	g, err := newGenerator(opts, cmd.Flags(), cwd)
	if err != nil {
		return err
	}
	logger := g.logger
	dirs, err := watchDirs(ctx, g)
	if err != nil {
		return err
	}

	var proc *runner.Process
	if execCmd != "" {
		proc = runner.New(execCmd, g.dir, logger)
		defer proc.Stop()
	}

	var mu sync.Mutex
	rebuild := func() {
		mu.Lock()
		defer mu.Unlock()
		g, err := newGenerator(opts, cmd.Flags(), cwd)
		if err != nil {
			logger.Error("cannot load config, waiting for changes", "error", err)
			return
		}
		skipped, err := g.build(ctx)
		if err != nil {
			if !errors.Is(err, errGenerationFailed) {
				logger.Error("build failed, waiting for changes", "error", err)
			}
			return
		}
		if proc != nil && (!skipped || !proc.Running()) {
			if err := proc.Restart(); err != nil {
				logger.Error("cannot restart companion command", "error", err)
			}
		}
	}

	rebuild()

	w := watcher.New(dirs, []string{".go"}, watchDebounce, func(events []watcher.Event) {
		logger.Info("detected changes, regenerating", "changes", len(events), "first", events[0].Path)
		rebuild()
	})
	w.SetPollInterval(poll)
	w.SetIgnore(watcher.IgnoreTests)
	w.AddFile(g.configPath)
	for _, p := range g.plugins() {
		w.AddFile(p)
	}

	logger.Info("watching for changes", "dirs", dirs)
	if err := w.Watch(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// watchDirs returns the directories holding the Go files generation
// depends on.
func watchDirs(ctx context.Context, g *generator) ([]string, error) {
	importPath, err := g.importPath()
	if err != nil {
		return nil, err
	}
	files, err := gosource.Files(ctx, g.dir, importPath)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, f := range files {
		dirs = append(dirs, filepath.Dir(f))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}
