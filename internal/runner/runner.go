// Package runner keeps a companion command, such as the API server or a
// type checker, running next to watch mode and restarts it after every
// successful regeneration.
package runner

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultGrace is how long Stop waits for the command to exit before
// killing it.
const DefaultGrace = 5 * time.Second

// Process is a restartable shell command.
type Process struct {
	command string
	dir     string
	logger  *slog.Logger

	Grace  time.Duration
	Stdout io.Writer
	Stderr io.Writer

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New returns a stopped process running command through the platform shell
// in dir.
func New(command, dir string, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Process{
		command: command,
		dir:     dir,
		logger:  logger,
		Grace:   DefaultGrace,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Start starts the command. Starting a running process is an error.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running() {
		return fmt.Errorf("%q is already running", p.command)
	}

	cmd := shellCommand(p.command)
	cmd.Dir = p.dir
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	configure(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %q: %w", p.command, err)
	}
	p.cmd = cmd
	p.done = make(chan struct{})
	go func(done chan struct{}) {
		err := cmd.Wait()
		p.logger.Debug("companion command exited", "command", p.command, "error", err)
		close(done)
	}(p.done)
	p.logger.Info("started companion command", "command", p.command, "pid", cmd.Process.Pid)
	return nil
}

// Stop terminates the command and its children, killing them if they
// outlive the grace period. Stopping a stopped process does nothing.
func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running() {
		return nil
	}
	terminate(p.cmd)
	select {
	case <-p.done:
	case <-time.After(p.Grace):
		p.logger.Warn("companion command did not exit, killing it", "command", p.command)
		kill(p.cmd)
		<-p.done
	}
	return nil
}

// Restart stops the command if it is running and starts it again.
func (p *Process) Restart() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.Start()
}

// Wait blocks until the command exits. It returns at once if the command
// was never started.
func (p *Process) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the command is still running.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running()
}

func (p *Process) running() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
