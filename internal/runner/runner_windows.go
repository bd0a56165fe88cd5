//go:build windows

package runner

import "os/exec"

func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}

func configure(*exec.Cmd) {}

// Windows has no SIGTERM; the command is killed outright.
func terminate(cmd *exec.Cmd) { cmd.Process.Kill() }

func kill(cmd *exec.Cmd) { cmd.Process.Kill() }
