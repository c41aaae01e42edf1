//go:build !unix

package adapter

import (
	"os"
	"os/exec"
)

func configureProcessGroup(*exec.Cmd) {}

func terminateProcessGroup(process *os.Process) error {
	if process == nil {
		return os.ErrProcessDone
	}

	return process.Kill()
}

func exitCodeOf(state *os.ProcessState) int {
	return state.ExitCode()
}
