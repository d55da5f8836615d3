//go:build windows

package controller

import (
	"os"
	"os/exec"
)

func setProcAttr(*exec.Cmd) {}

// terminate kills p; Windows has no SIGTERM for console-less children.
func terminate(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Kill()
}

func exitSignal(*os.ProcessState) (string, bool) { return "", false }
