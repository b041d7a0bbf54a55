//go:build unix

package browser

import (
	"os/exec"
	"syscall"
)

// detachCmd puts Chrome in its own process group without a parent-death
// signal, so it stays open after we exit and ignores our terminal's Ctrl+C.
func detachCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
