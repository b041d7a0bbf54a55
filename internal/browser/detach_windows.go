//go:build windows

package browser

import (
	"os/exec"
	"syscall"
)

// detachCmd starts Chrome in a new process group so the console's Ctrl+C
// does not reach it and it stays open after we exit.
func detachCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
