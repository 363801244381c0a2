//go:build linux

package system

import (
	"os/exec"
	"syscall"
)

func chroot(cmd *exec.Cmd, root string) error {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Chroot = root
	cmd.Dir = "/"
	return nil
}
