//go:build !linux

package system

import (
	"os/exec"

	"github.com/thepwagner/clrm/errdefs"
)

func chroot(_ *exec.Cmd, root string) error {
	return errdefs.Generate(nil, "cannot chroot into %s on this platform", root)
}
