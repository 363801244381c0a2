//go:build linux

package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// btrfs subvolume roots always carry this inode number.
const subvolumeInode = 256

func onBtrfs(path string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false
	}
	return uint32(st.Type) == uint32(unix.BTRFS_SUPER_MAGIC)
}

func canManageSubvolumes(path string) bool {
	if os.Geteuid() != 0 || !onBtrfs(path) {
		return false
	}
	_, err := exec.LookPath("btrfs")
	return err == nil
}

func isSubvolume(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return false
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	return ok && st.Ino == subvolumeInode && onBtrfs(path)
}

func btrfs(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "btrfs", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("btrfs %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func createVolume(ctx context.Context, root string) (bool, error) {
	parent := filepath.Dir(root)
	if err := os.MkdirAll(parent, 0750); err != nil {
		return false, err
	}
	if canManageSubvolumes(parent) {
		if err := btrfs(ctx, "subvolume", "create", root); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, os.Mkdir(root, 0755)
}

func cloneVolume(ctx context.Context, src, dst string) error {
	if isSubvolume(src) && canManageSubvolumes(filepath.Dir(dst)) {
		return btrfs(ctx, "subvolume", "snapshot", src, dst)
	}
	return CopyTree(ctx, src, dst)
}

func removeVolume(ctx context.Context, path string) error {
	if isSubvolume(path) && canManageSubvolumes(path) {
		return btrfs(ctx, "subvolume", "delete", path)
	}
	return os.RemoveAll(path)
}
