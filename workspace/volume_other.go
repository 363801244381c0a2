//go:build !linux

package workspace

import (
	"context"
	"os"
	"path/filepath"
)

func createVolume(_ context.Context, root string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(root), 0750); err != nil {
		return false, err
	}
	return false, os.Mkdir(root, 0755)
}

func cloneVolume(ctx context.Context, src, dst string) error {
	return CopyTree(ctx, src, dst)
}

func removeVolume(_ context.Context, path string) error {
	return os.RemoveAll(path)
}
