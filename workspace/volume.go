package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CopyTree copies the contents of src into dst, preserving ownership, modes and links.
// Extents are shared when the filesystem supports reflinks.
func CopyTree(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	out, err := exec.CommandContext(ctx, "cp", "-a", "--reflink=auto", strings.TrimRight(src, "/")+"/.", dst).CombinedOutput()
	if err != nil {
		return fmt.Errorf("copying tree: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
