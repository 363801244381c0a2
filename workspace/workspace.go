package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/errdefs"
)

// Workspace manages the staging trees below a work directory:
// current/<system> while building and storage/<system> once complete.
type Workspace struct {
	log     logr.Logger
	workDir string
}

func New(log logr.Logger, workDir string) (*Workspace, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving work directory: %w", err)
	}
	for _, d := range []string{abs, filepath.Join(abs, "current"), filepath.Join(abs, "storage")} {
		if err := os.MkdirAll(d, 0750); err != nil {
			return nil, fmt.Errorf("creating work directory: %w", err)
		}
	}
	return &Workspace{log: log, workDir: abs}, nil
}

func (w *Workspace) WorkDir() string    { return w.workDir }
func (w *Workspace) CurrentDir() string { return filepath.Join(w.workDir, "current") }
func (w *Workspace) StorageDir() string { return filepath.Join(w.workDir, "storage") }

func (w *Workspace) Layout(system string) Layout {
	return Layout{Root: filepath.Join(w.CurrentDir(), system)}
}

func (w *Workspace) StoredLayout(system string) Layout {
	return Layout{Root: filepath.Join(w.StorageDir(), system)}
}

func (w *Workspace) Stored(system string) bool {
	fi, err := os.Stat(w.StoredLayout(system).Root)
	return err == nil && fi.IsDir()
}

// Create prepares an empty current/<system> tree, replacing leftovers from an earlier run.
func (w *Workspace) Create(ctx context.Context, system string) (Layout, error) {
	layout := w.Layout(system)
	if err := w.remove(ctx, layout.Root); err != nil {
		return Layout{}, fmt.Errorf("removing stale workspace: %w", err)
	}
	subvol, err := createVolume(ctx, layout.Root)
	if err != nil {
		return Layout{}, fmt.Errorf("creating workspace: %w", err)
	}
	if err := layout.create(); err != nil {
		return Layout{}, fmt.Errorf("creating workspace: %w", err)
	}
	w.log.V(1).Info("workspace created", "system", system, "root", layout.Root, "subvolume", subvol)
	return layout, nil
}

// Restore clones storage/<system> into current/<system>.
func (w *Workspace) Restore(ctx context.Context, system string) (Layout, error) {
	stored := w.StoredLayout(system)
	if !w.Stored(system) {
		return Layout{}, errdefs.Context("system %q has not been stored", system)
	}
	layout := w.Layout(system)
	if err := w.remove(ctx, layout.Root); err != nil {
		return Layout{}, fmt.Errorf("removing stale workspace: %w", err)
	}
	if err := cloneVolume(ctx, stored.Root, layout.Root); err != nil {
		return Layout{}, fmt.Errorf("restoring %s: %w", system, err)
	}
	w.log.V(1).Info("workspace restored", "system", system, "root", layout.Root)
	return layout, nil
}

// Store atomically moves current/<system> to storage/<system>.
func (w *Workspace) Store(ctx context.Context, system string) error {
	layout := w.Layout(system)
	if err := layout.Check(); err != nil {
		return err
	}
	stored := w.StoredLayout(system)
	if err := w.remove(ctx, stored.Root); err != nil {
		return fmt.Errorf("removing previous snapshot: %w", err)
	}
	if err := os.Rename(layout.Root, stored.Root); err != nil {
		return fmt.Errorf("storing %s: %w", system, err)
	}
	w.log.V(1).Info("workspace stored", "system", system, "root", stored.Root)
	return nil
}

// Discard forgets the stored snapshot of system, forcing a rebuild.
func (w *Workspace) Discard(ctx context.Context, system string) error {
	return w.remove(ctx, w.StoredLayout(system).Root)
}

// ClearCurrent removes every in-progress tree.
func (w *Workspace) ClearCurrent(ctx context.Context) error {
	return w.clearDir(ctx, w.CurrentDir())
}

// Clear removes every in-progress tree and every stored snapshot.
func (w *Workspace) Clear(ctx context.Context) error {
	if err := w.ClearCurrent(ctx); err != nil {
		return err
	}
	return w.clearDir(ctx, w.StorageDir())
}

func (w *Workspace) clearDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := w.remove(ctx, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	w.log.V(1).Info("cleared", "dir", dir)
	return nil
}

func (w *Workspace) remove(ctx context.Context, path string) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return removeVolume(ctx, path)
}
