package workspace

import (
	"os"
	"path/filepath"

	"github.com/thepwagner/clrm/errdefs"
)

const (
	fsDir     = "fs"
	metaDir   = "meta"
	bootDir   = "boot"
	cacheDir  = "cache"
	pickleJar = "pickle_jar.bin"
)

// Layout is the on-disk tree of one system: fs/, meta/, boot/ and cache/.
type Layout struct {
	Root string
}

func (l Layout) FsDir() string     { return filepath.Join(l.Root, fsDir) }
func (l Layout) MetaDir() string   { return filepath.Join(l.Root, metaDir) }
func (l Layout) BootDir() string   { return filepath.Join(l.Root, bootDir) }
func (l Layout) CacheDir() string  { return filepath.Join(l.Root, cacheDir) }
func (l Layout) PickleJar() string { return filepath.Join(l.MetaDir(), pickleJar) }

func (l Layout) dirs() []string {
	return []string{l.FsDir(), l.MetaDir(), l.BootDir(), l.CacheDir()}
}

// Check fails with a ContextError unless every directory of the layout exists.
func (l Layout) Check() error {
	if l.Root == "" {
		return errdefs.Context("workspace not initialized")
	}
	for _, d := range append([]string{l.Root}, l.dirs()...) {
		fi, err := os.Stat(d)
		if err != nil {
			return errdefs.Context("invalid workspace layout: %v", err)
		}
		if !fi.IsDir() {
			return errdefs.Context("invalid workspace layout: %s is not a directory", d)
		}
	}
	return nil
}

func (l Layout) create() error {
	for _, d := range l.dirs() {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
