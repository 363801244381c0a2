package system

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/thepwagner/clrm/errdefs"
)

func (c *Context) FsDir() string         { return c.layout.FsDir() }
func (c *Context) MetaDir() string       { return c.layout.MetaDir() }
func (c *Context) BootDir() string       { return c.layout.BootDir() }
func (c *Context) CacheDir() string      { return c.layout.CacheDir() }
func (c *Context) SystemsDir() string    { return c.settings.SystemsDir }
func (c *Context) RepositoryDir() string { return c.settings.RepositoryDir }

// FilePath maps p into the staging tree when absolute. The result never
// leaves the fs directory. Relative paths are returned unchanged as host paths.
func (c *Context) FilePath(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return p, nil
	}
	root := filepath.Clean(c.FsDir())
	mapped := filepath.Join(root, p)
	if !within(root, mapped) {
		return "", errdefs.Generate(nil, "path %q escapes the system root", p)
	}
	return mapped, nil
}

func within(root, p string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

// ExpandFiles globs every pattern after mapping it with FilePath.
func (c *Context) ExpandFiles(patterns ...string) ([]string, error) {
	seen := map[string]struct{}{}
	var ret []string
	for _, pattern := range patterns {
		mapped, err := c.FilePath(pattern)
		if err != nil {
			return nil, err
		}
		matches, err := filepath.Glob(mapped)
		if err != nil {
			return nil, errdefs.Generate(nil, "invalid pattern %q: %v", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			ret = append(ret, m)
		}
	}
	sort.Strings(ret)
	return ret, nil
}
