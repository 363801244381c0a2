package system

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/snapshot"
	"github.com/thepwagner/clrm/subst"
	"github.com/thepwagner/clrm/workspace"
)

// Jar captures the persistent state of the context. Already-ran hook phases
// are not part of it.
func (c *Context) Jar() *snapshot.Jar {
	return &snapshot.Jar{
		Version:       snapshot.Version,
		System:        c.system,
		Timestamp:     c.timestamp,
		Bases:         c.Bases(),
		Substitutions: c.subst.Map(),
		Hooks:         copyHooks(c.hooks),
	}
}

// Pickle writes the context to meta/pickle_jar.bin.
func (c *Context) Pickle() error {
	if err := c.jars.Store(c.layout.PickleJar(), c.Jar()); err != nil {
		return fmt.Errorf("pickling %s: %w", c.system, err)
	}
	c.log.V(1).Info("pickled", "jar", c.layout.PickleJar())
	return nil
}

// Unpickle rebuilds a context from a jar. Hook records are resolved against
// registry when they run, and no hook phase is marked as run.
func Unpickle(log logr.Logger, registry *command.Registry, ws *workspace.Workspace, jars *snapshot.Cache, settings Settings, layout workspace.Layout, jar *snapshot.Jar) *Context {
	settings.Timestamp = jar.Timestamp
	c := newContext(log, registry, ws, jars, settings, layout, jar.System)
	c.bases = append([]string(nil), jar.Bases...)
	c.subst = subst.FromMap(jar.Substitutions)
	c.hooks = copyHooks(jar.Hooks)
	c.updateCoreSubstitutions()
	return c
}
