package system

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
	"github.com/thepwagner/clrm/snapshot"
	"github.com/thepwagner/clrm/subst"
	"github.com/thepwagner/clrm/workspace"
)

// TimestampFormat is the layout of the TIMESTAMP substitution.
const TimestampFormat = "20060102.1504"

type Distro struct {
	Name       string
	PrettyName string
	ID         string
	Version    string
	VersionID  string
}

type Image struct {
	VolumeGroup string
	FS          string
	Options     string
	Device      string
}

// Settings are the run-wide inputs shared by every system context.
type Settings struct {
	SystemsDir    string
	RepositoryDir string
	// Timestamp is captured once per run. Empty means now.
	Timestamp string
	Distro    Distro
	Image     Image
}

// Context is the mutable state of one system build.
type Context struct {
	log      logr.Logger
	registry *command.Registry
	ws       *workspace.Workspace
	jars     *snapshot.Cache
	settings Settings
	layout   workspace.Layout

	system    string
	timestamp string
	bases     []string
	subst     *subst.Store
	hooks     map[string][]*command.ExecRecord
	hooksRan  map[string]struct{}
}

var _ command.System = (*Context)(nil)

// New creates the context for building system in its current/ workspace.
func New(log logr.Logger, registry *command.Registry, ws *workspace.Workspace, jars *snapshot.Cache, settings Settings, system string) *Context {
	return newContext(log, registry, ws, jars, settings, ws.Layout(system), system)
}

func newContext(log logr.Logger, registry *command.Registry, ws *workspace.Workspace, jars *snapshot.Cache, settings Settings, layout workspace.Layout, system string) *Context {
	if jars == nil {
		jars, _ = snapshot.NewCache(16)
	}
	ts := settings.Timestamp
	if ts == "" {
		ts = time.Now().Format(TimestampFormat)
	}
	c := &Context{
		log:       log.WithValues("system", system),
		registry:  registry,
		ws:        ws,
		jars:      jars,
		settings:  settings,
		layout:    layout,
		system:    system,
		timestamp: ts,
		subst:     subst.New(),
		hooks:     map[string][]*command.ExecRecord{},
		hooksRan:  map[string]struct{}{},
	}
	c.updateCoreSubstitutions()
	return c
}

func (c *Context) Name() string                { return c.system }
func (c *Context) Timestamp() string           { return c.timestamp }
func (c *Context) Logger() logr.Logger         { return c.log }
func (c *Context) Layout() workspace.Layout    { return c.layout }
func (c *Context) Registry() *command.Registry { return c.registry }

func (c *Context) Bases() []string {
	return append([]string(nil), c.bases...)
}

func (c *Context) BaseSystem() string {
	if len(c.bases) == 0 {
		return ""
	}
	return c.bases[len(c.bases)-1]
}

func (c *Context) updateCoreSubstitutions() {
	c.subst.Set("SYSTEM", c.system)
	c.subst.Set("ROOT", c.FsDir())
	c.subst.Set("TIMESTAMP", c.timestamp)
	c.subst.Set("BASE_SYSTEM", c.BaseSystem())
	c.subst.Set("CLRM_BASES", strings.Join(c.bases, ":"))

	// Defaults only: definitions and bases may override these.
	d := c.settings.Distro
	c.setDefault("DISTRO_NAME", d.Name)
	c.setDefault("DISTRO_PRETTY_NAME", d.PrettyName)
	c.setDefault("DISTRO_ID", d.ID)
	c.setDefault("DISTRO_VERSION", orDefault(d.Version, c.timestamp))
	c.setDefault("DISTRO_VERSION_ID", orDefault(d.VersionID, c.timestamp))
	img := c.settings.Image
	c.setDefault("DEFAULT_VG", img.VolumeGroup)
	c.setDefault("IMAGE_FS", img.FS)
	c.setDefault("IMAGE_OPTIONS", img.Options)
	c.setDefault("IMAGE_DEVICE", img.Device)
}

func (c *Context) setDefault(key, value string) {
	if !c.subst.Has(key) {
		c.subst.Set(key, value)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *Context) SetSubstitution(key, value string) {
	c.subst.Set(key, value)
}

func (c *Context) Substitution(key, def string) string {
	return c.subst.Get(key, def)
}

func (c *Context) LookupSubstitution(key string) (string, bool) {
	return c.subst.Lookup(key)
}

func (c *Context) HasSubstitution(key string) bool {
	return c.subst.Has(key)
}

func (c *Context) Substitute(text string) (string, error) {
	return c.subst.Expand(text)
}

// Substitutions returns a copy of every substitution.
func (c *Context) Substitutions() map[string]string {
	return c.subst.Map()
}

func (c *Context) AddHook(loc location.Location, phase, cmd string, args []command.Value, kwargs map[string]command.Value) error {
	rec, err := c.registry.NewExecRecord(loc.WithDescription(""), cmd, args, kwargs)
	if err != nil {
		return err
	}
	c.hooks[phase] = append(c.hooks[phase], rec)
	c.log.V(2).Info("hook added", "phase", phase, "command", cmd)
	return nil
}

// Hooks returns the records queued for phase.
func (c *Context) Hooks(phase string) []*command.ExecRecord {
	return append([]*command.ExecRecord(nil), c.hooks[phase]...)
}

// RunHooks executes the hooks of phase in insertion order. A phase runs at most once.
func (c *Context) RunHooks(ctx context.Context, phase string) error {
	if _, ran := c.hooksRan[phase]; ran {
		return nil
	}
	c.hooksRan[phase] = struct{}{}

	c.log.V(1).Info("running hooks", "phase", phase, "count", len(c.hooks[phase]))
	for i := 0; i < len(c.hooks[phase]); i++ {
		rec := c.hooks[phase][i]
		if c.settings.SystemsDir != "" {
			if err := os.Chdir(c.settings.SystemsDir); err != nil {
				return errdefs.Wrap(&rec.Location, err, "changing to systems directory")
			}
		}
		if err := c.ExecuteRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs a command that declares no dependency.
func (c *Context) Execute(ctx context.Context, loc location.Location, cmd string, args []command.Value, kwargs map[string]command.Value) error {
	return c.execute(ctx, loc, cmd, args, kwargs, "")
}

// ExecuteRecord replays rec. Its command must declare the same dependency as at parse time.
func (c *Context) ExecuteRecord(ctx context.Context, rec *command.ExecRecord) error {
	return c.execute(ctx, rec.Location, rec.Command, rec.Args, rec.Kwargs, rec.Dependency)
}

func (c *Context) execute(ctx context.Context, loc location.Location, name string, args []command.Value, kwargs map[string]command.Value, dependency string) error {
	if err := ctx.Err(); err != nil {
		return errdefs.Wrap(&loc, err, "executing %s", name)
	}
	cmd, ok := c.registry.Lookup(name)
	if !ok {
		return errdefs.Generate(&loc, "unknown command %q", name)
	}
	if kwargs == nil {
		kwargs = map[string]command.Value{}
	}
	dep, err := cmd.Validate(loc, args, kwargs)
	if err != nil {
		return errdefs.WithLocation(err, &loc)
	}
	if dep != dependency {
		return errdefs.Generate(&loc, "%s declared dependency %q, expected %q", name, dep, dependency)
	}

	child := loc.CreateChild("", fmt.Sprintf("<COMMAND %q>", name))
	c.log.V(2).Info("executing", "command", name, "location", child.String())
	if err := cmd.Invoke(ctx, child, c, args, kwargs); err != nil {
		return errdefs.Wrap(&loc, err, "%s failed", name)
	}
	return nil
}

// InstallBase makes this context derive from the stored system base: the
// base tree is copied into the staging tree and its jar is installed.
func (c *Context) InstallBase(ctx context.Context, name string) error {
	stored := c.ws.StoredLayout(name)
	jar, err := c.jars.Load(stored.PickleJar())
	if err != nil {
		if os.IsNotExist(err) {
			return errdefs.Context("base system %q has not been built: no pickle jar at %s", name, stored.PickleJar())
		}
		return fmt.Errorf("loading base system %q: %w", name, err)
	}
	base := Unpickle(c.log, c.registry, c.ws, c.jars, c.settings, stored, jar)

	for _, dirs := range [][2]string{{stored.FsDir(), c.FsDir()}, {stored.BootDir(), c.BootDir()}} {
		if err := workspace.CopyTree(ctx, dirs[0], dirs[1]); err != nil {
			return fmt.Errorf("copying base system %q: %w", name, err)
		}
	}
	c.InstallBaseContext(base)
	c.log.V(1).Info("base installed", "base", name, "bases", c.bases)
	return nil
}

// InstallBaseContext inherits hooks, substitutions and timestamp from base.
func (c *Context) InstallBaseContext(base *Context) {
	c.hooks = copyHooks(base.hooks)
	c.subst = base.subst.Clone()
	c.timestamp = base.timestamp
	c.bases = append(base.Bases(), base.system)
	c.updateCoreSubstitutions()
}

func copyHooks(hooks map[string][]*command.ExecRecord) map[string][]*command.ExecRecord {
	ret := make(map[string][]*command.ExecRecord, len(hooks))
	for phase, recs := range hooks {
		cp := make([]*command.ExecRecord, 0, len(recs))
		for _, r := range recs {
			cp = append(cp, r.Copy())
		}
		ret[phase] = cp
	}
	return ret
}
