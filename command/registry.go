package command

import (
	"errors"
	"runtime"
	"sort"
	"sync"

	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

// Registry holds the commands available to definition files.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	sources  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		sources:  make(map[string]string),
	}
}

// Register adds cmd, replacing any command with the same name.
func (r *Registry) Register(cmd Command) {
	source := "<unknown>"
	if _, file, _, ok := runtime.Caller(1); ok {
		source = file
	}
	r.RegisterFrom(source, cmd)
}

// RegisterFrom adds cmd and records source as its origin.
func (r *Registry) RegisterFrom(source string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Name()] = cmd
	r.sources[cmd.Name()] = source
}

func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

func (r *Registry) SourceFile(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

// List returns every command sorted by name.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		ret = append(ret, cmd)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name() < ret[j].Name()
	})
	return ret
}

// Tools returns the sorted, de-duplicated host binaries the named commands need.
func (r *Registry) Tools(names ...string) []string {
	seen := map[string]struct{}{}
	for _, n := range names {
		cmd, ok := r.Lookup(n)
		if !ok {
			continue
		}
		tooled, ok := cmd.(Tooled)
		if !ok {
			continue
		}
		for _, b := range tooled.Tools() {
			seen[b] = struct{}{}
		}
	}
	ret := make([]string, 0, len(seen))
	for b := range seen {
		ret = append(ret, b)
	}
	sort.Strings(ret)
	return ret
}

// NewExecRecord validates the invocation and binds it into a record.
func (r *Registry) NewExecRecord(loc location.Location, name string, args []Value, kwargs map[string]Value) (*ExecRecord, error) {
	cmd, ok := r.Lookup(name)
	if !ok {
		return nil, errdefs.Parse(&loc, "unknown command %q", name)
	}
	if loc.Description == "" {
		loc.Description = name
	}
	if kwargs == nil {
		kwargs = map[string]Value{}
	}
	dep, err := cmd.Validate(loc, args, kwargs)
	if err != nil {
		var e *errdefs.Error
		if !errors.As(err, &e) {
			return nil, errdefs.Parse(&loc, "%s: %v", name, err)
		}
		return nil, errdefs.WithLocation(err, &loc)
	}
	return &ExecRecord{
		Location:   loc,
		Dependency: dep,
		Command:    name,
		Args:       append([]Value(nil), args...),
		Kwargs:     kwargs,
	}, nil
}
