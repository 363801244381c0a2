// Package commands holds the built-in commands of definition files.
package commands

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

type builtin struct {
	source string
	cmd    command.Command
}

var builtins []builtin

func add(cmds ...command.Command) {
	_, source, _, _ := runtime.Caller(1)
	for _, cmd := range cmds {
		builtins = append(builtins, builtin{source: source, cmd: cmd})
	}
}

// Register adds every built-in command to r.
func Register(r *command.Registry) {
	for _, b := range builtins {
		r.RegisterFrom(b.source, b.cmd)
	}
}

// NewRegistry returns a registry holding the built-in commands.
func NewRegistry() *command.Registry {
	r := command.NewRegistry()
	Register(r)
	return r
}

// Names lists the built-in command names.
func Names() []string {
	ret := make([]string, 0, len(builtins))
	for _, b := range builtins {
		ret = append(ret, b.cmd.Name())
	}
	sort.Strings(ret)
	return ret
}

// expect validates the argument count and the accepted keywords.
func expect(name string, min, max int, kwargs ...string) command.ValidateFunc {
	return func(loc location.Location, args []command.Value, kw map[string]command.Value) (string, error) {
		if err := command.ExpectArgs(loc, name, args, min, max); err != nil {
			return "", err
		}
		return "", command.ExpectKwargs(loc, name, kw, kwargs...)
	}
}

func substArgs(sys command.System, args []command.Value, from int) ([]string, error) {
	raw := command.StringArgs(args, from)
	ret := make([]string, 0, len(raw))
	for _, a := range raw {
		s, err := sys.Substitute(a)
		if err != nil {
			return nil, err
		}
		ret = append(ret, s)
	}
	return ret, nil
}

func substArg(sys command.System, args []command.Value, i int) (string, error) {
	return sys.Substitute(command.StringArg(args, i))
}

// insidePath substitutes raw and maps it into the staging tree.
// Relative paths are rejected: every path here names a file of the system.
func insidePath(sys command.System, raw string) (string, error) {
	p, err := sys.Substitute(raw)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		return "", errdefs.Generate(nil, "%q is not an absolute path", p)
	}
	return sys.FilePath(p)
}

// hostPath resolves a file outside of the staging tree, relative to the systems directory.
func hostPath(sys command.System, raw string) (string, error) {
	p, err := sys.Substitute(raw)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) && sys.SystemsDir() != "" {
		p = filepath.Join(sys.SystemsDir(), p)
	}
	return p, nil
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

func writeFile(p string, contents []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(p, contents, mode); err != nil {
		return err
	}
	return os.Chmod(p, mode)
}

func runOutside(ctx context.Context, sys command.System, args ...string) error {
	_, err := sys.Run(ctx, args, command.Outside(), command.Verbatim())
	return err
}

func secondsDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
