package command_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

func echoCommand(name string, binaries ...string) *command.Definition {
	return &command.Definition{
		CommandName: name,
		SyntaxDoc:   "<ARG>*",
		HelpDoc:     "Does nothing.",
		Binaries:    binaries,
		ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
			return "", nil
		},
		InvokeFn: func(context.Context, location.Location, command.System, []command.Value, map[string]command.Value) error {
			return nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := command.NewRegistry()
	first := echoCommand("echo")
	second := echoCommand("echo")
	second.HelpDoc = "Overrides."

	r.Register(first)
	r.Register(second)

	cmd, ok := r.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "Overrides.", cmd.Help())

	src, ok := r.SourceFile("echo")
	require.True(t, ok)
	assert.Contains(t, src, "registry_test.go")

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_List(t *testing.T) {
	r := command.NewRegistry()
	r.Register(echoCommand("zeta"))
	r.Register(echoCommand("alpha"))
	r.Register(echoCommand("mid"))

	var names []string
	for _, cmd := range r.List() {
		names = append(names, cmd.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_Tools(t *testing.T) {
	r := command.NewRegistry()
	r.Register(echoCommand("pacman", "pacman", "chroot"))
	r.Register(echoCommand("pacstrap", "pacstrap", "pacman"))
	r.Register(echoCommand("set"))

	assert.Equal(t, []string{"chroot", "pacman", "pacstrap"}, r.Tools("pacman", "pacstrap", "set", "unknown"))
}

func TestRegistry_NewExecRecord(t *testing.T) {
	r := command.NewRegistry()
	r.Register(echoCommand("echo"))
	loc := location.New("a.def", 3)

	rec, err := r.NewExecRecord(loc, "echo", []command.Value{command.String("x")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo", rec.Command)
	assert.Equal(t, "echo", rec.Location.Description)
	assert.Equal(t, "", rec.Dependency)
	assert.Equal(t, map[string]command.Value{}, rec.Kwargs)

	_, err = r.NewExecRecord(loc, "nope", nil, nil)
	assert.True(t, errdefs.IsParse(err))
	assert.Equal(t, `Error in a.def:3: unknown command "nope"`, errdefs.Format(err))
}

func TestRegistry_NewExecRecordValidation(t *testing.T) {
	r := command.NewRegistry()
	r.Register(&command.Definition{
		CommandName: "based_on",
		ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
			if err := command.ExpectArgs(loc, "based_on", args, 1, 1); err != nil {
				return "", err
			}
			return command.StringArg(args, 0), nil
		},
	})
	r.Register(&command.Definition{
		CommandName: "flaky",
		ValidateFn: func(location.Location, []command.Value, map[string]command.Value) (string, error) {
			return "", errors.New("nope")
		},
	})
	loc := location.New("a.def", 1)

	rec, err := r.NewExecRecord(loc, "based_on", []command.Value{command.String("arch")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "arch", rec.Dependency)

	_, err = r.NewExecRecord(loc, "based_on", nil, nil)
	assert.True(t, errdefs.IsParse(err))

	_, err = r.NewExecRecord(loc, "flaky", nil, nil)
	assert.True(t, errdefs.IsParse(err))
}

func TestDefinition_DefaultValidate(t *testing.T) {
	d := &command.Definition{CommandName: "noargs"}
	loc := location.New("a.def", 1)

	_, err := d.Validate(loc, nil, nil)
	assert.NoError(t, err)
	_, err = d.Validate(loc, []command.Value{command.String("x")}, nil)
	assert.True(t, errdefs.IsParse(err))
	_, err = d.Validate(loc, nil, map[string]command.Value{"k": command.Bool(true)})
	assert.True(t, errdefs.IsParse(err))
}

func TestKwargHelpers(t *testing.T) {
	loc := location.New("a.def", 1)
	kwargs := map[string]command.Value{
		"force": command.Bool(true),
		"mode":  command.Int(0o4755),
		"count": command.String("12"),
		"user":  command.String("root"),
		"bad":   command.String("x"),
	}

	force, err := command.KwargBool(loc, kwargs, "force", false)
	require.NoError(t, err)
	assert.True(t, force)

	_, err = command.KwargBool(loc, kwargs, "user", false)
	assert.True(t, errdefs.IsParse(err))

	count, err := command.KwargInt(loc, kwargs, "count", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	_, err = command.KwargInt(loc, kwargs, "bad", 0)
	assert.Error(t, err)

	mode, err := command.KwargMode(loc, kwargs, "mode", 0o644)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755)|os.ModeSetuid, mode)

	def, err := command.KwargMode(loc, kwargs, "missing", 0o644)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), def)

	assert.Equal(t, "root", command.KwargString(kwargs, "user", "nobody"))
	assert.Equal(t, "nobody", command.KwargString(kwargs, "group", "nobody"))

	assert.NoError(t, command.ExpectKwargs(loc, "x", kwargs, "force", "mode", "count", "user", "bad"))
	assert.True(t, errdefs.IsParse(command.ExpectKwargs(loc, "x", kwargs, "force")))
}

func TestExpectArgs(t *testing.T) {
	loc := location.New("a.def", 1)
	one := []command.Value{command.String("a")}
	assert.NoError(t, command.ExpectArgs(loc, "x", one, 1, 1))
	assert.NoError(t, command.ExpectArgs(loc, "x", one, 1, -1))
	assert.Error(t, command.ExpectArgs(loc, "x", one, 2, -1))
	assert.Error(t, command.ExpectArgs(loc, "x", one, 0, 0))
	assert.Equal(t, []string{"a"}, command.StringArgs(one, 0))
	assert.Nil(t, command.StringArgs(one, 1))
}
