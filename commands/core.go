package commands

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
	"github.com/thepwagner/clrm/subst"
)

const (
	// Scratch is the base of systems that start from an empty tree.
	Scratch = "scratch"

	PhaseSetup    = "_setup"
	PhaseTeardown = "_teardown"
	PhaseTesting  = "testing"
	PhaseExport   = "export"
)

var basedOn = &command.Definition{
	CommandName: "based_on",
	SyntaxDoc:   "<SYSTEM_NAME>",
	HelpDoc:     "Use SYSTEM_NAME as the base for this system. Use scratch to start from an empty tree.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("based_on", 1, 1)(loc, args, kwargs); err != nil {
			return "", err
		}
		base := command.StringArg(args, 0)
		if !command.ValidName(base) {
			return "", errdefs.Parse(&loc, "invalid base system name %q", base)
		}
		if base == Scratch {
			return "", nil
		}
		return base, nil
	},
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		base := command.StringArg(args, 0)
		if base == Scratch {
			sys.Logger().V(1).Info("building from scratch")
			return sys.AddHook(loc, PhaseTesting, "_test", nil, nil)
		}
		return sys.Execute(ctx, loc, "_restore", args, nil)
	},
}

var restore = &command.Definition{
	CommandName: "_restore",
	SyntaxDoc:   "<SYSTEM_NAME>",
	HelpDoc:     "Install the stored state of SYSTEM_NAME into this system.",
	ValidateFn:  expect("_restore", 1, 1),
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		if err := sys.InstallBase(ctx, command.StringArg(args, 0)); err != nil {
			return err
		}
		return sys.RunHooks(ctx, PhaseSetup)
	},
}

var setup = &command.Definition{
	CommandName: "_setup",
	HelpDoc:     "Implicitly run before any other command of a system is run.",
	InvokeFn: func(_ context.Context, _ location.Location, sys command.System, _ []command.Value, _ map[string]command.Value) error {
		for _, d := range []string{sys.FsDir(), sys.MetaDir(), sys.BootDir(), sys.CacheDir()} {
			fi, err := os.Stat(d)
			if err != nil {
				return errdefs.Context("workspace of %q not initialized: %v", sys.Name(), err)
			}
			if !fi.IsDir() {
				return errdefs.Context("workspace of %q is invalid: %s is not a directory", sys.Name(), d)
			}
		}
		sys.Logger().Info("setting up system", "timestamp", sys.Timestamp())
		return nil
	},
}

var teardown = &command.Definition{
	CommandName: "_teardown",
	HelpDoc:     "Implicitly run after all other commands: runs the teardown, testing and export hooks and stores the system state.",
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, _ []command.Value, _ map[string]command.Value) error {
		for _, phase := range []string{PhaseTeardown, PhaseTesting, PhaseExport} {
			if err := sys.RunHooks(ctx, phase); err != nil {
				return err
			}
		}
		return sys.Pickle()
	},
}

var runTests = &command.Definition{
	CommandName: "_test",
	HelpDoc:     "Run the tests of the system and all of its bases.",
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, _ []command.Value, _ map[string]command.Value) error {
		for _, name := range append(sys.Bases(), sys.Name()) {
			dir := filepath.Join(sys.SystemsDir(), "tests", name)
			tests, err := executables(dir)
			if err != nil {
				return err
			}
			for _, test := range tests {
				sys.Logger().Info("running test", "test", test)
				if err := runOutside(ctx, sys, test, sys.FsDir()); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func executables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ret []string
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		if info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0 {
			ret = append(ret, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(ret)
	return ret, nil
}

var addHook = &command.Definition{
	CommandName: "add_hook",
	SyntaxDoc:   "<PHASE> <COMMAND> <ARGS>* <KWARGS>*",
	HelpDoc:     "Queue COMMAND to run at the lifecycle phase PHASE.",
	ValidateFn: func(loc location.Location, args []command.Value, _ map[string]command.Value) (string, error) {
		if err := command.ExpectArgs(loc, "add_hook", args, 2, -1); err != nil {
			return "", err
		}
		if phase := command.StringArg(args, 0); phase == "" {
			return "", errdefs.Parse(&loc, "add_hook needs a phase")
		}
		if cmd := command.StringArg(args, 1); !command.ValidName(cmd) {
			return "", errdefs.Parse(&loc, "invalid command name %q", cmd)
		}
		return "", nil
	},
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		return sys.AddHook(loc, command.StringArg(args, 0), command.StringArg(args, 1), args[2:], kwargs)
	},
}

var set = &command.Definition{
	CommandName: "set",
	SyntaxDoc:   "<KEY> <VALUE>",
	HelpDoc:     "Set the substitution KEY to VALUE.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("set", 2, 2)(loc, args, kwargs); err != nil {
			return "", err
		}
		if key := command.StringArg(args, 0); !subst.ValidKey(key) {
			return "", errdefs.Parse(&loc, "invalid substitution name %q", key)
		}
		return "", nil
	},
	InvokeFn: func(_ context.Context, _ location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		value, err := substArg(sys, args, 1)
		if err != nil {
			return err
		}
		sys.SetSubstitution(command.StringArg(args, 0), value)
		return nil
	},
}

func init() {
	add(basedOn, restore, setup, teardown, runTests, addHook, set)
}
