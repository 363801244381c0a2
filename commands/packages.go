package commands

import (
	"context"
	"strings"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

var pacstrap = &command.Definition{
	CommandName: "pacstrap",
	SyntaxDoc:   "<PACKAGES>+ [config=<PACMAN_CONF>]",
	HelpDoc:     "Install packages into an empty system using pacstrap.",
	ValidateFn:  expect("pacstrap", 1, -1, "config"),
	Binaries:    []string{"pacstrap"},
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		packages, err := substArgs(sys, args, 0)
		if err != nil {
			return err
		}
		cmd := []string{"pacstrap", "-c", "-G", "-M"}
		if conf := command.KwargString(kwargs, "config", ""); conf != "" {
			p, err := hostPath(sys, conf)
			if err != nil {
				return err
			}
			cmd = append(cmd, "-C", p)
		}
		cmd = append(cmd, sys.FsDir())
		return runOutside(ctx, sys, append(cmd, packages...)...)
	},
}

var pacman = &command.Definition{
	CommandName: "pacman",
	SyntaxDoc:   "<PACKAGES>+ [remove=False]",
	HelpDoc:     "Install or remove packages in the system using the host pacman.",
	ValidateFn:  expect("pacman", 1, -1, "remove"),
	Binaries:    []string{"pacman"},
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		remove, err := command.KwargBool(loc, kwargs, "remove", false)
		if err != nil {
			return err
		}
		packages, err := substArgs(sys, args, 0)
		if err != nil {
			return err
		}
		cmd := []string{"pacman", "--root", sys.FsDir(), "--cachedir", sys.CacheDir(), "--noconfirm"}
		if remove {
			cmd = append(cmd, "-Rsc")
		} else {
			cmd = append(cmd, "-S", "--needed")
		}
		return runOutside(ctx, sys, append(cmd, packages...)...)
	},
}

var debootstrap = &command.Definition{
	CommandName: "debootstrap",
	SyntaxDoc:   "suite=<SUITE> [mirror=<URL>] [variant=<VARIANT>] [include=<PKG,...>] [exclude=<PKG,...>]",
	HelpDoc:     "Bootstrap a Debian based system using debootstrap.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("debootstrap", 0, 0, "suite", "mirror", "variant", "include", "exclude")(loc, args, kwargs); err != nil {
			return "", err
		}
		if command.KwargString(kwargs, "suite", "") == "" {
			return "", errdefs.Parse(&loc, "debootstrap needs suite=")
		}
		return "", nil
	},
	Binaries: []string{"debootstrap"},
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, _ []command.Value, kwargs map[string]command.Value) error {
		opts := map[string]string{}
		for _, k := range []string{"suite", "mirror", "variant", "include", "exclude"} {
			v, err := sys.Substitute(command.KwargString(kwargs, k, ""))
			if err != nil {
				return err
			}
			opts[k] = v
		}
		cmd := []string{"debootstrap", "--cache-dir=" + sys.CacheDir()}
		if opts["variant"] != "" {
			cmd = append(cmd, "--variant="+opts["variant"])
		}
		if opts["include"] != "" {
			cmd = append(cmd, "--include="+strings.TrimSpace(opts["include"]))
		}
		if opts["exclude"] != "" {
			cmd = append(cmd, "--exclude="+strings.TrimSpace(opts["exclude"]))
		}
		cmd = append(cmd, opts["suite"], sys.FsDir())
		if opts["mirror"] != "" {
			cmd = append(cmd, opts["mirror"])
		}
		return runOutside(ctx, sys, cmd...)
	},
}

func init() {
	add(pacstrap, pacman, debootstrap)
}
