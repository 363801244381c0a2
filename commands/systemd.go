package commands

import (
	"context"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/location"
)

var systemdEnable = &command.Definition{
	CommandName: "systemd_enable",
	SyntaxDoc:   "<UNIT>+",
	HelpDoc:     "Enable systemd units.",
	ValidateFn:  expect("systemd_enable", 1, -1),
	Binaries:    []string{"systemctl"},
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		units, err := substArgs(sys, args, 0)
		if err != nil {
			return err
		}
		return runOutside(ctx, sys, append([]string{"systemctl", "--root=" + sys.FsDir(), "enable"}, units...)...)
	},
}

var systemdSetDefault = &command.Definition{
	CommandName: "systemd_set_default",
	SyntaxDoc:   "<TARGET>",
	HelpDoc:     "Set the default systemd target.",
	ValidateFn:  expect("systemd_set_default", 1, 1),
	Binaries:    []string{"systemctl"},
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		target, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		return runOutside(ctx, sys, "systemctl", "--root="+sys.FsDir(), "set-default", target)
	},
}

func init() {
	add(systemdEnable, systemdSetDefault)
}
