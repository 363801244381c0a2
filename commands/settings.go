package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

var setHostname = &command.Definition{
	CommandName: "set_hostname",
	SyntaxDoc:   "<HOSTNAME> [pretty=<PRETTY_HOSTNAME>]",
	HelpDoc:     "Set the hostname of the system.",
	ValidateFn:  expect("set_hostname", 1, 1, "pretty"),
	InvokeFn: func(_ context.Context, _ location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		hostname, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		pretty, err := sys.Substitute(command.KwargString(kwargs, "pretty", hostname))
		if err != nil {
			return err
		}
		sys.SetSubstitution("HOSTNAME", hostname)
		sys.SetSubstitution("PRETTY_HOSTNAME", pretty)

		p, err := sys.FilePath("/etc/hostname")
		if err != nil {
			return err
		}
		if err := writeFile(p, []byte(hostname+"\n"), 0644); err != nil {
			return err
		}
		p, err = sys.FilePath("/etc/machine-info")
		if err != nil {
			return err
		}
		return writeFile(p, []byte(fmt.Sprintf("PRETTY_HOSTNAME=%q\n", pretty)), 0644)
	},
}

var setTimezone = &command.Definition{
	CommandName: "set_timezone",
	SyntaxDoc:   "<TIMEZONE>",
	HelpDoc:     "Set the timezone of the system, e.g. Europe/Berlin.",
	ValidateFn:  expect("set_timezone", 1, 1),
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		tz, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		zone := filepath.Join("/usr/share/zoneinfo", tz)
		zonePath, err := sys.FilePath(zone)
		if err != nil {
			return err
		}
		if !exists(zonePath) {
			return errdefs.Generate(&loc, "timezone %q not found in the system", tz)
		}
		localtime, err := sys.FilePath("/etc/localtime")
		if err != nil {
			return err
		}
		if exists(localtime) {
			if err := os.Remove(localtime); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Dir(localtime), 0755); err != nil {
			return err
		}
		return os.Symlink(zone, localtime)
	},
}

var machineIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

var setMachineID = &command.Definition{
	CommandName: "set_machine_id",
	SyntaxDoc:   "<MACHINE_ID>",
	HelpDoc:     "Set the machine-id of the system, 32 lowercase hex characters.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("set_machine_id", 1, 1)(loc, args, kwargs); err != nil {
			return "", err
		}
		if id := command.StringArg(args, 0); !strings.Contains(id, "$") && !machineIDPattern.MatchString(id) {
			return "", errdefs.Parse(&loc, "invalid machine-id %q", id)
		}
		return "", nil
	},
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		id, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		if !machineIDPattern.MatchString(id) {
			return errdefs.Generate(&loc, "invalid machine-id %q", id)
		}
		sys.SetSubstitution("MACHINE_ID", id)
		p, err := sys.FilePath("/etc/machine-id")
		if err != nil {
			return err
		}
		return writeFile(p, []byte(id+"\n"), 0444)
	},
}

var rootDevicePrefixes = []string{"/dev/", "PARTLABEL=", "PARTUUID=", "UUID=", "LABEL="}

var setRootDevice = &command.Definition{
	CommandName: "set_root_device",
	SyntaxDoc:   "<DEVICE>",
	HelpDoc:     "Set the root device of the system and add root= to KERNEL_CMDLINE.",
	ValidateFn:  expect("set_root_device", 1, 1),
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		dev, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		valid := false
		for _, prefix := range rootDevicePrefixes {
			if strings.HasPrefix(dev, prefix) && len(dev) > len(prefix) {
				valid = true
				break
			}
		}
		if !valid {
			return errdefs.Generate(&loc, "invalid root device %q", dev)
		}
		sys.SetSubstitution("ROOT_DEVICE", dev)
		cmdline := strings.TrimSpace(sys.Substitution("KERNEL_CMDLINE", "") + " root=" + dev)
		sys.SetSubstitution("KERNEL_CMDLINE", cmdline)
		return nil
	},
}

var createOSRelease = &command.Definition{
	CommandName: "create_os_release",
	HelpDoc:     "Write /usr/lib/os-release from the DISTRO_* substitutions and link /etc/os-release to it.",
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, _ []command.Value, _ map[string]command.Value) error {
		var b strings.Builder
		for _, f := range []struct{ field, key string }{
			{"NAME", "DISTRO_NAME"},
			{"PRETTY_NAME", "DISTRO_PRETTY_NAME"},
			{"ID", "DISTRO_ID"},
			{"VERSION", "DISTRO_VERSION"},
			{"VERSION_ID", "DISTRO_VERSION_ID"},
		} {
			v := sys.Substitution(f.key, "")
			if v == "" {
				continue
			}
			fmt.Fprintf(&b, "%s=%q\n", f.field, v)
		}
		if b.Len() == 0 {
			return errdefs.Generate(&loc, "no DISTRO_* substitutions set")
		}

		p, err := sys.FilePath("/usr/lib/os-release")
		if err != nil {
			return err
		}
		if err := writeFile(p, []byte(b.String()), 0644); err != nil {
			return err
		}
		link, err := sys.FilePath("/etc/os-release")
		if err != nil {
			return err
		}
		if exists(link) {
			if err := os.Remove(link); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
			return err
		}
		return os.Symlink("../usr/lib/os-release", link)
	},
}

var documentationPaths = []string{
	"/usr/share/doc/*",
	"/usr/share/man/*",
	"/usr/share/info/*",
	"/usr/share/gtk-doc/*",
}

var stripDocumentation = &command.Definition{
	CommandName: "strip_documentation",
	HelpDoc:     "Remove documentation, man and info pages from the system.",
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, _ []command.Value, _ map[string]command.Value) error {
		args := make([]command.Value, 0, len(documentationPaths))
		for _, p := range documentationPaths {
			args = append(args, command.String(p))
		}
		return sys.Execute(ctx, loc, "remove", args, map[string]command.Value{
			"recursive": command.Bool(true),
			"force":     command.Bool(true),
		})
	},
}

func init() {
	add(setHostname, setTimezone, setMachineID, setRootDevice, createOSRelease, stripDocumentation)
}
