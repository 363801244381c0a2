package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

const defaultExportName = "${SYSTEM}-${TIMESTAMP}"

var exportTar = &command.Definition{
	CommandName: "export_tar",
	SyntaxDoc:   "[name=${SYSTEM}-${TIMESTAMP}]",
	HelpDoc:     "Export the system as a tarball into the repository once the system is complete.",
	ValidateFn:  expect("export_tar", 0, 0, "name"),
	Binaries:    []string{"tar"},
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, _ []command.Value, kwargs map[string]command.Value) error {
		if sys.RepositoryDir() == "" {
			return errdefs.Generate(&loc, "export_tar needs a repository directory")
		}
		name := command.KwargString(kwargs, "name", defaultExportName)
		return sys.AddHook(loc, PhaseExport, "_export_tar", []command.Value{command.String(name)}, nil)
	},
}

var exportTarHook = &command.Definition{
	CommandName: "_export_tar",
	SyntaxDoc:   "<NAME>",
	HelpDoc:     "Write the fs directory of the system to <repository>/<NAME>.tar.",
	ValidateFn:  expect("_export_tar", 1, 1),
	Binaries:    []string{"tar"},
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		name, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		if name == "" || strings.Contains(name, "/") {
			return errdefs.Generate(&loc, "invalid export name %q", name)
		}
		repo := sys.RepositoryDir()
		if err := os.MkdirAll(repo, 0755); err != nil {
			return err
		}
		target := filepath.Join(repo, name+".tar")
		tmp, err := os.CreateTemp(repo, "."+name+"-*.tar")
		if err != nil {
			return err
		}
		_ = tmp.Close()
		defer os.Remove(tmp.Name())

		if err := runOutside(ctx, sys, "tar", "--create", "--numeric-owner", "--xattrs",
			"--file", tmp.Name(), "--directory", sys.FsDir(), "."); err != nil {
			return err
		}
		if err := os.Chmod(tmp.Name(), 0644); err != nil {
			return err
		}
		if err := os.Rename(tmp.Name(), target); err != nil {
			return err
		}
		sys.Logger().Info("exported system", "path", target)
		return nil
	},
}

func init() {
	add(exportTar, exportTarHook)
}
