package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
)

var create = &command.Definition{
	CommandName: "create",
	SyntaxDoc:   "<FILENAME> <CONTENTS> [force=False] [mode=0o644] [user=UID] [group=GID]",
	HelpDoc:     "Create a file. CONTENTS are written verbatim.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("create", 2, 2, "force", "mode", "user", "group")(loc, args, kwargs); err != nil {
			return "", err
		}
		return "", validateFileKwargs(loc, kwargs)
	},
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		p, err := insidePath(sys, command.StringArg(args, 0))
		if err != nil {
			return err
		}
		force, _ := command.KwargBool(loc, kwargs, "force", false)
		if exists(p) && !force {
			return errdefs.Generate(&loc, "%s exists, use force=True to overwrite", command.StringArg(args, 0))
		}
		mode, _ := command.KwargMode(loc, kwargs, "mode", 0o644)
		if err := writeFile(p, []byte(command.StringArg(args, 1)), mode); err != nil {
			return err
		}
		return chownKwargs(loc, p, kwargs)
	},
}

var appendFile = &command.Definition{
	CommandName: "append",
	SyntaxDoc:   "<FILENAME> <CONTENTS> [force=False]",
	HelpDoc:     "Append CONTENTS verbatim to a file. force=True creates a missing file.",
	ValidateFn:  expect("append", 2, 2, "force"),
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		p, err := insidePath(sys, command.StringArg(args, 0))
		if err != nil {
			return err
		}
		force, err := command.KwargBool(loc, kwargs, "force", false)
		if err != nil {
			return err
		}
		flags := os.O_APPEND | os.O_WRONLY
		if force {
			flags |= os.O_CREATE
		}
		f, err := os.OpenFile(p, flags, 0644)
		if err != nil {
			return errdefs.Generate(&loc, "appending to %s: %v", command.StringArg(args, 0), err)
		}
		if _, err := f.WriteString(command.StringArg(args, 1)); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	},
}

var copyFiles = &command.Definition{
	CommandName: "copy",
	SyntaxDoc:   "<SOURCE>+ <DEST> [from_outside=False] [recursive=False] [force=False]",
	HelpDoc:     "Copy files. With from_outside=True sources are read from the host, relative to the systems directory.",
	ValidateFn:  expect("copy", 2, -1, "from_outside", "recursive", "force"),
	Binaries:    []string{"cp"},
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		fromOutside, err := command.KwargBool(loc, kwargs, "from_outside", false)
		if err != nil {
			return err
		}
		recursive, err := command.KwargBool(loc, kwargs, "recursive", false)
		if err != nil {
			return err
		}
		force, err := command.KwargBool(loc, kwargs, "force", false)
		if err != nil {
			return err
		}

		cpArgs := []string{"cp", "--preserve=mode,timestamps"}
		if recursive {
			cpArgs = append(cpArgs, "-r")
		}
		if !force {
			cpArgs = append(cpArgs, "--no-clobber")
		}
		for i := 0; i < len(args)-1; i++ {
			var src string
			if fromOutside {
				src, err = hostPath(sys, command.StringArg(args, i))
			} else {
				src, err = insidePath(sys, command.StringArg(args, i))
			}
			if err != nil {
				return err
			}
			cpArgs = append(cpArgs, src)
		}
		dest, err := insidePath(sys, command.StringArg(args, len(args)-1))
		if err != nil {
			return err
		}
		return runOutside(ctx, sys, append(cpArgs, dest)...)
	},
}

var mkdir = &command.Definition{
	CommandName: "mkdir",
	SyntaxDoc:   "<DIRECTORY>+ [mode=0o755] [force=False] [user=UID] [group=GID]",
	HelpDoc:     "Create directories. force=True creates parents and accepts existing directories.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("mkdir", 1, -1, "mode", "force", "user", "group")(loc, args, kwargs); err != nil {
			return "", err
		}
		return "", validateFileKwargs(loc, kwargs)
	},
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		mode, _ := command.KwargMode(loc, kwargs, "mode", 0o755)
		force, _ := command.KwargBool(loc, kwargs, "force", false)
		for i := range args {
			p, err := insidePath(sys, command.StringArg(args, i))
			if err != nil {
				return err
			}
			if force {
				err = os.MkdirAll(p, mode)
			} else {
				err = os.Mkdir(p, mode)
			}
			if err != nil {
				return errdefs.Generate(&loc, "creating %s: %v", command.StringArg(args, i), err)
			}
			if err := os.Chmod(p, mode|os.ModeDir); err != nil {
				return err
			}
			if err := chownKwargs(loc, p, kwargs); err != nil {
				return err
			}
		}
		return nil
	},
}

var remove = &command.Definition{
	CommandName: "remove",
	SyntaxDoc:   "<FILE_PATTERN>+ [recursive=False] [force=False]",
	HelpDoc:     "Remove files. force=True ignores patterns without matches.",
	ValidateFn:  expect("remove", 1, -1, "recursive", "force"),
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		recursive, err := command.KwargBool(loc, kwargs, "recursive", false)
		if err != nil {
			return err
		}
		force, err := command.KwargBool(loc, kwargs, "force", false)
		if err != nil {
			return err
		}
		patterns, err := substArgs(sys, args, 0)
		if err != nil {
			return err
		}
		for _, pattern := range patterns {
			if !filepath.IsAbs(pattern) {
				return errdefs.Generate(&loc, "%q is not an absolute path", pattern)
			}
			files, err := sys.ExpandFiles(pattern)
			if err != nil {
				return err
			}
			if len(files) == 0 && !force {
				return errdefs.Generate(&loc, "%s does not exist", pattern)
			}
			for _, f := range files {
				if f == sys.FsDir() {
					return errdefs.Generate(&loc, "refusing to remove the system root")
				}
				if recursive {
					err = os.RemoveAll(f)
				} else {
					err = os.Remove(f)
				}
				if err != nil {
					return errdefs.Generate(&loc, "removing %s: %v", f, err)
				}
			}
		}
		return nil
	},
}

var move = &command.Definition{
	CommandName: "move",
	SyntaxDoc:   "<SOURCE>+ <DEST> [force=False]",
	HelpDoc:     "Move files within the system. Multiple sources need an existing directory as DEST.",
	ValidateFn:  expect("move", 2, -1, "force"),
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		force, err := command.KwargBool(loc, kwargs, "force", false)
		if err != nil {
			return err
		}
		dest, err := insidePath(sys, command.StringArg(args, len(args)-1))
		if err != nil {
			return err
		}
		fi, err := os.Stat(dest)
		destIsDir := err == nil && fi.IsDir()
		if len(args) > 2 && !destIsDir {
			return errdefs.Generate(&loc, "%s is not a directory", command.StringArg(args, len(args)-1))
		}
		for i := 0; i < len(args)-1; i++ {
			src, err := insidePath(sys, command.StringArg(args, i))
			if err != nil {
				return err
			}
			target := dest
			if destIsDir {
				target = filepath.Join(dest, filepath.Base(src))
			}
			if exists(target) && !force {
				return errdefs.Generate(&loc, "%s exists, use force=True to overwrite", target)
			}
			if err := os.Rename(src, target); err != nil {
				return errdefs.Generate(&loc, "moving %s: %v", command.StringArg(args, i), err)
			}
		}
		return nil
	},
}

var symlink = &command.Definition{
	CommandName: "symlink",
	SyntaxDoc:   "<SOURCE> <TARGET> [base_directory=<DIR>]",
	HelpDoc:     "Create a symlink at TARGET pointing to SOURCE. TARGET is relative to base_directory when given.",
	ValidateFn:  expect("symlink", 2, 2, "base_directory"),
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		source, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		target, err := substArg(sys, args, 1)
		if err != nil {
			return err
		}
		if base := command.KwargString(kwargs, "base_directory", ""); base != "" {
			target = filepath.Join(base, target)
		}
		p, err := insidePath(sys, target)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.Symlink(source, p); err != nil {
			return errdefs.Generate(&loc, "linking %s: %v", target, err)
		}
		return nil
	},
}

var chmod = &command.Definition{
	CommandName: "chmod",
	SyntaxDoc:   "<MODE> <FILE_PATTERN>+ [recursive=False]",
	HelpDoc:     "Change file modes.",
	ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
		if _, err := expect("chmod", 2, -1, "recursive")(loc, args, kwargs); err != nil {
			return "", err
		}
		if _, err := command.KwargMode(loc, map[string]command.Value{"mode": args[0]}, "mode", 0); err != nil {
			return "", err
		}
		return "", nil
	},
	InvokeFn: func(_ context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		mode, _ := command.KwargMode(loc, map[string]command.Value{"mode": args[0]}, "mode", 0)
		recursive, err := command.KwargBool(loc, kwargs, "recursive", false)
		if err != nil {
			return err
		}
		files, err := expandInside(loc, sys, args[1:])
		if err != nil {
			return err
		}
		for _, f := range files {
			walk := func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.Mode()&os.ModeSymlink != 0 {
					return nil
				}
				return os.Chmod(p, mode)
			}
			if recursive {
				err = filepath.Walk(f, walk)
			} else {
				var info os.FileInfo
				if info, err = os.Lstat(f); err == nil {
					err = walk(f, info, nil)
				}
			}
			if err != nil {
				return errdefs.Generate(&loc, "chmod %s: %v", f, err)
			}
		}
		return nil
	},
}

var chown = &command.Definition{
	CommandName: "chown",
	SyntaxDoc:   "<USER[:GROUP]> <FILE>+ [recursive=False]",
	HelpDoc:     "Change file owners, resolving names inside the system.",
	ValidateFn:  expect("chown", 2, -1, "recursive"),
	Binaries:    []string{"chroot"},
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		recursive, err := command.KwargBool(loc, kwargs, "recursive", false)
		if err != nil {
			return err
		}
		owner, err := substArg(sys, args, 0)
		if err != nil {
			return err
		}
		chownArgs := []string{"chown"}
		if recursive {
			chownArgs = append(chownArgs, "-R")
		}
		chownArgs = append(chownArgs, owner)
		files, err := substArgs(sys, args, 1)
		if err != nil {
			return err
		}
		for _, f := range files {
			if _, err := sys.FilePath(f); err != nil {
				return err
			}
		}
		_, err = sys.Run(ctx, append(chownArgs, files...), command.Verbatim())
		return err
	},
}

var sed = &command.Definition{
	CommandName: "sed",
	SyntaxDoc:   "<PATTERN> <FILE>",
	HelpDoc:     "Run sed -i with PATTERN on FILE.",
	ValidateFn:  expect("sed", 2, 2),
	Binaries:    []string{"sed"},
	InvokeFn: func(ctx context.Context, _ location.Location, sys command.System, args []command.Value, _ map[string]command.Value) error {
		p, err := insidePath(sys, command.StringArg(args, 1))
		if err != nil {
			return err
		}
		return runOutside(ctx, sys, "sed", "-i", "-e", command.StringArg(args, 0), p)
	},
}

var run = &command.Definition{
	CommandName: "run",
	SyntaxDoc:   "<COMMAND> <ARGS>* [outside=False] [shell=False] [returncode=0] [timeout=SECONDS]",
	HelpDoc:     "Run a command inside the system, or on the host with outside=True. returncode=None accepts any exit status.",
	ValidateFn:  expect("run", 1, -1, "outside", "shell", "returncode", "timeout"),
	InvokeFn: func(ctx context.Context, loc location.Location, sys command.System, args []command.Value, kwargs map[string]command.Value) error {
		var opts []command.RunOpt
		if outside, err := command.KwargBool(loc, kwargs, "outside", false); err != nil {
			return err
		} else if outside {
			opts = append(opts, command.Outside())
		}
		if shell, err := command.KwargBool(loc, kwargs, "shell", false); err != nil {
			return err
		} else if shell {
			opts = append(opts, command.Shell())
		}
		if rc, ok := kwargs["returncode"]; ok {
			if rc.IsNull() {
				opts = append(opts, command.AnyReturnCode())
			} else {
				code, err := command.KwargInt(loc, kwargs, "returncode", 0)
				if err != nil {
					return err
				}
				opts = append(opts, command.ExpectReturnCode(int(code)))
			}
		}
		timeout, err := command.KwargInt(loc, kwargs, "timeout", 0)
		if err != nil {
			return err
		}
		if timeout > 0 {
			opts = append(opts, command.WithTimeout(secondsDuration(timeout)))
		}
		_, err = sys.Run(ctx, command.StringArgs(args, 0), opts...)
		return err
	},
}

func expandInside(loc location.Location, sys command.System, patterns []command.Value) ([]string, error) {
	expanded, err := substArgs(sys, patterns, 0)
	if err != nil {
		return nil, err
	}
	for _, p := range expanded {
		if !filepath.IsAbs(p) {
			return nil, errdefs.Generate(&loc, "%q is not an absolute path", p)
		}
	}
	files, err := sys.ExpandFiles(expanded...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errdefs.Generate(&loc, "no files match %s", strings.Join(expanded, " "))
	}
	return files, nil
}

func validateFileKwargs(loc location.Location, kwargs map[string]command.Value) error {
	if _, err := command.KwargBool(loc, kwargs, "force", false); err != nil {
		return err
	}
	if _, err := command.KwargMode(loc, kwargs, "mode", 0); err != nil {
		return err
	}
	for _, k := range []string{"user", "group"} {
		if _, err := command.KwargInt(loc, kwargs, k, 0); err != nil {
			return err
		}
	}
	return nil
}

// chownKwargs applies numeric user= and group= keywords. Ownership is left
// alone when neither is given.
func chownKwargs(loc location.Location, p string, kwargs map[string]command.Value) error {
	_, hasUser := kwargs["user"]
	_, hasGroup := kwargs["group"]
	if !hasUser && !hasGroup {
		return nil
	}
	uid, _ := command.KwargInt(loc, kwargs, "user", -1)
	gid, _ := command.KwargInt(loc, kwargs, "group", -1)
	if err := os.Lchown(p, int(uid), int(gid)); err != nil {
		return fmt.Errorf("chown %s: %w", p, err)
	}
	return nil
}

func init() {
	add(create, appendFile, copyFiles, mkdir, remove, move, symlink, chmod, chown, sed, run)
}
