package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"golang.org/x/sync/errgroup"
)

var chrootPath = []string{"/usr/local/sbin", "/usr/local/bin", "/usr/sbin", "/usr/bin", "/sbin", "/bin"}

// Run substitutes args and executes them, chrooted into the fs directory
// unless command.Outside() is given.
func (c *Context) Run(ctx context.Context, args []string, opts ...command.RunOpt) (*command.RunResult, error) {
	o := command.NewRunOptions(opts...)

	argv := make([]string, 0, len(args))
	for _, a := range args {
		if o.Verbatim {
			argv = append(argv, a)
			continue
		}
		expanded, err := c.Substitute(a)
		if err != nil {
			return nil, err
		}
		argv = append(argv, expanded)
	}
	if o.Shell {
		argv = []string{"/bin/sh", "-c", strings.Join(argv, " ")}
	}
	if len(argv) == 0 {
		return nil, errdefs.Generate(nil, "nothing to run")
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	binary := argv[0]
	env := os.Environ()
	if !o.Outside {
		resolved, err := c.resolveInside(binary)
		if err != nil {
			return nil, err
		}
		binary = resolved
		env = []string{"PATH=" + strings.Join(chrootPath, ":"), "LC_ALL=C", "HOME=/root"}
	}
	cmd := exec.CommandContext(ctx, binary, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Env = append(env, o.Env...)
	cmd.Stdin = o.Stdin
	if !o.Outside {
		if err := chroot(cmd, c.FsDir()); err != nil {
			return nil, err
		}
	}

	c.log.V(1).Info("running", "args", argv, "outside", o.Outside)
	res, err := c.pump(cmd, o)
	if err != nil {
		return nil, errdefs.Generate(nil, "running %s: %v", argv[0], err)
	}
	if o.ReturnCode != nil && res.ReturnCode != *o.ReturnCode {
		return res, errdefs.Generate(nil, "%s exited with %d, expected %d: %s",
			argv[0], res.ReturnCode, *o.ReturnCode, strings.TrimSpace(string(res.Stderr)))
	}
	return res, nil
}

// resolveInside finds a bare binary name within the staging tree, returning
// its path as seen from inside the chroot.
func (c *Context) resolveInside(binary string) (string, error) {
	if strings.Contains(binary, "/") {
		return binary, nil
	}
	for _, dir := range chrootPath {
		inside := path.Join(dir, binary)
		fi, err := os.Stat(filepath.Join(c.FsDir(), inside))
		if err == nil && fi.Mode().IsRegular() && fi.Mode().Perm()&0111 != 0 {
			return inside, nil
		}
	}
	return "", errdefs.Generate(nil, "%s not found in %s", binary, c.FsDir())
}

// pump runs cmd, capturing its output and teeing it to the configured
// writers and the debug log.
func (c *Context) pump(cmd *exec.Cmd, o *command.RunOptions) (*command.RunResult, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	outLog := &lineLogger{log: c.log, stream: "stdout"}
	errLog := &lineLogger{log: c.log, stream: "stderr"}
	outW := []io.Writer{&stdout, outLog}
	if o.Stdout != nil {
		outW = append(outW, o.Stdout)
	}
	errW := []io.Writer{&stderr, errLog}
	if o.Stderr != nil {
		errW = append(errW, o.Stderr)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(outW...), stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(errW...), stderrPipe)
		return err
	})
	copyErr := g.Wait()
	waitErr := cmd.Wait()
	outLog.Flush()
	errLog.Flush()

	res := &command.RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, waitErr
		}
		res.ReturnCode = exitErr.ExitCode()
		if res.ReturnCode < 0 {
			return nil, fmt.Errorf("terminated: %w", waitErr)
		}
	}
	if copyErr != nil {
		return nil, fmt.Errorf("reading output: %w", copyErr)
	}
	return res, nil
}

// lineLogger writes complete lines of process output at V(1).
type lineLogger struct {
	log    logr.Logger
	stream string
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		idx := bytes.IndexByte(l.buf, '\n')
		if idx < 0 {
			break
		}
		l.log.V(1).Info(string(l.buf[:idx]), "stream", l.stream)
		l.buf = l.buf[idx+1:]
	}
	return len(p), nil
}

func (l *lineLogger) Flush() {
	if len(l.buf) > 0 {
		l.log.V(1).Info(string(l.buf), "stream", l.stream)
		l.buf = nil
	}
}
