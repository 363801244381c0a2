package command

import (
	"context"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/location"
)

// System is the build state every command receives.
type System interface {
	Name() string
	Timestamp() string
	Bases() []string
	// BaseSystem is the direct parent, "" for systems based on scratch.
	BaseSystem() string
	Logger() logr.Logger

	SetSubstitution(key, value string)
	Substitution(key, def string) string
	LookupSubstitution(key string) (string, bool)
	HasSubstitution(key string) bool
	Substitute(text string) (string, error)

	AddHook(loc location.Location, phase, cmd string, args []Value, kwargs map[string]Value) error
	RunHooks(ctx context.Context, phase string) error

	Execute(ctx context.Context, loc location.Location, cmd string, args []Value, kwargs map[string]Value) error
	ExecuteRecord(ctx context.Context, rec *ExecRecord) error
	Run(ctx context.Context, args []string, opts ...RunOpt) (*RunResult, error)

	FsDir() string
	MetaDir() string
	BootDir() string
	CacheDir() string
	SystemsDir() string
	RepositoryDir() string
	// FilePath maps an absolute path into the staging tree. Relative paths are host paths.
	FilePath(p string) (string, error)
	ExpandFiles(patterns ...string) ([]string, error)

	InstallBase(ctx context.Context, name string) error
	Pickle() error
}

type RunResult struct {
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
}

// RunOptions configures System.Run.
type RunOptions struct {
	Outside bool
	Shell   bool
	// Verbatim skips substitution of the arguments.
	Verbatim bool
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
	Env      []string
	Timeout  time.Duration
	// ReturnCode is the expected exit status, nil accepts any.
	ReturnCode *int
}

type RunOpt func(*RunOptions)

func NewRunOptions(opts ...RunOpt) *RunOptions {
	zero := 0
	o := &RunOptions{ReturnCode: &zero}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Outside runs on the host instead of chrooting into the staging tree.
func Outside() RunOpt {
	return func(o *RunOptions) { o.Outside = true }
}

// Shell runs the arguments joined by spaces through /bin/sh -c.
func Shell() RunOpt {
	return func(o *RunOptions) { o.Shell = true }
}

// Verbatim passes arguments through without substitution, for values that
// were already expanded.
func Verbatim() RunOpt {
	return func(o *RunOptions) { o.Verbatim = true }
}

func WithStdout(w io.Writer) RunOpt {
	return func(o *RunOptions) { o.Stdout = w }
}

func WithStderr(w io.Writer) RunOpt {
	return func(o *RunOptions) { o.Stderr = w }
}

func WithStdin(r io.Reader) RunOpt {
	return func(o *RunOptions) { o.Stdin = r }
}

func WithEnv(kv ...string) RunOpt {
	return func(o *RunOptions) { o.Env = append(o.Env, kv...) }
}

func WithTimeout(d time.Duration) RunOpt {
	return func(o *RunOptions) { o.Timeout = d }
}

func ExpectReturnCode(code int) RunOpt {
	return func(o *RunOptions) { o.ReturnCode = &code }
}

func AnyReturnCode() RunOpt {
	return func(o *RunOptions) { o.ReturnCode = nil }
}
