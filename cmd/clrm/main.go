package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/thepwagner/clrm/config"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/log"
	"github.com/thepwagner/clrm/report"
	"github.com/thepwagner/clrm/snapshot"
	"github.com/thepwagner/clrm/workspace"
)

const (
	verboseFlag           = "verbose"
	configFlag            = "config"
	systemsDirectoryFlag  = "systems-directory"
	workDirectoryFlag     = "work-directory"
	repositoryFlag        = "repository"
	ignoreErrorsFlag      = "ignore-errors"
	clearWorkdirFlag      = "clear-workdir"
	keepTemporaryDataFlag = "keep-temporary-data"
	listCommandsFlag      = "list-commands"
	redisURLFlag          = "redis-url"

	exitNoSystems    = 1
	exitNoRepository = 2
	exitFailure      = 3
)

// exitError carries the process exit status up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exit(code int, err error) error {
	return &exitError{code: code, err: err}
}

var rootCmd = &cobra.Command{
	Use:           "clrm [flags] system...",
	Short:         "Generate layered operating system images from definition files",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		listCommands, err := flags.GetBool(listCommandsFlag)
		if err != nil {
			return err
		}
		if listCommands {
			return printCommands(cmd)
		}

		if len(args) == 0 {
			return exit(exitNoSystems, errors.New("no systems to generate"))
		}
		e, err := newEnv(cmd)
		if err != nil {
			return exit(exitFailure, err)
		}
		if e.cfg.Repository == "" {
			return exit(exitNoRepository, errors.New("no export repository configured"))
		}

		ctx := cmd.Context()
		if clearWork, _ := flags.GetBool(clearWorkdirFlag); clearWork {
			e.log.Info("clearing work directory", "dir", e.ws.WorkDir())
			if err := e.ws.Clear(ctx); err != nil {
				return exit(exitFailure, err)
			}
		}

		sum, err := e.generate(ctx, args)
		if err != nil {
			return exit(exitFailure, err)
		}
		if keep, _ := flags.GetBool(keepTemporaryDataFlag); !keep {
			if err := e.ws.ClearCurrent(ctx); err != nil {
				return exit(exitFailure, err)
			}
		}
		if sum.Count(report.StatusFailed) > 0 {
			e.log.Info("some systems failed", "failed", sum.Count(report.StatusFailed))
		}
		return nil
	},
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.CountP(verboseFlag, "v", "increase verbosity, repeat for more")
	pflags.String(configFlag, "/etc/clrm/clrm.yaml", "configuration file")
	pflags.String(systemsDirectoryFlag, "", "directory holding the system definitions (default: current directory)")
	pflags.String(workDirectoryFlag, "", "work directory (default: from config)")
	pflags.String(repositoryFlag, "", "export repository directory")
	pflags.Bool(ignoreErrorsFlag, false, "continue with the next system after a failure")
	pflags.String(redisURLFlag, "", "redis address to push build results to")

	flags := rootCmd.Flags()
	flags.Bool(listCommandsFlag, false, "list all known commands and exit")
	flags.Bool(clearWorkdirFlag, false, "remove every stored system before generating")
	flags.Bool(keepTemporaryDataFlag, false, "keep in-progress trees in the work directory")
}

// env is the state shared by every subcommand.
type env struct {
	log          logr.Logger
	cfg          *config.Config
	ws           *workspace.Workspace
	jars         *snapshot.Cache
	reporter     report.Reporter
	ignoreErrors bool
}

func newEnv(cmd *cobra.Command) (*env, error) {
	flags := cmd.Flags()
	verbosity, err := flags.GetCount(verboseFlag)
	if err != nil {
		return nil, err
	}
	l := log.New(os.Stderr, verbosity)

	cfgFile, err := flags.GetString(configFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfigFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", cfgFile, err)
	}
	for flag, dst := range map[string]*string{
		systemsDirectoryFlag: &cfg.SystemsDirectory,
		workDirectoryFlag:    &cfg.WorkDirectory,
		repositoryFlag:       &cfg.Repository,
		redisURLFlag:         &cfg.RedisURL,
	} {
		if !flags.Changed(flag) {
			continue
		}
		if *dst, err = flags.GetString(flag); err != nil {
			return nil, err
		}
	}
	if cfg.SystemsDirectory == "" {
		cfg.SystemsDirectory = "."
	}
	if cfg.SystemsDirectory, err = filepath.Abs(cfg.SystemsDirectory); err != nil {
		return nil, err
	}
	if cfg.Repository != "" {
		if cfg.Repository, err = filepath.Abs(cfg.Repository); err != nil {
			return nil, err
		}
	}
	ignoreErrors, err := flags.GetBool(ignoreErrorsFlag)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.New(l, cfg.WorkDirectory)
	if err != nil {
		return nil, err
	}
	jars, err := snapshot.NewCache(cfg.JarCacheSize)
	if err != nil {
		return nil, err
	}
	reporters := []report.Reporter{report.NewLogReporter(l)}
	if cfg.RedisURL != "" {
		opts := &redis.Options{Addr: cfg.RedisURL}
		if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
			opts.Password = redisPassword
		}
		reporters = append(reporters, report.NewRedisReporter(redis.NewClient(opts), report.DefaultRedisKey))
	}

	l.V(1).Info("configured", "systems", cfg.SystemsDirectory, "work", ws.WorkDir(), "repository", cfg.Repository)
	return &env{
		log:          l,
		cfg:          cfg,
		ws:           ws,
		jars:         jars,
		reporter:     report.NewMulti(l, reporters...),
		ignoreErrors: ignoreErrors,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errdefs.Format(err))
		code := exitFailure
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		os.Exit(code)
	}
}
