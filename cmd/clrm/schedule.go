package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thepwagner/clrm/generator"
	"github.com/thepwagner/clrm/rebuild"
)

const cronFlag = "cron"

// scheduleCmd rebuilds systems from scratch on a cron schedule.
var scheduleCmd = &cobra.Command{
	Use:   "schedule --cron <spec> system...",
	Short: "Periodically rebuild systems",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return exit(exitNoSystems, errors.New("no systems to schedule"))
		}
		schedule, err := cmd.Flags().GetString(cronFlag)
		if err != nil {
			return err
		}
		e, err := newEnv(cmd)
		if err != nil {
			return exit(exitFailure, err)
		}
		if e.cfg.Repository == "" {
			return exit(exitNoRepository, errors.New("no export repository configured"))
		}

		r := rebuild.NewRebuilder(e.log, e.ws.Discard, func(ctx context.Context, systems []string) error {
			_, err := e.generate(ctx, systems)
			return err
		})
		systems := make([]string, 0, len(args))
		for _, a := range args {
			systems = append(systems, strings.TrimSuffix(a, generator.DefinitionSuffix))
		}
		if _, err := r.Cron(schedule, systems...); err != nil {
			return exit(exitFailure, err)
		}
		r.Start()
		defer r.Stop()

		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
		<-sigC
		e.log.Info("stopping rebuilder")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String(cronFlag, "@daily", "cron schedule of the rebuilds")
	rootCmd.AddCommand(scheduleCmd)
}
