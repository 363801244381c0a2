package generator

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/snapshot"
	"github.com/thepwagner/clrm/system"
	"github.com/thepwagner/clrm/workspace"
)

// Executor builds a single system from its records.
type Executor struct {
	log      logr.Logger
	registry *command.Registry
	ws       *workspace.Workspace
	jars     *snapshot.Cache
	settings system.Settings
}

func NewExecutor(log logr.Logger, registry *command.Registry, ws *workspace.Workspace, jars *snapshot.Cache, settings system.Settings) *Executor {
	return &Executor{
		log:      log,
		registry: registry,
		ws:       ws,
		jars:     jars,
		settings: settings,
	}
}

// Build replays the records of n. Systems already in storage are restored
// instead, reporting reused=true.
func (e *Executor) Build(ctx context.Context, n *Node) (reused bool, err error) {
	log := e.log.WithValues("system", n.Name)
	if e.ws.Stored(n.Name) {
		log.Info("restoring stored system")
		if _, err := e.ws.Restore(ctx, n.Name); err != nil {
			return false, err
		}
		return true, nil
	}

	log.Info("building system", "base", n.Base)
	if _, err := e.ws.Create(ctx, n.Name); err != nil {
		return false, err
	}
	sysCtx := system.New(e.log, e.registry, e.ws, e.jars, e.settings, n.Name)
	for _, rec := range n.Records {
		log.V(2).Info("executing", "command", rec.Command, "location", rec.Location.String())
		if err := sysCtx.ExecuteRecord(ctx, rec); err != nil {
			return false, err
		}
	}
	if err := e.ws.Store(ctx, n.Name); err != nil {
		return false, fmt.Errorf("storing %s: %w", n.Name, err)
	}
	log.Info("system stored")
	return false, nil
}
