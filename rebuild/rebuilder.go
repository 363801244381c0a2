package rebuild

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// BuildFunc rebuilds the given systems.
type BuildFunc func(ctx context.Context, systems []string) error

// Rebuilder periodically rebuilds systems, discarding their stored snapshots first.
type Rebuilder struct {
	log     logr.Logger
	build   BuildFunc
	discard func(ctx context.Context, system string) error
	cron    *cron.Cron

	mu      sync.Mutex
	running map[cron.EntryID]struct{}
}

func NewRebuilder(log logr.Logger, discard func(ctx context.Context, system string) error, build BuildFunc) *Rebuilder {
	return &Rebuilder{
		log:     log,
		build:   build,
		discard: discard,
		cron:    cron.New(),
		running: map[cron.EntryID]struct{}{},
	}
}

// Cron schedules a rebuild of systems. Runs of the same entry never overlap.
func (r *Rebuilder) Cron(schedule string, systems ...string) (cron.EntryID, error) {
	var id cron.EntryID
	id, err := r.cron.AddFunc(schedule, func() {
		if !r.begin(id) {
			r.log.Info("rebuild still running, skipping", "job", id)
			return
		}
		defer r.end(id)
		if err := r.Rebuild(context.Background(), systems...); err != nil {
			r.log.Error(err, "failed to rebuild", "systems", systems)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("scheduling %q: %w", schedule, err)
	}
	return id, nil
}

func (r *Rebuilder) begin(id cron.EntryID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.running[id]; ok {
		return false
	}
	r.running[id] = struct{}{}
	return true
}

func (r *Rebuilder) end(id cron.EntryID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func (r *Rebuilder) Entries() []cron.Entry {
	return r.cron.Entries()
}

func (r *Rebuilder) Start() {
	r.log.Info("starting rebuilder", "jobs", len(r.cron.Entries()))
	r.cron.Start()
	for _, e := range r.cron.Entries() {
		r.log.Info("job scheduled", "job", e.ID, "next", e.Next)
	}
}

// Stop halts the scheduler and waits for running rebuilds.
func (r *Rebuilder) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Rebuilder) Rebuild(ctx context.Context, systems ...string) error {
	for _, s := range systems {
		if err := r.discard(ctx, s); err != nil {
			return fmt.Errorf("discarding %s: %w", s, err)
		}
	}
	r.log.Info("rebuilding", "systems", systems)
	if err := r.build(ctx, systems); err != nil {
		return err
	}
	r.log.Info("rebuild complete", "systems", systems)
	return nil
}
