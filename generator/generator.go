package generator

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/preflight"
	"github.com/thepwagner/clrm/report"
	"github.com/thepwagner/clrm/snapshot"
	"github.com/thepwagner/clrm/system"
	"github.com/thepwagner/clrm/workspace"
)

// Generator builds every system of a forest, parents first.
type Generator struct {
	log          logr.Logger
	registry     *command.Registry
	forest       *Forest
	executor     *Executor
	reporter     report.Reporter
	ignoreErrors bool
	preflight    func(log logr.Logger, binaries ...string) error
}

type Option func(*Generator)

// WithIgnoreErrors keeps going after a failed system, skipping its descendants.
func WithIgnoreErrors(ignore bool) Option {
	return func(g *Generator) { g.ignoreErrors = ignore }
}

func WithReporter(r report.Reporter) Option {
	return func(g *Generator) { g.reporter = r }
}

// WithoutPreflight disables the host tool check.
func WithoutPreflight() Option {
	return func(g *Generator) {
		g.preflight = func(logr.Logger, ...string) error { return nil }
	}
}

func New(log logr.Logger, registry *command.Registry, ws *workspace.Workspace, jars *snapshot.Cache, settings system.Settings, opts ...Option) *Generator {
	g := &Generator{
		log:       log,
		registry:  registry,
		forest:    NewForest(log, registry, settings.SystemsDir),
		executor:  NewExecutor(log, registry, ws, jars, settings),
		reporter:  report.NewLogReporter(log),
		preflight: preflight.Check,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Forest() *Forest { return g.forest }

// Add parses the named systems and their bases into the forest.
func (g *Generator) Add(systems ...string) error {
	for _, s := range systems {
		if _, err := g.forest.AddSystem(s); err != nil {
			return err
		}
	}
	return nil
}

// Summary collects the results of one Generate call.
type Summary struct {
	RunID   string
	Results []*report.Result
}

func (s *Summary) Count(status report.Status) int {
	var n int
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Generate checks the host tools, then builds the forest pre-order. The first
// failure aborts the run unless errors are ignored, in which case the failed
// system's descendants are skipped and the next sibling is attempted.
func (g *Generator) Generate(ctx context.Context) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	log := g.log.WithValues("run", sum.RunID)

	tools := g.registry.Tools(g.forest.CommandNames()...)
	if err := g.preflight(log, tools...); err != nil {
		return sum, err
	}
	log.Info("generating systems", "systems", g.forest.Len(), "tools", len(tools))

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := g.build(ctx, sum.RunID, n)
		sum.Results = append(sum.Results, res)
		if err != nil {
			if !g.ignoreErrors {
				return err
			}
			log.Error(err, "system failed, skipping its descendants", "system", n.Name)
			g.skip(ctx, sum, n.Children)
			return nil
		}
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range g.forest.Roots() {
		if err := visit(root); err != nil {
			return sum, err
		}
	}

	log.Info("generation finished",
		"built", sum.Count(report.StatusBuilt),
		"reused", sum.Count(report.StatusReused),
		"failed", sum.Count(report.StatusFailed),
		"skipped", sum.Count(report.StatusSkipped))
	return sum, nil
}

func (g *Generator) build(ctx context.Context, runID string, n *Node) (*report.Result, error) {
	res := &report.Result{RunID: runID, System: n.Name, Started: time.Now()}
	reused, err := g.executor.Build(ctx, n)
	res.Duration = time.Since(res.Started)
	switch {
	case err != nil:
		res.Status = report.StatusFailed
		res.Error = errdefs.Format(err)
	case reused:
		res.Status = report.StatusReused
	default:
		res.Status = report.StatusBuilt
	}
	g.report(ctx, res)
	return res, err
}

func (g *Generator) skip(ctx context.Context, sum *Summary, nodes []*Node) {
	for _, n := range nodes {
		res := &report.Result{RunID: sum.RunID, System: n.Name, Status: report.StatusSkipped, Started: time.Now()}
		sum.Results = append(sum.Results, res)
		g.report(ctx, res)
		g.skip(ctx, sum, n.Children)
	}
}

func (g *Generator) report(ctx context.Context, res *report.Result) {
	if err := g.reporter.Report(ctx, res); err != nil {
		g.log.Error(err, "reporting result", "system", res.System)
	}
}
