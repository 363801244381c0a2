package report

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

type Status string

const (
	StatusBuilt   Status = "built"
	StatusReused  Status = "reused"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result describes the outcome of one system in a generator run.
type Result struct {
	RunID    string        `json:"run_id"`
	System   string        `json:"system"`
	Status   Status        `json:"status"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type Reporter interface {
	Report(ctx context.Context, res *Result) error
}

type LogReporter struct {
	log logr.Logger
}

var _ Reporter = (*LogReporter)(nil)

func NewLogReporter(log logr.Logger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) Report(_ context.Context, res *Result) error {
	kv := []interface{}{"run", res.RunID, "system", res.System, "status", res.Status, "duration", res.Duration}
	if res.Error != "" {
		kv = append(kv, "error", res.Error)
	}
	r.log.Info("system finished", kv...)
	return nil
}

// Multi fans a result out to every reporter. Failures are logged, not returned.
type Multi struct {
	log       logr.Logger
	reporters []Reporter
}

var _ Reporter = (*Multi)(nil)

func NewMulti(log logr.Logger, reporters ...Reporter) *Multi {
	return &Multi{log: log, reporters: reporters}
}

func (m *Multi) Report(ctx context.Context, res *Result) error {
	for _, r := range m.reporters {
		if err := r.Report(ctx, res); err != nil {
			m.log.Error(err, "reporting result", "system", res.System)
		}
	}
	return nil
}
