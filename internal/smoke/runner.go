package smoke

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/faultmaven/faultmaven-smoke/internal/models"
	"github.com/faultmaven/faultmaven-smoke/internal/report"
)

// Runner executes the checks one after the other against a gateway.
type Runner struct {
	gw       Gateway
	reporter *report.Reporter
	rc       *models.RunContext
	skip     map[models.PhaseKey]bool
	phases   []phase
}

type RunnerOption func(*Runner)

// WithSkip leaves the given checks out of the run. They produce no result.
func WithSkip(skip map[models.PhaseKey]bool) RunnerOption {
	return func(r *Runner) {
		r.skip = skip
	}
}

func NewRunner(gw Gateway, reporter *report.Reporter, rc *models.RunContext, opts ...RunnerOption) *Runner {
	r := &Runner{
		gw:       gw,
		reporter: reporter,
		rc:       rc,
		skip:     map[models.PhaseKey]bool{},
		phases:   phases,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every check in order and returns true iff all recorded
// results passed. A canceled context aborts the remaining checks and an
// unexpected error in a check aborts the run; both return false.
func (r *Runner) Run(ctx context.Context) bool {
	log := zap.S().Named("runner")

	r.reporter.Banner(r.rc.APIURL, r.rc.RunID)

	group := ""
	for _, p := range r.phases {
		if r.skip[p.key] {
			log.Debugw("check skipped by configuration", "check", p.name)
			continue
		}
		if ctx.Err() != nil {
			return r.interrupted()
		}

		if p.group != group {
			r.reporter.Section(p.group)
			group = p.group
		}

		result, err := r.execute(ctx, p)
		if err != nil {
			log.Errorw("check aborted the run", "check", p.name, "error", err)
			r.reporter.Error(fmt.Sprintf("Unexpected error: %v", err))
			return false
		}
		if ctx.Err() != nil {
			return r.interrupted()
		}

		log.Infow("check done", "check", p.name, "passed", result.Passed, "message", result.Message, "duration", result.Duration)
		r.reporter.Add(result)
	}

	return r.reporter.Summary()
}

// execute runs a single check. A panic inside the check is returned as an
// error instead of crashing the run.
func (r *Runner) execute(ctx context.Context, p phase) (result models.TestResult, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check %q panicked: %v", p.name, rec)
		}
	}()

	result = p.run(ctx, r.gw, r.rc)
	return result.WithDuration(time.Since(start)), nil
}

func (r *Runner) interrupted() bool {
	zap.S().Named("runner").Warn("run interrupted")
	r.reporter.Warn("Test interrupted by user")
	return false
}

// Results returns the results recorded so far.
func (r *Runner) Results() []models.TestResult {
	return r.reporter.Results()
}
