package zfs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// StepResult is the per-step outcome. Warnings carry non-fatal findings such
// as a config-file anchor that was not found.
type StepResult struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	Err        string     `json:"err,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (r *StepResult) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Result is the pipeline outcome. Steps retains every step's status, so a
// caller can see how far provisioning got before deciding on cleanup; no
// rollback is attempted here.
type Result struct {
	OK         bool         `json:"ok"`
	FailedStep string       `json:"failedStep,omitempty"`
	Error      string       `json:"error,omitempty"`
	Steps      []StepResult `json:"steps"`
}

type step struct {
	id   string
	name string
	run  func(ctx context.Context, res *StepResult) error
}

// Pipeline runs the fixed step list in order, aborting on the first failure.
type Pipeline struct {
	steps  []step
	state  State
	log    zerolog.Logger
	onStep func(res StepResult)
}

func (p *Pipeline) State() State { return p.state }

// StepNames lists the step display names in execution order.
func (p *Pipeline) StepNames() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.name
	}
	return out
}

// OnStep registers an observer invoked when a step starts (StatusRunning)
// and when it finishes (StatusOK or StatusError).
func (p *Pipeline) OnStep(fn func(res StepResult)) {
	p.onStep = fn
}

func (p *Pipeline) notify(res StepResult) {
	if p.onStep != nil {
		p.onStep(res)
	}
}

// Run executes the steps sequentially. After a step fails, no later step is
// invoked and the result identifies the failing step.
func (p *Pipeline) Run(ctx context.Context) Result {
	p.state = StateRunning
	result := Result{Steps: make([]StepResult, len(p.steps))}
	for i, s := range p.steps {
		result.Steps[i] = StepResult{ID: s.id, Name: s.name, Status: StatusPending}
	}

	for i, s := range p.steps {
		res := &result.Steps[i]
		now := time.Now()
		res.Status = StatusRunning
		res.StartedAt = &now
		p.log.Info().Str("step", s.id).Msg("step started")
		p.notify(*res)

		err := s.run(ctx, res)
		done := time.Now()
		res.FinishedAt = &done
		for _, w := range res.Warnings {
			p.log.Warn().Str("step", s.id).Msg(w)
		}
		if err != nil {
			res.Status = StatusError
			res.Err = err.Error()
			p.log.Error().Str("step", s.id).Err(err).Msg("step failed")
			p.notify(*res)

			result.FailedStep = s.id
			result.Error = fmt.Sprintf("%s: %s", s.id, err)
			p.state = StateFailed
			return result
		}
		res.Status = StatusOK
		p.log.Info().Str("step", s.id).Msg("step finished")
		p.notify(*res)
	}

	result.OK = true
	p.state = StateSucceeded
	return result
}
