// Package ledger tracks the per-stage status, timing, and cost of a
// pipeline run. Transitions are forward-only: pending -> active ->
// done|failed, a stage cannot become active while an earlier stage is not
// done, and at most one stage is active at a time.
package ledger

import "time"

// Status is the lifecycle state of a single stage.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage is one named step of a run. Duration is only meaningful once the
// stage has completed; CostUSD is nil until the external call reports one.
type Stage struct {
	Name     string
	Status   Status
	Duration time.Duration
	Timed    bool
	CostUSD  *float64
}

// InvalidTransitionError reports a stage transition that would violate the
// ordering invariants.
type InvalidTransitionError struct {
	Stage  string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return "invalid transition for stage " + e.Stage + ": " + e.Reason
}

// Ledger holds the ordered stage table for one run.
type Ledger struct {
	stages   []Stage
	observer func(stages []Stage)
}

// New creates a ledger with all stages pending.
func New(names ...string) *Ledger {
	l := &Ledger{}
	l.Reset(names...)
	return l
}

// SetObserver registers a callback fired after every transition with a copy
// of the full stage table, so a caller can re-render progress per change.
func (l *Ledger) SetObserver(fn func(stages []Stage)) {
	l.observer = fn
}

// Reset replaces the stage table, returning every stage to pending with no
// duration or cost. Called at the start of each run.
func (l *Ledger) Reset(names ...string) {
	l.stages = make([]Stage, len(names))
	for i, name := range names {
		l.stages[i] = Stage{Name: name, Status: StatusPending}
	}
	l.notify()
}

// MarkActive transitions a pending stage to active. It fails if the stage
// is unknown, if any earlier stage is not done, or if another stage is
// already active.
func (l *Ledger) MarkActive(name string) error {
	idx := l.index(name)
	if idx < 0 {
		return &InvalidTransitionError{Stage: name, Reason: "unknown stage"}
	}
	for i, stage := range l.stages {
		if stage.Status == StatusActive {
			return &InvalidTransitionError{Stage: name, Reason: "stage " + stage.Name + " is already active"}
		}
		if i < idx && stage.Status != StatusDone {
			return &InvalidTransitionError{Stage: name, Reason: "stage " + stage.Name + " is not done"}
		}
	}
	if l.stages[idx].Status != StatusPending {
		return &InvalidTransitionError{Stage: name, Reason: "stage is " + l.stages[idx].Status.String() + ", not pending"}
	}
	l.stages[idx].Status = StatusActive
	l.notify()
	return nil
}

// MarkDone transitions the active stage to done, recording its duration and
// any cost the external call reported.
func (l *Ledger) MarkDone(name string, elapsed time.Duration, costUSD *float64) error {
	idx, err := l.activeIndex(name)
	if err != nil {
		return err
	}
	l.stages[idx].Status = StatusDone
	l.stages[idx].Duration = elapsed
	l.stages[idx].Timed = true
	l.stages[idx].CostUSD = cloneCost(costUSD)
	l.notify()
	return nil
}

// MarkFailed transitions the active stage to failed. The duration is
// optional: pass nil when no meaningful elapsed time was measured.
func (l *Ledger) MarkFailed(name string, elapsed *time.Duration) error {
	idx, err := l.activeIndex(name)
	if err != nil {
		return err
	}
	l.stages[idx].Status = StatusFailed
	if elapsed != nil {
		l.stages[idx].Duration = *elapsed
		l.stages[idx].Timed = true
	}
	l.notify()
	return nil
}

// Stages returns a copy of the stage table.
func (l *Ledger) Stages() []Stage {
	return cloneStages(l.stages)
}

// Stage returns the named stage.
func (l *Ledger) Stage(name string) (Stage, bool) {
	idx := l.index(name)
	if idx < 0 {
		return Stage{}, false
	}
	stage := l.stages[idx]
	stage.CostUSD = cloneCost(stage.CostUSD)
	return stage, true
}

// Active returns the name of the active stage, if any.
func (l *Ledger) Active() (string, bool) {
	for _, stage := range l.stages {
		if stage.Status == StatusActive {
			return stage.Name, true
		}
	}
	return "", false
}

func (l *Ledger) activeIndex(name string) (int, error) {
	idx := l.index(name)
	if idx < 0 {
		return -1, &InvalidTransitionError{Stage: name, Reason: "unknown stage"}
	}
	if l.stages[idx].Status != StatusActive {
		return -1, &InvalidTransitionError{Stage: name, Reason: "stage is " + l.stages[idx].Status.String() + ", not active"}
	}
	return idx, nil
}

func (l *Ledger) index(name string) int {
	for i, stage := range l.stages {
		if stage.Name == name {
			return i
		}
	}
	return -1
}

func (l *Ledger) notify() {
	if l.observer != nil {
		l.observer(cloneStages(l.stages))
	}
}

func cloneStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	for i := range out {
		out[i].CostUSD = cloneCost(out[i].CostUSD)
	}
	return out
}

func cloneCost(cost *float64) *float64 {
	if cost == nil {
		return nil
	}
	v := *cost
	return &v
}
