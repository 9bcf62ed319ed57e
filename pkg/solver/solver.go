package solver

import (
	"context"
	"time"
)

// Status reports what a solve attempt established about the model.
type Status int

const (
	// StatusUnknown means the search ran out of budget before finding any
	// solution or proving there is none.
	StatusUnknown Status = iota
	// StatusOptimal means the returned solution is proven best.
	StatusOptimal
	// StatusFeasible means a solution was found but the budget expired
	// before optimality could be proven.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// DefaultTimeBudget bounds the search when Options leaves TimeBudget unset.
const DefaultTimeBudget = 30 * time.Second

// Options tunes a single solve call.
type Options struct {
	// TimeBudget caps wall-clock search time. Zero means DefaultTimeBudget.
	TimeBudget time.Duration
}

// Result carries the outcome of a solve call. Values is indexed by VarID and
// is only populated for StatusOptimal and StatusFeasible.
type Result struct {
	Status    Status
	Values    []int64
	Objective int64
	Nodes     int64
	Elapsed   time.Duration
}

// Solver finds variable assignments for a Model. Implementations must honor
// the time budget and context cancellation rather than block indefinitely.
type Solver interface {
	Solve(ctx context.Context, m *Model, opts Options) (Result, error)
}
