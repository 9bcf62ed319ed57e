package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
	"github.com/mhoangvslev/recordara-planner/pkg/solver"
)

var (
	// ErrNoTasks rejects a run with an empty task list.
	ErrNoTasks = errors.New("no tasks to plan")
	// ErrNoParticipants rejects a run with nobody to assign.
	ErrNoParticipants = errors.New("no participants to plan for")
	// ErrBudgetExhausted means the solver ran out of time twice without
	// finding any solution or proving there is none.
	ErrBudgetExhausted = errors.New("search budget exhausted before any solution was found")
)

// Result is the outcome of one planning run. Proven is false when the
// budget ran out before optimality was shown, so the plan is valid but
// not proven optimal.
type Result struct {
	RunID       string              `json:"run_id"`
	Status      string              `json:"status"`
	Proven      bool                `json:"proven"`
	Objective   int64               `json:"objective"`
	Assignments []models.Assignment `json:"assignments"`
	Summary     Summary             `json:"summary"`
	Warnings    []string            `json:"warnings,omitempty"`
	SolveMillis int64               `json:"solve_ms"`
}

// Planner wires the pipeline together: conflict analysis, eligibility,
// model build, solve, extraction and the final independent validation.
type Planner struct {
	solver solver.Solver
	cfg    config.Config
	logger *zap.Logger
}

// New returns a Planner. A nil solver falls back to the built-in
// branch-and-bound backend and a nil logger to a no-op one.
func New(s solver.Solver, cfg config.Config, logger *zap.Logger) *Planner {
	if s == nil {
		s = solver.NewBranchAndBound()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{solver: s, cfg: cfg, logger: logger}
}

// Config exposes the planning configuration the service was built with.
func (p *Planner) Config() config.Config {
	return p.cfg
}

// Plan runs the whole pipeline for one input set. Infeasible inputs come
// back as *InfeasibilityError, broken output as *ConsistencyError.
func (p *Planner) Plan(ctx context.Context, tasks []models.Task, participants []models.Participant) (*Result, error) {
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))

	if err := checkInputs(tasks, participants); err != nil {
		return nil, err
	}

	log.Info("planning run started",
		zap.Int("tasks", len(tasks)),
		zap.Int("participants", len(participants)))

	conflicts := BuildConflictMatrix(tasks)
	elig := BuildEligibility(participants, tasks)

	snu := 0
	for pi := range participants {
		if participants[pi].Role == models.RoleSNU {
			snu++
		}
	}
	log.Debug("inputs analyzed",
		zap.Int("conflict_pairs", len(conflicts.Pairs())),
		zap.Int("snu_participants", snu))
	for ti := range tasks {
		log.Debug("eligible pool",
			zap.String("task", tasks[ti].ID),
			zap.Int("size", len(elig.PoolFor(ti))))
	}

	if ierr := precheck(tasks, participants, elig, p.cfg); ierr != nil {
		log.Warn("structural infeasibility detected", zap.Strings("details", ierr.Details))
		return nil, ierr
	}

	pm := buildPlanModel(tasks, participants, elig, conflicts, p.cfg)
	warnings := addObjectiveTerms(pm, tasks, participants, elig, p.cfg)
	for _, w := range warnings {
		log.Warn("objective warning", zap.String("detail", w))
	}

	budget := p.cfg.TimeBudget()
	res, err := p.solver.Solve(ctx, pm.model, solver.Options{TimeBudget: budget})
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	log.Info("solver finished",
		zap.String("status", res.Status.String()),
		zap.Int64("nodes", res.Nodes),
		zap.Duration("elapsed", res.Elapsed))

	elapsed := res.Elapsed
	if res.Status == solver.StatusUnknown {
		// One retry with a doubled budget before giving up.
		budget *= 2
		log.Warn("no solution within budget, retrying once", zap.Duration("budget", budget))
		res, err = p.solver.Solve(ctx, pm.model, solver.Options{TimeBudget: budget})
		if err != nil {
			return nil, fmt.Errorf("solve retry: %w", err)
		}
		elapsed += res.Elapsed
		log.Info("solver retry finished",
			zap.String("status", res.Status.String()),
			zap.Int64("nodes", res.Nodes),
			zap.Duration("elapsed", res.Elapsed))
	}

	switch res.Status {
	case solver.StatusInfeasible:
		ierr := &InfeasibilityError{Details: diagnose(tasks, participants, elig, conflicts, p.cfg)}
		log.Warn("model proven infeasible", zap.Strings("details", ierr.Details))
		return nil, ierr
	case solver.StatusUnknown:
		return nil, fmt.Errorf("%w (budget %s)", ErrBudgetExhausted, budget)
	}

	assignments, summary := extractAssignments(tasks, participants, pm, res.Values, p.cfg)

	if err := ValidateAssignments(tasks, participants, assignments, p.cfg); err != nil {
		log.Error("extracted plan failed validation", zap.Error(err))
		return nil, err
	}

	log.Info("planning run finished",
		zap.String("status", res.Status.String()),
		zap.Int64("objective", res.Objective),
		zap.Int("assignments", len(assignments)),
		zap.Float64("fairness", summary.FairnessScore))

	return &Result{
		RunID:       runID,
		Status:      res.Status.String(),
		Proven:      res.Status == solver.StatusOptimal,
		Objective:   res.Objective,
		Assignments: assignments,
		Summary:     summary,
		Warnings:    warnings,
		SolveMillis: elapsed.Milliseconds(),
	}, nil
}

// Inspect runs the input checks and structural prechecks without invoking
// the solver, for callers that only want a verdict on the data.
func (p *Planner) Inspect(tasks []models.Task, participants []models.Participant) error {
	if err := checkInputs(tasks, participants); err != nil {
		return err
	}
	elig := BuildEligibility(participants, tasks)
	if ierr := precheck(tasks, participants, elig, p.cfg); ierr != nil {
		return ierr
	}
	return nil
}

// checkInputs rejects empty inputs and duplicate identities before any
// modelling happens.
func checkInputs(tasks []models.Task, participants []models.Participant) error {
	if len(tasks) == 0 {
		return ErrNoTasks
	}
	if len(participants) == 0 {
		return ErrNoParticipants
	}

	seenTask := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seenTask[t.ID] {
			return &models.ParseError{Kind: "task", ID: t.ID, Field: "task_id", Value: t.ID, Err: errors.New("duplicate id")}
		}
		seenTask[t.ID] = true
	}

	seenName := make(map[string]bool, len(participants))
	for _, p := range participants {
		name := p.Name()
		if seenName[name] {
			return &models.ParseError{Kind: "participant", ID: name, Field: "name", Value: name, Err: errors.New("duplicate name")}
		}
		seenName[name] = true
	}
	return nil
}
