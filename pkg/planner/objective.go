package planner

import (
	"fmt"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
	"github.com/mhoangvslev/recordara-planner/pkg/solver"
)

// addObjectiveTerms composes the minimized objective from two soft goals:
// workload spread and critical-task staffing. It returns warnings for
// configured critical task ids that match nothing in this run.
//
// Workload spread uses scaled deviations to stay integral: with n
// participants and T total assignments, participant p's deviation is
// n*count(p) - T, split into a non-negative excess/deficit slack pair whose
// sum is minimized. Comparing n*count(p) against T avoids dividing T by n.
func addObjectiveTerms(pm *planModel, tasks []models.Task, participants []models.Participant, elig *Eligibility, cfg config.Config) []string {
	var warnings []string

	if w := int64(cfg.Objective.WorkloadWeight); w > 0 && len(participants) > 0 {
		n := int64(len(participants))
		slackHigh := n * int64(cfg.Rules.MaxTasksPerParticipant)

		for pi := range participants {
			terms := make(map[solver.VarID]int64, len(pm.vars))
			for _, vr := range pm.vars {
				terms[vr.v] = -1
			}
			for _, ti := range elig.TasksFor(pi) {
				v, _ := pm.varFor(pi, ti)
				terms[v] += n
			}

			over := pm.model.NewInt(fmt.Sprintf("dev_over_%d", pi), 0, slackHigh)
			under := pm.model.NewInt(fmt.Sprintf("dev_under_%d", pi), 0, slackHigh)

			linear := make([]solver.Term, 0, len(pm.vars)+2)
			for _, vr := range pm.vars {
				if c := terms[vr.v]; c != 0 {
					linear = append(linear, solver.Term{Var: vr.v, Coeff: c})
				}
			}
			linear = append(linear,
				solver.Term{Var: over, Coeff: -1},
				solver.Term{Var: under, Coeff: 1},
			)
			pm.model.AddEquality(fmt.Sprintf("deviation_%d", pi), linear, 0)

			pm.model.AddObjectiveTerm(over, w)
			pm.model.AddObjectiveTerm(under, w)
		}
	}

	if w := int64(cfg.Objective.PriorityWeight); w > 0 && len(cfg.Objective.CriticalTaskIDs) > 0 {
		byID := make(map[string]int, len(tasks))
		for ti := range tasks {
			byID[tasks[ti].ID] = ti
		}

		for _, id := range cfg.Objective.CriticalTaskIDs {
			ti, ok := byID[id]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("critical task %q not present in this run", id))
				continue
			}

			slack := pm.model.NewBool(fmt.Sprintf("crit_%s", id))
			terms := []solver.Term{{Var: slack, Coeff: 1}}
			for _, pi := range elig.PoolFor(ti) {
				if participants[pi].Role != models.RolePermanent {
					continue
				}
				v, _ := pm.varFor(pi, ti)
				terms = append(terms, solver.Term{Var: v, Coeff: 1})
			}
			// Slack pays the penalty whenever no permanent member covers
			// the task; with no permanent candidates it is a fixed cost,
			// never an infeasibility.
			pm.model.AddRange(fmt.Sprintf("crit_cover_%s", id), terms, 1, int64(len(terms)))
			pm.model.AddObjectiveTerm(slack, w)
		}
	}

	return warnings
}
