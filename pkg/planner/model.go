package planner

import (
	"fmt"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
	"github.com/mhoangvslev/recordara-planner/pkg/solver"
)

// varRef ties one decision variable back to its (participant, task) pair.
type varRef struct {
	p, t int
	v    solver.VarID
}

// planModel is the solver model plus the bookkeeping needed to read a
// solution back out. Variables exist only for eligible pairs.
type planModel struct {
	model  *solver.Model
	vars   []varRef
	byPair map[[2]int]solver.VarID
}

func (pm *planModel) varFor(p, t int) (solver.VarID, bool) {
	v, ok := pm.byPair[[2]int{p, t}]
	return v, ok
}

// buildPlanModel encodes the hard constraints: per-task coverage ranges,
// per-participant pairwise time conflicts, the SNU weighted hour cap and the
// per-participant task-count range.
func buildPlanModel(tasks []models.Task, participants []models.Participant, elig *Eligibility, conflicts *ConflictMatrix, cfg config.Config) *planModel {
	pm := &planModel{
		model:  solver.NewModel(),
		byPair: make(map[[2]int]solver.VarID),
	}

	for pi := range participants {
		for _, ti := range elig.TasksFor(pi) {
			v := pm.model.NewBool(fmt.Sprintf("assign_%d_%d", pi, ti))
			pm.vars = append(pm.vars, varRef{p: pi, t: ti, v: v})
			pm.byPair[[2]int{pi, ti}] = v
		}
	}

	for ti := range tasks {
		pool := elig.PoolFor(ti)
		terms := make([]solver.Term, 0, len(pool))
		for _, pi := range pool {
			v, _ := pm.varFor(pi, ti)
			terms = append(terms, solver.Term{Var: v, Coeff: 1})
		}
		pm.model.AddRange(
			fmt.Sprintf("cover_%s", tasks[ti].ID),
			terms,
			int64(tasks[ti].MinPeople),
			int64(tasks[ti].MaxPeople),
		)
	}

	for pi := range participants {
		for _, pair := range conflicts.Pairs() {
			v1, ok1 := pm.varFor(pi, pair[0])
			v2, ok2 := pm.varFor(pi, pair[1])
			if ok1 && ok2 {
				pm.model.AddAtMostOne(fmt.Sprintf("conflict_%d_%d_%d", pi, pair[0], pair[1]), v1, v2)
			}
		}
	}

	capMinutes := int64(cfg.SNUCapMinutes())
	for pi := range participants {
		if participants[pi].Role != models.RoleSNU {
			continue
		}
		eligible := elig.TasksFor(pi)
		terms := make([]solver.Term, 0, len(eligible))
		for _, ti := range eligible {
			v, _ := pm.varFor(pi, ti)
			terms = append(terms, solver.Term{Var: v, Coeff: int64(tasks[ti].Minutes())})
		}
		pm.model.AddRange(fmt.Sprintf("snu_cap_%d", pi), terms, 0, capMinutes)
	}

	for pi := range participants {
		eligible := elig.TasksFor(pi)
		terms := make([]solver.Term, 0, len(eligible))
		for _, ti := range eligible {
			v, _ := pm.varFor(pi, ti)
			terms = append(terms, solver.Term{Var: v, Coeff: 1})
		}
		pm.model.AddRange(
			fmt.Sprintf("task_count_%d", pi),
			terms,
			int64(cfg.Rules.MinTasksPerParticipant),
			int64(cfg.Rules.MaxTasksPerParticipant),
		)
	}

	return pm
}
