package planner

import (
	"fmt"
	"strings"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

// ConsistencyError reports a finished plan that violates a hard constraint.
// It always indicates a bug in the pipeline, never a data problem, so
// callers must treat it as fatal rather than return the plan.
type ConsistencyError struct {
	Violations []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("plan failed consistency check: %s", strings.Join(e.Violations, "; "))
}

// ValidateAssignments re-derives every hard constraint from the raw inputs
// and checks the finished plan against them. It deliberately shares no state
// with the model builder: overlaps are recomputed from task windows and
// totals are counted from scratch.
func ValidateAssignments(tasks []models.Task, participants []models.Participant, assignments []models.Assignment, cfg config.Config) error {
	var violations []string

	taskByID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}
	participantByName := make(map[string]models.Participant, len(participants))
	for _, p := range participants {
		participantByName[p.Name()] = p
	}

	coverage := make(map[string]int, len(tasks))
	taskIDsFor := make(map[string][]string, len(participants))
	seenPair := make(map[string]bool, len(assignments))

	for _, a := range assignments {
		t, knownTask := taskByID[a.TaskID]
		p, knownParticipant := participantByName[a.Participant]
		if !knownTask {
			violations = append(violations, fmt.Sprintf("assignment references unknown task %s", a.TaskID))
			continue
		}
		if !knownParticipant {
			violations = append(violations, fmt.Sprintf("assignment references unknown participant %s", a.Participant))
			continue
		}

		pair := a.Participant + "\x00" + a.TaskID
		if seenPair[pair] {
			violations = append(violations, fmt.Sprintf("duplicate assignment of %s to task %s", a.Participant, a.TaskID))
			continue
		}
		seenPair[pair] = true

		if p.Excludes(t.ID) {
			violations = append(violations, fmt.Sprintf("participant %s was assigned excluded task %s", a.Participant, t.ID))
		}

		coverage[t.ID]++
		taskIDsFor[a.Participant] = append(taskIDsFor[a.Participant], t.ID)
	}

	for _, t := range tasks {
		n := coverage[t.ID]
		if n < t.MinPeople || n > t.MaxPeople {
			violations = append(violations, fmt.Sprintf(
				"task %s has %d assignee(s), outside [%d,%d]", t.ID, n, t.MinPeople, t.MaxPeople))
		}
	}

	for _, p := range participants {
		ids := taskIDsFor[p.Name()]

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := taskByID[ids[i]], taskByID[ids[j]]
				if a.Start.Before(b.End) && b.Start.Before(a.End) {
					violations = append(violations, fmt.Sprintf(
						"participant %s has overlapping tasks %s and %s", p.Name(), a.ID, b.ID))
				}
			}
		}

		if p.Role == models.RoleSNU {
			var minutes int
			for _, id := range ids {
				minutes += taskByID[id].Minutes()
			}
			if minutes > cfg.SNUCapMinutes() {
				violations = append(violations, fmt.Sprintf(
					"SNU participant %s has %d minutes assigned, over the %d minute cap",
					p.Name(), minutes, cfg.SNUCapMinutes()))
			}
		}

		if len(ids) < cfg.Rules.MinTasksPerParticipant || len(ids) > cfg.Rules.MaxTasksPerParticipant {
			violations = append(violations, fmt.Sprintf(
				"participant %s has %d task(s), outside [%d,%d]",
				p.Name(), len(ids), cfg.Rules.MinTasksPerParticipant, cfg.Rules.MaxTasksPerParticipant))
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &ConsistencyError{Violations: violations}
}
