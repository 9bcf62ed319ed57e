package planner

import (
	"sort"

	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

// Eligibility maps participants to the tasks they may take and tasks to the
// participants who may take them. An excluded pair is simply absent; the
// model builder never creates a variable for it.
type Eligibility struct {
	tasksFor [][]int // participant index -> ascending task indices
	poolFor  [][]int // task index -> ascending participant indices
}

// BuildEligibility applies each participant's exclusion list to the task set.
func BuildEligibility(participants []models.Participant, tasks []models.Task) *Eligibility {
	e := &Eligibility{
		tasksFor: make([][]int, len(participants)),
		poolFor:  make([][]int, len(tasks)),
	}
	for pi := range participants {
		for ti := range tasks {
			if participants[pi].Excludes(tasks[ti].ID) {
				continue
			}
			e.tasksFor[pi] = append(e.tasksFor[pi], ti)
			e.poolFor[ti] = append(e.poolFor[ti], pi)
		}
	}
	return e
}

// TasksFor returns the task indices participant p may take.
func (e *Eligibility) TasksFor(p int) []int {
	return e.tasksFor[p]
}

// PoolFor returns the participant indices eligible for task t.
func (e *Eligibility) PoolFor(t int) []int {
	return e.poolFor[t]
}

// IsEligible reports whether the (participant, task) pair survived exclusion.
func (e *Eligibility) IsEligible(p, t int) bool {
	ts := e.tasksFor[p]
	i := sort.SearchInts(ts, t)
	return i < len(ts) && ts[i] == t
}
