package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

// InfeasibilityError explains why no valid plan exists for the input.
// Structural errors are caught before the solver runs; the rest carry
// likely-cause hints derived after the solver proved infeasibility.
type InfeasibilityError struct {
	Structural bool
	Details    []string
}

func (e *InfeasibilityError) Error() string {
	head := "no feasible plan"
	if e.Structural {
		head = "structurally infeasible input"
	}
	if len(e.Details) == 0 {
		return head
	}
	return head + ": " + strings.Join(e.Details, "; ")
}

// precheck finds contradictions cheap enough to detect without a solver:
// short eligible pools, unreachable task-count minimums, SNU minimums that
// bust the hour cap, and headcount demand beyond participant supply, both
// globally and instant by instant.
func precheck(tasks []models.Task, participants []models.Participant, elig *Eligibility, cfg config.Config) *InfeasibilityError {
	var details []string

	for ti := range tasks {
		if pool := len(elig.PoolFor(ti)); pool < tasks[ti].MinPeople {
			details = append(details, fmt.Sprintf(
				"task %s needs %d people but only %d are eligible",
				tasks[ti].ID, tasks[ti].MinPeople, pool))
		}
	}

	minTasks := cfg.Rules.MinTasksPerParticipant
	if minTasks > 0 {
		for pi := range participants {
			eligible := elig.TasksFor(pi)
			if len(eligible) < minTasks {
				details = append(details, fmt.Sprintf(
					"participant %s is eligible for %d task(s) but must take at least %d",
					participants[pi].Name(), len(eligible), minTasks))
				continue
			}
			if participants[pi].Role != models.RoleSNU {
				continue
			}
			minutes := make([]int, 0, len(eligible))
			for _, ti := range eligible {
				minutes = append(minutes, tasks[ti].Minutes())
			}
			sort.Ints(minutes)
			var cheapest int
			for _, m := range minutes[:minTasks] {
				cheapest += m
			}
			if cheapest > cfg.SNUCapMinutes() {
				details = append(details, fmt.Sprintf(
					"SNU participant %s cannot take %d task(s) without exceeding the %.0fh cap",
					participants[pi].Name(), minTasks, cfg.Rules.SNUCapHours))
			}
		}
	}

	var demand int
	for ti := range tasks {
		demand += tasks[ti].MinPeople
	}
	capacity := len(participants) * cfg.Rules.MaxTasksPerParticipant
	if demand > capacity {
		details = append(details, fmt.Sprintf(
			"tasks require %d assignments in total but %d participants can cover at most %d",
			demand, len(participants), capacity))
	}

	details = append(details, peakDemandOverSupply(tasks, len(participants))...)

	if len(details) == 0 {
		return nil
	}
	return &InfeasibilityError{Structural: true, Details: details}
}

// peakDemandOverSupply sweeps each day's task windows and reports instants
// where the summed minimum headcount of simultaneously running tasks
// exceeds the number of participants.
func peakDemandOverSupply(tasks []models.Task, supply int) []string {
	type event struct {
		at    time.Time
		delta int
	}
	byDate := make(map[time.Time][]event)
	var dates []time.Time
	for _, t := range tasks {
		if t.MinPeople == 0 {
			continue
		}
		if _, seen := byDate[t.Date]; !seen {
			dates = append(dates, t.Date)
		}
		byDate[t.Date] = append(byDate[t.Date], event{t.Start, t.MinPeople}, event{t.End, -t.MinPeople})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var details []string
	for _, d := range dates {
		events := byDate[d]
		sort.Slice(events, func(i, j int) bool {
			if !events[i].at.Equal(events[j].at) {
				return events[i].at.Before(events[j].at)
			}
			return events[i].delta < events[j].delta // ends release before starts claim
		})

		running, worst := 0, 0
		var worstAt time.Time
		for _, ev := range events {
			running += ev.delta
			if running > worst {
				worst = running
				worstAt = ev.at
			}
		}
		if worst > supply {
			details = append(details, fmt.Sprintf(
				"at %s %s, overlapping tasks need %d people but only %d exist",
				d.Format(models.DateLayout), worstAt.Format("15H04"), worst, supply))
		}
	}
	return details
}

// diagnose ranks constraint families by tightness after the solver proved
// infeasibility that the prechecks could not pin down. The hints are
// heuristic and labelled as such.
func diagnose(tasks []models.Task, participants []models.Participant, elig *Eligibility, conflicts *ConflictMatrix, cfg config.Config) []string {
	var details []string

	tightCover := 0
	for ti := range tasks {
		if tasks[ti].MinPeople > 0 && len(elig.PoolFor(ti)) == tasks[ti].MinPeople {
			tightCover++
		}
	}
	if tightCover > 0 {
		details = append(details, fmt.Sprintf(
			"likely coverage: %d task(s) have no spare eligible people", tightCover))
	}

	contested := 0
	for _, pair := range conflicts.Pairs() {
		shared := false
		for _, pi := range elig.PoolFor(pair[0]) {
			if elig.IsEligible(pi, pair[1]) {
				shared = true
				break
			}
		}
		if shared {
			contested++
		}
	}
	if contested > 0 {
		details = append(details, fmt.Sprintf(
			"likely conflicts: %d overlapping task pair(s) compete for shared participants", contested))
	}

	snu := 0
	for pi := range participants {
		if participants[pi].Role == models.RoleSNU {
			snu++
		}
	}
	if snu > 0 {
		details = append(details, fmt.Sprintf(
			"likely hour cap: %d SNU participant(s) limited to %.0fh", snu, cfg.Rules.SNUCapHours))
	}

	var demand int
	for ti := range tasks {
		demand += tasks[ti].MinPeople
	}
	capacity := len(participants) * cfg.Rules.MaxTasksPerParticipant
	if capacity > 0 && demand*5 >= capacity*4 {
		details = append(details, fmt.Sprintf(
			"likely task-count: demand %d close to capacity %d", demand, capacity))
	}

	if len(details) == 0 {
		details = append(details, "constraint interaction with no single dominant family")
	}
	return details
}
