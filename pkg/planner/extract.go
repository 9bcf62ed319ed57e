package planner

import (
	"math"
	"sort"
	"time"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

// ParticipantSummary aggregates one participant's share of a finished plan.
type ParticipantSummary struct {
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Tasks    int         `json:"tasks"`
	Hours    float64     `json:"hours"`
	Workload string      `json:"workload"`
}

// Summary describes a finished plan at a glance. Participants appear in
// input order, including those who received nothing.
type Summary struct {
	TaskCount        int                  `json:"task_count"`
	ParticipantCount int                  `json:"participant_count"`
	AssignmentCount  int                  `json:"assignment_count"`
	FairnessScore    float64              `json:"fairness_score"`
	Participants     []ParticipantSummary `json:"participants"`
}

// extractAssignments reads the solver values back into assignment records.
// All per-participant totals are computed here, from the final solution
// only. Records are ordered by date, start time, task id, then participant.
func extractAssignments(tasks []models.Task, participants []models.Participant, pm *planModel, values []int64, cfg config.Config) ([]models.Assignment, Summary) {
	type chosen struct{ p, t int }
	var picked []chosen
	hours := make([]float64, len(participants))
	counts := make([]int, len(participants))

	for _, vr := range pm.vars {
		if values[vr.v] == 1 {
			picked = append(picked, chosen{vr.p, vr.t})
			hours[vr.p] += tasks[vr.t].Hours()
			counts[vr.p]++
		}
	}

	sort.Slice(picked, func(i, j int) bool {
		ta, tb := tasks[picked[i].t], tasks[picked[j].t]
		if !ta.Date.Equal(tb.Date) {
			return ta.Date.Before(tb.Date)
		}
		if !ta.Start.Equal(tb.Start) {
			return ta.Start.Before(tb.Start)
		}
		if ta.ID != tb.ID {
			return ta.ID < tb.ID
		}
		return participants[picked[i].p].Name() < participants[picked[j].p].Name()
	})

	dayIdx := dayIndex(tasks)

	records := make([]models.Assignment, 0, len(picked))
	for _, c := range picked {
		t := tasks[c.t]
		p := participants[c.p]
		records = append(records, models.Assignment{
			Participant:     p.Name(),
			Role:            p.Role,
			TaskID:          t.ID,
			TaskDescription: t.Description,
			Location:        t.Location,
			Date:            t.DateText(),
			Duration:        t.Duration,
			MinPeople:       t.MinPeople,
			MaxPeople:       t.MaxPeople,
			TotalHours:      t.Hours(),
			Day:             dayIdx[t.Date],
			Workload:        workloadLabel(p.Role, hours[c.p], cfg),
			CumulativeHours: hours[c.p],
		})
	}

	summary := Summary{
		TaskCount:        len(tasks),
		ParticipantCount: len(participants),
		AssignmentCount:  len(records),
		FairnessScore:    fairnessScore(hours),
	}
	for pi := range participants {
		summary.Participants = append(summary.Participants, ParticipantSummary{
			Name:     participants[pi].Name(),
			Role:     participants[pi].Role,
			Tasks:    counts[pi],
			Hours:    hours[pi],
			Workload: workloadLabel(participants[pi].Role, hours[pi], cfg),
		})
	}
	return records, summary
}

// dayIndex numbers the distinct event dates chronologically from zero.
// Every task date counts, assigned or not, so day numbers are stable across
// differently filled plans for the same event.
func dayIndex(tasks []models.Task) map[time.Time]int {
	var dates []time.Time
	seen := make(map[time.Time]bool)
	for _, t := range tasks {
		if !seen[t.Date] {
			seen[t.Date] = true
			dates = append(dates, t.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	idx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		idx[d] = i
	}
	return idx
}

func workloadLabel(role models.Role, hours float64, cfg config.Config) string {
	if role == models.RoleSNU {
		return "SNU"
	}
	switch {
	case hours <= cfg.Workload.LowMaxHours:
		return "Low"
	case hours <= cfg.Workload.MediumMaxHours:
		return "Medium"
	default:
		return "High"
	}
}

// fairnessScore grades how evenly hours are spread as a percentage, 100
// meaning every participant carries an identical load.
func fairnessScore(hours []float64) float64 {
	if len(hours) == 0 {
		return 100
	}
	var sum float64
	for _, h := range hours {
		sum += h
	}
	if sum == 0 {
		return 100
	}
	mean := sum / float64(len(hours))

	var varianceSum float64
	for _, h := range hours {
		diff := h - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(hours)))

	score := (1 - stdDev/mean) * 100
	if score < 0 {
		return 0
	}
	return score
}
