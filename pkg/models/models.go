package models

import "time"

// Role classifies a participant for staffing rules.
type Role string

const (
	RolePermanent    Role = "Permanent"
	RoleNonPermanent Role = "NonPermanent"
	RoleSNU          Role = "SNU"
)

// DateLayout is the calendar format used across CSV inputs and outputs.
const DateLayout = "02/01/2006"

// Task represents a time-boxed unit of work that needs staffing.
type Task struct {
	ID          string    `json:"task_id"`
	Description string    `json:"task_description"`
	Location    string    `json:"location,omitempty"`
	Date        time.Time `json:"-"`
	Start       time.Time `json:"-"`
	End         time.Time `json:"-"`
	Duration    string    `json:"duration"`
	MinPeople   int       `json:"min_people"`
	MaxPeople   int       `json:"max_people"`
}

// Minutes returns the task length in whole minutes.
func (t Task) Minutes() int {
	return int(t.End.Sub(t.Start) / time.Minute)
}

// Hours returns the task length in hours.
func (t Task) Hours() float64 {
	return t.End.Sub(t.Start).Hours()
}

// DateText returns the task date in DD/MM/YYYY form.
func (t Task) DateText() string {
	return t.Date.Format(DateLayout)
}

// Participant represents a person available for tasks.
type Participant struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Role            Role     `json:"role"`
	ExcludedTaskIDs []string `json:"excluded_task_ids,omitempty"`
}

// Name returns the full display name, which is also the participant's
// identity across a plan run.
func (p Participant) Name() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Excludes reports whether the participant declared the task off-limits.
func (p Participant) Excludes(taskID string) bool {
	for _, id := range p.ExcludedTaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// Assignment represents one participant-task pairing in a finished plan.
type Assignment struct {
	Participant     string  `json:"participant"`
	Role            Role    `json:"role"`
	TaskID          string  `json:"task_id"`
	TaskDescription string  `json:"task_description"`
	Location        string  `json:"location"`
	Date            string  `json:"date"`
	Duration        string  `json:"duration"`
	MinPeople       int     `json:"min_people"`
	MaxPeople       int     `json:"max_people"`
	TotalHours      float64 `json:"total_hours"`
	Day             int     `json:"day"`
	Workload        string  `json:"participant_workload"`
	CumulativeHours float64 `json:"cumulative_hours"`
}
