package planner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

func testTask(t *testing.T, id, date, window string, min, max int) models.Task {
	t.Helper()
	task, err := models.NewTask(id, "Task "+id, "", date, window, &min, &max)
	if err != nil {
		t.Fatalf("building task %s: %v", id, err)
	}
	return task
}

func testParticipant(first, last string, role models.Role, excluded ...string) models.Participant {
	return models.Participant{FirstName: first, LastName: last, Role: role, ExcludedTaskIDs: excluded}
}

func TestPlanSingleTaskTwoCandidates(t *testing.T) {
	tasks := []models.Task{testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 1, 1)}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent),
	}

	res, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if res.Status != "OPTIMAL" {
		t.Errorf("Expected OPTIMAL, got %s", res.Status)
	}
	if !res.Proven {
		t.Error("Expected the plan to be proven optimal")
	}
	if len(res.Assignments) != 1 {
		t.Fatalf("Expected exactly 1 assignment, got %d", len(res.Assignments))
	}
	who := res.Assignments[0].Participant
	if who != "Alice MARTIN" && who != "Bob DUPONT" {
		t.Errorf("Assignment went to unknown participant %q", who)
	}
	if res.Assignments[0].TaskID != "FRI1" {
		t.Errorf("Expected task FRI1, got %s", res.Assignments[0].TaskID)
	}
	if res.RunID == "" {
		t.Error("Expected a run id")
	}
}

func TestPlanHonorsExclusions(t *testing.T) {
	tasks := []models.Task{
		testTask(t, "SAT1", "11/10/2025", "10H00-12H00", 1, 1),
		testTask(t, "SAT2", "11/10/2025", "13H00-15H00", 1, 1),
		testTask(t, "SAT8", "11/10/2025", "16H00-18H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent, "SAT1", "SAT8"),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent),
	}

	res, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	for _, a := range res.Assignments {
		if a.Participant == "Alice MARTIN" && (a.TaskID == "SAT1" || a.TaskID == "SAT8") {
			t.Errorf("Alice was assigned excluded task %s", a.TaskID)
		}
	}
	if len(res.Assignments) != 3 {
		t.Errorf("Expected all 3 tasks covered, got %d assignments", len(res.Assignments))
	}
}

func TestPlanOverlapPeakDemandStructural(t *testing.T) {
	tasks := []models.Task{
		testTask(t, "T1", "10/10/2025", "16H00-19H00", 1, 1),
		testTask(t, "T2", "10/10/2025", "18H00-20H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
	}

	_, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err == nil {
		t.Fatal("Expected infeasibility, got a plan")
	}
	var ierr *InfeasibilityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Expected InfeasibilityError, got %T: %v", err, err)
	}
	if !ierr.Structural {
		t.Error("Expected the overlapping demand to be caught before solving")
	}
	found := false
	for _, d := range ierr.Details {
		if strings.Contains(d, "18H00") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a detail naming the peak instant, got %v", ierr.Details)
	}
}

func TestPlanSolverProvenInfeasible(t *testing.T) {
	// Both tasks pass every precheck on their own: each has an eligible
	// candidate and two people exist for the two simultaneous seats. Only
	// the solver sees that the single shared candidate cannot take both.
	tasks := []models.Task{
		testTask(t, "T1", "10/10/2025", "16H00-19H00", 1, 1),
		testTask(t, "T2", "10/10/2025", "18H00-20H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent, "T1", "T2"),
	}

	_, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err == nil {
		t.Fatal("Expected infeasibility, got a plan")
	}
	var ierr *InfeasibilityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Expected InfeasibilityError, got %T: %v", err, err)
	}
	if ierr.Structural {
		t.Error("Expected solver-level infeasibility, not a structural one")
	}
	if len(ierr.Details) == 0 {
		t.Error("Expected diagnostic details")
	}
}

func TestPlanOverlapResolvedAcrossParticipants(t *testing.T) {
	tasks := []models.Task{
		testTask(t, "T1", "10/10/2025", "16H00-19H00", 1, 1),
		testTask(t, "T2", "10/10/2025", "18H00-20H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent, "T1"),
	}

	res, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	perParticipant := make(map[string]int)
	for _, a := range res.Assignments {
		perParticipant[a.Participant]++
	}
	if perParticipant["Alice MARTIN"] != 1 || perParticipant["Bob DUPONT"] != 1 {
		t.Errorf("Expected the overlap split across both people, got %v", perParticipant)
	}
}

func TestPlanStructuralPoolShortage(t *testing.T) {
	tasks := []models.Task{testTask(t, "BIG", "10/10/2025", "16H00-19H00", 3, 3)}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent),
	}

	_, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	var ierr *InfeasibilityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Expected InfeasibilityError, got %T: %v", err, err)
	}
	if !ierr.Structural {
		t.Error("Expected structural detection before the solver ran")
	}
	found := false
	for _, d := range ierr.Details {
		if strings.Contains(d, "BIG") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a detail naming task BIG, got %v", ierr.Details)
	}
}

func TestPlanSNUCapAgainstMinimumTasks(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.MinTasksPerParticipant = 2

	tasks := []models.Task{
		testTask(t, "LONG1", "10/10/2025", "08H00-21H00", 0, 1),
		testTask(t, "LONG2", "11/10/2025", "08H00-20H00", 0, 1),
	}
	participants := []models.Participant{
		testParticipant("Sam", "SNU", models.RoleSNU),
	}

	_, err := New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	var ierr *InfeasibilityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Expected InfeasibilityError, got %T: %v", err, err)
	}
	if !ierr.Structural {
		t.Error("Expected the SNU cap contradiction to be caught before solving")
	}
}

func TestPlanSNUCapHolds(t *testing.T) {
	// Two required 10h tasks fit under the 21h cap; the optional third
	// would push the only participant to 30h, so the cap must force it
	// to stay unassigned.
	tasks := []models.Task{
		testTask(t, "D1", "10/10/2025", "08H00-18H00", 1, 1),
		testTask(t, "D2", "11/10/2025", "08H00-18H00", 1, 1),
		testTask(t, "D3", "12/10/2025", "08H00-18H00", 0, 1),
	}
	participants := []models.Participant{
		testParticipant("Sam", "SNU", models.RoleSNU),
	}

	res, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if len(res.Assignments) != 2 {
		t.Fatalf("Expected 2 assignments, got %d", len(res.Assignments))
	}
	var total float64
	for _, a := range res.Assignments {
		if a.TaskID == "D3" {
			t.Error("D3 would break the 21h cap and must stay unassigned")
		}
		if a.Workload != "SNU" {
			t.Errorf("Expected SNU workload label, got %q", a.Workload)
		}
		total += a.TotalHours
	}
	if total != 20 {
		t.Errorf("Expected 20h assigned, got %.1f", total)
	}
}

func TestPlanCriticalTaskPrefersPermanent(t *testing.T) {
	cfg := config.Default()
	cfg.Objective.CriticalTaskIDs = []string{"CRIT"}
	cfg.Objective.PriorityWeight = 2
	cfg.Objective.WorkloadWeight = 1

	tasks := []models.Task{testTask(t, "CRIT", "10/10/2025", "16H00-19H00", 1, 1)}
	participants := []models.Participant{
		testParticipant("Paula", "PERM", models.RolePermanent),
		testParticipant("Nina", "NONPERM", models.RoleNonPermanent),
	}

	res, err := New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(res.Assignments) != 1 || res.Assignments[0].Participant != "Paula PERM" {
		t.Fatalf("Expected the permanent member on the critical task, got %+v", res.Assignments)
	}

	// Control: without the priority term the tie breaks the other way for
	// this input order, proving the objective did the work above.
	cfg.Objective.CriticalTaskIDs = nil
	res, err = New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(res.Assignments) != 1 || res.Assignments[0].Participant != "Nina NONPERM" {
		t.Fatalf("Expected the control run to pick the non-permanent member, got %+v", res.Assignments)
	}
}

func TestPlanUnknownCriticalTaskWarns(t *testing.T) {
	cfg := config.Default()
	cfg.Objective.CriticalTaskIDs = []string{"GHOST"}

	tasks := []models.Task{testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 1, 1)}
	participants := []models.Participant{testParticipant("Alice", "MARTIN", models.RolePermanent)}

	res, err := New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "GHOST") {
		t.Errorf("Expected a warning naming GHOST, got %v", res.Warnings)
	}
}

func TestPlanMinimumTasksSpreadsWork(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.MinTasksPerParticipant = 1

	tasks := []models.Task{
		testTask(t, "T1", "10/10/2025", "10H00-12H00", 1, 1),
		testTask(t, "T2", "10/10/2025", "14H00-16H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent),
	}

	res, err := New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	perParticipant := make(map[string]int)
	for _, a := range res.Assignments {
		perParticipant[a.Participant]++
	}
	if perParticipant["Alice MARTIN"] != 1 || perParticipant["Bob DUPONT"] != 1 {
		t.Errorf("Expected one task each, got %v", perParticipant)
	}
}

func TestPlanDemandBeyondCapacity(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.MaxTasksPerParticipant = 1

	tasks := []models.Task{
		testTask(t, "T1", "10/10/2025", "10H00-12H00", 1, 1),
		testTask(t, "T2", "10/10/2025", "14H00-16H00", 1, 1),
		testTask(t, "T3", "10/10/2025", "17H00-19H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent),
	}

	_, err := New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	var ierr *InfeasibilityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Expected InfeasibilityError, got %T: %v", err, err)
	}
	if !ierr.Structural {
		t.Error("Expected the capacity shortfall to be caught before solving")
	}
}

func TestPlanRejectsBadInputs(t *testing.T) {
	task := testTask(t, "T1", "10/10/2025", "10H00-12H00", 1, 1)
	alice := testParticipant("Alice", "MARTIN", models.RolePermanent)
	p := New(nil, config.Default(), nil)

	if _, err := p.Plan(context.Background(), nil, []models.Participant{alice}); !errors.Is(err, ErrNoTasks) {
		t.Errorf("Expected ErrNoTasks, got %v", err)
	}
	if _, err := p.Plan(context.Background(), []models.Task{task}, nil); !errors.Is(err, ErrNoParticipants) {
		t.Errorf("Expected ErrNoParticipants, got %v", err)
	}

	var perr *models.ParseError
	_, err := p.Plan(context.Background(), []models.Task{task, task}, []models.Participant{alice})
	if !errors.As(err, &perr) || perr.Kind != "task" {
		t.Errorf("Expected task ParseError for duplicate id, got %v", err)
	}
	_, err = p.Plan(context.Background(), []models.Task{task}, []models.Participant{alice, alice})
	if !errors.As(err, &perr) || perr.Kind != "participant" {
		t.Errorf("Expected participant ParseError for duplicate name, got %v", err)
	}
}

func TestPlanDeterministic(t *testing.T) {
	cfg := config.Default()
	cfg.Objective.CriticalTaskIDs = []string{"SAT1"}

	build := func() ([]models.Task, []models.Participant) {
		tasks := []models.Task{
			testTask(t, "SAT3", "11/10/2025", "18H00-20H00", 1, 2),
			testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 1, 1),
			testTask(t, "SAT1", "11/10/2025", "10H00-12H00", 1, 1),
			testTask(t, "SAT2", "11/10/2025", "11H00-13H00", 1, 1),
		}
		participants := []models.Participant{
			testParticipant("Alice", "MARTIN", models.RolePermanent),
			testParticipant("Bob", "DUPONT", models.RoleNonPermanent, "FRI1"),
			testParticipant("Sam", "SNU", models.RoleSNU),
		}
		return tasks, participants
	}

	p := New(nil, cfg, nil)
	tasks, participants := build()
	first, err := p.Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("first Plan returned error: %v", err)
	}
	tasks, participants = build()
	second, err := p.Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("second Plan returned error: %v", err)
	}

	if first.Objective != second.Objective {
		t.Errorf("Objective differs between runs: %d vs %d", first.Objective, second.Objective)
	}
	if !reflect.DeepEqual(first.Assignments, second.Assignments) {
		t.Errorf("Assignments differ between identical runs:\n%+v\n%+v", first.Assignments, second.Assignments)
	}
}

func TestPlanOutputOrderingAndDays(t *testing.T) {
	tasks := []models.Task{
		testTask(t, "SUN1", "12/10/2025", "10H00-12H00", 1, 1),
		testTask(t, "FRI2", "10/10/2025", "19H00-21H00", 1, 1),
		testTask(t, "FRI1", "10/10/2025", "16H00-18H00", 1, 1),
		testTask(t, "SAT1", "11/10/2025", "10H00-12H00", 1, 1),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent),
	}

	res, err := New(nil, config.Default(), nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(res.Assignments) != 4 {
		t.Fatalf("Expected 4 assignments, got %d", len(res.Assignments))
	}

	wantOrder := []string{"FRI1", "FRI2", "SAT1", "SUN1"}
	wantDays := []int{0, 0, 1, 2}
	for i, a := range res.Assignments {
		if a.TaskID != wantOrder[i] {
			t.Errorf("Position %d: expected %s, got %s", i, wantOrder[i], a.TaskID)
		}
		if a.Day != wantDays[i] {
			t.Errorf("Task %s: expected day %d, got %d", a.TaskID, wantDays[i], a.Day)
		}
	}
}

func TestPlanRoundTripValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Objective.CriticalTaskIDs = []string{"SAT1"}

	tasks := []models.Task{
		testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 1, 2),
		testTask(t, "FRI2", "10/10/2025", "19H00-22H00", 1, 1),
		testTask(t, "SAT1", "11/10/2025", "09H00-12H00", 1, 1),
		testTask(t, "SAT2", "11/10/2025", "10H00-13H00", 1, 1),
		testTask(t, "SUN1", "12/10/2025", "10H00-14H00", 1, 2),
	}
	participants := []models.Participant{
		testParticipant("Alice", "MARTIN", models.RolePermanent),
		testParticipant("Bob", "DUPONT", models.RoleNonPermanent, "SAT1"),
		testParticipant("Chloe", "BERNARD", models.RolePermanent),
		testParticipant("Sam", "SNU", models.RoleSNU, "FRI2"),
	}

	res, err := New(nil, cfg, nil).Plan(context.Background(), tasks, participants)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if err := ValidateAssignments(tasks, participants, res.Assignments, cfg); err != nil {
		t.Errorf("Round-trip validation failed: %v", err)
	}
	if res.Summary.AssignmentCount != len(res.Assignments) {
		t.Errorf("Summary count %d does not match %d records", res.Summary.AssignmentCount, len(res.Assignments))
	}
	if res.Summary.FairnessScore < 0 || res.Summary.FairnessScore > 100 {
		t.Errorf("Fairness score %f out of range", res.Summary.FairnessScore)
	}
}

func TestInspect(t *testing.T) {
	p := New(nil, config.Default(), nil)

	tasks := []models.Task{testTask(t, "T1", "10/10/2025", "10H00-12H00", 1, 1)}
	participants := []models.Participant{testParticipant("Alice", "MARTIN", models.RolePermanent)}
	if err := p.Inspect(tasks, participants); err != nil {
		t.Errorf("Expected clean inspection, got %v", err)
	}

	short := []models.Task{testTask(t, "T1", "10/10/2025", "10H00-12H00", 2, 2)}
	var ierr *InfeasibilityError
	if err := p.Inspect(short, participants); !errors.As(err, &ierr) {
		t.Errorf("Expected InfeasibilityError from inspection, got %v", err)
	}
}
