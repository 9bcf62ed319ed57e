package planner

import (
	"strings"
	"testing"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

func TestPeakDemandOverSupply(t *testing.T) {
	tasks := []models.Task{
		testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 2, 2),
		testTask(t, "FRI2", "10/10/2025", "18H00-20H00", 2, 2),
	}

	details := peakDemandOverSupply(tasks, 3)
	if len(details) != 1 {
		t.Fatalf("Expected 1 peak report, got %v", details)
	}
	if !strings.Contains(details[0], "10/10/2025 18H00") {
		t.Errorf("Expected the peak instant in the report, got %q", details[0])
	}
	if !strings.Contains(details[0], "need 4 people but only 3 exist") {
		t.Errorf("Expected the headcounts in the report, got %q", details[0])
	}
}

func TestPeakDemandTouchingWindows(t *testing.T) {
	// Back to back windows never run at the same instant, so two people
	// can serve both even though each needs two.
	tasks := []models.Task{
		testTask(t, "SAT1", "11/10/2025", "10H00-12H00", 2, 2),
		testTask(t, "SAT2", "11/10/2025", "12H00-14H00", 2, 2),
	}

	if details := peakDemandOverSupply(tasks, 2); len(details) != 0 {
		t.Errorf("Expected no peak report for touching windows, got %v", details)
	}
}

func TestDiagnoseTightCoverage(t *testing.T) {
	tasks := []models.Task{testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 1, 1)}
	participants := []models.Participant{testParticipant("Alice", "MARTIN", models.RolePermanent)}
	elig := BuildEligibility(participants, tasks)

	details := diagnose(tasks, participants, elig, BuildConflictMatrix(tasks), config.Default())
	if len(details) != 1 || !strings.Contains(details[0], "likely coverage") {
		t.Errorf("Expected a coverage hint, got %v", details)
	}
}

func TestDiagnoseSharedConflicts(t *testing.T) {
	tasks := []models.Task{
		testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 0, 1),
		testTask(t, "FRI2", "10/10/2025", "18H00-20H00", 0, 1),
	}
	participants := []models.Participant{testParticipant("Alice", "MARTIN", models.RolePermanent)}
	elig := BuildEligibility(participants, tasks)

	details := diagnose(tasks, participants, elig, BuildConflictMatrix(tasks), config.Default())
	if len(details) != 1 || !strings.Contains(details[0], "likely conflicts") {
		t.Errorf("Expected a conflict hint, got %v", details)
	}
}

func TestDiagnoseFallback(t *testing.T) {
	tasks := []models.Task{testTask(t, "FRI1", "10/10/2025", "16H00-19H00", 0, 1)}
	participants := []models.Participant{testParticipant("Alice", "MARTIN", models.RolePermanent)}
	elig := BuildEligibility(participants, tasks)

	details := diagnose(tasks, participants, elig, BuildConflictMatrix(tasks), config.Default())
	if len(details) != 1 || !strings.Contains(details[0], "no single dominant family") {
		t.Errorf("Expected the fallback hint, got %v", details)
	}
}
