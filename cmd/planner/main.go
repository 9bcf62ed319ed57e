package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/csvio"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
	"github.com/mhoangvslev/recordara-planner/pkg/planner"
)

func main() {
	tasksPath := flag.String("tasks", "data/tasks.csv", "tasks roster CSV")
	participantsPath := flag.String("participants", "data/participants.csv", "participants roster CSV")
	outputPath := flag.String("output", "output/assignments.csv", "assignments CSV to write")
	configPath := flag.String("config", "", "config file (default planner.yml when present)")
	timeBudget := flag.Int("time-budget", 0, "solver time budget in seconds, overriding the config")
	quiet := flag.Bool("quiet", false, "write the CSV without printing the tables")
	verbose := flag.Bool("verbose", false, "enable planner debug logging")
	flag.Parse()

	// Load .env if it exists
	for _, p := range []string{".env", "../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(logger, *tasksPath, *participantsPath, *outputPath, *configPath, *timeBudget, *quiet); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ierr *planner.InfeasibilityError
		if errors.As(err, &ierr) {
			for _, d := range ierr.Details {
				fmt.Fprintln(os.Stderr, "  -", d)
			}
		}
		os.Exit(1)
	}
}

func run(logger *zap.Logger, tasksPath, participantsPath, outputPath, configPath string, timeBudget int, quiet bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if timeBudget > 0 {
		cfg.Solver.TimeBudgetSeconds = timeBudget
	}

	tasks, err := csvio.ReadTasksFile(tasksPath)
	if err != nil {
		return err
	}
	participants, err := csvio.ReadParticipantsFile(participantsPath)
	if err != nil {
		return err
	}

	res, err := planner.New(nil, cfg, logger).Plan(context.Background(), tasks, participants)
	if err != nil {
		return err
	}

	if err := csvio.WriteAssignmentsFile(outputPath, res.Assignments); err != nil {
		return err
	}

	if !quiet {
		printAssignments(res)
		printParticipantSummary(res)
	}

	for _, w := range res.Warnings {
		fmt.Println("warning:", w)
	}
	status := res.Status
	if !res.Proven {
		status += " (not proven optimal)"
	}
	fmt.Printf("\nStatus: %s | %d assignments | fairness %.1f%%\n",
		status, len(res.Assignments), res.Summary.FairnessScore)
	fmt.Println("Wrote", outputPath)
	return nil
}

func printAssignments(res *planner.Result) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("TASK ASSIGNMENTS")
	fmt.Println(strings.Repeat("=", 80))

	byDay := make(map[int][]models.Assignment)
	var days []int
	for _, a := range res.Assignments {
		if _, seen := byDay[a.Day]; !seen {
			days = append(days, a.Day)
		}
		byDay[a.Day] = append(byDay[a.Day], a)
	}
	sort.Ints(days)

	for _, day := range days {
		group := byDay[day]
		fmt.Printf("\n%s:\n", dayLabel(group[0]))
		fmt.Println(strings.Repeat("-", 50))
		for _, a := range group {
			fmt.Printf("%-15s | %-6s | %-20s (%-12s) | %s\n",
				a.Duration, a.TaskID, a.Participant, a.Role, a.TaskDescription)
		}
	}
}

// dayLabel renders a group heading such as "Friday (10/10/2025)".
func dayLabel(a models.Assignment) string {
	date, err := models.ParseDate(a.Date)
	if err != nil {
		return a.Date
	}
	return fmt.Sprintf("%s (%s)", date.Weekday(), a.Date)
}

func printParticipantSummary(res *planner.Result) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("ASSIGNMENT SUMMARY BY PARTICIPANT")
	fmt.Println(strings.Repeat("=", 80))

	byName := make(map[string][]models.Assignment)
	for _, a := range res.Assignments {
		byName[a.Participant] = append(byName[a.Participant], a)
	}

	ordered := make([]planner.ParticipantSummary, len(res.Summary.Participants))
	copy(ordered, res.Summary.Participants)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Role != ordered[j].Role {
			return ordered[i].Role < ordered[j].Role
		}
		return ordered[i].Name < ordered[j].Name
	})

	for _, ps := range ordered {
		fmt.Printf("\n%s (%s) - %d task(s), %.1fh [%s]:\n",
			ps.Name, ps.Role, ps.Tasks, ps.Hours, ps.Workload)
		for _, a := range byName[ps.Name] {
			fmt.Printf("  - %s %s - %s: %s\n", a.Date, a.Duration, a.TaskID, a.TaskDescription)
		}
	}
}
