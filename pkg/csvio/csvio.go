// Package csvio reads task and participant rosters and writes finished
// plans in the event's interchange format. Input files may be delimited
// with ';' (the historical export convention) or ',' and may start with
// a UTF-8 byte order mark; header names are matched case-insensitively.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

// AssignmentColumns is the output header, in the order downstream
// consumers expect.
var AssignmentColumns = []string{
	"participant", "task_id", "task_description", "location", "date",
	"duration", "min_people", "max_people", "total_hours", "day",
	"participant_workload",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func newReader(r io.Reader) (*csv.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.TrimLeadingSpace = true
	// Ragged rows happen in hand-edited exports; short rows read as empty
	// cells and fail per field, naming the record, not the row shape.
	cr.FieldsPerRecord = -1
	return cr, nil
}

// sniffDelimiter inspects the header line. Semicolon wins ties because
// the upstream exports use it.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) >= bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func requireColumns(kind string, cols map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("%s file: missing required column %q", kind, name)
		}
	}
	return nil
}

// ReadTasks parses a tasks roster. Required columns are date, duration,
// task_id and task_description; location, min_people and max_people are
// optional and default the way NewTask defaults them.
func ReadTasks(r io.Reader) ([]models.Task, error) {
	cr, err := newReader(r)
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading tasks header: %w", err)
	}
	cols := headerIndex(header)
	if err := requireColumns("tasks", cols, "date", "duration", "task_id", "task_description"); err != nil {
		return nil, err
	}

	var tasks []models.Task
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("tasks row %d: %w", line, err)
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		minPeople, err := optionalCount("task", get("task_id"), "min_people", get("min_people"))
		if err != nil {
			return nil, err
		}
		maxPeople, err := optionalCount("task", get("task_id"), "max_people", get("max_people"))
		if err != nil {
			return nil, err
		}

		task, err := models.NewTask(get("task_id"), get("task_description"), get("location"),
			get("date"), get("duration"), minPeople, maxPeople)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func optionalCount(kind, id, field, value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, &models.ParseError{Kind: kind, ID: id, Field: field, Value: value, Err: err}
	}
	return &n, nil
}

// ReadParticipants parses a participants roster. All four columns are
// required; constraint_event_ids may be empty on any row.
func ReadParticipants(r io.Reader) ([]models.Participant, error) {
	cr, err := newReader(r)
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading participants header: %w", err)
	}
	cols := headerIndex(header)
	if err := requireColumns("participants", cols, "first_name", "last_name", "role", "constraint_event_ids"); err != nil {
		return nil, err
	}

	var participants []models.Participant
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("participants row %d: %w", line, err)
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		var excluded []string
		if v := get("constraint_event_ids"); v != "" {
			excluded = strings.Split(v, ",")
		}

		p, err := models.NewParticipant(get("first_name"), get("last_name"), get("role"), excluded)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// ReadTasksFile reads a tasks roster from disk.
func ReadTasksFile(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tasks, err := ReadTasks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

// ReadParticipantsFile reads a participants roster from disk.
func ReadParticipantsFile(path string) ([]models.Participant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	participants, err := ReadParticipants(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return participants, nil
}

// WriteAssignments writes a finished plan, header first, one row per
// assignment in the order given.
func WriteAssignments(w io.Writer, assignments []models.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AssignmentColumns); err != nil {
		return err
	}
	for _, a := range assignments {
		row := []string{
			a.Participant,
			a.TaskID,
			a.TaskDescription,
			a.Location,
			a.Date,
			a.Duration,
			strconv.Itoa(a.MinPeople),
			strconv.Itoa(a.MaxPeople),
			fmt.Sprintf("%.2f", a.TotalHours),
			strconv.Itoa(a.Day),
			a.Workload,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAssignmentsFile writes a finished plan to disk, creating parent
// directories as needed.
func WriteAssignmentsFile(path string, assignments []models.Assignment) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteAssignments(f, assignments); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
