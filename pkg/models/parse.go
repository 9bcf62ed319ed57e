package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a malformed input record. It carries enough context to
// point back at the offending row without re-reading the file.
type ParseError struct {
	Kind  string // "task" or "participant"
	ID    string
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s %q: invalid %s %q", e.Kind, e.ID, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseDate parses a DD/MM/YYYY calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// parseClock converts a clock reading into minutes from midnight. Both the
// "16H00" and "19:30" conventions appear in upstream exports, with the minute
// part optional after an H ("16H" means 16H00). A 24H00 end marker is allowed.
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty clock value")
	}

	var hh, mm string
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "H"):
		parts := strings.SplitN(upper, "H", 2)
		hh, mm = parts[0], parts[1]
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hh, mm = parts[0], parts[1]
	default:
		return 0, fmt.Errorf("no hour separator in %q", s)
	}
	if mm == "" {
		mm = "0"
	}

	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// ParseWindow resolves a "start-end" time window such as "16H00-19H00" or
// "19:30-21:00" against a calendar date. Windows are half-open and must not
// wrap past midnight.
func ParseWindow(date time.Time, window string) (start, end time.Time, err error) {
	parts := strings.Split(window, "-")
	if len(parts) != 2 {
		return start, end, fmt.Errorf("window %q is not of the form start-end", window)
	}

	startMin, err := parseClock(parts[0])
	if err != nil {
		return start, end, err
	}
	endMin, err := parseClock(parts[1])
	if err != nil {
		return start, end, err
	}
	if endMin <= startMin {
		return start, end, fmt.Errorf("window %q ends before it starts", window)
	}

	start = date.Add(time.Duration(startMin) * time.Minute)
	end = date.Add(time.Duration(endMin) * time.Minute)
	return start, end, nil
}

// ParseRole interprets a role cell. Upstream exports carry both hyphenated and
// misspelled variants ("Non-permanant"), so matching is fuzzy by necessity.
func ParseRole(s string) (Role, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.ReplaceAll(t, "permanant", "permanent")
	switch {
	case t == "":
		return "", errors.New("empty role")
	case strings.Contains(t, "snu"):
		return RoleSNU, nil
	case strings.Contains(t, "non"):
		return RoleNonPermanent, nil
	case strings.Contains(t, "permanent"):
		return RolePermanent, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// NewTask builds a Task from raw record fields, applying headcount defaults.
// A nil minPeople defaults to 1; a nil maxPeople defaults to minPeople, so a
// bare task means "exactly one person".
func NewTask(id, description, location, dateText, window string, minPeople, maxPeople *int) (Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Task{}, &ParseError{Kind: "task", ID: "?", Field: "task_id", Value: id, Err: errors.New("missing id")}
	}

	date, err := ParseDate(dateText)
	if err != nil {
		return Task{}, &ParseError{Kind: "task", ID: id, Field: "date", Value: dateText, Err: err}
	}

	window = strings.TrimSpace(window)
	start, end, err := ParseWindow(date, window)
	if err != nil {
		return Task{}, &ParseError{Kind: "task", ID: id, Field: "duration", Value: window, Err: err}
	}

	min := 1
	if minPeople != nil {
		min = *minPeople
	}
	max := min
	if maxPeople != nil {
		max = *maxPeople
	}
	if min < 0 {
		return Task{}, &ParseError{Kind: "task", ID: id, Field: "min_people", Value: strconv.Itoa(min), Err: errors.New("negative headcount")}
	}
	if max < 1 || max < min {
		return Task{}, &ParseError{Kind: "task", ID: id, Field: "max_people", Value: strconv.Itoa(max), Err: fmt.Errorf("must be at least max(1, min_people=%d)", min)}
	}

	return Task{
		ID:          id,
		Description: strings.TrimSpace(description),
		Location:    strings.TrimSpace(location),
		Date:        date,
		Start:       start,
		End:         end,
		Duration:    window,
		MinPeople:   min,
		MaxPeople:   max,
	}, nil
}

// NewParticipant builds a Participant from raw record fields. Excluded task
// ids are trimmed and deduplicated; empty entries are dropped.
func NewParticipant(firstName, lastName, role string, excludedTaskIDs []string) (Participant, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		return Participant{}, &ParseError{Kind: "participant", ID: "?", Field: "name", Value: "", Err: errors.New("missing name")}
	}

	r, err := ParseRole(role)
	if err != nil {
		return Participant{}, &ParseError{Kind: "participant", ID: name, Field: "role", Value: role, Err: err}
	}

	var excluded []string
	seen := make(map[string]bool)
	for _, id := range excludedTaskIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		excluded = append(excluded, id)
	}

	return Participant{
		FirstName:       firstName,
		LastName:        lastName,
		Role:            r,
		ExcludedTaskIDs: excluded,
	}, nil
}
