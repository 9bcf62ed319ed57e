// Package solver provides a small integer linear constraint model and an
// exhaustive solver for it. Models are built once, solved once; variables are
// bounded integers and constraints are inclusive ranges over linear sums.
package solver

import (
	"fmt"
)

// VarID identifies a variable within a single Model.
type VarID int

// Term is one coefficient-variable product inside a linear expression.
type Term struct {
	Var   VarID
	Coeff int64
}

type constraint struct {
	name  string
	terms []Term
	low   int64
	high  int64
}

// Model holds variables, linear range constraints and a minimization
// objective. It is not safe for concurrent mutation.
type Model struct {
	names     []string
	lows      []int64
	highs     []int64
	cons      []constraint
	objective []Term
}

// Caps keeping every reachable activity sum far away from int64 overflow.
const (
	maxMagnitude      = 1 << 20 // coefficients and variable bounds
	maxTermsPerLinear = 1 << 20
	maxBoundMagnitude = 1 << 41 // constraint range endpoints
)

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewInt adds an integer variable with inclusive bounds and returns its id.
func (m *Model) NewInt(name string, low, high int64) VarID {
	m.names = append(m.names, name)
	m.lows = append(m.lows, low)
	m.highs = append(m.highs, high)
	return VarID(len(m.names) - 1)
}

// NewBool adds a 0/1 variable and returns its id.
func (m *Model) NewBool(name string) VarID {
	return m.NewInt(name, 0, 1)
}

// NumVars returns the number of variables declared so far.
func (m *Model) NumVars() int {
	return len(m.names)
}

// Name returns the variable's name, or "" for an out-of-range id.
func (m *Model) Name(v VarID) string {
	if v < 0 || int(v) >= len(m.names) {
		return ""
	}
	return m.names[v]
}

// AddRange constrains low <= sum(terms) <= high, both sides inclusive.
func (m *Model) AddRange(name string, terms []Term, low, high int64) {
	m.cons = append(m.cons, constraint{name: name, terms: terms, low: low, high: high})
}

// AddEquality constrains sum(terms) == value.
func (m *Model) AddEquality(name string, terms []Term, value int64) {
	m.AddRange(name, terms, value, value)
}

// AddAtMostOne constrains the given 0/1 variables so at most one is set.
func (m *Model) AddAtMostOne(name string, vars ...VarID) {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coeff: 1}
	}
	m.AddRange(name, terms, 0, 1)
}

// AddObjectiveTerm appends coeff*v to the minimized objective.
func (m *Model) AddObjectiveTerm(v VarID, coeff int64) {
	m.objective = append(m.objective, Term{Var: v, Coeff: coeff})
}

// Objective returns the accumulated objective terms.
func (m *Model) Objective() []Term {
	return m.objective
}

// Validate checks the model for structural problems: inverted or oversized
// domains, dangling variable references and ranges no assignment can meet.
func (m *Model) Validate() error {
	for i := range m.names {
		lo, hi := m.lows[i], m.highs[i]
		if lo > hi {
			return fmt.Errorf("variable %q has empty domain [%d,%d]", m.names[i], lo, hi)
		}
		if lo < -maxMagnitude || hi > maxMagnitude {
			return fmt.Errorf("variable %q bounds [%d,%d] exceed +/-%d", m.names[i], lo, hi, int64(maxMagnitude))
		}
	}

	check := func(where string, terms []Term) error {
		if len(terms) > maxTermsPerLinear {
			return fmt.Errorf("%s has %d terms, limit is %d", where, len(terms), int64(maxTermsPerLinear))
		}
		for _, t := range terms {
			if t.Var < 0 || int(t.Var) >= len(m.names) {
				return fmt.Errorf("%s references unknown variable %d", where, t.Var)
			}
			if t.Coeff < -maxMagnitude || t.Coeff > maxMagnitude {
				return fmt.Errorf("%s coefficient %d exceeds +/-%d", where, t.Coeff, int64(maxMagnitude))
			}
		}
		return nil
	}

	for _, c := range m.cons {
		if c.low > c.high {
			return fmt.Errorf("constraint %q has empty range [%d,%d]", c.name, c.low, c.high)
		}
		if c.low < -maxBoundMagnitude || c.high > maxBoundMagnitude {
			return fmt.Errorf("constraint %q range [%d,%d] exceeds +/-%d", c.name, c.low, c.high, int64(maxBoundMagnitude))
		}
		if err := check(fmt.Sprintf("constraint %q", c.name), c.terms); err != nil {
			return err
		}
	}
	if err := check("objective", m.objective); err != nil {
		return err
	}
	return nil
}
