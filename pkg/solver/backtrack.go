package solver

import (
	"context"
	"errors"
	"time"
)

// BranchAndBound is an exact minimizing solver: depth-first search over
// variable domains with interval propagation and incumbent pruning.
// Variables branch in declaration order and values ascend, so a run that
// finishes within its budget always returns the same solution for the
// same model.
type BranchAndBound struct{}

// NewBranchAndBound returns a ready-to-use solver.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{}
}

// Solve searches for a minimum-objective assignment. It returns an error
// only for invalid models; budget exhaustion is reported through Status.
func (b *BranchAndBound) Solve(ctx context.Context, m *Model, opts Options) (Result, error) {
	if m == nil {
		return Result{}, errors.New("nil model")
	}
	if err := m.Validate(); err != nil {
		return Result{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	budget := opts.TimeBudget
	if budget <= 0 {
		budget = DefaultTimeBudget
	}

	start := time.Now()
	s := newSearch(ctx, m, start.Add(budget))

	res := Result{Status: StatusUnknown}
	if s.propagateAll() {
		s.dive(0)
	} else {
		// The root domains already contradict a constraint.
		res.Status = StatusInfeasible
		res.Elapsed = time.Since(start)
		res.Nodes = s.nodes
		return res, nil
	}

	switch {
	case s.aborted && s.hasBest:
		res.Status = StatusFeasible
	case s.aborted:
		res.Status = StatusUnknown
	case s.hasBest:
		res.Status = StatusOptimal
	default:
		res.Status = StatusInfeasible
	}
	if s.hasBest {
		res.Values = s.best
		res.Objective = s.bestObj
	}
	res.Nodes = s.nodes
	res.Elapsed = time.Since(start)
	return res, nil
}

type occurrence struct {
	con   int
	coeff int64
}

type trailEntry struct {
	v    VarID
	low  int64
	high int64
}

type search struct {
	m     *Model
	lows  []int64
	highs []int64
	occs  [][]occurrence
	trail []trailEntry

	// Running activity bounds per constraint under the current domains.
	minAct []int64
	maxAct []int64

	queue  []int
	qhead  int
	queued []bool

	best    []int64
	bestObj int64
	hasBest bool

	nodes    int64
	deadline time.Time
	ctx      context.Context
	aborted  bool
}

func newSearch(ctx context.Context, m *Model, deadline time.Time) *search {
	s := &search{
		m:        m,
		lows:     append([]int64(nil), m.lows...),
		highs:    append([]int64(nil), m.highs...),
		occs:     make([][]occurrence, len(m.lows)),
		minAct:   make([]int64, len(m.cons)),
		maxAct:   make([]int64, len(m.cons)),
		queued:   make([]bool, len(m.cons)),
		deadline: deadline,
		ctx:      ctx,
	}

	for k := range m.cons {
		var lo, hi int64
		for _, t := range m.cons[k].terms {
			if t.Coeff == 0 {
				continue
			}
			s.occs[t.Var] = append(s.occs[t.Var], occurrence{con: k, coeff: t.Coeff})
			if t.Coeff > 0 {
				lo += t.Coeff * s.lows[t.Var]
				hi += t.Coeff * s.highs[t.Var]
			} else {
				lo += t.Coeff * s.highs[t.Var]
				hi += t.Coeff * s.lows[t.Var]
			}
		}
		s.minAct[k] = lo
		s.maxAct[k] = hi
	}
	return s
}

func (s *search) expired() bool {
	return time.Now().After(s.deadline) || s.ctx.Err() != nil
}

// dive branches depth-first on the lowest unfixed variable at or after from.
// It returns false when the budget expired mid-search.
func (s *search) dive(from int) bool {
	v := -1
	for i := from; i < len(s.lows); i++ {
		if s.lows[i] < s.highs[i] {
			v = i
			break
		}
	}
	if v < 0 {
		s.recordIncumbent()
		return true
	}

	if s.hasBest && s.objectiveLow() >= s.bestObj {
		return true
	}

	lo, hi := s.lows[v], s.highs[v]
	for x := lo; x <= hi; x++ {
		s.nodes++
		if s.nodes&255 == 0 && s.expired() {
			s.aborted = true
			return false
		}

		mark := len(s.trail)
		s.fix(VarID(v), x)
		if s.propagate() && (!s.hasBest || s.objectiveLow() < s.bestObj) {
			if !s.dive(v + 1) {
				return false
			}
		}
		s.untrail(mark)
	}
	return true
}

func (s *search) recordIncumbent() {
	var obj int64
	for _, t := range s.m.objective {
		obj += t.Coeff * s.lows[t.Var]
	}
	if !s.hasBest || obj < s.bestObj {
		s.best = append(s.best[:0], s.lows...)
		s.bestObj = obj
		s.hasBest = true
	}
}

// objectiveLow is the tightest objective value reachable from the current
// domains, used for incumbent pruning.
func (s *search) objectiveLow() int64 {
	var lb int64
	for _, t := range s.m.objective {
		if t.Coeff > 0 {
			lb += t.Coeff * s.lows[t.Var]
		} else {
			lb += t.Coeff * s.highs[t.Var]
		}
	}
	return lb
}

func (s *search) enqueue(k int) {
	if !s.queued[k] {
		s.queued[k] = true
		s.queue = append(s.queue, k)
	}
}

func (s *search) propagateAll() bool {
	for k := range s.m.cons {
		s.enqueue(k)
	}
	return s.propagate()
}

// propagate runs the constraint worklist to a fixpoint. It returns false on
// conflict, with the queue drained either way.
func (s *search) propagate() bool {
	ok := true
	for s.qhead < len(s.queue) {
		k := s.queue[s.qhead]
		s.qhead++
		s.queued[k] = false
		if !s.revise(k) {
			ok = false
			break
		}
	}
	for s.qhead < len(s.queue) {
		s.queued[s.queue[s.qhead]] = false
		s.qhead++
	}
	s.queue = s.queue[:0]
	s.qhead = 0
	return ok
}

// revise checks one constraint against current activity bounds and tightens
// the domains of its variables where a value could never satisfy the range.
func (s *search) revise(k int) bool {
	c := &s.m.cons[k]
	if s.minAct[k] > c.high || s.maxAct[k] < c.low {
		return false
	}

	for _, t := range c.terms {
		v, co := t.Var, t.Coeff
		if co == 0 || s.lows[v] == s.highs[v] {
			continue
		}

		var contribMin, contribMax int64
		if co > 0 {
			contribMin, contribMax = co*s.lows[v], co*s.highs[v]
		} else {
			contribMin, contribMax = co*s.highs[v], co*s.lows[v]
		}
		restMin := s.minAct[k] - contribMin
		restMax := s.maxAct[k] - contribMax

		// Any feasible x satisfies co*x <= high-restMin and co*x >= low-restMax.
		ubNum := c.high - restMin
		lbNum := c.low - restMax
		var newLow, newHigh int64
		if co > 0 {
			newHigh = floorDiv(ubNum, co)
			newLow = ceilDiv(lbNum, co)
		} else {
			newLow = ceilDiv(ubNum, co)
			newHigh = floorDiv(lbNum, co)
		}

		if newLow > s.lows[v] {
			if newLow > s.highs[v] {
				return false
			}
			s.setLow(v, newLow)
		}
		if newHigh < s.highs[v] {
			if newHigh < s.lows[v] {
				return false
			}
			s.setHigh(v, newHigh)
		}
	}
	return true
}

func (s *search) fix(v VarID, x int64) {
	s.trail = append(s.trail, trailEntry{v, s.lows[v], s.highs[v]})
	s.applyLow(v, x)
	s.applyHigh(v, x)
	for _, oc := range s.occs[v] {
		s.enqueue(oc.con)
	}
}

func (s *search) setLow(v VarID, nl int64) {
	s.trail = append(s.trail, trailEntry{v, s.lows[v], s.highs[v]})
	s.applyLow(v, nl)
	for _, oc := range s.occs[v] {
		s.enqueue(oc.con)
	}
}

func (s *search) setHigh(v VarID, nh int64) {
	s.trail = append(s.trail, trailEntry{v, s.lows[v], s.highs[v]})
	s.applyHigh(v, nh)
	for _, oc := range s.occs[v] {
		s.enqueue(oc.con)
	}
}

// applyLow moves a lower bound in either direction, keeping activity bounds
// in sync. Backtracking reuses it with the saved bound.
func (s *search) applyLow(v VarID, nl int64) {
	delta := nl - s.lows[v]
	if delta == 0 {
		return
	}
	for _, oc := range s.occs[v] {
		if oc.coeff > 0 {
			s.minAct[oc.con] += oc.coeff * delta
		} else {
			s.maxAct[oc.con] += oc.coeff * delta
		}
	}
	s.lows[v] = nl
}

func (s *search) applyHigh(v VarID, nh int64) {
	delta := nh - s.highs[v]
	if delta == 0 {
		return
	}
	for _, oc := range s.occs[v] {
		if oc.coeff > 0 {
			s.maxAct[oc.con] += oc.coeff * delta
		} else {
			s.minAct[oc.con] += oc.coeff * delta
		}
	}
	s.highs[v] = nh
}

func (s *search) untrail(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		e := s.trail[i]
		s.applyLow(e.v, e.low)
		s.applyHigh(e.v, e.high)
	}
	s.trail = s.trail[:mark]
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
