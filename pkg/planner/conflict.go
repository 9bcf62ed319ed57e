// Package planner turns tasks and participants into a constraint model,
// solves it and reads the solution back out as validated assignments.
package planner

import (
	"github.com/mhoangvslev/recordara-planner/pkg/models"
)

// ConflictMatrix records which task pairs overlap in time and can therefore
// never share a participant. Pairs are kept in input order with i < j.
type ConflictMatrix struct {
	pairs [][2]int
	set   map[[2]int]bool
}

// BuildConflictMatrix compares every task pair once.
func BuildConflictMatrix(tasks []models.Task) *ConflictMatrix {
	m := &ConflictMatrix{set: make(map[[2]int]bool)}
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			if overlaps(tasks[i], tasks[j]) {
				m.pairs = append(m.pairs, [2]int{i, j})
				m.set[[2]int{i, j}] = true
			}
		}
	}
	return m
}

// overlaps checks two half-open task windows for intersection. Windows on
// different dates never intersect because start and end carry the date.
func overlaps(a, b models.Task) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Conflicts reports whether tasks i and j overlap, in either order.
func (m *ConflictMatrix) Conflicts(i, j int) bool {
	if i > j {
		i, j = j, i
	}
	return m.set[[2]int{i, j}]
}

// Pairs returns all conflicting index pairs in deterministic order.
func (m *ConflictMatrix) Pairs() [][2]int {
	return m.pairs
}
