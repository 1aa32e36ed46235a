package planner

import (
	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// graph holds the prerequisite DAG with the reverse-edge index ranking needs.
type graph struct {
	units      []*domain.LearningUnit
	byID       map[uuid.UUID]*domain.LearningUnit
	dependents map[uuid.UUID][]uuid.UUID
}

// buildGraph constructs the graph from the unit list and validates its
// integrity before any planning touches it. Checks run in order: duplicate
// unit IDs, dangling prerequisite references, then cycles. Each check names
// every offender it finds.
func buildGraph(units []*domain.LearningUnit) (*graph, error) {
	gr := &graph{
		units:      units,
		byID:       make(map[uuid.UUID]*domain.LearningUnit, len(units)),
		dependents: make(map[uuid.UUID][]uuid.UUID, len(units)),
	}

	var duplicates []uuid.UUID
	for _, unit := range units {
		if _, seen := gr.byID[unit.ID]; seen {
			duplicates = append(duplicates, unit.ID)
			continue
		}
		gr.byID[unit.ID] = unit
	}
	if len(duplicates) > 0 {
		return nil, newGraphIntegrityError("duplicate unit IDs", duplicates)
	}

	var dangling []uuid.UUID
	for _, unit := range units {
		for _, prereqID := range unit.Prerequisites {
			if _, ok := gr.byID[prereqID]; !ok {
				dangling = append(dangling, unit.ID)
				break
			}
		}
	}
	if len(dangling) > 0 {
		return nil, newGraphIntegrityError("prerequisites reference unknown units", dangling)
	}

	// Build reverse edges (dependents)
	for _, unit := range units {
		for _, prereqID := range unit.Prerequisites {
			gr.dependents[prereqID] = append(gr.dependents[prereqID], unit.ID)
		}
	}

	if cyclic := gr.cycleMembers(); len(cyclic) > 0 {
		return nil, newGraphIntegrityError("dependency cycle detected", cyclic)
	}

	return gr, nil
}

// cycleMembers runs Kahn's algorithm over the graph and returns the units
// left with unresolved prerequisites, which are exactly the units on or
// downstream of a cycle. Each unit is dequeued at most once, so the pass is
// bounded by the unit count regardless of how malformed the input is.
// Returns nil for an acyclic graph.
func (g *graph) cycleMembers() []uuid.UUID {
	inDegree := make(map[uuid.UUID]int, len(g.units))
	for _, unit := range g.units {
		inDegree[unit.ID] = len(unit.Prerequisites)
	}

	var queue []uuid.UUID
	for _, unit := range g.units {
		if inDegree[unit.ID] == 0 {
			queue = append(queue, unit.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range g.dependents[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited == len(g.units) {
		return nil
	}

	var cyclic []uuid.UUID
	for _, unit := range g.units {
		if inDegree[unit.ID] > 0 {
			cyclic = append(cyclic, unit.ID)
		}
	}
	return cyclic
}

// dependentCount returns how many units list id as a direct prerequisite.
func (g *graph) dependentCount(id uuid.UUID) int {
	return len(g.dependents[id])
}

// frontier returns the units the learner can start now: units not yet
// completed or mastered whose prerequisites are all satisfied in the
// snapshot. Zero-prerequisite units always qualify. A nil snapshot plans as
// if the learner has no history.
func (g *graph) frontier(snap *domain.LearnerPathSnapshot) []*domain.LearningUnit {
	var frontier []*domain.LearningUnit
	for _, unit := range g.units {
		if snap.Progress(unit.ID).Satisfied() {
			continue
		}
		unlocked := true
		for _, prereqID := range unit.Prerequisites {
			if !snap.Progress(prereqID).Satisfied() {
				unlocked = false
				break
			}
		}
		if unlocked {
			frontier = append(frontier, unit)
		}
	}
	return frontier
}
