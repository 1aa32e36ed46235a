// Package planner computes ranked learning-path recommendations over the
// prerequisite graph. Plan is the pure core: it validates graph integrity,
// finds the learner's unlockable frontier, and ranks it. Service wires the
// pure core to the unit store, the progress snapshot, and the recommendation
// cache.
package planner

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// Plan computes the ranked frontier for a learner: every unit not yet
// completed or mastered whose prerequisites are all satisfied in the
// snapshot. When constraint is non-empty, only frontier units named by it
// are ranked; constraint IDs matching nothing drop out silently.
//
// Ranking is lexicographic:
//  1. Units carrying an OrderHint precede units without one and sort
//     ascending by hint.
//  2. More direct dependents first, so finishing the unit unlocks more of
//     the curriculum.
//  3. More recent learner activity among the unit's tags first.
//  4. Unit ID ascending, so equal candidates order the same way on every
//     call.
//
// An empty unit list or an empty frontier yields an empty plan and nil
// error. A malformed graph yields a *GraphIntegrityError and no plan.
func Plan(
	units []*domain.LearningUnit,
	snap *domain.LearnerPathSnapshot,
	constraint []uuid.UUID,
) ([]uuid.UUID, error) {
	gr, err := buildGraph(units)
	if err != nil {
		return nil, err
	}

	candidates := filterByConstraint(gr.frontier(snap), constraint)
	rankCandidates(candidates, gr, snap)

	ids := make([]uuid.UUID, len(candidates))
	for i, unit := range candidates {
		ids[i] = unit.ID
	}
	return ids, nil
}

// filterByConstraint keeps only the frontier units the constraint names. An
// empty constraint keeps everything.
func filterByConstraint(
	frontier []*domain.LearningUnit,
	constraint []uuid.UUID,
) []*domain.LearningUnit {
	if len(constraint) == 0 {
		return frontier
	}

	allowed := make(map[uuid.UUID]struct{}, len(constraint))
	for _, id := range constraint {
		allowed[id] = struct{}{}
	}

	filtered := make([]*domain.LearningUnit, 0, len(frontier))
	for _, unit := range frontier {
		if _, ok := allowed[unit.ID]; ok {
			filtered = append(filtered, unit)
		}
	}
	return filtered
}

// rankCandidates orders the candidates in place by the rules documented on
// Plan. The unit-ID tie-break makes the order total, so the sort is
// deterministic for any input permutation.
func rankCandidates(
	candidates []*domain.LearningUnit,
	gr *graph,
	snap *domain.LearnerPathSnapshot,
) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		// Authored order hints take precedence over both heuristics.
		switch {
		case a.OrderHint != nil && b.OrderHint == nil:
			return true
		case a.OrderHint == nil && b.OrderHint != nil:
			return false
		case a.OrderHint != nil && b.OrderHint != nil && *a.OrderHint != *b.OrderHint:
			return *a.OrderHint < *b.OrderHint
		}

		if da, db := gr.dependentCount(a.ID), gr.dependentCount(b.ID); da != db {
			return da > db
		}

		aActivity := snap.LastActivityForTags(a.Tags)
		bActivity := snap.LastActivityForTags(b.Tags)
		if !aActivity.Equal(bActivity) {
			return aActivity.After(bActivity)
		}

		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}
