package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumolearn/lumo-core/internal/domain"
)

// snapshotOf builds a learner snapshot from per-unit progress and tag
// activity, either of which may be nil.
func snapshotOf(
	units map[uuid.UUID]domain.UnitProgress,
	tags map[string]time.Time,
) *domain.LearnerPathSnapshot {
	return &domain.LearnerPathSnapshot{
		LearnerID:   uuid.New(),
		AsOf:        time.Now().UTC(),
		Units:       units,
		TagActivity: tags,
	}
}

// completedUnits marks each given unit completed.
func completedUnits(ids ...uuid.UUID) map[uuid.UUID]domain.UnitProgress {
	units := make(map[uuid.UUID]domain.UnitProgress, len(ids))
	for _, id := range ids {
		units[id] = domain.UnitProgress{Completed: true}
	}
	return units
}

func hintOf(n int) *int {
	return &n
}

func assertPlanOrder(t *testing.T, got, want []uuid.UUID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected plan of %d units, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plan order mismatch at position %d:\n got: %v\nwant: %v", i, got, want)
		}
	}
}

func assertPlanSet(t *testing.T, got, want []uuid.UUID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected plan of %d units, got %d: %v", len(want), len(got), got)
	}
	members := make(map[uuid.UUID]struct{}, len(got))
	for _, id := range got {
		members[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := members[id]; !ok {
			t.Fatalf("expected unit %s in plan, got: %v", id, got)
		}
	}
}

func TestPlanEmptyGraph(t *testing.T) {
	t.Parallel()

	plan, err := Plan(nil, snapshotOf(nil, nil), nil)
	if err != nil {
		t.Fatalf("expected no error for empty graph, got: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("expected empty plan, got: %v", plan)
	}
}

func TestPlanNilSnapshot(t *testing.T) {
	t.Parallel()

	a := namedUnit(uuid.New(), "Fractions")
	b := namedUnit(uuid.New(), "Decimals", a.ID)

	plan, err := Plan([]*domain.LearningUnit{a, b}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error with nil snapshot, got: %v", err)
	}
	assertPlanOrder(t, plan, []uuid.UUID{a.ID})
}

func TestPlanAllUnitsWhenNoneHavePrerequisites(t *testing.T) {
	t.Parallel()

	units := []*domain.LearningUnit{
		namedUnit(uuid.New(), "Fractions"),
		namedUnit(uuid.New(), "Decimals"),
		namedUnit(uuid.New(), "Percentages"),
		namedUnit(uuid.New(), "Ratios"),
	}

	plan, err := Plan(units, snapshotOf(nil, nil), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	want := make([]uuid.UUID, len(units))
	for i, u := range units {
		want[i] = u.ID
	}
	assertPlanSet(t, plan, want)
}

func TestPlanChainProgression(t *testing.T) {
	t.Parallel()

	a := namedUnit(uuid.New(), "Fractions")
	b := namedUnit(uuid.New(), "Decimals", a.ID)
	c := namedUnit(uuid.New(), "Percentages", a.ID, b.ID)
	units := []*domain.LearningUnit{a, b, c}

	testCases := []struct {
		name     string
		snapshot *domain.LearnerPathSnapshot
		want     []uuid.UUID
	}{
		{
			name:     "nothing completed unlocks only the root",
			snapshot: snapshotOf(nil, nil),
			want:     []uuid.UUID{a.ID},
		},
		{
			name:     "completing the root unlocks the middle unit only",
			snapshot: snapshotOf(completedUnits(a.ID), nil),
			want:     []uuid.UUID{b.ID},
		},
		{
			name:     "completing both prerequisites unlocks the leaf",
			snapshot: snapshotOf(completedUnits(a.ID, b.ID), nil),
			want:     []uuid.UUID{c.ID},
		},
		{
			name:     "completing everything empties the frontier",
			snapshot: snapshotOf(completedUnits(a.ID, b.ID, c.ID), nil),
			want:     nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			plan, err := Plan(units, tc.snapshot, nil)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			assertPlanOrder(t, plan, tc.want)
		})
	}
}

func TestPlanMasterySatisfiesPrerequisites(t *testing.T) {
	t.Parallel()

	a := namedUnit(uuid.New(), "Fractions")
	b := namedUnit(uuid.New(), "Decimals", a.ID)

	snap := snapshotOf(map[uuid.UUID]domain.UnitProgress{
		a.ID: {MasteryScore: 100},
	}, nil)

	plan, err := Plan([]*domain.LearningUnit{a, b}, snap, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	// a is mastered so it leaves the frontier and unlocks b.
	assertPlanOrder(t, plan, []uuid.UUID{b.ID})
}

func TestPlanConstraintFilter(t *testing.T) {
	t.Parallel()

	a := namedUnit(uuid.New(), "Fractions")
	b := namedUnit(uuid.New(), "Decimals")
	c := namedUnit(uuid.New(), "Percentages")
	units := []*domain.LearningUnit{a, b, c}

	testCases := []struct {
		name       string
		constraint []uuid.UUID
		want       []uuid.UUID
	}{
		{
			name:       "empty constraint keeps the whole frontier",
			constraint: nil,
			want:       []uuid.UUID{a.ID, b.ID, c.ID},
		},
		{
			name:       "constraint narrows the frontier",
			constraint: []uuid.UUID{b.ID},
			want:       []uuid.UUID{b.ID},
		},
		{
			name:       "unknown constraint IDs drop out silently",
			constraint: []uuid.UUID{b.ID, uuid.New()},
			want:       []uuid.UUID{b.ID},
		},
		{
			name:       "entirely unknown constraint yields an empty plan",
			constraint: []uuid.UUID{uuid.New(), uuid.New()},
			want:       nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			plan, err := Plan(units, snapshotOf(nil, nil), tc.constraint)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			assertPlanSet(t, plan, tc.want)
		})
	}
}

func TestPlanConstraintExcludesBlockedUnits(t *testing.T) {
	t.Parallel()

	a := namedUnit(uuid.New(), "Fractions")
	b := namedUnit(uuid.New(), "Decimals", a.ID)

	// b is named by the constraint but still blocked behind a.
	plan, err := Plan([]*domain.LearningUnit{a, b}, snapshotOf(nil, nil), []uuid.UUID{b.ID})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("expected empty plan for a blocked constraint target, got: %v", plan)
	}
}

func TestPlanRankingOrderHintsTakePrecedence(t *testing.T) {
	t.Parallel()

	hintedSecond := namedUnit(uuid.New(), "Decimals")
	hintedSecond.OrderHint = hintOf(2)
	hintedFirst := namedUnit(uuid.New(), "Fractions")
	hintedFirst.OrderHint = hintOf(1)
	unhinted := namedUnit(uuid.New(), "Percentages")

	// The unhinted unit unlocks a dependent; hints still outrank it.
	dependent := namedUnit(uuid.New(), "Ratios", unhinted.ID)

	units := []*domain.LearningUnit{unhinted, hintedSecond, dependent, hintedFirst}
	plan, err := Plan(units, snapshotOf(nil, nil), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	assertPlanOrder(t, plan, []uuid.UUID{hintedFirst.ID, hintedSecond.ID, unhinted.ID})
}

func TestPlanRankingPrefersUnitsUnlockingMore(t *testing.T) {
	t.Parallel()

	unlocksTwo := namedUnit(uuid.New(), "Fractions")
	unlocksOne := namedUnit(uuid.New(), "Decimals")
	unlocksNone := namedUnit(uuid.New(), "Percentages")

	units := []*domain.LearningUnit{
		unlocksNone,
		unlocksOne,
		unlocksTwo,
		namedUnit(uuid.New(), "Ratios", unlocksTwo.ID),
		namedUnit(uuid.New(), "Proportions", unlocksTwo.ID),
		namedUnit(uuid.New(), "Scales", unlocksOne.ID),
	}

	plan, err := Plan(units, snapshotOf(nil, nil), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	assertPlanOrder(t, plan, []uuid.UUID{unlocksTwo.ID, unlocksOne.ID, unlocksNone.ID})
}

func TestPlanRankingPrefersRecentTagActivity(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	recent := namedUnit(uuid.New(), "Fractions")
	recent.Tags = []string{"arithmetic"}
	stale := namedUnit(uuid.New(), "Grammar")
	stale.Tags = []string{"language"}
	untouched := namedUnit(uuid.New(), "Geometry")
	untouched.Tags = []string{"shapes"}

	snap := snapshotOf(nil, map[string]time.Time{
		"arithmetic": now.Add(-1 * time.Hour),
		"language":   now.Add(-48 * time.Hour),
	})

	plan, err := Plan([]*domain.LearningUnit{untouched, stale, recent}, snap, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	assertPlanOrder(t, plan, []uuid.UUID{recent.ID, stale.ID, untouched.ID})
}

func TestPlanRankingTieBreaksByUnitID(t *testing.T) {
	t.Parallel()

	a := namedUnit(uuid.New(), "Fractions")
	b := namedUnit(uuid.New(), "Decimals")
	c := namedUnit(uuid.New(), "Percentages")

	want := []uuid.UUID{a.ID, b.ID, c.ID}
	sortUnitIDs(want)

	plan, err := Plan([]*domain.LearningUnit{c, a, b}, snapshotOf(nil, nil), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	assertPlanOrder(t, plan, want)
}

func TestPlanDeterministicAcrossInputPermutations(t *testing.T) {
	t.Parallel()

	root := namedUnit(uuid.New(), "Fractions")
	hinted := namedUnit(uuid.New(), "Decimals")
	hinted.OrderHint = hintOf(1)
	tagged := namedUnit(uuid.New(), "Percentages")
	tagged.Tags = []string{"arithmetic"}
	plain := namedUnit(uuid.New(), "Ratios")
	dependent := namedUnit(uuid.New(), "Proportions", root.ID)

	units := []*domain.LearningUnit{root, hinted, tagged, plain, dependent}
	snap := snapshotOf(nil, map[string]time.Time{
		"arithmetic": time.Now().UTC().Add(-time.Hour),
	})

	first, err := Plan(units, snap, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	permutations := [][]*domain.LearningUnit{
		{dependent, plain, tagged, hinted, root},
		{hinted, root, dependent, plain, tagged},
		{tagged, dependent, root, hinted, plain},
	}
	for _, perm := range permutations {
		plan, err := Plan(perm, snap, nil)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		assertPlanOrder(t, plan, first)
	}
}

func TestPlanCycleReturnsGraphIntegrityError(t *testing.T) {
	t.Parallel()

	aID := uuid.New()
	bID := uuid.New()
	units := []*domain.LearningUnit{
		namedUnit(aID, "Fractions", bID),
		namedUnit(bID, "Decimals", aID),
	}

	plan, err := Plan(units, snapshotOf(nil, nil), nil)
	if err == nil {
		t.Fatal("expected error for cyclic graph, got nil")
	}
	if plan != nil {
		t.Errorf("expected no plan alongside the error, got: %v", plan)
	}
	if !errors.Is(err, ErrGraphIntegrity) {
		t.Errorf("expected error to match ErrGraphIntegrity, got: %v", err)
	}

	var integrityErr *GraphIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected *GraphIntegrityError, got: %T", err)
	}
}
