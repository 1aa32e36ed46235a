package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnitProgress is a learner's standing on a single unit: whether it has been
// completed, and a 0-100 mastery score derived from the unit's review states.
type UnitProgress struct {
	Completed    bool `json:"completed"`
	MasteryScore int  `json:"mastery_score"`
}

// Satisfied reports whether the unit counts as fulfilled for prerequisite
// purposes. Mastery implies completion here: a fully mastered unit unlocks
// its dependents even if the completion event was never recorded.
func (p UnitProgress) Satisfied() bool {
	return p.Completed || p.MasteryScore >= 100
}

// LearnerPathSnapshot is a derived, read-only view of a learner's standing
// across units, assembled on demand from the completion and review stores.
// It is internally consistent at the moment of the read but may go stale
// immediately afterwards; plans computed from it are advisory.
type LearnerPathSnapshot struct {
	LearnerID uuid.UUID                  `json:"learner_id"`
	AsOf      time.Time                  `json:"as_of"`
	Units     map[uuid.UUID]UnitProgress `json:"units"`

	// TagActivity maps each tag to the learner's most recent review or
	// completion touching a unit with that tag. Feeds the planner's
	// affinity-continuity heuristic.
	TagActivity map[string]time.Time `json:"tag_activity"`
}

// Progress returns the learner's standing on a unit, zero-valued when the
// learner has never touched it.
func (s *LearnerPathSnapshot) Progress(unitID uuid.UUID) UnitProgress {
	if s == nil || s.Units == nil {
		return UnitProgress{}
	}
	return s.Units[unitID]
}

// LastActivityForTags returns the most recent activity time across the given
// tags, or the zero time when none of them has been touched.
func (s *LearnerPathSnapshot) LastActivityForTags(tags []string) time.Time {
	var latest time.Time
	if s == nil || s.TagActivity == nil {
		return latest
	}
	for _, tag := range tags {
		if at, ok := s.TagActivity[tag]; ok && at.After(latest) {
			latest = at
		}
	}
	return latest
}

// LearnerPlan is a ranked learning-path recommendation: the frontier units a
// learner can start now, in suggested order.
type LearnerPlan struct {
	LearnerID     uuid.UUID   `json:"learner_id"`
	UnitIDs       []uuid.UUID `json:"unit_ids"`
	ConstraintKey string      `json:"constraint_key"`
	ComputedAt    time.Time   `json:"computed_at"`

	// FromCache marks a plan served from the recommendation cache rather
	// than freshly computed.
	FromCache bool `json:"from_cache"`
}
