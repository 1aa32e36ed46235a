package plancache

import (
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// WildcardKey is the constraint key for unconstrained plans.
const WildcardKey = "*"

// ConstraintKey canonicalizes a constraint set into a cache key: IDs are
// sorted and deduplicated so every spelling of the same set maps to the same
// entry. An empty set yields WildcardKey.
func ConstraintKey(unitIDs []uuid.UUID) string {
	if len(unitIDs) == 0 {
		return WildcardKey
	}

	ids := make([]string, len(unitIDs))
	for i, id := range unitIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	ids = slices.Compact(ids)

	return strings.Join(ids, ",")
}
