package accesskit

// Diff-based reconciliation of "current" vs "target" assignment sets, and
// the per-item outcome types returned by batch operations.

// SyncResult reports the deltas applied by a diff-sync operation.
// Re-running the sync with the same target yields empty deltas.
type SyncResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// diffStrings computes target − current (to add) and current − target
// (to remove). Order of the inputs is irrelevant; duplicates collapse.
func diffStrings(current, target []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	targetSet := make(map[string]struct{}, len(target))
	for _, id := range target {
		targetSet[id] = struct{}{}
	}

	for _, id := range target {
		if _, ok := currentSet[id]; !ok {
			if _, dup := find(toAdd, id); !dup {
				toAdd = append(toAdd, id)
			}
		}
	}
	for _, id := range current {
		if _, ok := targetSet[id]; !ok {
			if _, dup := find(toRemove, id); !dup {
				toRemove = append(toRemove, id)
			}
		}
	}
	return toAdd, toRemove
}

func find(ids []string, id string) (int, bool) {
	for i, v := range ids {
		if v == id {
			return i, true
		}
	}
	return 0, false
}

// hasBlank reports whether any id in the list is the empty string.
func hasBlank(ids []string) bool {
	for _, id := range ids {
		if id == "" {
			return true
		}
	}
	return false
}

// dedupeStrings returns ids with duplicates and empty strings removed,
// preserving first-seen order.
func dedupeStrings(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// OutcomeStatus classifies the result of one (user, role) pair in a batch
// assignment or revocation.
type OutcomeStatus string

const (
	OutcomeAssigned        OutcomeStatus = "assigned"
	OutcomeAlreadyAssigned OutcomeStatus = "already_assigned"
	OutcomeRevoked         OutcomeStatus = "revoked"
	OutcomeNotAssigned     OutcomeStatus = "not_assigned"
	OutcomeNotFound        OutcomeStatus = "not_found"
)

// AssignmentOutcome is one entry of the per-pair result list returned by
// batch assignment operations. Every requested pair produces exactly one
// outcome; business-level failures are reported here and never abort the
// batch.
type AssignmentOutcome struct {
	UserID string        `json:"user_id"`
	RoleID string        `json:"role_id"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Failed returns true for outcomes that did not change the ledger.
func (o AssignmentOutcome) Failed() bool {
	return o.Status == OutcomeNotFound
}
