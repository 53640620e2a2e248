/*
conflict.go - Utilization cap enforcement

PURPOSE:
  Prevents double-booking a resource beyond full-time capacity across
  concurrent project commitments. Given a candidate date range and
  utilization, sums the utilization of all OTHER overlapping allocations and
  rejects when the combined total would exceed 100%.

OVERLAP SEMANTICS:
  existing.start <= candidate.end AND existing.end >= candidate.start.
  Any overlap counts the full declared utilization of both allocations for
  the overlapping window. This is deliberately conservative: a partial
  overlap may be rejected even though day-by-day accounting would allow it,
  in exchange for O(allocations-for-resource) simplicity instead of timeline
  reconstruction.

EXCLUSIONS:
  - ExcludeAllocation: the allocation being updated must not count against
    itself.
  - ExcludeProject: import-time re-assignment within the same project is
    legitimate; rows for that project are skipped.

SEE ALSO:
  - allocation.go: Calls CheckUtilization before every persist
  - importer.go:   Reuses the same check with ExcludeProject
*/
package engine

import "context"

// UtilizationCheck is the checker's structured result. CurrentTotal is the
// summed utilization of overlapping allocations, excluding any exclusions;
// it is reported even on rejection so callers can display remaining capacity.
type UtilizationCheck struct {
	OK           bool
	CurrentTotal int
}

// Exclude narrows which existing allocations count toward the total.
type Exclude struct {
	AllocationID AllocationID
	ProjectID    ProjectID
}

// CheckUtilization sums the utilization of all of the resource's allocations
// overlapping [start, end], minus exclusions, and reports whether adding
// utilization on top stays within 100%.
func CheckUtilization(ctx context.Context, store Store, resourceID ResourceID, start, end Date, utilization int, exclude Exclude) (UtilizationCheck, error) {
	existing, err := store.ListAllocationsByResource(ctx, resourceID)
	if err != nil {
		return UtilizationCheck{}, err
	}

	total := 0
	for _, a := range existing {
		if exclude.AllocationID != "" && a.ID == exclude.AllocationID {
			continue
		}
		if exclude.ProjectID != "" && a.ProjectID == exclude.ProjectID {
			continue
		}
		if a.Overlaps(start, end) {
			total += a.Utilization
		}
	}

	return UtilizationCheck{
		OK:           total+utilization <= 100,
		CurrentTotal: total,
	}, nil
}
