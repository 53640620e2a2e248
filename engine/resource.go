/*
resource.go - Resource lifecycle and rate back-fill

PURPOSE:
  CRUD for resources plus the one side effect with real teeth: when a
  resource's hourlyRate or billableRate changes, allocations that inherit
  that rate (nil per-allocation override) are back-filled with the new rate
  and their derived figures recomputed. Allocations with an explicit rate
  are left untouched - explicit overrides are sticky.

DELETE GUARD:
  A resource is deletable only when it owns zero allocations.

SEE ALSO:
  - allocation.go: Where per-allocation overrides are set
  - calc.go:       Recomputation math
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ResourceService struct {
	store TxStore
}

func NewResourceService(store TxStore) *ResourceService {
	return &ResourceService{store: store}
}

// Create persists a new resource.
func (s *ResourceService) Create(ctx context.Context, r Resource) (*Resource, error) {
	if r.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if r.ID == "" {
		r.ID = ResourceID(uuid.NewString())
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.store.SaveResource(ctx, r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Update saves the resource and, when a rate changed, back-fills inheriting
// allocations inside the same transaction. The owning projects' cached
// actualCost is adjusted by the recomputation delta so rollups stay
// consistent with the new rates.
func (s *ResourceService) Update(ctx context.Context, r Resource) (*Resource, error) {
	if r.ID == "" {
		return nil, &ValidationError{Field: "id", Message: "required"}
	}

	var updated Resource
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetResource(ctx, r.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, r.ID)
		}

		now := time.Now().UTC()
		r.CreatedAt = existing.CreatedAt
		r.UpdatedAt = now
		if err := tx.SaveResource(ctx, r); err != nil {
			return err
		}

		ratesChanged := !existing.HourlyRate.Equal(r.HourlyRate) ||
			!existing.BillableRate.Equal(r.BillableRate)
		if ratesChanged {
			if err := backfillRates(ctx, tx, &r, now); err != nil {
				return err
			}
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a resource, rejecting when it still owns allocations.
func (s *ResourceService) Delete(ctx context.Context, id ResourceID) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetResource(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, id)
		}

		allocations, err := tx.ListAllocationsByResource(ctx, id)
		if err != nil {
			return err
		}
		if len(allocations) > 0 {
			return fmt.Errorf("%w: %s has %d allocations", ErrResourceHasAllocations, id, len(allocations))
		}

		return tx.DeleteResource(ctx, id)
	})
}

// Get returns one resource.
func (s *ResourceService) Get(ctx context.Context, id ResourceID) (*Resource, error) {
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
	}
	return r, nil
}

// backfillRates copies the resource's new rates into allocations that have no
// per-allocation override, recomputes their derived figures, and moves the
// cost delta onto each owning project.
func backfillRates(ctx context.Context, tx Store, r *Resource, now time.Time) error {
	allocations, err := tx.ListAllocationsByResource(ctx, r.ID)
	if err != nil {
		return err
	}

	for _, a := range allocations {
		if a.HourlyRate != nil && a.BillableRate != nil {
			continue // fully explicit, sticky
		}

		if a.HourlyRate == nil {
			rate := r.HourlyRate
			a.HourlyRate = &rate
		}
		if a.BillableRate == nil {
			rate := r.BillableRate
			a.BillableRate = &rate
		}

		oldCost := a.TotalCost
		fin := ComputeFinancials(a.StartDate, a.EndDate, a.Utilization,
			*a.HourlyRate, *a.BillableRate, a.IsBillable)
		a.TotalHours = fin.TotalHours
		a.TotalCost = fin.TotalCost
		a.BillableAmount = fin.BillableAmount
		a.UpdatedAt = now

		if err := tx.SaveAllocation(ctx, a); err != nil {
			return err
		}

		project, err := tx.GetProject(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		if project != nil {
			project.ActualCost = flooredSub(project.ActualCost, oldCost).Add(a.TotalCost)
			project.UpdatedAt = now
			if err := tx.SaveProject(ctx, *project); err != nil {
				return err
			}
		}
	}
	return nil
}
