/*
allocation.go - Allocation lifecycle service

PURPOSE:
  Owns create/update/delete of allocation records. Every write validates
  required fields, verifies the referenced resource and project exist, runs
  the utilization checker, recomputes derived figures via the calculator, and
  maintains the owning project's cached actualCost - all inside one
  transaction.

COST SEQUENCING:
  Update subtracts the OLD totalCost from the old project's actualCost before
  adding the new totalCost to the (possibly different) project. This
  subtract-then-add order keeps rollups consistent across a move between
  projects. Delete subtracts and floors the project total at zero.

KNOWN RACE:
  The checker's read and the store's write are not atomic against concurrent
  writers; the transaction only protects this call's own steps. Recalculate
  (rollup.go) exists as the repair mechanism for any resulting drift.

SEE ALSO:
  - conflict.go: Utilization cap check
  - calc.go:     Derived-figure math
  - resource.go: Rate back-fill on resource rate changes
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationService coordinates allocation writes against a transactional store.
type AllocationService struct {
	store TxStore
}

func NewAllocationService(store TxStore) *AllocationService {
	return &AllocationService{store: store}
}

// AllocationInput carries the caller-supplied fields for a create.
type AllocationInput struct {
	ResourceID   ResourceID
	ProjectID    ProjectID
	StartDate    Date
	EndDate      Date
	Utilization  int
	HourlyRate   *decimal.Decimal
	BillableRate *decimal.Decimal
	IsBillable   bool
	BillingType  BillingType
}

// AllocationPatch carries optional fields for an update. Nil means "leave
// unchanged". Setting a rate makes it an explicit per-allocation override.
type AllocationPatch struct {
	ResourceID   *ResourceID
	ProjectID    *ProjectID
	StartDate    *Date
	EndDate      *Date
	Utilization  *int
	HourlyRate   *decimal.Decimal
	BillableRate *decimal.Decimal
	IsBillable   *bool
	BillingType  *BillingType
}

// Create validates, checks utilization, computes derived figures, persists
// the allocation, and adds its totalCost to the owning project's actualCost.
func (s *AllocationService) Create(ctx context.Context, in AllocationInput) (*Allocation, error) {
	var created Allocation
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		created, err = createAllocationTx(ctx, tx, in, Exclude{})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// createAllocationTx is the single create path, shared by the interactive
// service and the bulk importer (which passes an Exclude for its own
// project). Runs within the caller's transaction.
func createAllocationTx(ctx context.Context, tx Store, in AllocationInput, exclude Exclude) (Allocation, error) {
	if err := validateAllocationInput(in); err != nil {
		return Allocation{}, err
	}

	resource, err := tx.GetResource(ctx, in.ResourceID)
	if err != nil {
		return Allocation{}, err
	}
	if resource == nil {
		return Allocation{}, fmt.Errorf("%w: %s", ErrResourceNotFound, in.ResourceID)
	}

	project, err := tx.GetProject(ctx, in.ProjectID)
	if err != nil {
		return Allocation{}, err
	}
	if project == nil {
		return Allocation{}, fmt.Errorf("%w: %s", ErrProjectNotFound, in.ProjectID)
	}

	check, err := CheckUtilization(ctx, tx, in.ResourceID, in.StartDate, in.EndDate, in.Utilization, exclude)
	if err != nil {
		return Allocation{}, err
	}
	if !check.OK {
		return Allocation{}, &UtilizationExceededError{
			ResourceID:   in.ResourceID,
			CurrentTotal: check.CurrentTotal,
			Requested:    in.Utilization,
		}
	}

	now := time.Now().UTC()
	created := Allocation{
		ID:           AllocationID(uuid.NewString()),
		ResourceID:   in.ResourceID,
		ProjectID:    in.ProjectID,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Utilization:  in.Utilization,
		HourlyRate:   in.HourlyRate,
		BillableRate: in.BillableRate,
		IsBillable:   in.IsBillable,
		BillingType:  in.BillingType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if created.BillingType == "" {
		created.BillingType = BillingHourly
	}

	fin := ComputeFinancials(created.StartDate, created.EndDate, created.Utilization,
		created.EffectiveHourlyRate(resource), created.EffectiveBillableRate(resource), created.IsBillable)
	created.TotalHours = fin.TotalHours
	created.TotalCost = fin.TotalCost
	created.BillableAmount = fin.BillableAmount

	if err := tx.SaveAllocation(ctx, created); err != nil {
		return Allocation{}, err
	}

	project.ActualCost = project.ActualCost.Add(created.TotalCost)
	project.UpdatedAt = now
	if err := tx.SaveProject(ctx, *project); err != nil {
		return Allocation{}, err
	}
	return created, nil
}

// Update merges the patch over the stored allocation, re-verifies any changed
// resource/project references, re-checks utilization excluding itself, and
// moves the cost delta between projects with subtract-then-add sequencing.
func (s *AllocationService) Update(ctx context.Context, id AllocationID, patch AllocationPatch) (*Allocation, error) {
	var updated Allocation
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetAllocation(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
		}

		merged := *existing
		oldProjectID := existing.ProjectID
		oldCost := existing.TotalCost
		applyPatch(&merged, patch)

		if merged.StartDate.After(merged.EndDate) {
			return &ValidationError{Field: "endDate", Message: "end date must not precede start date"}
		}
		if merged.Utilization < 1 || merged.Utilization > 100 {
			return &ValidationError{Field: "utilization", Message: "must be between 1 and 100"}
		}

		resource, err := tx.GetResource(ctx, merged.ResourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			return fmt.Errorf("%w: %s", ErrResourceNotFound, merged.ResourceID)
		}

		newProject, err := tx.GetProject(ctx, merged.ProjectID)
		if err != nil {
			return err
		}
		if newProject == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, merged.ProjectID)
		}

		check, err := CheckUtilization(ctx, tx, merged.ResourceID, merged.StartDate, merged.EndDate,
			merged.Utilization, Exclude{AllocationID: id})
		if err != nil {
			return err
		}
		if !check.OK {
			return &UtilizationExceededError{
				ResourceID:   merged.ResourceID,
				CurrentTotal: check.CurrentTotal,
				Requested:    merged.Utilization,
			}
		}

		fin := ComputeFinancials(merged.StartDate, merged.EndDate, merged.Utilization,
			merged.EffectiveHourlyRate(resource), merged.EffectiveBillableRate(resource), merged.IsBillable)
		merged.TotalHours = fin.TotalHours
		merged.TotalCost = fin.TotalCost
		merged.BillableAmount = fin.BillableAmount
		now := time.Now().UTC()
		merged.UpdatedAt = now

		// Subtract from the old project first, then add to the new one.
		// The order matters when the allocation moves between projects.
		if oldProjectID != merged.ProjectID {
			oldProject, err := tx.GetProject(ctx, oldProjectID)
			if err != nil {
				return err
			}
			if oldProject != nil {
				oldProject.ActualCost = flooredSub(oldProject.ActualCost, oldCost)
				oldProject.UpdatedAt = now
				if err := tx.SaveProject(ctx, *oldProject); err != nil {
					return err
				}
			}
			newProject.ActualCost = newProject.ActualCost.Add(merged.TotalCost)
		} else {
			newProject.ActualCost = flooredSub(newProject.ActualCost, oldCost).Add(merged.TotalCost)
		}
		newProject.UpdatedAt = now

		if err := tx.SaveAllocation(ctx, merged); err != nil {
			return err
		}
		if err := tx.SaveProject(ctx, *newProject); err != nil {
			return err
		}

		updated = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the allocation and subtracts its totalCost from the owning
// project's actualCost, floored at zero.
func (s *AllocationService) Delete(ctx context.Context, id AllocationID) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetAllocation(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
		}

		project, err := tx.GetProject(ctx, existing.ProjectID)
		if err != nil {
			return err
		}
		if project != nil {
			project.ActualCost = flooredSub(project.ActualCost, existing.TotalCost)
			project.UpdatedAt = time.Now().UTC()
			if err := tx.SaveProject(ctx, *project); err != nil {
				return err
			}
		}

		return tx.DeleteAllocation(ctx, id)
	})
}

// Get returns one allocation.
func (s *AllocationService) Get(ctx context.Context, id AllocationID) (*Allocation, error) {
	a, err := s.store.GetAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, id)
	}
	return a, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validateAllocationInput(in AllocationInput) error {
	switch {
	case in.ResourceID == "":
		return &ValidationError{Field: "resourceId", Message: "required"}
	case in.ProjectID == "":
		return &ValidationError{Field: "projectId", Message: "required"}
	case in.StartDate.IsZero():
		return &ValidationError{Field: "startDate", Message: "required"}
	case in.EndDate.IsZero():
		return &ValidationError{Field: "endDate", Message: "required"}
	case in.StartDate.After(in.EndDate):
		return &ValidationError{Field: "endDate", Message: "end date must not precede start date"}
	case in.Utilization < 1 || in.Utilization > 100:
		return &ValidationError{Field: "utilization", Message: "must be between 1 and 100"}
	}
	return nil
}

func applyPatch(a *Allocation, patch AllocationPatch) {
	if patch.ResourceID != nil {
		a.ResourceID = *patch.ResourceID
	}
	if patch.ProjectID != nil {
		a.ProjectID = *patch.ProjectID
	}
	if patch.StartDate != nil {
		a.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		a.EndDate = *patch.EndDate
	}
	if patch.Utilization != nil {
		a.Utilization = *patch.Utilization
	}
	if patch.HourlyRate != nil {
		a.HourlyRate = patch.HourlyRate
	}
	if patch.BillableRate != nil {
		a.BillableRate = patch.BillableRate
	}
	if patch.IsBillable != nil {
		a.IsBillable = *patch.IsBillable
	}
	if patch.BillingType != nil {
		a.BillingType = *patch.BillingType
	}
}

// flooredSub subtracts b from a, flooring at zero. The cached project total
// must never go negative even if drift has crept in.
func flooredSub(a, b decimal.Decimal) decimal.Decimal {
	result := a.Sub(b)
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}
