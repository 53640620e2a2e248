/*
snapshot.go - Immutable financial snapshots

PURPOSE:
  Creates append-only, timestamped records of a project's planned vs actual
  financial state, on demand or as a side effect of a budget recalculation.
  Snapshots are historical facts: never mutated, never recalculated after
  creation. Multiple snapshots per project are allowed and read back ordered
  by date descending.

ASSEMBLY:
  plannedBudget  = project.Budget + sum of budget-item planned amounts
  actualCost     = project.ActualCost + sum of budget-item actual amounts
  forecastedCost = allocated cost over all current allocations
  variance       = plannedBudget - forecastedCost

SEE ALSO:
  - rollup.go: The other snapshot producer
  - store.go:  AppendSnapshot contract (no update, no delete)
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SnapshotService struct {
	store TxStore
}

func NewSnapshotService(store TxStore) *SnapshotService {
	return &SnapshotService{store: store}
}

// Take freezes the project's current financial state into a new snapshot.
func (s *SnapshotService) Take(ctx context.Context, projectID ProjectID, name, notes string) (*FinancialSnapshot, error) {
	var snap *FinancialSnapshot
	err := s.store.WithTx(ctx, func(tx Store) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		snap, err = s.take(ctx, tx, project, name, notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns a project's snapshots, newest first.
func (s *SnapshotService) List(ctx context.Context, projectID ProjectID) ([]FinancialSnapshot, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return s.store.ListSnapshots(ctx, projectID)
}

// take assembles and appends a snapshot within the caller's transaction.
func (s *SnapshotService) take(ctx context.Context, tx Store, project *Project, name, notes string) (*FinancialSnapshot, error) {
	items, err := tx.ListBudgetItems(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	planned := project.Budget
	actual := project.ActualCost
	for _, item := range items {
		planned = planned.Add(item.PlannedAmount)
		actual = actual.Add(item.ActualAmount)
	}

	allocations, err := tx.ListAllocationsByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	forecast := decimal.Zero
	for _, a := range allocations {
		forecast = forecast.Add(a.TotalCost)
	}

	snap := FinancialSnapshot{
		ID:             uuid.NewString(),
		ProjectID:      project.ID,
		SnapshotDate:   time.Now().UTC(),
		Name:           name,
		PlannedBudget:  planned,
		ActualCost:     actual,
		ForecastedCost: forecast,
		Variance:       planned.Sub(forecast),
		Notes:          notes,
	}

	if err := tx.AppendSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
