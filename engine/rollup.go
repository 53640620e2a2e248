/*
rollup.go - Project financial aggregation

PURPOSE:
  Aggregates all allocations of a project into actual cost, budget
  utilization, allocated cost, billable amount, profit, and profit margin.
  The read path (Summarize) is side-effect free and suitable for list views.
  Recalculate additionally repairs the project's cached actualCost from the
  source allocation rows - the repair mechanism for drift from the
  read-then-write race - and can append a snapshot of the result.

ZERO GUARDS:
  budgetUtilization is 0 when budget is 0; profitMargin is 0 when
  billableAmount is 0. Never divides by zero.

SEE ALSO:
  - snapshot.go:   Snapshot assembly
  - allocation.go: The incremental writer this repairs after
*/
package engine

import (
	"context"
	"fmt"
	"time"
)

type RollupService struct {
	store     TxStore
	snapshots *SnapshotService
}

func NewRollupService(store TxStore) *RollupService {
	return &RollupService{store: store, snapshots: NewSnapshotService(store)}
}

// RecalculateOptions controls side effects of a recalculation.
type RecalculateOptions struct {
	// CreateSnapshot appends a FinancialSnapshot of the recalculated state.
	// This and explicit snapshot creation are the only snapshot producers.
	CreateSnapshot bool
	SnapshotName   string
	SnapshotNotes  string
}

// Summarize computes the rollup from current allocation rows without writing
// anything. ActualCost here is the allocation sum, not the cached project
// field, so the result is drift-free.
func (s *RollupService) Summarize(ctx context.Context, projectID ProjectID) (*FinancialSummary, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	allocations, err := s.store.ListAllocationsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return buildSummary(project, allocations), nil
}

// Recalculate recomputes the rollup from source rows, writes the repaired
// actualCost back onto the project, and optionally appends a snapshot.
// Everything happens inside one transaction.
func (s *RollupService) Recalculate(ctx context.Context, projectID ProjectID, opts RecalculateOptions) (*FinancialSummary, error) {
	var summary *FinancialSummary
	err := s.store.WithTx(ctx, func(tx Store) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}

		allocations, err := tx.ListAllocationsByProject(ctx, projectID)
		if err != nil {
			return err
		}

		summary = buildSummary(project, allocations)

		project.ActualCost = summary.ActualCost
		project.UpdatedAt = time.Now().UTC()
		if err := tx.SaveProject(ctx, *project); err != nil {
			return err
		}

		if opts.CreateSnapshot {
			name := opts.SnapshotName
			if name == "" {
				name = "Recalculation"
			}
			_, err := s.snapshots.take(ctx, tx, project, name, opts.SnapshotNotes)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func buildSummary(project *Project, allocations []Allocation) *FinancialSummary {
	summary := &FinancialSummary{
		ProjectID:       project.ID,
		Budget:          project.Budget,
		AllocationCount: len(allocations),
	}

	for _, a := range allocations {
		summary.AllocatedCost = summary.AllocatedCost.Add(a.TotalCost)
		summary.BillableAmount = summary.BillableAmount.Add(a.BillableAmount)
	}

	summary.ActualCost = summary.AllocatedCost
	summary.BudgetUtilization = percentOf(summary.ActualCost, project.Budget)
	summary.Profit = summary.BillableAmount.Sub(summary.ActualCost)
	summary.ProfitMargin = percentOf(summary.Profit, summary.BillableAmount)
	return summary
}
