package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectService is thin CRUD over projects and their budget items. The
// interesting financial behavior lives in rollup.go and snapshot.go; this
// exists so handlers and the importer never write project rows directly.
type ProjectService struct {
	store TxStore
}

func NewProjectService(store TxStore) *ProjectService {
	return &ProjectService{store: store}
}

func (s *ProjectService) Create(ctx context.Context, p Project) (*Project, error) {
	if p.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.StartDate.After(p.EndDate) {
		return nil, &ValidationError{Field: "endDate", Message: "end date must not precede start date"}
	}
	if p.ID == "" {
		p.ID = ProjectID(uuid.NewString())
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProjectService) Update(ctx context.Context, p Project) (*Project, error) {
	if p.ID == "" {
		return nil, &ValidationError{Field: "id", Message: "required"}
	}
	existing, err := s.store.GetProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, p.ID)
	}
	// ActualCost is engine-owned; callers cannot set it through an update.
	p.ActualCost = existing.ActualCost
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a project together with its allocations and budget items.
// Snapshots stay - they are the audit trail.
func (s *ProjectService) Delete(ctx context.Context, id ProjectID) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
		}

		allocations, err := tx.ListAllocationsByProject(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range allocations {
			if err := tx.DeleteAllocation(ctx, a.ID); err != nil {
				return err
			}
		}

		items, err := tx.ListBudgetItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.DeleteBudgetItem(ctx, item.ID); err != nil {
				return err
			}
		}

		return tx.DeleteProject(ctx, id)
	})
}

func (s *ProjectService) Get(ctx context.Context, id ProjectID) (*Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p, nil
}

// =============================================================================
// BUDGET ITEMS
// =============================================================================

func (s *ProjectService) AddBudgetItem(ctx context.Context, item BudgetItem) (*BudgetItem, error) {
	if item.ProjectID == "" {
		return nil, &ValidationError{Field: "projectId", Message: "required"}
	}
	if item.Category == "" {
		return nil, &ValidationError{Field: "category", Message: "required"}
	}
	project, err := s.store.GetProject(ctx, item.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, item.ProjectID)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.store.SaveBudgetItem(ctx, item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *ProjectService) RemoveBudgetItem(ctx context.Context, id string) error {
	item, err := s.store.GetBudgetItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: budget item %s", ErrProjectNotFound, id)
	}
	return s.store.DeleteBudgetItem(ctx, id)
}
