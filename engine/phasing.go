/*
phasing.go - Financial phasing ledger

PURPOSE:
  Maintains period-bucketed planned/actual amounts per project, type, and
  category. Each item merges by the natural key (projectId, period, type,
  category): the amount and updatedAt are overwritten when the key exists,
  a new row is inserted otherwise. A bucket is never duplicated.

TRANSACTION MODEL:
  The whole batch is one all-or-nothing transaction. A malformed item
  (missing period) fails the entire call and nothing is persisted. This is
  the opposite of the bulk importer's partial-failure model: a phasing edit
  represents a single coherent plan revision, not independent rows.

SEE ALSO:
  - importer.go: The contrasting continue-on-error transaction model
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PhasingService struct {
	store TxStore
}

func NewPhasingService(store TxStore) *PhasingService {
	return &PhasingService{store: store}
}

// PhasingItem is one bucket in an upsert batch. Zero-value Type and Category
// default to Budget and Labor.
type PhasingItem struct {
	Period   Date
	Amount   decimal.Decimal
	Type     PhasingType
	Category string
}

// Upsert merges every item by natural key inside one transaction. Periods
// are truncated to month start so equal buckets always collide.
func (s *PhasingService) Upsert(ctx context.Context, projectID ProjectID, items []PhasingItem) ([]PhasingEntry, error) {
	var entries []PhasingEntry
	err := s.store.WithTx(ctx, func(tx Store) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}

		now := time.Now().UTC()
		for i, item := range items {
			if item.Period.IsZero() {
				return &ValidationError{
					Field:   fmt.Sprintf("items[%d].period", i),
					Message: "required",
				}
			}

			typ := item.Type
			if typ == "" {
				typ = PhasingBudget
			}
			category := item.Category
			if category == "" {
				category = DefaultPhasingCategory
			}
			period := item.Period.StartOfMonth()

			existing, err := tx.GetPhasing(ctx, projectID, period, typ, category)
			if err != nil {
				return err
			}

			entry := PhasingEntry{
				ProjectID: projectID,
				Period:    period,
				Type:      typ,
				Category:  category,
				Amount:    item.Amount,
				UpdatedAt: now,
			}
			if existing != nil {
				entry.ID = existing.ID
			} else {
				entry.ID = uuid.NewString()
			}

			if err := tx.SavePhasing(ctx, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// List returns all phasing entries for a project.
func (s *PhasingService) List(ctx context.Context, projectID ProjectID) ([]PhasingEntry, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return s.store.ListPhasing(ctx, projectID)
}
