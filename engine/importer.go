/*
importer.go - Bulk import with per-row transactional semantics

PURPOSE:
  Consumes arrays of resource/project/allocation rows. Each call opens ONE
  transaction for the whole batch but processes rows independently: a failed
  row is caught, recorded in the error report with its identifier and
  message, and processing continues with the next row. The transaction
  commits at the end despite row failures; only a catastrophic, unexpected
  store error triggers a full rollback.

  This dual-mode discipline - outer transaction, inner continue-on-error -
  is what lets an administrator import 500 rows and get 480 successes with a
  clear report of the 20 failures instead of an all-or-nothing abort.

ROW VALIDATION:
  Allocation rows reuse the utilization checker exactly as the interactive
  create path does, including the 100% cap, except rows may exclude their own
  project to allow legitimate re-assignment within it. Derived fields come
  from the same calculator.

ERROR CLASSIFICATION:
  Expected errors (validation, not-found, utilization) become report entries.
  Anything else propagates out of the transaction closure, rolls the batch
  back, and surfaces as ErrTransactionFailed.

SEE ALSO:
  - phasing.go:    The contrasting all-or-nothing batch model
  - allocation.go: The shared create path
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Importer struct {
	store TxStore
}

func NewImporter(store TxStore) *Importer {
	return &Importer{store: store}
}

// =============================================================================
// ROW AND REPORT TYPES
// =============================================================================

// Dates arrive as wire-format strings; parse failures are per-row errors,
// not batch errors.

type ResourceRow struct {
	ID           string
	Name         string
	Role         string
	Email        string
	Phone        string
	HourlyRate   decimal.Decimal
	BillableRate decimal.Decimal
	Currency     string
	CostCenter   string
}

type ProjectRow struct {
	ID             string
	Name           string
	Client         string
	Description    string
	StartDate      string
	EndDate        string
	Status         string
	Budget         decimal.Decimal
	Currency       string
	FinancialNotes string
}

type AllocationRow struct {
	ResourceID   string
	ProjectID    string
	StartDate    string
	EndDate      string
	Utilization  int
	HourlyRate   *decimal.Decimal
	BillableRate *decimal.Decimal
	IsBillable   *bool
	BillingType  string
}

// ImportError identifies a failed row for the caller's report.
type ImportError struct {
	Row     int
	ID      string
	Message string
}

// ImportReport is the per-call result: how many rows were seen, how many
// persisted, and what went wrong with the rest.
type ImportReport struct {
	Total      int
	Successful int
	Failed     int
	Errors     []ImportError
}

func (r *ImportReport) fail(row int, id string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ImportError{Row: row, ID: id, Message: err.Error()})
}

// =============================================================================
// IMPORT OPERATIONS
// =============================================================================

// ImportResources upserts resource rows: a row with a known ID updates the
// record, anything else inserts. A rate change on an existing resource
// back-fills inheriting allocations, same as an interactive update.
func (im *Importer) ImportResources(ctx context.Context, rows []ResourceRow) (*ImportReport, error) {
	report := &ImportReport{Total: len(rows)}

	err := im.store.WithTx(ctx, func(tx Store) error {
		now := time.Now().UTC()
		for i, row := range rows {
			if row.Name == "" {
				report.fail(i, row.ID, &ValidationError{Field: "name", Message: "required"})
				continue
			}

			r := Resource{
				ID:           ResourceID(row.ID),
				Name:         row.Name,
				Role:         row.Role,
				Email:        row.Email,
				Phone:        row.Phone,
				HourlyRate:   row.HourlyRate,
				BillableRate: row.BillableRate,
				Currency:     row.Currency,
				CostCenter:   row.CostCenter,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			ratesChanged := false
			if r.ID == "" {
				r.ID = ResourceID(uuid.NewString())
			} else {
				existing, err := tx.GetResource(ctx, r.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					r.CreatedAt = existing.CreatedAt
					ratesChanged = !existing.HourlyRate.Equal(r.HourlyRate) ||
						!existing.BillableRate.Equal(r.BillableRate)
				}
			}

			if err := tx.SaveResource(ctx, r); err != nil {
				return err
			}
			if ratesChanged {
				if err := backfillRates(ctx, tx, &r, now); err != nil {
					return err
				}
			}
			report.Successful++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return report, nil
}

// ImportProjects upserts project rows. The cached actualCost of an existing
// project is preserved; imports never reset engine-owned aggregates.
func (im *Importer) ImportProjects(ctx context.Context, rows []ProjectRow) (*ImportReport, error) {
	report := &ImportReport{Total: len(rows)}

	err := im.store.WithTx(ctx, func(tx Store) error {
		now := time.Now().UTC()
		for i, row := range rows {
			if row.Name == "" {
				report.fail(i, row.ID, &ValidationError{Field: "name", Message: "required"})
				continue
			}

			start, end, err := parseRowRange(row.StartDate, row.EndDate)
			if err != nil {
				report.fail(i, row.ID, err)
				continue
			}

			p := Project{
				ID:             ProjectID(row.ID),
				Name:           row.Name,
				Client:         row.Client,
				Description:    row.Description,
				StartDate:      start,
				EndDate:        end,
				Status:         ProjectStatus(row.Status),
				Budget:         row.Budget,
				Currency:       row.Currency,
				FinancialNotes: row.FinancialNotes,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if p.Status == "" {
				p.Status = ProjectActive
			}
			if p.ID == "" {
				p.ID = ProjectID(uuid.NewString())
			} else {
				existing, err := tx.GetProject(ctx, p.ID)
				if err != nil {
					return err
				}
				if existing != nil {
					p.CreatedAt = existing.CreatedAt
					p.ActualCost = existing.ActualCost
				}
			}

			if err := tx.SaveProject(ctx, p); err != nil {
				return err
			}
			report.Successful++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return report, nil
}

// ImportAllocations creates allocation rows through the same validate/check/
// compute path as the interactive create, excluding the row's own project
// from the conflict check so re-assignment within a project succeeds.
func (im *Importer) ImportAllocations(ctx context.Context, rows []AllocationRow) (*ImportReport, error) {
	report := &ImportReport{Total: len(rows)}

	err := im.store.WithTx(ctx, func(tx Store) error {
		for i, row := range rows {
			in, err := allocationRowInput(row)
			if err != nil {
				report.fail(i, rowIdentifier(row), err)
				continue
			}

			_, err = createAllocationTx(ctx, tx, in, Exclude{ProjectID: in.ProjectID})
			if err != nil {
				if IsClientError(err) {
					report.fail(i, rowIdentifier(row), err)
					continue
				}
				return err
			}
			report.Successful++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return report, nil
}

// =============================================================================
// ROW HELPERS
// =============================================================================

func allocationRowInput(row AllocationRow) (AllocationInput, error) {
	if row.ResourceID == "" {
		return AllocationInput{}, &ValidationError{Field: "resourceId", Message: "required"}
	}
	if row.ProjectID == "" {
		return AllocationInput{}, &ValidationError{Field: "projectId", Message: "required"}
	}

	start, end, err := parseRowRange(row.StartDate, row.EndDate)
	if err != nil {
		return AllocationInput{}, err
	}
	if start.IsZero() {
		return AllocationInput{}, &ValidationError{Field: "startDate", Message: "required"}
	}
	if end.IsZero() {
		return AllocationInput{}, &ValidationError{Field: "endDate", Message: "required"}
	}

	billable := true
	if row.IsBillable != nil {
		billable = *row.IsBillable
	}
	billingType := BillingType(row.BillingType)
	if billingType == "" {
		billingType = BillingHourly
	}

	return AllocationInput{
		ResourceID:   ResourceID(row.ResourceID),
		ProjectID:    ProjectID(row.ProjectID),
		StartDate:    start,
		EndDate:      end,
		Utilization:  row.Utilization,
		HourlyRate:   row.HourlyRate,
		BillableRate: row.BillableRate,
		IsBillable:   billable,
		BillingType:  billingType,
	}, nil
}

func parseRowRange(startStr, endStr string) (Date, Date, error) {
	var start, end Date
	var err error
	if startStr != "" {
		start, err = ParseDate(startStr)
		if err != nil {
			return Date{}, Date{}, &ValidationError{Field: "startDate", Message: "invalid date (use YYYY-MM-DD)"}
		}
	}
	if endStr != "" {
		end, err = ParseDate(endStr)
		if err != nil {
			return Date{}, Date{}, &ValidationError{Field: "endDate", Message: "invalid date (use YYYY-MM-DD)"}
		}
	}
	return start, end, nil
}

func rowIdentifier(row AllocationRow) string {
	return row.ResourceID + "/" + row.ProjectID
}
