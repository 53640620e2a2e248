/*
Package engine provides the ResourcePulse allocation and financial ledger core.

PURPOSE:
  This package contains the domain types and algorithms for staffing projects
  with resources: assigning a resource to a project for a date range at a
  utilization percentage, deriving billing figures from rates and
  working-calendar math, enforcing the 100% utilization cap, rolling figures
  up into project budget/actual/variance numbers, and preserving immutable
  financial snapshots.

KEY CONCEPTS IN THIS FILE (types.go):
  - Resource:          A consultant with hourly and billable rates
  - Project:           A client engagement with a budget and a cached actual cost
  - Allocation:        A resource committed to a project over [StartDate, EndDate]
  - BudgetItem:        A planned/actual line item contributing to rollups
  - FinancialSnapshot: An append-only point-in-time financial record
  - PhasingEntry:      A period-bucketed planned/actual amount

DESIGN PRINCIPLES:
  1. Precision:    Uses decimal.Decimal to avoid floating-point money errors
  2. Derivation:   TotalHours/TotalCost/BillableAmount are always recomputed,
                   never hand-edited
  3. Immutability: Snapshots are historical facts; they are appended, never
                   mutated or recalculated
  4. Type Safety:  Strong ID types prevent mixing resource/project/allocation IDs

SEE ALSO:
  - calc.go:       Working-day and billing math
  - conflict.go:   Utilization cap enforcement
  - allocation.go: Allocation lifecycle service
  - rollup.go:     Project financial aggregation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ResourceID string
type ProjectID string
type AllocationID string

// =============================================================================
// RESOURCE - A consultant available for project staffing
// =============================================================================

type Resource struct {
	ID           ResourceID
	Name         string
	Role         string
	Email        string
	Phone        string
	HourlyRate   decimal.Decimal
	BillableRate decimal.Decimal
	Currency     string
	CostCenter   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// PROJECT - A client engagement that owns allocations and budget items
// =============================================================================

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
)

type Project struct {
	ID             ProjectID
	Name           string
	Client         string
	Description    string
	StartDate      Date
	EndDate        Date
	Status         ProjectStatus
	Budget         decimal.Decimal
	// ActualCost is a cached aggregate maintained by the allocation service.
	// Recalculate repairs any drift from the read-then-write race.
	ActualCost     decimal.Decimal
	Currency       string
	FinancialNotes string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// =============================================================================
// ALLOCATION - A resource committed to a project over a date range
// =============================================================================

type BillingType string

const (
	BillingHourly      BillingType = "hourly"
	BillingFixed       BillingType = "fixed"
	BillingRetainer    BillingType = "retainer"
	BillingNonBillable BillingType = "non_billable"
)

// Allocation assigns a resource to a project for an inclusive date range at a
// utilization percentage (1-100). HourlyRate and BillableRate are optional
// per-allocation overrides; nil means "inherit from the owning resource".
// An explicit override is sticky: resource rate changes never touch it.
type Allocation struct {
	ID          AllocationID
	ResourceID  ResourceID
	ProjectID   ProjectID
	StartDate   Date
	EndDate     Date
	Utilization int

	HourlyRate   *decimal.Decimal
	BillableRate *decimal.Decimal

	// Derived fields, recomputed on every write.
	TotalHours     decimal.Decimal
	TotalCost      decimal.Decimal
	BillableAmount decimal.Decimal

	IsBillable  bool
	BillingType BillingType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveHourlyRate resolves the per-allocation override against the
// owning resource's rate.
func (a *Allocation) EffectiveHourlyRate(r *Resource) decimal.Decimal {
	if a.HourlyRate != nil {
		return *a.HourlyRate
	}
	if r != nil {
		return r.HourlyRate
	}
	return decimal.Zero
}

// EffectiveBillableRate resolves the per-allocation override against the
// owning resource's rate.
func (a *Allocation) EffectiveBillableRate(r *Resource) decimal.Decimal {
	if a.BillableRate != nil {
		return *a.BillableRate
	}
	if r != nil {
		return r.BillableRate
	}
	return decimal.Zero
}

// Overlaps reports whether this allocation's range intersects [start, end].
// Ranges are inclusive on both ends.
func (a *Allocation) Overlaps(start, end Date) bool {
	return a.StartDate.BeforeOrEqual(end) && a.EndDate.AfterOrEqual(start)
}

// =============================================================================
// BUDGET ITEM - Planned vs actual line item on a project
// =============================================================================

type BudgetItem struct {
	ID            string
	ProjectID     ProjectID
	Category      string
	Description   string
	PlannedAmount decimal.Decimal
	ActualAmount  decimal.Decimal
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Variance is plannedAmount - actualAmount, always derived.
func (b *BudgetItem) Variance() decimal.Decimal {
	return b.PlannedAmount.Sub(b.ActualAmount)
}

// =============================================================================
// FINANCIAL SNAPSHOT - Append-only point-in-time record
// =============================================================================

// FinancialSnapshot freezes a project's planned vs actual financial state.
// Snapshots are never edited or deleted by normal flows; they exist purely
// as a historical audit trail.
type FinancialSnapshot struct {
	ID             string
	ProjectID      ProjectID
	SnapshotDate   time.Time
	Name           string
	PlannedBudget  decimal.Decimal
	ActualCost     decimal.Decimal
	ForecastedCost decimal.Decimal
	Variance       decimal.Decimal
	Notes          string
}

// =============================================================================
// FINANCIAL PHASING - Period-bucketed planned/actual amounts
// =============================================================================

type PhasingType string

const (
	PhasingBudget PhasingType = "Budget"
	PhasingActual PhasingType = "Actual"
)

// DefaultPhasingCategory is applied when an upsert item omits the category.
const DefaultPhasingCategory = "Labor"

// PhasingEntry is keyed by the natural key (ProjectID, Period, Type, Category).
// Upserts merge on that key; the same bucket is never duplicated.
type PhasingEntry struct {
	ID        string
	ProjectID ProjectID
	Period    Date
	Type      PhasingType
	Category  string
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

// =============================================================================
// FINANCIAL SUMMARY - Project rollup result
// =============================================================================

// FinancialSummary aggregates a project's allocations and budget against its
// budget. BudgetUtilization and ProfitMargin are percentages; both guard
// against division by zero by reporting 0.
type FinancialSummary struct {
	ProjectID         ProjectID
	Budget            decimal.Decimal
	ActualCost        decimal.Decimal
	AllocatedCost     decimal.Decimal
	BillableAmount    decimal.Decimal
	BudgetUtilization decimal.Decimal
	Profit            decimal.Decimal
	ProfitMargin      decimal.Decimal
	AllocationCount   int
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var hundred = decimal.NewFromInt(100)

// percentOf returns part/whole*100, or 0 when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
