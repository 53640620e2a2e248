/*
calc.go - Calendar and rate math for allocations

PURPOSE:
  Turns (date range, utilization%, rates, billable flag) into the derived
  billing figures stored on every allocation. This is the single source of
  truth for that math: the interactive create/update path, the rate back-fill
  path, and the bulk importer all call ComputeFinancials.

CONTRACT:
  workingDays    = Mon-Fri calendar days in [start, end] inclusive
  totalHours     = workingDays * 8 * (utilization / 100)
  totalCost      = totalHours * hourlyRate
  billableAmount = isBillable ? totalHours * billableRate : 0

  Pure function: no side effects, no I/O, deterministic for identical inputs.
  Reproducibility matters here - derived figures are recomputed after rate
  changes and must land on the same values.

EDGE CASES (rejected upstream, not here):
  start > end, utilization outside [1, 100]. A same-day weekday range yields
  workingDays=1.

SEE ALSO:
  - date.go:       WorkingDays
  - allocation.go: Validation and persistence around this math
*/
package engine

import "github.com/shopspring/decimal"

// HoursPerWorkday is the assumed full-time workday length.
const HoursPerWorkday = 8

// Financials holds the derived billing figures for one allocation.
type Financials struct {
	WorkingDays    int
	TotalHours     decimal.Decimal
	TotalCost      decimal.Decimal
	BillableAmount decimal.Decimal
}

// ComputeFinancials derives working days, hours, cost, and billable amount
// for an allocation. hourlyRate and billableRate default to zero values;
// billableAmount is zero for non-billable allocations regardless of rate.
func ComputeFinancials(start, end Date, utilization int, hourlyRate, billableRate decimal.Decimal, isBillable bool) Financials {
	days := WorkingDays(start, end)

	hours := decimal.NewFromInt(int64(days * HoursPerWorkday)).
		Mul(decimal.NewFromInt(int64(utilization))).
		Div(hundred)

	cost := hours.Mul(hourlyRate)

	billable := decimal.Zero
	if isBillable {
		billable = hours.Mul(billableRate)
	}

	return Financials{
		WorkingDays:    days,
		TotalHours:     hours,
		TotalCost:      cost,
		BillableAmount: billable,
	}
}
