/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMATS:
  - Money:       decimal strings with two fraction digits ("1200.00")
  - Rates:       decimal strings as stored ("85.5")
  - Dates:       YYYY-MM-DD
  - Timestamps:  RFC3339
  - Utilization: integer percentage 1-100

VALIDATION:
  Structural validation (parse failures) happens in handlers; domain
  validation happens in the engine services. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: The domain model these map onto
*/
package api

import (
	"time"

	"github.com/resourcepulse/engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESOURCE TYPES
// =============================================================================

type ResourceDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	HourlyRate   string `json:"hourly_rate"`
	BillableRate string `json:"billable_rate"`
	Currency     string `json:"currency,omitempty"`
	CostCenter   string `json:"cost_center,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

type ResourceRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	HourlyRate   string `json:"hourly_rate"`
	BillableRate string `json:"billable_rate"`
	Currency     string `json:"currency"`
	CostCenter   string `json:"cost_center"`
}

func toResourceDTO(r *engine.Resource) ResourceDTO {
	return ResourceDTO{
		ID:           string(r.ID),
		Name:         r.Name,
		Role:         r.Role,
		Email:        r.Email,
		Phone:        r.Phone,
		HourlyRate:   r.HourlyRate.String(),
		BillableRate: r.BillableRate.String(),
		Currency:     r.Currency,
		CostCenter:   r.CostCenter,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// PROJECT TYPES
// =============================================================================

type ProjectDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Client         string `json:"client,omitempty"`
	Description    string `json:"description,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Status         string `json:"status"`
	Budget         string `json:"budget"`
	ActualCost     string `json:"actual_cost"`
	Currency       string `json:"currency,omitempty"`
	FinancialNotes string `json:"financial_notes,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

type ProjectRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Client         string `json:"client"`
	Description    string `json:"description"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Status         string `json:"status"`
	Budget         string `json:"budget"`
	Currency       string `json:"currency"`
	FinancialNotes string `json:"financial_notes"`
}

func toProjectDTO(p *engine.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:             string(p.ID),
		Name:           p.Name,
		Client:         p.Client,
		Description:    p.Description,
		Status:         string(p.Status),
		Budget:         money(p.Budget),
		ActualCost:     money(p.ActualCost),
		Currency:       p.Currency,
		FinancialNotes: p.FinancialNotes,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
	if !p.StartDate.IsZero() {
		dto.StartDate = p.StartDate.String()
	}
	if !p.EndDate.IsZero() {
		dto.EndDate = p.EndDate.String()
	}
	return dto
}

// =============================================================================
// ALLOCATION TYPES
// =============================================================================

type AllocationDTO struct {
	ID          string `json:"id"`
	ResourceID  string `json:"resource_id"`
	ProjectID   string `json:"project_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Utilization int    `json:"utilization"`

	// Rate overrides: absent means "inherits from the resource"
	HourlyRate   *string `json:"hourly_rate,omitempty"`
	BillableRate *string `json:"billable_rate,omitempty"`

	TotalHours     string `json:"total_hours"`
	TotalCost      string `json:"total_cost"`
	BillableAmount string `json:"billable_amount"`

	IsBillable  bool   `json:"is_billable"`
	BillingType string `json:"billing_type"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// AllocationRequest creates an allocation. Omitted rates inherit from the
// resource; omitted is_billable defaults to true.
type AllocationRequest struct {
	ResourceID   string  `json:"resource_id"`
	ProjectID    string  `json:"project_id"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Utilization  int     `json:"utilization"`
	HourlyRate   *string `json:"hourly_rate"`
	BillableRate *string `json:"billable_rate"`
	IsBillable   *bool   `json:"is_billable"`
	BillingType  string  `json:"billing_type"`
}

// AllocationPatchRequest updates an allocation. Every field is optional;
// omitted fields are left unchanged.
type AllocationPatchRequest struct {
	ResourceID   *string `json:"resource_id"`
	ProjectID    *string `json:"project_id"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Utilization  *int    `json:"utilization"`
	HourlyRate   *string `json:"hourly_rate"`
	BillableRate *string `json:"billable_rate"`
	IsBillable   *bool   `json:"is_billable"`
	BillingType  *string `json:"billing_type"`
}

func toAllocationDTO(a *engine.Allocation) AllocationDTO {
	dto := AllocationDTO{
		ID:             string(a.ID),
		ResourceID:     string(a.ResourceID),
		ProjectID:      string(a.ProjectID),
		StartDate:      a.StartDate.String(),
		EndDate:        a.EndDate.String(),
		Utilization:    a.Utilization,
		TotalHours:     a.TotalHours.String(),
		TotalCost:      money(a.TotalCost),
		BillableAmount: money(a.BillableAmount),
		IsBillable:     a.IsBillable,
		BillingType:    string(a.BillingType),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.Format(time.RFC3339),
	}
	if a.HourlyRate != nil {
		s := a.HourlyRate.String()
		dto.HourlyRate = &s
	}
	if a.BillableRate != nil {
		s := a.BillableRate.String()
		dto.BillableRate = &s
	}
	return dto
}

// =============================================================================
// BUDGET ITEM TYPES
// =============================================================================

type BudgetItemDTO struct {
	ID            string `json:"id"`
	ProjectID     string `json:"project_id"`
	Category      string `json:"category"`
	Description   string `json:"description,omitempty"`
	PlannedAmount string `json:"planned_amount"`
	ActualAmount  string `json:"actual_amount"`
	Variance      string `json:"variance"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type BudgetItemRequest struct {
	Category      string `json:"category"`
	Description   string `json:"description"`
	PlannedAmount string `json:"planned_amount"`
	ActualAmount  string `json:"actual_amount"`
	Notes         string `json:"notes"`
}

func toBudgetItemDTO(b *engine.BudgetItem) BudgetItemDTO {
	return BudgetItemDTO{
		ID:            b.ID,
		ProjectID:     string(b.ProjectID),
		Category:      b.Category,
		Description:   b.Description,
		PlannedAmount: money(b.PlannedAmount),
		ActualAmount:  money(b.ActualAmount),
		Variance:      money(b.Variance()),
		Notes:         b.Notes,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

type SnapshotDTO struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	SnapshotDate   string `json:"snapshot_date"`
	Name           string `json:"name,omitempty"`
	PlannedBudget  string `json:"planned_budget"`
	ActualCost     string `json:"actual_cost"`
	ForecastedCost string `json:"forecasted_cost"`
	Variance       string `json:"variance"`
	Notes          string `json:"notes,omitempty"`
}

type SnapshotRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func toSnapshotDTO(s *engine.FinancialSnapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:             s.ID,
		ProjectID:      string(s.ProjectID),
		SnapshotDate:   s.SnapshotDate.Format(time.RFC3339),
		Name:           s.Name,
		PlannedBudget:  money(s.PlannedBudget),
		ActualCost:     money(s.ActualCost),
		ForecastedCost: money(s.ForecastedCost),
		Variance:       money(s.Variance),
		Notes:          s.Notes,
	}
}

// =============================================================================
// PHASING TYPES
// =============================================================================

type PhasingEntryDTO struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Period    string `json:"period"`
	Type      string `json:"type"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type PhasingItemRequest struct {
	Period   string `json:"period"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

type PhasingUpsertRequest struct {
	Items []PhasingItemRequest `json:"items"`
}

func toPhasingDTO(e *engine.PhasingEntry) PhasingEntryDTO {
	return PhasingEntryDTO{
		ID:        e.ID,
		ProjectID: string(e.ProjectID),
		Period:    e.Period.String(),
		Type:      string(e.Type),
		Category:  e.Category,
		Amount:    money(e.Amount),
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ROLLUP TYPES
// =============================================================================

type SummaryDTO struct {
	ProjectID         string `json:"project_id"`
	Budget            string `json:"budget"`
	ActualCost        string `json:"actual_cost"`
	AllocatedCost     string `json:"allocated_cost"`
	BillableAmount    string `json:"billable_amount"`
	BudgetUtilization string `json:"budget_utilization"`
	Profit            string `json:"profit"`
	ProfitMargin      string `json:"profit_margin"`
	AllocationCount   int    `json:"allocation_count"`
}

type RecalculateRequest struct {
	CreateSnapshot bool   `json:"create_snapshot"`
	SnapshotName   string `json:"snapshot_name"`
	SnapshotNotes  string `json:"snapshot_notes"`
}

func toSummaryDTO(s *engine.FinancialSummary) SummaryDTO {
	return SummaryDTO{
		ProjectID:         string(s.ProjectID),
		Budget:            money(s.Budget),
		ActualCost:        money(s.ActualCost),
		AllocatedCost:     money(s.AllocatedCost),
		BillableAmount:    money(s.BillableAmount),
		BudgetUtilization: money(s.BudgetUtilization),
		Profit:            money(s.Profit),
		ProfitMargin:      money(s.ProfitMargin),
		AllocationCount:   s.AllocationCount,
	}
}

// =============================================================================
// IMPORT TYPES
// =============================================================================

type ImportResourceRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	HourlyRate   string `json:"hourly_rate"`
	BillableRate string `json:"billable_rate"`
	Currency     string `json:"currency"`
	CostCenter   string `json:"cost_center"`
}

type ImportProjectRow struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Client         string `json:"client"`
	Description    string `json:"description"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Status         string `json:"status"`
	Budget         string `json:"budget"`
	Currency       string `json:"currency"`
	FinancialNotes string `json:"financial_notes"`
}

type ImportAllocationRow struct {
	ResourceID   string  `json:"resource_id"`
	ProjectID    string  `json:"project_id"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Utilization  int     `json:"utilization"`
	HourlyRate   *string `json:"hourly_rate"`
	BillableRate *string `json:"billable_rate"`
	IsBillable   *bool   `json:"is_billable"`
	BillingType  string  `json:"billing_type"`
}

type ImportResourcesRequest struct {
	Rows []ImportResourceRow `json:"rows"`
}

type ImportProjectsRequest struct {
	Rows []ImportProjectRow `json:"rows"`
}

type ImportAllocationsRequest struct {
	Rows []ImportAllocationRow `json:"rows"`
}

type ImportErrorDTO struct {
	Row     int    `json:"row"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

type ImportReportDTO struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Errors     []ImportErrorDTO `json:"errors"`
}

func toImportReportDTO(r *engine.ImportReport) ImportReportDTO {
	dto := ImportReportDTO{
		Total:      r.Total,
		Successful: r.Successful,
		Failed:     r.Failed,
		Errors:     []ImportErrorDTO{},
	}
	for _, e := range r.Errors {
		dto.Errors = append(dto.Errors, ImportErrorDTO{Row: e.Row, ID: e.ID, Message: e.Message})
	}
	return dto
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// money formats an amount with two fraction digits for the wire.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
