/*
handlers.go - HTTP API handlers for the allocation and ledger engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services.

ENDPOINTS:
  Resources:
    GET    /api/resources                   List all resources
    POST   /api/resources                   Create resource
    GET    /api/resources/{id}              Get resource details
    PUT    /api/resources/{id}              Update resource (back-fills rates)
    DELETE /api/resources/{id}              Delete resource (409 if allocated)
    GET    /api/resources/{id}/allocations  Resource's allocations

  Projects:
    GET    /api/projects                    List all projects
    POST   /api/projects                    Create project
    GET    /api/projects/{id}               Get project details
    PUT    /api/projects/{id}               Update project
    DELETE /api/projects/{id}               Delete project (cascades)
    GET    /api/projects/{id}/allocations   Project's allocations
    GET    /api/projects/{id}/summary       Financial rollup (read-only)
    POST   /api/projects/{id}/recalculate   Repair cached actual cost
    GET    /api/projects/{id}/budget-items  List budget line items
    POST   /api/projects/{id}/budget-items  Add budget line item
    GET    /api/projects/{id}/snapshots     List snapshots (newest first)
    POST   /api/projects/{id}/snapshots     Take a snapshot
    GET    /api/projects/{id}/phasing       List phasing buckets
    POST   /api/projects/{id}/phasing       Upsert phasing buckets

  Allocations:
    POST   /api/allocations                 Create allocation
    GET    /api/allocations/{id}            Get allocation
    PUT    /api/allocations/{id}            Patch allocation
    DELETE /api/allocations/{id}            Delete allocation

  Import:
    POST   /api/import/resources            Bulk upsert resources
    POST   /api/import/projects             Bulk upsert projects
    POST   /api/import/allocations          Bulk create allocations

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entity not found
  - 409: Utilization conflict, resource still allocated
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/resourcepulse/engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Resources   *engine.ResourceService
	Projects    *engine.ProjectService
	Allocations *engine.AllocationService
	Rollups     *engine.RollupService
	Snapshots   *engine.SnapshotService
	Phasing     *engine.PhasingService
	Importer    *engine.Importer

	store engine.TxStore
}

// NewHandler wires every service onto the given store.
func NewHandler(store engine.TxStore) *Handler {
	return &Handler{
		Resources:   engine.NewResourceService(store),
		Projects:    engine.NewProjectService(store),
		Allocations: engine.NewAllocationService(store),
		Rollups:     engine.NewRollupService(store),
		Snapshots:   engine.NewSnapshotService(store),
		Phasing:     engine.NewPhasingService(store),
		Importer:    engine.NewImporter(store),
		store:       store,
	}
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns all resources.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.store.ListResources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resources", err)
		return
	}

	dtos := make([]ResourceDTO, len(resources))
	for i := range resources {
		dtos[i] = toResourceDTO(&resources[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetResource returns a single resource.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.Resources.Get(r.Context(), engine.ResourceID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(res))
}

// CreateResource creates a new resource.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Resources.Create(r.Context(), resourceFromRequest(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceDTO(res))
}

// UpdateResource updates a resource. A rate change back-fills every
// allocation that inherits its rates.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res := resourceFromRequest(req)
	res.ID = engine.ResourceID(chi.URLParam(r, "id"))

	updated, err := h.Resources.Update(r.Context(), res)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(updated))
}

// DeleteResource deletes a resource. Fails with 409 while the resource
// still has allocations.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.Resources.Delete(r.Context(), engine.ResourceID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListResourceAllocations returns a resource's allocations.
func (h *Handler) ListResourceAllocations(w http.ResponseWriter, r *http.Request) {
	id := engine.ResourceID(chi.URLParam(r, "id"))
	if _, err := h.Resources.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	allocations, err := h.store.ListAllocationsByResource(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocations))
}

func resourceFromRequest(req ResourceRequest) engine.Resource {
	return engine.Resource{
		ID:           engine.ResourceID(req.ID),
		Name:         req.Name,
		Role:         req.Role,
		Email:        req.Email,
		Phone:        req.Phone,
		HourlyRate:   engine.MustParseDecimal(req.HourlyRate),
		BillableRate: engine.MustParseDecimal(req.BillableRate),
		Currency:     req.Currency,
		CostCenter:   req.CostCenter,
	}
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = toProjectDTO(&projects[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Projects.Get(r.Context(), engine.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// CreateProject creates a new project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := projectFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	created, err := h.Projects.Create(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(created))
}

// UpdateProject updates project metadata. The cached actual cost is
// engine-owned and not writable through this endpoint.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := projectFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	p.ID = engine.ProjectID(chi.URLParam(r, "id"))

	updated, err := h.Projects.Update(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(updated))
}

// DeleteProject deletes a project and its allocations and budget items.
// Snapshots survive as historical records.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.Delete(r.Context(), engine.ProjectID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProjectAllocations returns a project's allocations.
func (h *Handler) ListProjectAllocations(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))
	if _, err := h.Projects.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	allocations, err := h.store.ListAllocationsByProject(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocations))
}

func projectFromRequest(req ProjectRequest) (engine.Project, error) {
	p := engine.Project{
		ID:             engine.ProjectID(req.ID),
		Name:           req.Name,
		Client:         req.Client,
		Description:    req.Description,
		Status:         engine.ProjectStatus(req.Status),
		Budget:         engine.MustParseDecimal(req.Budget),
		Currency:       req.Currency,
		FinancialNotes: req.FinancialNotes,
	}
	if req.StartDate != "" {
		start, err := engine.ParseDate(req.StartDate)
		if err != nil {
			return engine.Project{}, err
		}
		p.StartDate = start
	}
	if req.EndDate != "" {
		end, err := engine.ParseDate(req.EndDate)
		if err != nil {
			return engine.Project{}, err
		}
		p.EndDate = end
	}
	return p, nil
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// ListAllocations returns every allocation.
func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.store.ListAllocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocations))
}

// CreateAllocation stages a resource on a project. Rejected with 409 when
// the resource's utilization would exceed 100% anywhere in the range.
func (h *Handler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req AllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := allocationInputFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allocation payload", err)
		return
	}

	created, err := h.Allocations.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(created))
}

// GetAllocation returns a single allocation.
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	a, err := h.Allocations.Get(r.Context(), engine.AllocationID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// UpdateAllocation applies a partial update and recomputes derived figures.
func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	var req AllocationPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch, err := allocationPatchFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allocation payload", err)
		return
	}

	updated, err := h.Allocations.Update(r.Context(), engine.AllocationID(chi.URLParam(r, "id")), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(updated))
}

// DeleteAllocation removes an allocation and subtracts its cost from the
// owning project.
func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	if err := h.Allocations.Delete(r.Context(), engine.AllocationID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func allocationInputFromRequest(req AllocationRequest) (engine.AllocationInput, error) {
	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		return engine.AllocationInput{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := engine.ParseDate(req.EndDate)
	if err != nil {
		return engine.AllocationInput{}, fmt.Errorf("end_date: %w", err)
	}

	in := engine.AllocationInput{
		ResourceID:  engine.ResourceID(req.ResourceID),
		ProjectID:   engine.ProjectID(req.ProjectID),
		StartDate:   start,
		EndDate:     end,
		Utilization: req.Utilization,
		IsBillable:  true,
		BillingType: engine.BillingType(req.BillingType),
	}
	if req.IsBillable != nil {
		in.IsBillable = *req.IsBillable
	}
	if in.HourlyRate, err = parseRate(req.HourlyRate, "hourly_rate"); err != nil {
		return engine.AllocationInput{}, err
	}
	if in.BillableRate, err = parseRate(req.BillableRate, "billable_rate"); err != nil {
		return engine.AllocationInput{}, err
	}
	return in, nil
}

func allocationPatchFromRequest(req AllocationPatchRequest) (engine.AllocationPatch, error) {
	var patch engine.AllocationPatch

	if req.ResourceID != nil {
		id := engine.ResourceID(*req.ResourceID)
		patch.ResourceID = &id
	}
	if req.ProjectID != nil {
		id := engine.ProjectID(*req.ProjectID)
		patch.ProjectID = &id
	}
	if req.StartDate != nil {
		start, err := engine.ParseDate(*req.StartDate)
		if err != nil {
			return engine.AllocationPatch{}, fmt.Errorf("start_date: %w", err)
		}
		patch.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := engine.ParseDate(*req.EndDate)
		if err != nil {
			return engine.AllocationPatch{}, fmt.Errorf("end_date: %w", err)
		}
		patch.EndDate = &end
	}
	patch.Utilization = req.Utilization
	patch.IsBillable = req.IsBillable
	if req.BillingType != nil {
		bt := engine.BillingType(*req.BillingType)
		patch.BillingType = &bt
	}

	var err error
	if patch.HourlyRate, err = parseRate(req.HourlyRate, "hourly_rate"); err != nil {
		return engine.AllocationPatch{}, err
	}
	if patch.BillableRate, err = parseRate(req.BillableRate, "billable_rate"); err != nil {
		return engine.AllocationPatch{}, err
	}
	return patch, nil
}

func parseRate(s *string, field string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &d, nil
}

func toAllocationDTOs(allocations []engine.Allocation) []AllocationDTO {
	dtos := make([]AllocationDTO, len(allocations))
	for i := range allocations {
		dtos[i] = toAllocationDTO(&allocations[i])
	}
	return dtos
}

// =============================================================================
// BUDGET ITEM HANDLERS
// =============================================================================

// ListBudgetItems returns a project's budget line items.
func (h *Handler) ListBudgetItems(w http.ResponseWriter, r *http.Request) {
	id := engine.ProjectID(chi.URLParam(r, "id"))
	if _, err := h.Projects.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	items, err := h.store.ListBudgetItems(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list budget items", err)
		return
	}

	dtos := make([]BudgetItemDTO, len(items))
	for i := range items {
		dtos[i] = toBudgetItemDTO(&items[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddBudgetItem adds a planned/actual line item to a project.
func (h *Handler) AddBudgetItem(w http.ResponseWriter, r *http.Request) {
	var req BudgetItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item, err := h.Projects.AddBudgetItem(r.Context(), engine.BudgetItem{
		ProjectID:     engine.ProjectID(chi.URLParam(r, "id")),
		Category:      req.Category,
		Description:   req.Description,
		PlannedAmount: engine.MustParseDecimal(req.PlannedAmount),
		ActualAmount:  engine.MustParseDecimal(req.ActualAmount),
		Notes:         req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetItemDTO(item))
}

// RemoveBudgetItem deletes a budget line item.
func (h *Handler) RemoveBudgetItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.RemoveBudgetItem(r.Context(), chi.URLParam(r, "itemId")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ROLLUP HANDLERS
// =============================================================================

// GetSummary returns the project financial rollup without writing anything.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Rollups.Summarize(r.Context(), engine.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// Recalculate repairs the project's cached actual cost from allocation rows
// and optionally appends a snapshot of the repaired state.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	summary, err := h.Rollups.Recalculate(r.Context(), engine.ProjectID(chi.URLParam(r, "id")), engine.RecalculateOptions{
		CreateSnapshot: req.CreateSnapshot,
		SnapshotName:   req.SnapshotName,
		SnapshotNotes:  req.SnapshotNotes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// SNAPSHOT HANDLERS
// =============================================================================

// ListSnapshots returns a project's snapshots, newest first.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.Snapshots.List(r.Context(), engine.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]SnapshotDTO, len(snapshots))
	for i := range snapshots {
		dtos[i] = toSnapshotDTO(&snapshots[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TakeSnapshot appends a point-in-time financial record for the project.
func (h *Handler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	snap, err := h.Snapshots.Take(r.Context(), engine.ProjectID(chi.URLParam(r, "id")), req.Name, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(snap))
}

// =============================================================================
// PHASING HANDLERS
// =============================================================================

// ListPhasing returns a project's phasing buckets.
func (h *Handler) ListPhasing(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Phasing.List(r.Context(), engine.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PhasingEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toPhasingDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertPhasing merges a batch of phasing buckets by natural key. The batch
// is all-or-nothing: one bad item fails the whole request.
func (h *Handler) UpsertPhasing(w http.ResponseWriter, r *http.Request) {
	var req PhasingUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]engine.PhasingItem, len(req.Items))
	for i, item := range req.Items {
		var period engine.Date
		if item.Period != "" {
			parsed, err := engine.ParseDate(item.Period)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid period in items[%d]", i), err)
				return
			}
			period = parsed
		}
		items[i] = engine.PhasingItem{
			Period:   period,
			Amount:   engine.MustParseDecimal(item.Amount),
			Type:     engine.PhasingType(item.Type),
			Category: item.Category,
		}
	}

	entries, err := h.Phasing.Upsert(r.Context(), engine.ProjectID(chi.URLParam(r, "id")), items)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PhasingEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toPhasingDTO(&entries[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// ImportResources bulk-upserts resources. Bad rows are reported, good rows
// commit.
func (h *Handler) ImportResources(w http.ResponseWriter, r *http.Request) {
	var req ImportResourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]engine.ResourceRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = engine.ResourceRow{
			ID:           row.ID,
			Name:         row.Name,
			Role:         row.Role,
			Email:        row.Email,
			Phone:        row.Phone,
			HourlyRate:   engine.MustParseDecimal(row.HourlyRate),
			BillableRate: engine.MustParseDecimal(row.BillableRate),
			Currency:     row.Currency,
			CostCenter:   row.CostCenter,
		}
	}

	report, err := h.Importer.ImportResources(r.Context(), rows)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportReportDTO(report))
}

// ImportProjects bulk-upserts projects.
func (h *Handler) ImportProjects(w http.ResponseWriter, r *http.Request) {
	var req ImportProjectsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]engine.ProjectRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = engine.ProjectRow{
			ID:             row.ID,
			Name:           row.Name,
			Client:         row.Client,
			Description:    row.Description,
			StartDate:      row.StartDate,
			EndDate:        row.EndDate,
			Status:         row.Status,
			Budget:         engine.MustParseDecimal(row.Budget),
			Currency:       row.Currency,
			FinancialNotes: row.FinancialNotes,
		}
	}

	report, err := h.Importer.ImportProjects(r.Context(), rows)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportReportDTO(report))
}

// ImportAllocations bulk-creates allocations through the full validation
// and conflict-check path. Expected row failures are reported and the rest
// commit; an unexpected failure rolls the whole batch back.
func (h *Handler) ImportAllocations(w http.ResponseWriter, r *http.Request) {
	var req ImportAllocationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]engine.AllocationRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = engine.AllocationRow{
			ResourceID:  row.ResourceID,
			ProjectID:   row.ProjectID,
			StartDate:   row.StartDate,
			EndDate:     row.EndDate,
			Utilization: row.Utilization,
			IsBillable:  row.IsBillable,
			BillingType: row.BillingType,
		}
		if row.HourlyRate != nil {
			d := engine.MustParseDecimal(*row.HourlyRate)
			rows[i].HourlyRate = &d
		}
		if row.BillableRate != nil {
			d := engine.MustParseDecimal(*row.BillableRate)
			rows[i].BillableRate = &d
		}
	}

	report, err := h.Importer.ImportAllocations(r.Context(), rows)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportReportDTO(report))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError renders the standard error envelope. Server-side failures stay
// opaque on the wire; only client errors carry detail.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil && status < http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, engine.ErrUtilizationExceeded),
		errors.Is(err, engine.ErrResourceHasAllocations):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
