package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resourcepulse/engine/api"
	"github.com/resourcepulse/engine/engine"
	"github.com/resourcepulse/engine/engine/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	handler := api.NewHandler(store.NewTxMemory())
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func doJSONList(t *testing.T, method, url string, body any) (*http.Response, []map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded []map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createResource(t *testing.T, server *httptest.Server, id, hourly, billable string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/resources", map[string]any{
		"id": id, "name": "Resource " + id, "hourly_rate": hourly, "billable_rate": billable,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func createProject(t *testing.T, server *httptest.Server, id, budget string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/projects", map[string]any{
		"id": id, "name": "Project " + id, "budget": budget,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// ALLOCATION FLOW TESTS
// =============================================================================

func TestAPI_AllocationLifecycle(t *testing.T) {
	server := newTestServer(t)
	createResource(t, server, "r1", "50", "100")
	createProject(t, server, "p1", "10000")

	// Create
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"resource_id": "r1",
		"project_id":  "p1",
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-06",
		"utilization": 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "24", body["total_hours"])
	assert.Equal(t, "1200.00", body["total_cost"])
	assert.Equal(t, "2400.00", body["billable_amount"])
	assert.Equal(t, "hourly", body["billing_type"])
	assert.Nil(t, body["hourly_rate"], "inherited rate must not appear as an override")
	allocationID := body["id"].(string)

	// Project carries the cost
	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/projects/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1200.00", body["actual_cost"])

	// Patch utilization down
	resp, body = doJSON(t, http.MethodPut, server.URL+"/api/allocations/"+allocationID, map[string]any{
		"utilization": 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "600.00", body["total_cost"])

	// Delete restores the project
	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/allocations/"+allocationID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/projects/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.00", body["actual_cost"])
}

func TestAPI_Overallocation_Returns409(t *testing.T) {
	server := newTestServer(t)
	createResource(t, server, "r1", "50", "100")
	createProject(t, server, "p1", "10000")

	payload := map[string]any{
		"resource_id": "r1",
		"project_id":  "p1",
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-06",
		"utilization": 60,
	}
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/allocations", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload["utilization"] = 50
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/allocations", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["details"], "utilization")
}

func TestAPI_ValidationError_Returns400(t *testing.T) {
	server := newTestServer(t)
	createResource(t, server, "r1", "50", "100")
	createProject(t, server, "p1", "10000")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"resource_id": "r1",
		"project_id":  "p1",
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-06",
		"utilization": 150,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnknownEntities_Return404(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/resources/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/projects/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/allocations/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ResourceDeleteWhileAllocated_Returns409(t *testing.T) {
	server := newTestServer(t)
	createResource(t, server, "r1", "50", "100")
	createProject(t, server, "p1", "10000")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"resource_id": "r1",
		"project_id":  "p1",
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-06",
		"utilization": 50,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/resources/r1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// FINANCIAL SURFACE TESTS
// =============================================================================

func TestAPI_SummaryAndRecalculate(t *testing.T) {
	server := newTestServer(t)
	createResource(t, server, "r1", "50", "100")
	createProject(t, server, "p1", "10000")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/allocations", map[string]any{
		"resource_id": "r1",
		"project_id":  "p1",
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-06",
		"utilization": 60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/projects/p1/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1200.00", body["allocated_cost"])
	assert.Equal(t, "2400.00", body["billable_amount"])
	assert.Equal(t, "12.00", body["budget_utilization"])
	assert.Equal(t, "50.00", body["profit_margin"])
	assert.Equal(t, float64(1), body["allocation_count"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/projects/p1/recalculate", map[string]any{
		"create_snapshot": true,
		"snapshot_name":   "after import",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1200.00", body["actual_cost"])

	resp, list := doJSONList(t, http.MethodGet, server.URL+"/api/projects/p1/snapshots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "after import", list[0]["name"])
}

func TestAPI_SnapshotEndpoints(t *testing.T) {
	server := newTestServer(t)
	createProject(t, server, "p1", "10000")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/projects/p1/snapshots", map[string]any{
		"name": "baseline", "notes": "kickoff",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "baseline", body["name"])
	assert.Equal(t, "10000.00", body["planned_budget"])
	assert.Equal(t, "10000.00", body["variance"])

	resp, list := doJSONList(t, http.MethodGet, server.URL+"/api/projects/p1/snapshots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 1)
}

func TestAPI_PhasingUpsert(t *testing.T) {
	server := newTestServer(t)
	createProject(t, server, "p1", "10000")

	resp, list := doJSONList(t, http.MethodPost, server.URL+"/api/projects/p1/phasing", map[string]any{
		"items": []map[string]any{
			{"period": "2025-06-15", "amount": "5000"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-06-01", list[0]["period"])
	assert.Equal(t, "Budget", list[0]["type"])
	assert.Equal(t, "Labor", list[0]["category"])
	assert.Equal(t, "5000.00", list[0]["amount"])

	// Same bucket again: merged, not duplicated.
	resp, _ = doJSONList(t, http.MethodPost, server.URL+"/api/projects/p1/phasing", map[string]any{
		"items": []map[string]any{
			{"period": "2025-06-20", "amount": "7500"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, list = doJSONList(t, http.MethodGet, server.URL+"/api/projects/p1/phasing", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "7500.00", list[0]["amount"])
}

func TestAPI_BudgetItems(t *testing.T) {
	server := newTestServer(t)
	createProject(t, server, "p1", "10000")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/projects/p1/budget-items", map[string]any{
		"category":       "Travel",
		"planned_amount": "3000",
		"actual_amount":  "1250",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "1750.00", body["variance"])
	itemID := body["id"].(string)

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/projects/p1/budget-items/"+itemID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// IMPORT TESTS
// =============================================================================

func TestAPI_ImportAllocations_ReportsBadRows(t *testing.T) {
	server := newTestServer(t)
	createResource(t, server, "r1", "50", "100")
	createResource(t, server, "r2", "50", "100")
	createProject(t, server, "p1", "100000")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/import/allocations", map[string]any{
		"rows": []map[string]any{
			{"resource_id": "r1", "project_id": "p1", "start_date": "2025-06-02", "end_date": "2025-06-06", "utilization": 50},
			{"resource_id": "ghost", "project_id": "p1", "start_date": "2025-06-02", "end_date": "2025-06-06", "utilization": 50},
			{"resource_id": "r2", "project_id": "p1", "start_date": "2025-06-02", "end_date": "2025-06-06", "utilization": 50},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["successful"])
	assert.Equal(t, float64(1), body["failed"])
}

// brokenStore fails every resource read with a storage-level error.
type brokenStore struct {
	engine.TxStore
}

func (b *brokenStore) GetResource(ctx context.Context, id engine.ResourceID) (*engine.Resource, error) {
	return nil, errors.New("disk I/O error")
}

func (b *brokenStore) ListResources(ctx context.Context) ([]engine.Resource, error) {
	return nil, errors.New("disk I/O error")
}

func TestAPI_InternalErrors_OpaqueOnTheWire(t *testing.T) {
	handler := api.NewHandler(&brokenStore{TxStore: store.NewTxMemory()})
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)

	for _, url := range []string{
		server.URL + "/api/resources",
		server.URL + "/api/resources/r1",
	} {
		resp, body := doJSON(t, http.MethodGet, url, nil)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, body, "details")
	}
}

func TestAPI_Health(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
