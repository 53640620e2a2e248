package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/resourcepulse/engine/engine"
	"github.com/resourcepulse/engine/engine/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore() *store.TxMemory {
	return store.NewTxMemory()
}

func seedResource(t *testing.T, s engine.Store, id, hourly, billable string) engine.Resource {
	t.Helper()
	r := engine.Resource{
		ID:           engine.ResourceID(id),
		Name:         "Resource " + id,
		HourlyRate:   dec(hourly),
		BillableRate: dec(billable),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.SaveResource(context.Background(), r); err != nil {
		t.Fatalf("failed to seed resource: %v", err)
	}
	return r
}

func seedProject(t *testing.T, s engine.Store, id, budget string) engine.Project {
	t.Helper()
	p := engine.Project{
		ID:        engine.ProjectID(id),
		Name:      "Project " + id,
		Status:    engine.ProjectActive,
		Budget:    dec(budget),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.SaveProject(context.Background(), p); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return p
}

// fullWeek is Monday 2025-06-02 through Friday 2025-06-06.
func fullWeek() (engine.Date, engine.Date) {
	return date(2025, time.June, 2), date(2025, time.June, 6)
}

func weekInput(resourceID, projectID string, utilization int) engine.AllocationInput {
	start, end := fullWeek()
	return engine.AllocationInput{
		ResourceID:  engine.ResourceID(resourceID),
		ProjectID:   engine.ProjectID(projectID),
		StartDate:   start,
		EndDate:     end,
		Utilization: utilization,
		IsBillable:  true,
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestAllocationCreate_DerivesFinancialsAndChargesProject(t *testing.T) {
	// GIVEN: A resource at 50/100 and a project with budget 10000
	// WHEN:  Allocating one full week at 60%
	// THEN:  Hours/cost/billable are derived and the project's actualCost
	//        increases by the allocation cost

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	created, err := svc.Create(ctx, weekInput("r1", "p1", 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !created.TotalHours.Equal(dec("24")) {
		t.Errorf("expected 24 hours, got %s", created.TotalHours)
	}
	if !created.TotalCost.Equal(dec("1200")) {
		t.Errorf("expected cost 1200, got %s", created.TotalCost)
	}
	if !created.BillableAmount.Equal(dec("2400")) {
		t.Errorf("expected billable 2400, got %s", created.BillableAmount)
	}
	if created.BillingType != engine.BillingHourly {
		t.Errorf("expected default billing type hourly, got %s", created.BillingType)
	}

	project, _ := s.GetProject(ctx, "p1")
	if !project.ActualCost.Equal(dec("1200")) {
		t.Errorf("expected project actualCost 1200, got %s", project.ActualCost)
	}
}

func TestAllocationCreate_InheritsResourceRates(t *testing.T) {
	// GIVEN: No per-allocation rates
	// THEN:  The stored allocation keeps nil overrides but derives from the
	//        resource's rates

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "80", "160")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	created, err := svc.Create(ctx, weekInput("r1", "p1", 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.HourlyRate != nil || created.BillableRate != nil {
		t.Error("expected nil rate overrides for an inheriting allocation")
	}
	if !created.TotalCost.Equal(dec("3200")) { // 40h * 80
		t.Errorf("expected cost 3200, got %s", created.TotalCost)
	}
}

func TestAllocationCreate_ExplicitRateOverride(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	in := weekInput("r1", "p1", 100)
	hourly := dec("75")
	in.HourlyRate = &hourly

	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !created.TotalCost.Equal(dec("3000")) { // 40h * 75
		t.Errorf("expected cost 3000 from override, got %s", created.TotalCost)
	}
	if !created.BillableAmount.Equal(dec("4000")) { // billable still inherited
		t.Errorf("expected billable 4000, got %s", created.BillableAmount)
	}
}

func TestAllocationCreate_UnknownResource_Rejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	_, err := svc.Create(ctx, weekInput("ghost", "p1", 50))
	if !engine.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestAllocationCreate_InvalidUtilization_Rejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	for _, utilization := range []int{0, -5, 101} {
		_, err := svc.Create(ctx, weekInput("r1", "p1", utilization))
		if !engine.IsClientError(err) || engine.IsNotFound(err) {
			t.Errorf("utilization %d: expected validation error, got %v", utilization, err)
		}
	}
}

func TestAllocationCreate_EndBeforeStart_Rejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	in := weekInput("r1", "p1", 50)
	in.StartDate, in.EndDate = in.EndDate, in.StartDate

	if _, err := svc.Create(ctx, in); !engine.IsClientError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestAllocationUpdate_RecomputesAndSwapsCost(t *testing.T) {
	// GIVEN: An existing 60% week costing 1200
	// WHEN:  Dropping utilization to 30%
	// THEN:  Cost halves and the project's actualCost follows

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	created, err := svc.Create(ctx, weekInput("r1", "p1", 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	utilization := 30
	updated, err := svc.Update(ctx, created.ID, engine.AllocationPatch{Utilization: &utilization})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !updated.TotalCost.Equal(dec("600")) {
		t.Errorf("expected cost 600, got %s", updated.TotalCost)
	}

	project, _ := s.GetProject(ctx, "p1")
	if !project.ActualCost.Equal(dec("600")) {
		t.Errorf("expected project actualCost 600, got %s", project.ActualCost)
	}
}

func TestAllocationUpdate_MoveBetweenProjects(t *testing.T) {
	// GIVEN: An allocation charged to p1
	// WHEN:  Re-pointing it at p2
	// THEN:  p1 is credited and p2 is charged

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	seedProject(t, s, "p2", "20000")
	svc := engine.NewAllocationService(s)

	created, err := svc.Create(ctx, weekInput("r1", "p1", 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := engine.ProjectID("p2")
	if _, err := svc.Update(ctx, created.ID, engine.AllocationPatch{ProjectID: &target}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p1, _ := s.GetProject(ctx, "p1")
	p2, _ := s.GetProject(ctx, "p2")
	if !p1.ActualCost.IsZero() {
		t.Errorf("expected p1 actualCost 0 after move, got %s", p1.ActualCost)
	}
	if !p2.ActualCost.Equal(dec("1200")) {
		t.Errorf("expected p2 actualCost 1200 after move, got %s", p2.ActualCost)
	}
}

func TestAllocationUpdate_ExcludesSelfFromConflictCheck(t *testing.T) {
	// An allocation at 100% must be able to update itself without tripping
	// over its own stored utilization.

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	created, err := svc.Create(ctx, weekInput("r1", "p1", 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	utilization := 90
	if _, err := svc.Update(ctx, created.ID, engine.AllocationPatch{Utilization: &utilization}); err != nil {
		t.Fatalf("expected self-exclusion to allow update, got %v", err)
	}
}

func TestAllocationUpdate_Missing_NotFound(t *testing.T) {
	s := newTestStore()
	svc := engine.NewAllocationService(s)

	utilization := 50
	_, err := svc.Update(context.Background(), "nope", engine.AllocationPatch{Utilization: &utilization})
	if !engine.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestAllocationDelete_RestoresProjectCost(t *testing.T) {
	// GIVEN: Two allocations on the same project
	// WHEN:  Deleting one
	// THEN:  Only its cost is subtracted

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedResource(t, s, "r2", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	first, err := svc.Create(ctx, weekInput("r1", "p1", 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Create(ctx, weekInput("r2", "p1", 40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	project, _ := s.GetProject(ctx, "p1")
	if !project.ActualCost.Equal(dec("800")) { // only r2's 40% week remains
		t.Errorf("expected actualCost 800 after delete, got %s", project.ActualCost)
	}

	if a, _ := s.GetAllocation(ctx, first.ID); a != nil {
		t.Error("expected allocation to be gone")
	}
}

func TestAllocationDelete_FloorsProjectCostAtZero(t *testing.T) {
	// GIVEN: A project whose cached cost has drifted below the allocation's
	// WHEN:  Deleting the allocation
	// THEN:  actualCost floors at zero instead of going negative

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	svc := engine.NewAllocationService(s)

	created, err := svc.Create(ctx, weekInput("r1", "p1", 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Simulate drift: someone zeroed the cached aggregate out-of-band.
	project, _ := s.GetProject(ctx, "p1")
	project.ActualCost = dec("100")
	if err := s.SaveProject(ctx, *project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	project, _ = s.GetProject(ctx, "p1")
	if !project.ActualCost.IsZero() {
		t.Errorf("expected actualCost floored at 0, got %s", project.ActualCost)
	}
}

func TestAllocationCreateDelete_RoundTrip(t *testing.T) {
	// Create-then-delete must restore the project's cached cost exactly.

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "85.5", "171")
	seedProject(t, s, "p1", "50000")
	svc := engine.NewAllocationService(s)

	before, _ := s.GetProject(ctx, "p1")

	created, err := svc.Create(ctx, weekInput("r1", "p1", 73))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, _ := s.GetProject(ctx, "p1")
	if !after.ActualCost.Equal(before.ActualCost) {
		t.Errorf("expected actualCost restored to %s, got %s", before.ActualCost, after.ActualCost)
	}
}
