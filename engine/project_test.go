package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resourcepulse/engine/engine"
)

func TestProjectCreate_Defaults(t *testing.T) {
	svc := engine.NewProjectService(newTestStore())

	created, err := svc.Create(context.Background(), engine.Project{Name: "Apollo", Budget: dec("10000")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated ID")
	}
	if created.Status != engine.ProjectActive {
		t.Errorf("expected default status active, got %s", created.Status)
	}
}

func TestProjectCreate_EndBeforeStart_Rejected(t *testing.T) {
	svc := engine.NewProjectService(newTestStore())

	_, err := svc.Create(context.Background(), engine.Project{
		Name:      "Backwards",
		StartDate: date(2025, time.June, 10),
		EndDate:   date(2025, time.June, 1),
	})
	if !errors.Is(err, engine.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestProjectUpdate_CannotOverrideActualCost(t *testing.T) {
	// The cached aggregate is engine-owned; updates through the service
	// carry the stored value forward no matter what the caller sends.

	ctx := context.Background()
	s := newTestStore()
	seedResource(t, s, "r1", "50", "100")
	seedProject(t, s, "p1", "10000")
	allocations := engine.NewAllocationService(s)
	projects := engine.NewProjectService(s)

	if _, err := allocations.Create(ctx, weekInput("r1", "p1", 60)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := projects.Update(ctx, engine.Project{
		ID:         "p1",
		Name:       "Renamed",
		Status:     engine.ProjectOnHold,
		Budget:     dec("20000"),
		ActualCost: dec("12345"), // must be ignored
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !updated.ActualCost.Equal(dec("1200")) {
		t.Errorf("expected preserved actualCost 1200, got %s", updated.ActualCost)
	}
	if updated.Name != "Renamed" || updated.Status != engine.ProjectOnHold {
		t.Errorf("expected metadata updated, got %+v", updated)
	}
}

func TestProjectDelete_CascadesBudgetItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedProject(t, s, "p1", "10000")
	projects := engine.NewProjectService(s)

	item, err := projects.AddBudgetItem(ctx, engine.BudgetItem{
		ProjectID:     "p1",
		Category:      "Travel",
		PlannedAmount: dec("2000"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := projects.Delete(ctx, "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := s.GetBudgetItem(ctx, item.ID); got != nil {
		t.Error("expected budget item cascaded with project")
	}
	if p, _ := s.GetProject(ctx, "p1"); p != nil {
		t.Error("expected project gone")
	}
}

func TestAddBudgetItem_UnknownProject_NotFound(t *testing.T) {
	projects := engine.NewProjectService(newTestStore())

	_, err := projects.AddBudgetItem(context.Background(), engine.BudgetItem{
		ProjectID: "ghost",
		Category:  "Labor",
	})
	if !engine.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestBudgetItemVariance(t *testing.T) {
	item := engine.BudgetItem{PlannedAmount: dec("3000"), ActualAmount: dec("1750")}
	if !item.Variance().Equal(dec("1250")) {
		t.Errorf("expected variance 1250, got %s", item.Variance())
	}
}
