package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resourcepulse/engine/engine"
)

// =============================================================================
// PHASING UPSERT TESTS
// =============================================================================

func TestPhasingUpsert_CreatesBucketsWithDefaults(t *testing.T) {
	// GIVEN: An item with only a period and amount
	// THEN:  Type defaults to Budget, category to Labor, and the period is
	//        truncated to month start

	ctx := context.Background()
	s := newTestStore()
	seedProject(t, s, "p1", "10000")
	svc := engine.NewPhasingService(s)

	entries, err := svc.Upsert(ctx, "p1", []engine.PhasingItem{
		{Period: date(2025, time.June, 17), Amount: dec("5000")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Type != engine.PhasingBudget {
		t.Errorf("expected default type Budget, got %s", entry.Type)
	}
	if entry.Category != engine.DefaultPhasingCategory {
		t.Errorf("expected default category Labor, got %s", entry.Category)
	}
	if entry.Period.String() != "2025-06-01" {
		t.Errorf("expected period truncated to month start, got %s", entry.Period)
	}
}

func TestPhasingUpsert_SameNaturalKey_MergesNotDuplicates(t *testing.T) {
	// GIVEN: Two upserts landing on the same (project, period, type, category)
	// THEN:  One bucket exists, carrying the latest amount and the original ID

	ctx := context.Background()
	s := newTestStore()
	seedProject(t, s, "p1", "10000")
	svc := engine.NewPhasingService(s)

	first, err := svc.Upsert(ctx, "p1", []engine.PhasingItem{
		{Period: date(2025, time.June, 1), Amount: dec("5000"), Type: engine.PhasingBudget, Category: "Labor"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Different day, same month: collapses onto the same bucket.
	second, err := svc.Upsert(ctx, "p1", []engine.PhasingItem{
		{Period: date(2025, time.June, 25), Amount: dec("7500"), Type: engine.PhasingBudget, Category: "Labor"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second[0].ID != first[0].ID {
		t.Errorf("expected upsert to reuse bucket ID %s, got %s", first[0].ID, second[0].ID)
	}

	list, err := svc.List(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(list))
	}
	if !list[0].Amount.Equal(dec("7500")) {
		t.Errorf("expected merged amount 7500, got %s", list[0].Amount)
	}
}

func TestPhasingUpsert_DistinctKeys_SeparateBuckets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	seedProject(t, s, "p1", "10000")
	svc := engine.NewPhasingService(s)

	_, err := svc.Upsert(ctx, "p1", []engine.PhasingItem{
		{Period: date(2025, time.June, 1), Amount: dec("5000"), Type: engine.PhasingBudget, Category: "Labor"},
		{Period: date(2025, time.June, 1), Amount: dec("1000"), Type: engine.PhasingActual, Category: "Labor"},
		{Period: date(2025, time.July, 1), Amount: dec("5000"), Type: engine.PhasingBudget, Category: "Labor"},
		{Period: date(2025, time.June, 1), Amount: dec("800"), Type: engine.PhasingBudget, Category: "Travel"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, _ := svc.List(ctx, "p1")
	if len(list) != 4 {
		t.Errorf("expected 4 distinct buckets, got %d", len(list))
	}
}

func TestPhasingUpsert_MissingPeriod_FailsWholeBatch(t *testing.T) {
	// GIVEN: A batch where the second item has no period
	// THEN:  The whole batch is rejected; the first item is not persisted

	ctx := context.Background()
	s := newTestStore()
	seedProject(t, s, "p1", "10000")
	svc := engine.NewPhasingService(s)

	_, err := svc.Upsert(ctx, "p1", []engine.PhasingItem{
		{Period: date(2025, time.June, 1), Amount: dec("5000")},
		{Amount: dec("1000")},
	})
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	list, _ := svc.List(ctx, "p1")
	if len(list) != 0 {
		t.Errorf("expected all-or-nothing batch, found %d persisted buckets", len(list))
	}
}

func TestPhasingUpsert_UnknownProject_NotFound(t *testing.T) {
	svc := engine.NewPhasingService(newTestStore())

	_, err := svc.Upsert(context.Background(), "ghost", []engine.PhasingItem{
		{Period: date(2025, time.June, 1), Amount: dec("5000")},
	})
	if !engine.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}
