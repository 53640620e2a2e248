/*
store.go - Persistence interface for the allocation engine

PURPOSE:
  Defines the interface between the domain logic and the database. The core
  is written against this abstraction so the in-memory implementation can
  substitute for SQLite without changing any engine logic - both must uphold
  the same utilization-cap and rollup invariants.

KEY INTERFACES:
  Store:   Typed reads/writes for every entity
  TxStore: Store plus WithTx, the scoped-transaction abstraction

TRANSACTION CONTRACT:
  Every multi-step write (allocation create/update/delete touching both the
  allocation row and the project aggregate, bulk import, phasing upsert) runs
  inside WithTx. If fn returns an error the transaction rolls back on every
  exit path; if fn returns nil it commits. The database transaction is the
  only concurrency-control primitive in this system.

MISSING ROWS:
  Get* methods return (nil, nil) for missing rows. Services translate that
  into the ErrNotFound sentinels; stores never invent domain errors.

SNAPSHOT CONTRACT:
  AppendSnapshot is the only snapshot write. There is no update or delete -
  snapshots are historical facts.

IMPLEMENTATIONS:
  - engine/store/memory.go: In-memory (tests, dev, mock mode)
  - store/sqlite/sqlite.go: SQLite (production path)

SEE ALSO:
  - allocation.go: Primary consumer of WithTx
  - importer.go:   Outer-transaction / per-row continue-on-error consumer
*/
package engine

import "context"

// Store handles persistence for every entity the engine owns.
type Store interface {
	// Resources
	SaveResource(ctx context.Context, r Resource) error
	GetResource(ctx context.Context, id ResourceID) (*Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	DeleteResource(ctx context.Context, id ResourceID) error

	// Projects
	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, id ProjectID) error

	// Allocations
	SaveAllocation(ctx context.Context, a Allocation) error
	GetAllocation(ctx context.Context, id AllocationID) (*Allocation, error)
	ListAllocations(ctx context.Context) ([]Allocation, error)
	ListAllocationsByResource(ctx context.Context, id ResourceID) ([]Allocation, error)
	ListAllocationsByProject(ctx context.Context, id ProjectID) ([]Allocation, error)
	DeleteAllocation(ctx context.Context, id AllocationID) error

	// Budget items
	SaveBudgetItem(ctx context.Context, item BudgetItem) error
	GetBudgetItem(ctx context.Context, id string) (*BudgetItem, error)
	ListBudgetItems(ctx context.Context, projectID ProjectID) ([]BudgetItem, error)
	DeleteBudgetItem(ctx context.Context, id string) error

	// Snapshots (append-only)
	AppendSnapshot(ctx context.Context, snap FinancialSnapshot) error
	// ListSnapshots returns snapshots ordered by snapshot date descending.
	ListSnapshots(ctx context.Context, projectID ProjectID) ([]FinancialSnapshot, error)

	// Phasing (upsert by natural key)
	GetPhasing(ctx context.Context, projectID ProjectID, period Date, typ PhasingType, category string) (*PhasingEntry, error)
	SavePhasing(ctx context.Context, entry PhasingEntry) error
	ListPhasing(ctx context.Context, projectID ProjectID) ([]PhasingEntry, error)
}

// TxStore wraps Store with transaction support.
// Use this for every write that touches more than one row.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
