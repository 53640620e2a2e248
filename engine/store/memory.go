// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/resourcepulse/engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (tests, dev, mock mode)
// =============================================================================
// Explicit store object with constructor-injected lifecycle: tests create
// independent instances, nothing is package-level state. Must uphold the same
// utilization-cap and rollup invariants as the SQLite store.

type Memory struct {
	mu          sync.RWMutex
	resources   map[engine.ResourceID]engine.Resource
	projects    map[engine.ProjectID]engine.Project
	allocations map[engine.AllocationID]engine.Allocation
	budgetItems map[string]engine.BudgetItem
	snapshots   []engine.FinancialSnapshot
	phasing     map[phasingKey]engine.PhasingEntry
}

type phasingKey struct {
	ProjectID engine.ProjectID
	Period    string
	Type      engine.PhasingType
	Category  string
}

func NewMemory() *Memory {
	return &Memory{
		resources:   make(map[engine.ResourceID]engine.Resource),
		projects:    make(map[engine.ProjectID]engine.Project),
		allocations: make(map[engine.AllocationID]engine.Allocation),
		budgetItems: make(map[string]engine.BudgetItem),
		phasing:     make(map[phasingKey]engine.PhasingEntry),
	}
}

// =============================================================================
// RESOURCES
// =============================================================================

func (m *Memory) SaveResource(_ context.Context, r engine.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.ID] = r
	return nil
}

func (m *Memory) GetResource(_ context.Context, id engine.ResourceID) (*engine.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.resources[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) ListResources(_ context.Context) ([]engine.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) DeleteResource(_ context.Context, id engine.ResourceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resources, id)
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (m *Memory) SaveProject(_ context.Context, p engine.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id engine.ProjectID) (*engine.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ListProjects(_ context.Context) ([]engine.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Project, 0, len(m.projects))
	for _, p := range m.projects {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) DeleteProject(_ context.Context, id engine.ProjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	return nil
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (m *Memory) SaveAllocation(_ context.Context, a engine.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations[a.ID] = a
	return nil
}

func (m *Memory) GetAllocation(_ context.Context, id engine.AllocationID) (*engine.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.allocations[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *Memory) ListAllocations(_ context.Context) ([]engine.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allAllocations(func(engine.Allocation) bool { return true }), nil
}

func (m *Memory) ListAllocationsByResource(_ context.Context, id engine.ResourceID) ([]engine.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allAllocations(func(a engine.Allocation) bool { return a.ResourceID == id }), nil
}

func (m *Memory) ListAllocationsByProject(_ context.Context, id engine.ProjectID) ([]engine.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allAllocations(func(a engine.Allocation) bool { return a.ProjectID == id }), nil
}

func (m *Memory) DeleteAllocation(_ context.Context, id engine.AllocationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.allocations, id)
	return nil
}

func (m *Memory) allAllocations(keep func(engine.Allocation) bool) []engine.Allocation {
	var result []engine.Allocation
	for _, a := range m.allocations {
		if keep(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// =============================================================================
// BUDGET ITEMS
// =============================================================================

func (m *Memory) SaveBudgetItem(_ context.Context, item engine.BudgetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgetItems[item.ID] = item
	return nil
}

func (m *Memory) GetBudgetItem(_ context.Context, id string) (*engine.BudgetItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if item, ok := m.budgetItems[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (m *Memory) ListBudgetItems(_ context.Context, projectID engine.ProjectID) ([]engine.BudgetItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.BudgetItem
	for _, item := range m.budgetItems {
		if item.ProjectID == projectID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

func (m *Memory) DeleteBudgetItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.budgetItems, id)
	return nil
}

// =============================================================================
// SNAPSHOTS (append-only)
// =============================================================================

func (m *Memory) AppendSnapshot(_ context.Context, snap engine.FinancialSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *Memory) ListSnapshots(_ context.Context, projectID engine.ProjectID) ([]engine.FinancialSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.FinancialSnapshot
	for _, s := range m.snapshots {
		if s.ProjectID == projectID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SnapshotDate.After(result[j].SnapshotDate) })
	return result, nil
}

// =============================================================================
// PHASING (upsert by natural key)
// =============================================================================

func (m *Memory) GetPhasing(_ context.Context, projectID engine.ProjectID, period engine.Date, typ engine.PhasingType, category string) (*engine.PhasingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := phasingKey{ProjectID: projectID, Period: period.String(), Type: typ, Category: category}
	if entry, ok := m.phasing[k]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (m *Memory) SavePhasing(_ context.Context, entry engine.PhasingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := phasingKey{ProjectID: entry.ProjectID, Period: entry.Period.String(), Type: entry.Type, Category: entry.Category}
	m.phasing[k] = entry
	return nil
}

func (m *Memory) ListPhasing(_ context.Context, projectID engine.ProjectID) ([]engine.PhasingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.PhasingEntry
	for _, entry := range m.phasing {
		if entry.ProjectID == projectID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Period.Equal(result[j].Period) {
			return result[i].Period.Before(result[j].Period)
		}
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
// Transactions are simulated with a deep snapshot + restore on error, which
// gives the same commit-on-success / rollback-on-error semantics the engine
// requires from the SQLite store.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	snapshot := tm.snapshotState()

	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	resources   map[engine.ResourceID]engine.Resource
	projects    map[engine.ProjectID]engine.Project
	allocations map[engine.AllocationID]engine.Allocation
	budgetItems map[string]engine.BudgetItem
	snapshots   []engine.FinancialSnapshot
	phasing     map[phasingKey]engine.PhasingEntry
}

func (tm *TxMemory) snapshotState() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	s := memorySnapshot{
		resources:   make(map[engine.ResourceID]engine.Resource, len(tm.resources)),
		projects:    make(map[engine.ProjectID]engine.Project, len(tm.projects)),
		allocations: make(map[engine.AllocationID]engine.Allocation, len(tm.allocations)),
		budgetItems: make(map[string]engine.BudgetItem, len(tm.budgetItems)),
		snapshots:   append([]engine.FinancialSnapshot{}, tm.snapshots...),
		phasing:     make(map[phasingKey]engine.PhasingEntry, len(tm.phasing)),
	}
	for k, v := range tm.resources {
		s.resources[k] = v
	}
	for k, v := range tm.projects {
		s.projects[k] = v
	}
	for k, v := range tm.allocations {
		s.allocations[k] = v
	}
	for k, v := range tm.budgetItems {
		s.budgetItems[k] = v
	}
	for k, v := range tm.phasing {
		s.phasing[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.resources = s.resources
	tm.projects = s.projects
	tm.allocations = s.allocations
	tm.budgetItems = s.budgetItems
	tm.snapshots = s.snapshots
	tm.phasing = s.phasing
}
