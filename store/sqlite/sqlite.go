/*
Package sqlite provides a SQLite-backed implementation of the engine store.

PURPOSE:
  Implements engine.Store and engine.TxStore using SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

TRANSACTION CONTRACT:
  WithTx wraps fn in BEGIN/COMMIT with rollback guaranteed on every exit
  path (defer Rollback, explicit Commit). All reads and writes inside fn go
  through the same *sql.Tx, so the allocation write and the project
  aggregate update either land together or not at all.

APPEND-ONLY ENFORCEMENT:
  financial_snapshots has INSERT only - no UPDATE or DELETE statements exist
  in this package. Snapshots are historical facts.

KEY TABLES:
  resources           Consultants with hourly/billable rates
  projects            Engagements with budget and cached actual cost
  allocations         Resource-to-project assignments with derived figures
  budget_items        Planned/actual line items per project
  financial_snapshots Append-only audit records
  financial_phasing   Period buckets, UNIQUE on the natural key

SCHEMA:
  Versioned in code and applied on New(). Columns are declared up front -
  no runtime column probing. Money is stored as TEXT decimal strings, dates
  as ISO YYYY-MM-DD, timestamps as RFC3339.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers don't
  block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/resourcepulse.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go:        Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/resourcepulse/engine/engine"
	"github.com/shopspring/decimal"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	queries
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, queries: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT,
		email TEXT,
		phone TEXT,
		hourly_rate TEXT NOT NULL DEFAULT '0',
		billable_rate TEXT NOT NULL DEFAULT '0',
		currency TEXT,
		cost_center TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		client TEXT,
		description TEXT,
		start_date TEXT,
		end_date TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		budget TEXT NOT NULL DEFAULT '0',
		actual_cost TEXT NOT NULL DEFAULT '0',
		currency TEXT,
		financial_notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		utilization INTEGER NOT NULL,
		hourly_rate TEXT,
		billable_rate TEXT,
		total_hours TEXT NOT NULL DEFAULT '0',
		total_cost TEXT NOT NULL DEFAULT '0',
		billable_amount TEXT NOT NULL DEFAULT '0',
		is_billable BOOLEAN NOT NULL DEFAULT TRUE,
		billing_type TEXT NOT NULL DEFAULT 'hourly',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: the conflict checker scans a resource's allocations by range
	CREATE INDEX IF NOT EXISTS idx_allocations_resource_dates
		ON allocations(resource_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_allocations_project
		ON allocations(project_id);

	CREATE TABLE IF NOT EXISTS budget_items (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		planned_amount TEXT NOT NULL DEFAULT '0',
		actual_amount TEXT NOT NULL DEFAULT '0',
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_budget_items_project
		ON budget_items(project_id);

	-- Append-only: no UPDATE or DELETE is ever issued against this table
	CREATE TABLE IF NOT EXISTS financial_snapshots (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		name TEXT,
		planned_budget TEXT NOT NULL DEFAULT '0',
		actual_cost TEXT NOT NULL DEFAULT '0',
		forecasted_cost TEXT NOT NULL DEFAULT '0',
		variance TEXT NOT NULL DEFAULT '0',
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_project_date
		ON financial_snapshots(project_id, snapshot_date DESC);

	CREATE TABLE IF NOT EXISTS financial_phasing (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		period TEXT NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL,
		UNIQUE(project_id, period, type, category)
	);

	CREATE INDEX IF NOT EXISTS idx_phasing_project
		ON financial_phasing(project_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. Rollback is
// deferred so every early return and panic unwinds cleanly; Commit runs only
// when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries: queries{db: sqlTx}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every read and write through the open *sql.Tx.
type txStore struct {
	queries
}

// dbtx abstracts *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every SQL operation, parameterized over the executor so the
// same code serves both the plain store and an open transaction.
type queries struct {
	db dbtx
}

// =============================================================================
// RESOURCES
// =============================================================================

func (q queries) SaveResource(ctx context.Context, r engine.Resource) error {
	query := `
		INSERT INTO resources (id, name, role, email, phone, hourly_rate, billable_rate,
			currency, cost_center, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			email = excluded.email,
			phone = excluded.phone,
			hourly_rate = excluded.hourly_rate,
			billable_rate = excluded.billable_rate,
			currency = excluded.currency,
			cost_center = excluded.cost_center,
			updated_at = excluded.updated_at
	`
	_, err := q.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Role, r.Email, r.Phone,
		r.HourlyRate.String(), r.BillableRate.String(),
		r.Currency, r.CostCenter,
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (q queries) GetResource(ctx context.Context, id engine.ResourceID) (*engine.Resource, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, role, email, phone, hourly_rate, billable_rate, currency,
		        cost_center, created_at, updated_at
		 FROM resources WHERE id = ?`, id)

	r, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (q queries) ListResources(ctx context.Context) ([]engine.Resource, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, role, email, phone, hourly_rate, billable_rate, currency,
		        cost_center, created_at, updated_at
		 FROM resources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []engine.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *r)
	}
	return resources, rows.Err()
}

func (q queries) DeleteResource(ctx context.Context, id engine.ResourceID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*engine.Resource, error) {
	var (
		r                        engine.Resource
		role, email, phone       sql.NullString
		currency, costCenter     sql.NullString
		hourlyRate, billableRate string
		createdAt, updatedAt     string
	)
	err := row.Scan(&r.ID, &r.Name, &role, &email, &phone, &hourlyRate, &billableRate,
		&currency, &costCenter, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Role = role.String
	r.Email = email.String
	r.Phone = phone.String
	r.Currency = currency.String
	r.CostCenter = costCenter.String
	r.HourlyRate = engine.MustParseDecimal(hourlyRate)
	r.BillableRate = engine.MustParseDecimal(billableRate)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (q queries) SaveProject(ctx context.Context, p engine.Project) error {
	query := `
		INSERT INTO projects (id, name, client, description, start_date, end_date,
			status, budget, actual_cost, currency, financial_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			client = excluded.client,
			description = excluded.description,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status,
			budget = excluded.budget,
			actual_cost = excluded.actual_cost,
			currency = excluded.currency,
			financial_notes = excluded.financial_notes,
			updated_at = excluded.updated_at
	`
	_, err := q.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Client, p.Description,
		nullDate(p.StartDate), nullDate(p.EndDate),
		string(p.Status), p.Budget.String(), p.ActualCost.String(),
		p.Currency, p.FinancialNotes,
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (q queries) GetProject(ctx context.Context, id engine.ProjectID) (*engine.Project, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, client, description, start_date, end_date, status, budget,
		        actual_cost, currency, financial_notes, created_at, updated_at
		 FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (q queries) ListProjects(ctx context.Context) ([]engine.Project, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, client, description, start_date, end_date, status, budget,
		        actual_cost, currency, financial_notes, created_at, updated_at
		 FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []engine.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (q queries) DeleteProject(ctx context.Context, id engine.ProjectID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func scanProject(row rowScanner) (*engine.Project, error) {
	var (
		p                        engine.Project
		client, description      sql.NullString
		startDate, endDate       sql.NullString
		currency, financialNotes sql.NullString
		budget, actualCost       string
		createdAt, updatedAt     string
	)
	err := row.Scan(&p.ID, &p.Name, &client, &description, &startDate, &endDate,
		&p.Status, &budget, &actualCost, &currency, &financialNotes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Client = client.String
	p.Description = description.String
	p.Currency = currency.String
	p.FinancialNotes = financialNotes.String
	p.Budget = engine.MustParseDecimal(budget)
	p.ActualCost = engine.MustParseDecimal(actualCost)
	if startDate.Valid {
		p.StartDate, _ = engine.ParseDate(startDate.String)
	}
	if endDate.Valid {
		p.EndDate, _ = engine.ParseDate(endDate.String)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (q queries) SaveAllocation(ctx context.Context, a engine.Allocation) error {
	query := `
		INSERT INTO allocations (id, resource_id, project_id, start_date, end_date,
			utilization, hourly_rate, billable_rate, total_hours, total_cost,
			billable_amount, is_billable, billing_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resource_id = excluded.resource_id,
			project_id = excluded.project_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			utilization = excluded.utilization,
			hourly_rate = excluded.hourly_rate,
			billable_rate = excluded.billable_rate,
			total_hours = excluded.total_hours,
			total_cost = excluded.total_cost,
			billable_amount = excluded.billable_amount,
			is_billable = excluded.is_billable,
			billing_type = excluded.billing_type,
			updated_at = excluded.updated_at
	`
	_, err := q.db.ExecContext(ctx, query,
		a.ID, a.ResourceID, a.ProjectID,
		a.StartDate.String(), a.EndDate.String(),
		a.Utilization,
		nullDecimal(a.HourlyRate), nullDecimal(a.BillableRate),
		a.TotalHours.String(), a.TotalCost.String(), a.BillableAmount.String(),
		a.IsBillable, string(a.BillingType),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

const allocationColumns = `id, resource_id, project_id, start_date, end_date, utilization,
	hourly_rate, billable_rate, total_hours, total_cost, billable_amount,
	is_billable, billing_type, created_at, updated_at`

func (q queries) GetAllocation(ctx context.Context, id engine.AllocationID) (*engine.Allocation, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE id = ?", id)

	a, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (q queries) ListAllocations(ctx context.Context) ([]engine.Allocation, error) {
	return q.queryAllocations(ctx,
		"SELECT "+allocationColumns+" FROM allocations ORDER BY start_date, id")
}

func (q queries) ListAllocationsByResource(ctx context.Context, id engine.ResourceID) ([]engine.Allocation, error) {
	return q.queryAllocations(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE resource_id = ? ORDER BY start_date, id", id)
}

func (q queries) ListAllocationsByProject(ctx context.Context, id engine.ProjectID) ([]engine.Allocation, error) {
	return q.queryAllocations(ctx,
		"SELECT "+allocationColumns+" FROM allocations WHERE project_id = ? ORDER BY start_date, id", id)
}

func (q queries) DeleteAllocation(ctx context.Context, id engine.AllocationID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM allocations WHERE id = ?", id)
	return err
}

func (q queries) queryAllocations(ctx context.Context, query string, args ...any) ([]engine.Allocation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []engine.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, *a)
	}
	return allocations, rows.Err()
}

func scanAllocation(row rowScanner) (*engine.Allocation, error) {
	var (
		a                                  engine.Allocation
		startDate, endDate                 string
		hourlyRate, billableRate           sql.NullString
		totalHours, totalCost, billableAmt string
		createdAt, updatedAt               string
	)
	err := row.Scan(&a.ID, &a.ResourceID, &a.ProjectID, &startDate, &endDate,
		&a.Utilization, &hourlyRate, &billableRate,
		&totalHours, &totalCost, &billableAmt,
		&a.IsBillable, &a.BillingType, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.StartDate, _ = engine.ParseDate(startDate)
	a.EndDate, _ = engine.ParseDate(endDate)
	if hourlyRate.Valid {
		d := engine.MustParseDecimal(hourlyRate.String)
		a.HourlyRate = &d
	}
	if billableRate.Valid {
		d := engine.MustParseDecimal(billableRate.String)
		a.BillableRate = &d
	}
	a.TotalHours = engine.MustParseDecimal(totalHours)
	a.TotalCost = engine.MustParseDecimal(totalCost)
	a.BillableAmount = engine.MustParseDecimal(billableAmt)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

// =============================================================================
// BUDGET ITEMS
// =============================================================================

func (q queries) SaveBudgetItem(ctx context.Context, item engine.BudgetItem) error {
	query := `
		INSERT INTO budget_items (id, project_id, category, description,
			planned_amount, actual_amount, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			description = excluded.description,
			planned_amount = excluded.planned_amount,
			actual_amount = excluded.actual_amount,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	_, err := q.db.ExecContext(ctx, query,
		item.ID, item.ProjectID, item.Category, item.Description,
		item.PlannedAmount.String(), item.ActualAmount.String(), item.Notes,
		item.CreatedAt.UTC().Format(time.RFC3339), item.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (q queries) GetBudgetItem(ctx context.Context, id string) (*engine.BudgetItem, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, project_id, category, description, planned_amount, actual_amount,
		        notes, created_at, updated_at
		 FROM budget_items WHERE id = ?`, id)

	item, err := scanBudgetItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (q queries) ListBudgetItems(ctx context.Context, projectID engine.ProjectID) ([]engine.BudgetItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, project_id, category, description, planned_amount, actual_amount,
		        notes, created_at, updated_at
		 FROM budget_items WHERE project_id = ? ORDER BY category`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []engine.BudgetItem
	for rows.Next() {
		item, err := scanBudgetItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (q queries) DeleteBudgetItem(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM budget_items WHERE id = ?", id)
	return err
}

func scanBudgetItem(row rowScanner) (*engine.BudgetItem, error) {
	var (
		item                 engine.BudgetItem
		description, notes   sql.NullString
		planned, actual      string
		createdAt, updatedAt string
	)
	err := row.Scan(&item.ID, &item.ProjectID, &item.Category, &description,
		&planned, &actual, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Notes = notes.String
	item.PlannedAmount = engine.MustParseDecimal(planned)
	item.ActualAmount = engine.MustParseDecimal(actual)
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &item, nil
}

// =============================================================================
// SNAPSHOTS (append-only)
// =============================================================================

func (q queries) AppendSnapshot(ctx context.Context, snap engine.FinancialSnapshot) error {
	query := `
		INSERT INTO financial_snapshots (id, project_id, snapshot_date, name,
			planned_budget, actual_cost, forecasted_cost, variance, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.db.ExecContext(ctx, query,
		snap.ID, snap.ProjectID, snap.SnapshotDate.UTC().Format(time.RFC3339),
		snap.Name, snap.PlannedBudget.String(), snap.ActualCost.String(),
		snap.ForecastedCost.String(), snap.Variance.String(), snap.Notes,
	)
	return err
}

func (q queries) ListSnapshots(ctx context.Context, projectID engine.ProjectID) ([]engine.FinancialSnapshot, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, project_id, snapshot_date, name, planned_budget, actual_cost,
		        forecasted_cost, variance, notes
		 FROM financial_snapshots
		 WHERE project_id = ?
		 ORDER BY snapshot_date DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []engine.FinancialSnapshot
	for rows.Next() {
		var (
			snap                             engine.FinancialSnapshot
			snapshotDate                     string
			name, notes                      sql.NullString
			planned, actual, forecast, varce string
		)
		if err := rows.Scan(&snap.ID, &snap.ProjectID, &snapshotDate, &name,
			&planned, &actual, &forecast, &varce, &notes); err != nil {
			return nil, err
		}
		snap.SnapshotDate, _ = time.Parse(time.RFC3339, snapshotDate)
		snap.Name = name.String
		snap.Notes = notes.String
		snap.PlannedBudget = engine.MustParseDecimal(planned)
		snap.ActualCost = engine.MustParseDecimal(actual)
		snap.ForecastedCost = engine.MustParseDecimal(forecast)
		snap.Variance = engine.MustParseDecimal(varce)
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// =============================================================================
// PHASING (upsert by natural key)
// =============================================================================

func (q queries) GetPhasing(ctx context.Context, projectID engine.ProjectID, period engine.Date, typ engine.PhasingType, category string) (*engine.PhasingEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, project_id, period, type, category, amount, updated_at
		 FROM financial_phasing
		 WHERE project_id = ? AND period = ? AND type = ? AND category = ?`,
		projectID, period.String(), string(typ), category)

	entry, err := scanPhasing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (q queries) SavePhasing(ctx context.Context, entry engine.PhasingEntry) error {
	query := `
		INSERT INTO financial_phasing (id, project_id, period, type, category, amount, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, period, type, category) DO UPDATE SET
			amount = excluded.amount,
			updated_at = excluded.updated_at
	`
	_, err := q.db.ExecContext(ctx, query,
		entry.ID, entry.ProjectID, entry.Period.String(),
		string(entry.Type), entry.Category, entry.Amount.String(),
		entry.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (q queries) ListPhasing(ctx context.Context, projectID engine.ProjectID) ([]engine.PhasingEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, project_id, period, type, category, amount, updated_at
		 FROM financial_phasing
		 WHERE project_id = ?
		 ORDER BY period, type, category`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []engine.PhasingEntry
	for rows.Next() {
		entry, err := scanPhasing(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanPhasing(row rowScanner) (*engine.PhasingEntry, error) {
	var (
		entry          engine.PhasingEntry
		period, amount string
		updatedAt      string
	)
	err := row.Scan(&entry.ID, &entry.ProjectID, &period, &entry.Type,
		&entry.Category, &amount, &updatedAt)
	if err != nil {
		return nil, err
	}
	entry.Period, _ = engine.ParseDate(period)
	entry.Amount = engine.MustParseDecimal(amount)
	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &entry, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"allocations", "budget_items", "financial_snapshots", "financial_phasing", "projects", "resources"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullDate(d engine.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
