package core

import "context"

// Store is the persistence boundary for entries, terms, mappings, and
// audit records. The pgx-backed implementation lives in store_pg.go;
// tests drive the engines through an in-memory fake.
//
// WithTx runs fn against a transaction-scoped Store. The transaction
// commits when fn returns nil and rolls back otherwise. Engines wrap
// each write operation in a transaction so a failed batch item never
// leaks partial writes.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	// Entries
	GetEntryByName(ctx context.Context, name string) (*Entry, error)
	CreateEntry(ctx context.Context, p CreateEntryParams) (*Entry, error)
	UpdateEntryDetails(ctx context.Context, id int64, externalCode, description string) error
	SetEntryStatus(ctx context.Context, id int64, status string) error
	CountEntries(ctx context.Context) (int64, error)

	// Terms
	GetTermByCode(ctx context.Context, system System, code string) (*Term, error)
	GetTermByText(ctx context.Context, system System, text string) (*Term, error)
	CreateTerm(ctx context.Context, p CreateTermParams) (*Term, error)
	BackfillTerm(ctx context.Context, id int64, p CreateTermParams) error
	UpdateTermDetails(ctx context.Context, id int64, p CreateTermParams) error
	CountTerms(ctx context.Context) (int64, error)

	// Mappings
	GetMapping(ctx context.Context, entryID, termID int64) (*Mapping, error)
	CreateMapping(ctx context.Context, p CreateMappingParams) (*Mapping, error)
	UpdateMappingState(ctx context.Context, id int64, status Status, isPrimary bool) error
	UpdateMappingAI(ctx context.Context, id int64, justification string, confidence *int) error
	RepointMapping(ctx context.Context, id, entryID int64) error
	DeleteMapping(ctx context.Context, id int64) error

	// Bulk transitions and invariant checks
	BulkUpdateStatus(ctx context.Context, from, to Status) (int64, error)
	UpdateEntryMappings(ctx context.Context, entryID int64, from, to Status) (int64, error)
	RevertEntryMappings(ctx context.Context, entryID int64) (int64, error)
	HasPrimary(ctx context.Context, entryID int64, system System, status Status) (bool, error)
	AnyWithStatus(ctx context.Context, entryID int64, status Status) (bool, error)
	ListEntrySystemMappings(ctx context.Context, entryID int64, system System, status Status) ([]MappingDetail, error)

	// Aggregates and views
	CountMappings(ctx context.Context) (int64, error)
	CountMappingsByStatus(ctx context.Context) (map[Status]int64, error)
	CompletenessCounts(ctx context.Context) (Completeness, error)
	ListRejectedCorrections(ctx context.Context) ([]MappingDetail, error)
	ListMasterMap(ctx context.Context) ([]MappingDetail, error)

	// Audit
	InsertAudit(ctx context.Context, rec AuditRecord) error
	ListAudit(ctx context.Context, f AuditFilter) ([]AuditRecord, error)

	// Reset paths
	TruncateAll(ctx context.Context) error
	DeleteAllOrdered(ctx context.Context, progress func(step string)) error
}
