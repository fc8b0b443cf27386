package core

// store_pg.go implements Store on PostgreSQL via pgx. Queries are
// written directly against the four curation tables; EnsureSchema
// creates them at startup so a fresh database is usable immediately.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// resetTables lists the curation tables in child-before-parent order,
// used by both the truncate fast path and the row-delete fallback.
var resetTables = []string{
	"mapping_audit",
	"mappings",
	"terms",
	"classification_entries",
}

// PGStore is the PostgreSQL-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPGStore creates a store over a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, db: pool}
}

// WithTx runs fn against a transaction-scoped copy of the store.
func (s *PGStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PGStore{pool: s.pool, db: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// EnsureSchema creates the curation tables and indexes if they do not
// exist yet.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS classification_entries (
			id            BIGSERIAL PRIMARY KEY,
			name          TEXT NOT NULL UNIQUE,
			external_code TEXT,
			description   TEXT,
			status        TEXT NOT NULL DEFAULT 'Pending',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS terms (
			id               BIGSERIAL PRIMARY KEY,
			system           TEXT NOT NULL,
			code             TEXT,
			term_text        TEXT,
			short_definition TEXT,
			long_definition  TEXT,
			native_label     TEXT,
			source_row       INTEGER,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (system, code)
		)`,
		`CREATE TABLE IF NOT EXISTS mappings (
			id               BIGSERIAL PRIMARY KEY,
			entry_id         BIGINT NOT NULL REFERENCES classification_entries(id) ON DELETE CASCADE,
			term_id          BIGINT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
			status           TEXT NOT NULL DEFAULT 'suggested',
			is_primary       BOOLEAN NOT NULL DEFAULT FALSE,
			ai_justification TEXT,
			ai_confidence    INTEGER,
			origin           TEXT,
			source_label     TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (entry_id, term_id)
		)`,
		`CREATE TABLE IF NOT EXISTS mapping_audit (
			id         UUID PRIMARY KEY,
			mapping_id BIGINT,
			action     TEXT NOT NULL,
			severity   TEXT NOT NULL,
			actor      TEXT,
			reason     TEXT,
			ip_address TEXT,
			user_agent TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_entry_status ON mappings (entry_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_status ON mappings (status)`,
		`CREATE INDEX IF NOT EXISTS idx_terms_system_code ON terms (system, code)`,
		`CREATE INDEX IF NOT EXISTS idx_mapping_audit_created ON mapping_audit (created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Entries

const entryColumns = `id, name, COALESCE(external_code, ''), COALESCE(description, ''), status, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Name, &e.ExternalCode, &e.Description, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PGStore) GetEntryByName(ctx context.Context, name string) (*Entry, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM classification_entries WHERE name = $1`, name)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entry %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *PGStore) CreateEntry(ctx context.Context, p CreateEntryParams) (*Entry, error) {
	status := p.Status
	if status == "" {
		status = EntryPending
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO classification_entries (name, external_code, description, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+entryColumns,
		p.Name, ToPgText(p.ExternalCode), ToPgText(p.Description), status)
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return e, nil
}

func (s *PGStore) UpdateEntryDetails(ctx context.Context, id int64, externalCode, description string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE classification_entries
		 SET external_code = $2, description = $3, updated_at = now()
		 WHERE id = $1`,
		id, ToPgText(externalCode), ToPgText(description))
	if err != nil {
		return fmt.Errorf("update entry details: %w", err)
	}
	return nil
}

func (s *PGStore) SetEntryStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE classification_entries SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("set entry status: %w", err)
	}
	return nil
}

func (s *PGStore) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM classification_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Terms

const termColumns = `id, system, COALESCE(code, ''), COALESCE(term_text, ''),
	COALESCE(short_definition, ''), COALESCE(long_definition, ''),
	COALESCE(native_label, ''), COALESCE(source_row, 0), created_at, updated_at`

func scanTerm(row pgx.Row) (*Term, error) {
	var t Term
	err := row.Scan(&t.ID, &t.System, &t.Code, &t.Text, &t.ShortDefinition,
		&t.LongDefinition, &t.NativeLabel, &t.SourceRow, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) GetTermByCode(ctx context.Context, system System, code string) (*Term, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+termColumns+` FROM terms WHERE system = $1 AND code = $2`,
		string(system), code)
	t, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("term %s/%s: %w", system, code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get term by code: %w", err)
	}
	return t, nil
}

func (s *PGStore) GetTermByText(ctx context.Context, system System, text string) (*Term, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+termColumns+` FROM terms
		 WHERE system = $1 AND LOWER(term_text) = LOWER($2)
		 ORDER BY id LIMIT 1`,
		string(system), text)
	t, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("term %s %q: %w", system, text, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get term by text: %w", err)
	}
	return t, nil
}

func (s *PGStore) CreateTerm(ctx context.Context, p CreateTermParams) (*Term, error) {
	sourceRow := pgtype.Int4{Int32: int32(p.SourceRow), Valid: p.SourceRow > 0}
	row := s.db.QueryRow(ctx,
		`INSERT INTO terms (system, code, term_text, short_definition, long_definition, native_label, source_row)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+termColumns,
		string(p.System), ToPgText(p.Code), ToPgText(p.Text), ToPgText(p.ShortDefinition),
		ToPgText(p.LongDefinition), ToPgText(p.NativeLabel), sourceRow)
	t, err := scanTerm(row)
	if err != nil {
		return nil, fmt.Errorf("create term: %w", err)
	}
	return t, nil
}

// BackfillTerm fills term fields that are currently empty or hold the
// not-found placeholder. Non-empty stored values are never overwritten.
func (s *PGStore) BackfillTerm(ctx context.Context, id int64, p CreateTermParams) error {
	_, err := s.db.Exec(ctx,
		`UPDATE terms SET
			term_text = CASE WHEN COALESCE(term_text, '') = '' THEN $2 ELSE term_text END,
			short_definition = CASE WHEN COALESCE(short_definition, '') = '' THEN $3 ELSE short_definition END,
			long_definition = CASE WHEN COALESCE(long_definition, '') IN ('', $6) THEN $4 ELSE long_definition END,
			native_label = CASE WHEN COALESCE(native_label, '') = '' THEN $5 ELSE native_label END,
			updated_at = now()
		 WHERE id = $1`,
		id, p.Text, p.ShortDefinition, p.LongDefinition, p.NativeLabel, NotFoundDescription)
	if err != nil {
		return fmt.Errorf("backfill term: %w", err)
	}
	return nil
}

// UpdateTermDetails overwrites descriptive fields with non-empty
// incoming values. The inverse of BackfillTerm: here the caller's
// edits win over stored values.
func (s *PGStore) UpdateTermDetails(ctx context.Context, id int64, p CreateTermParams) error {
	_, err := s.db.Exec(ctx,
		`UPDATE terms SET
			term_text = CASE WHEN $2 <> '' THEN $2 ELSE term_text END,
			short_definition = CASE WHEN $3 <> '' THEN $3 ELSE short_definition END,
			long_definition = CASE WHEN $4 <> '' THEN $4 ELSE long_definition END,
			native_label = CASE WHEN $5 <> '' THEN $5 ELSE native_label END,
			updated_at = now()
		 WHERE id = $1`,
		id, p.Text, p.ShortDefinition, p.LongDefinition, p.NativeLabel)
	if err != nil {
		return fmt.Errorf("update term details: %w", err)
	}
	return nil
}

func (s *PGStore) CountTerms(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM terms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count terms: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Mappings

const mappingColumns = `id, entry_id, term_id, status, is_primary,
	COALESCE(ai_justification, ''), ai_confidence,
	COALESCE(origin, ''), COALESCE(source_label, ''), created_at, updated_at`

func scanMapping(row pgx.Row) (*Mapping, error) {
	var m Mapping
	var confidence pgtype.Int4
	err := row.Scan(&m.ID, &m.EntryID, &m.TermID, &m.Status, &m.IsPrimary,
		&m.AIJustification, &confidence, &m.Origin, &m.SourceLabel, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if confidence.Valid {
		v := int(confidence.Int32)
		m.AIConfidence = &v
	}
	return &m, nil
}

func (s *PGStore) GetMapping(ctx context.Context, entryID, termID int64) (*Mapping, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM mappings WHERE entry_id = $1 AND term_id = $2`,
		entryID, termID)
	m, err := scanMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mapping entry=%d term=%d: %w", entryID, termID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return m, nil
}

func (s *PGStore) CreateMapping(ctx context.Context, p CreateMappingParams) (*Mapping, error) {
	status := p.Status
	if status == "" {
		status = StatusSuggested
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO mappings (entry_id, term_id, status, is_primary, ai_justification, ai_confidence, origin, source_label)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+mappingColumns,
		p.EntryID, p.TermID, string(status), p.IsPrimary,
		ToPgText(p.AIJustification), ToPgInt4(p.AIConfidence),
		ToPgText(p.Origin), ToPgText(p.SourceLabel))
	m, err := scanMapping(row)
	if err != nil {
		return nil, fmt.Errorf("create mapping: %w", err)
	}
	return m, nil
}

func (s *PGStore) UpdateMappingState(ctx context.Context, id int64, status Status, isPrimary bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE mappings SET status = $2, is_primary = $3, updated_at = now() WHERE id = $1`,
		id, string(status), isPrimary)
	if err != nil {
		return fmt.Errorf("update mapping state: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateMappingAI(ctx context.Context, id int64, justification string, confidence *int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE mappings SET ai_justification = $2, ai_confidence = $3, updated_at = now() WHERE id = $1`,
		id, ToPgText(justification), ToPgInt4(confidence))
	if err != nil {
		return fmt.Errorf("update mapping ai: %w", err)
	}
	return nil
}

func (s *PGStore) RepointMapping(ctx context.Context, id, entryID int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE mappings SET entry_id = $2, updated_at = now() WHERE id = $1`,
		id, entryID)
	if err != nil {
		return fmt.Errorf("repoint mapping: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteMapping(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

func (s *PGStore) BulkUpdateStatus(ctx context.Context, from, to Status) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE mappings SET status = $2, updated_at = now() WHERE status = $1`,
		string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) UpdateEntryMappings(ctx context.Context, entryID int64, from, to Status) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE mappings SET status = $3, updated_at = now() WHERE entry_id = $1 AND status = $2`,
		entryID, string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("update entry mappings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) RevertEntryMappings(ctx context.Context, entryID int64) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE mappings SET status = $2, is_primary = FALSE, updated_at = now()
		 WHERE entry_id = $1 AND status IN ($3, $4)`,
		entryID, string(StatusSuggested), string(StatusStaged), string(StatusVerified))
	if err != nil {
		return 0, fmt.Errorf("revert entry mappings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) HasPrimary(ctx context.Context, entryID int64, system System, status Status) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM mappings m
			JOIN terms t ON t.id = m.term_id
			WHERE m.entry_id = $1 AND t.system = $2 AND m.status = $3 AND m.is_primary
		)`,
		entryID, string(system), string(status)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has primary: %w", err)
	}
	return exists, nil
}

func (s *PGStore) AnyWithStatus(ctx context.Context, entryID int64, status Status) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mappings WHERE entry_id = $1 AND status = $2)`,
		entryID, string(status)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("any with status: %w", err)
	}
	return exists, nil
}

const detailQuery = `
	SELECT m.id, m.entry_id, m.term_id, m.status, m.is_primary,
		COALESCE(m.ai_justification, ''), m.ai_confidence,
		COALESCE(m.origin, ''), COALESCE(m.source_label, ''), m.created_at, m.updated_at,
		t.id, t.system, COALESCE(t.code, ''), COALESCE(t.term_text, ''),
		COALESCE(t.short_definition, ''), COALESCE(t.long_definition, ''),
		COALESCE(t.native_label, ''), COALESCE(t.source_row, 0), t.created_at, t.updated_at,
		e.name
	FROM mappings m
	JOIN terms t ON t.id = m.term_id
	JOIN classification_entries e ON e.id = m.entry_id`

func scanDetails(rows pgx.Rows) ([]MappingDetail, error) {
	defer rows.Close()

	var details []MappingDetail
	for rows.Next() {
		var d MappingDetail
		var confidence pgtype.Int4
		err := rows.Scan(
			&d.ID, &d.EntryID, &d.TermID, &d.Mapping.Status, &d.IsPrimary,
			&d.AIJustification, &confidence, &d.Origin, &d.SourceLabel,
			&d.Mapping.CreatedAt, &d.Mapping.UpdatedAt,
			&d.Term.ID, &d.Term.System, &d.Term.Code, &d.Term.Text,
			&d.Term.ShortDefinition, &d.Term.LongDefinition,
			&d.Term.NativeLabel, &d.Term.SourceRow, &d.Term.CreatedAt, &d.Term.UpdatedAt,
			&d.EntryName,
		)
		if err != nil {
			return nil, err
		}
		if confidence.Valid {
			v := int(confidence.Int32)
			d.AIConfidence = &v
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *PGStore) ListEntrySystemMappings(ctx context.Context, entryID int64, system System, status Status) ([]MappingDetail, error) {
	rows, err := s.db.Query(ctx,
		detailQuery+` WHERE m.entry_id = $1 AND t.system = $2 AND m.status = $3 ORDER BY m.id`,
		entryID, string(system), string(status))
	if err != nil {
		return nil, fmt.Errorf("list entry system mappings: %w", err)
	}
	details, err := scanDetails(rows)
	if err != nil {
		return nil, fmt.Errorf("list entry system mappings: %w", err)
	}
	return details, nil
}

func (s *PGStore) ListRejectedCorrections(ctx context.Context) ([]MappingDetail, error) {
	rows, err := s.db.Query(ctx,
		detailQuery+` WHERE m.status = $1 ORDER BY e.name, t.system, t.code`,
		string(StatusRejectedCorrection))
	if err != nil {
		return nil, fmt.Errorf("list rejected corrections: %w", err)
	}
	details, err := scanDetails(rows)
	if err != nil {
		return nil, fmt.Errorf("list rejected corrections: %w", err)
	}
	return details, nil
}

func (s *PGStore) ListMasterMap(ctx context.Context) ([]MappingDetail, error) {
	rows, err := s.db.Query(ctx,
		detailQuery+` WHERE m.status IN ($1, $2) ORDER BY e.name, t.system, m.is_primary DESC, t.code`,
		string(StatusStaged), string(StatusVerified))
	if err != nil {
		return nil, fmt.Errorf("list master map: %w", err)
	}
	details, err := scanDetails(rows)
	if err != nil {
		return nil, fmt.Errorf("list master map: %w", err)
	}
	return details, nil
}

// ---------------------------------------------------------------------------
// Aggregates

func (s *PGStore) CountMappings(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM mappings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return n, nil
}

func (s *PGStore) CountMappingsByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM mappings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count mappings by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count mappings by status: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *PGStore) CompletenessCounts(ctx context.Context) (Completeness, error) {
	rows, err := s.db.Query(ctx,
		`SELECT systems, COUNT(*) FROM (
			SELECT m.entry_id, COUNT(DISTINCT t.system) AS systems
			FROM mappings m
			JOIN terms t ON t.id = m.term_id
			WHERE m.status IN ($1, $2)
			GROUP BY m.entry_id
		) per_entry GROUP BY systems`,
		string(StatusStaged), string(StatusVerified))
	if err != nil {
		return Completeness{}, fmt.Errorf("completeness counts: %w", err)
	}
	defer rows.Close()

	var c Completeness
	for rows.Next() {
		var systems int
		var n int64
		if err := rows.Scan(&systems, &n); err != nil {
			return Completeness{}, fmt.Errorf("completeness counts: %w", err)
		}
		switch {
		case systems >= 3:
			c.ThreeSystems += n
		case systems == 2:
			c.TwoSystems += n
		case systems == 1:
			c.OneSystem += n
		}
	}
	return c, rows.Err()
}

// ---------------------------------------------------------------------------
// Audit

func (s *PGStore) InsertAudit(ctx context.Context, rec AuditRecord) error {
	mappingID := pgtype.Int8{Int64: rec.MappingID, Valid: rec.MappingID > 0}
	_, err := s.db.Exec(ctx,
		`INSERT INTO mapping_audit (id, mapping_id, action, severity, actor, reason, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ToPgUUID(rec.ID), mappingID, string(rec.Action), string(rec.Severity),
		ToPgText(rec.Actor), ToPgText(rec.Reason), ToPgText(rec.IPAddress),
		ToPgText(rec.UserAgent), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (s *PGStore) ListAudit(ctx context.Context, f AuditFilter) ([]AuditRecord, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultAuditLimit
	}

	startTime := f.StartTime
	if startTime.IsZero() {
		startTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	endTime := f.EndTime
	if endTime.IsZero() {
		endTime = time.Now().Add(24 * time.Hour)
	}

	query := `SELECT id, COALESCE(mapping_id, 0), action, severity,
		COALESCE(actor, ''), COALESCE(reason, ''), COALESCE(ip_address, ''),
		COALESCE(user_agent, ''), created_at
		FROM mapping_audit
		WHERE created_at BETWEEN $1 AND $2`
	args := []interface{}{startTime, endTime}

	if f.Action != "" {
		args = append(args, string(f.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if f.Actor != "" {
		args = append(args, f.Actor)
		query += fmt.Sprintf(" AND actor = $%d", len(args))
	}

	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var id pgtype.UUID
		err := rows.Scan(&id, &rec.MappingID, &rec.Action, &rec.Severity,
			&rec.Actor, &rec.Reason, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("list audit: %w", err)
		}
		rec.ID = PgUUIDToString(id)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ---------------------------------------------------------------------------
// Reset paths

// TruncateAll clears every curation table in one statement with
// identity reset and cascading removal. A short lock timeout keeps the
// fast path from stalling behind concurrent curation traffic; callers
// fall back to DeleteAllOrdered when it fails.
func (s *PGStore) TruncateAll(ctx context.Context) error {
	return s.WithTx(ctx, func(txStore Store) error {
		tx := txStore.(*PGStore).db

		if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '2000ms'`); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}

		stmt := "TRUNCATE TABLE "
		for i, table := range resetTables {
			if i > 0 {
				stmt += ", "
			}
			stmt += table
		}
		stmt += " RESTART IDENTITY CASCADE"

		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
		return nil
	})
}

// DeleteAllOrdered is the guaranteed fallback: row deletes, children
// before parents, one transaction.
func (s *PGStore) DeleteAllOrdered(ctx context.Context, progress func(step string)) error {
	return s.WithTx(ctx, func(txStore Store) error {
		tx := txStore.(*PGStore).db

		for _, table := range resetTables {
			tag, err := tx.Exec(ctx, "DELETE FROM "+table)
			if err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
			if progress != nil {
				progress(fmt.Sprintf("deleted %d rows from %s", tag.RowsAffected(), table))
			}
		}
		return nil
	})
}
