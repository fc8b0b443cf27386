package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeStore is an in-memory Store for exercising the engines without a
// database. WithTx snapshots state and restores it when fn fails, so
// tests observe real rollback behavior.
type fakeStore struct {
	mu sync.Mutex

	nextEntryID   int64
	nextTermID    int64
	nextMappingID int64

	entries  map[int64]*Entry
	terms    map[int64]*Term
	mappings map[int64]*Mapping
	audits   []AuditRecord

	// error injection
	truncateErr error
	deleteErr   error

	// truncateGate, when set, blocks TruncateAll until closed so tests
	// can observe a reset mid-flight.
	truncateGate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:  make(map[int64]*Entry),
		terms:    make(map[int64]*Term),
		mappings: make(map[int64]*Mapping),
	}
}

func (f *fakeStore) snapshot() (map[int64]*Entry, map[int64]*Term, map[int64]*Mapping, []AuditRecord) {
	entries := make(map[int64]*Entry, len(f.entries))
	for id, e := range f.entries {
		cp := *e
		entries[id] = &cp
	}
	terms := make(map[int64]*Term, len(f.terms))
	for id, t := range f.terms {
		cp := *t
		terms[id] = &cp
	}
	mappings := make(map[int64]*Mapping, len(f.mappings))
	for id, m := range f.mappings {
		cp := *m
		mappings[id] = &cp
	}
	audits := append([]AuditRecord(nil), f.audits...)
	return entries, terms, mappings, audits
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(Store) error) error {
	f.mu.Lock()
	entries, terms, mappings, audits := f.snapshot()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.entries, f.terms, f.mappings, f.audits = entries, terms, mappings, audits
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) GetEntryByName(ctx context.Context, name string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Name == name {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("entry %q: %w", name, ErrNotFound)
}

func (f *fakeStore) CreateEntry(ctx context.Context, p CreateEntryParams) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := p.Status
	if status == "" {
		status = EntryPending
	}
	f.nextEntryID++
	e := &Entry{
		ID:           f.nextEntryID,
		Name:         p.Name,
		ExternalCode: p.ExternalCode,
		Description:  p.Description,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.entries[e.ID] = e
	cp := *e
	return &cp, nil
}

func (f *fakeStore) UpdateEntryDetails(ctx context.Context, id int64, externalCode, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	e.ExternalCode = externalCode
	e.Description = description
	return nil
}

func (f *fakeStore) SetEntryStatus(ctx context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	e.Status = status
	return nil
}

func (f *fakeStore) CountEntries(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeStore) GetTermByCode(ctx context.Context, system System, code string) (*Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.terms {
		if t.System == system && t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("term %s/%s: %w", system, code, ErrNotFound)
}

func (f *fakeStore) GetTermByText(ctx context.Context, system System, text string) (*Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.terms {
		if t.System == system && strings.EqualFold(t.Text, text) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("term %s %q: %w", system, text, ErrNotFound)
}

func (f *fakeStore) CreateTerm(ctx context.Context, p CreateTermParams) (*Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTermID++
	t := &Term{
		ID:              f.nextTermID,
		System:          p.System,
		Code:            p.Code,
		Text:            p.Text,
		ShortDefinition: p.ShortDefinition,
		LongDefinition:  p.LongDefinition,
		NativeLabel:     p.NativeLabel,
		SourceRow:       p.SourceRow,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	f.terms[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *fakeStore) BackfillTerm(ctx context.Context, id int64, p CreateTermParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.terms[id]
	if !ok {
		return fmt.Errorf("term %d: %w", id, ErrNotFound)
	}
	if t.Text == "" {
		t.Text = p.Text
	}
	if t.ShortDefinition == "" {
		t.ShortDefinition = p.ShortDefinition
	}
	if t.LongDefinition == "" || t.LongDefinition == NotFoundDescription {
		t.LongDefinition = p.LongDefinition
	}
	if t.NativeLabel == "" {
		t.NativeLabel = p.NativeLabel
	}
	if t.SourceRow == 0 {
		t.SourceRow = p.SourceRow
	}
	return nil
}

func (f *fakeStore) UpdateTermDetails(ctx context.Context, id int64, p CreateTermParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.terms[id]
	if !ok {
		return fmt.Errorf("term %d: %w", id, ErrNotFound)
	}
	if p.Text != "" {
		t.Text = p.Text
	}
	if p.ShortDefinition != "" {
		t.ShortDefinition = p.ShortDefinition
	}
	if p.LongDefinition != "" {
		t.LongDefinition = p.LongDefinition
	}
	if p.NativeLabel != "" {
		t.NativeLabel = p.NativeLabel
	}
	return nil
}

func (f *fakeStore) CountTerms(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.terms)), nil
}

func (f *fakeStore) GetMapping(ctx context.Context, entryID, termID int64) (*Mapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.mappings {
		if m.EntryID == entryID && m.TermID == termID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("mapping entry=%d term=%d: %w", entryID, termID, ErrNotFound)
}

func (f *fakeStore) CreateMapping(ctx context.Context, p CreateMappingParams) (*Mapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.mappings {
		if m.EntryID == p.EntryID && m.TermID == p.TermID {
			return nil, fmt.Errorf("mapping entry=%d term=%d: %w", p.EntryID, p.TermID, ErrConflict)
		}
	}
	f.nextMappingID++
	m := &Mapping{
		ID:              f.nextMappingID,
		EntryID:         p.EntryID,
		TermID:          p.TermID,
		Status:          p.Status,
		IsPrimary:       p.IsPrimary,
		AIJustification: p.AIJustification,
		AIConfidence:    p.AIConfidence,
		Origin:          p.Origin,
		SourceLabel:     p.SourceLabel,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	f.mappings[m.ID] = m
	cp := *m
	return &cp, nil
}

func (f *fakeStore) UpdateMappingState(ctx context.Context, id int64, status Status, isPrimary bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mappings[id]
	if !ok {
		return fmt.Errorf("mapping %d: %w", id, ErrNotFound)
	}
	m.Status = status
	m.IsPrimary = isPrimary
	return nil
}

func (f *fakeStore) UpdateMappingAI(ctx context.Context, id int64, justification string, confidence *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mappings[id]
	if !ok {
		return fmt.Errorf("mapping %d: %w", id, ErrNotFound)
	}
	m.AIJustification = justification
	m.AIConfidence = confidence
	return nil
}

func (f *fakeStore) RepointMapping(ctx context.Context, id, entryID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mappings[id]
	if !ok {
		return fmt.Errorf("mapping %d: %w", id, ErrNotFound)
	}
	m.EntryID = entryID
	return nil
}

func (f *fakeStore) DeleteMapping(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mappings[id]; !ok {
		return fmt.Errorf("mapping %d: %w", id, ErrNotFound)
	}
	delete(f.mappings, id)
	return nil
}

func (f *fakeStore) BulkUpdateStatus(ctx context.Context, from, to Status) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.mappings {
		if m.Status == from {
			m.Status = to
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UpdateEntryMappings(ctx context.Context, entryID int64, from, to Status) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.mappings {
		if m.EntryID == entryID && m.Status == from {
			m.Status = to
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) RevertEntryMappings(ctx context.Context, entryID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.mappings {
		if m.EntryID == entryID {
			m.Status = StatusSuggested
			m.IsPrimary = false
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) HasPrimary(ctx context.Context, entryID int64, system System, status Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.mappings {
		if m.EntryID == entryID && m.Status == status && m.IsPrimary {
			if t, ok := f.terms[m.TermID]; ok && t.System == system {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) AnyWithStatus(ctx context.Context, entryID int64, status Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.mappings {
		if m.EntryID == entryID && m.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) detailLocked(m *Mapping) MappingDetail {
	d := MappingDetail{Mapping: *m}
	if t, ok := f.terms[m.TermID]; ok {
		d.Term = *t
	}
	if e, ok := f.entries[m.EntryID]; ok {
		d.EntryName = e.Name
	}
	return d
}

func (f *fakeStore) ListEntrySystemMappings(ctx context.Context, entryID int64, system System, status Status) ([]MappingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MappingDetail
	for _, m := range f.mappings {
		if m.EntryID != entryID || m.Status != status {
			continue
		}
		if t, ok := f.terms[m.TermID]; !ok || t.System != system {
			continue
		}
		out = append(out, f.detailLocked(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CountMappings(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.mappings)), nil
}

func (f *fakeStore) CountMappingsByStatus(ctx context.Context) (map[Status]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[Status]int64)
	for _, m := range f.mappings {
		counts[m.Status]++
	}
	return counts, nil
}

func (f *fakeStore) CompletenessCounts(ctx context.Context) (Completeness, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	systemsByEntry := make(map[int64]map[System]bool)
	for _, m := range f.mappings {
		if m.Status != StatusStaged && m.Status != StatusVerified {
			continue
		}
		t, ok := f.terms[m.TermID]
		if !ok {
			continue
		}
		if systemsByEntry[m.EntryID] == nil {
			systemsByEntry[m.EntryID] = make(map[System]bool)
		}
		systemsByEntry[m.EntryID][t.System] = true
	}
	var c Completeness
	for _, systems := range systemsByEntry {
		switch len(systems) {
		case 3:
			c.ThreeSystems++
		case 2:
			c.TwoSystems++
		case 1:
			c.OneSystem++
		}
	}
	return c, nil
}

func (f *fakeStore) ListRejectedCorrections(ctx context.Context) ([]MappingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MappingDetail
	for _, m := range f.mappings {
		if m.Status == StatusRejectedCorrection {
			out = append(out, f.detailLocked(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListMasterMap(ctx context.Context) ([]MappingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MappingDetail
	for _, m := range f.mappings {
		if m.Status == StatusStaged || m.Status == StatusVerified {
			out = append(out, f.detailLocked(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) InsertAudit(ctx context.Context, rec AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, rec)
	return nil
}

func (f *fakeStore) ListAudit(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AuditRecord
	for i := len(f.audits) - 1; i >= 0; i-- {
		rec := f.audits[i]
		if filter.Action != "" && rec.Action != filter.Action {
			continue
		}
		if filter.Actor != "" && rec.Actor != filter.Actor {
			continue
		}
		if !filter.StartTime.IsZero() && rec.CreatedAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && rec.CreatedAt.After(filter.EndTime) {
			continue
		}
		out = append(out, rec)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) TruncateAll(ctx context.Context) error {
	f.mu.Lock()
	gate := f.truncateGate
	err := f.truncateErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearLocked()
	return nil
}

func (f *fakeStore) DeleteAllOrdered(ctx context.Context, progress func(step string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, table := range []string{"mapping_audit", "mappings", "terms", "classification_entries"} {
		if progress != nil {
			progress("cleared " + table)
		}
	}
	f.clearLocked()
	return nil
}

func (f *fakeStore) clearLocked() {
	f.entries = make(map[int64]*Entry)
	f.terms = make(map[int64]*Term)
	f.mappings = make(map[int64]*Mapping)
	f.audits = nil
	f.nextEntryID, f.nextTermID, f.nextMappingID = 0, 0, 0
}

// fakeJustifier returns a fixed verdict, or an error to exercise the
// placeholder path.
type fakeJustifier struct {
	verdict Justification
	err     error
	calls   int
}

func (j *fakeJustifier) Justify(ctx context.Context, entryName, termText, description string) (Justification, error) {
	j.calls++
	if j.err != nil {
		return Justification{}, j.err
	}
	return j.verdict, nil
}

// seedEntry creates an entry directly in the fake.
func seedEntry(t interface{ Fatalf(string, ...any) }, f *fakeStore, name string) *Entry {
	e, err := f.CreateEntry(context.Background(), CreateEntryParams{Name: name})
	if err != nil {
		t.Fatalf("seed entry %q: %v", name, err)
	}
	return e
}

// seedTerm creates a term directly in the fake.
func seedTerm(t interface{ Fatalf(string, ...any) }, f *fakeStore, system System, code, text string) *Term {
	term, err := f.CreateTerm(context.Background(), CreateTermParams{System: system, Code: code, Text: text})
	if err != nil {
		t.Fatalf("seed term %s/%s: %v", system, code, err)
	}
	return term
}

// seedMapping links an entry and term with a status.
func seedMapping(t interface{ Fatalf(string, ...any) }, f *fakeStore, entryID, termID int64, status Status, primary bool) *Mapping {
	m, err := f.CreateMapping(context.Background(), CreateMappingParams{
		EntryID: entryID, TermID: termID, Status: status, IsPrimary: primary,
	})
	if err != nil {
		t.Fatalf("seed mapping: %v", err)
	}
	return m
}
