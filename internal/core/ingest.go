package core

// ingest.go implements the bulk repopulation pipeline: a flat table of
// suggested equivalences is enriched against per-system reference
// tables, then merged into entries, terms, and mappings. The whole run
// is one transaction and commits at the end; re-running on identical
// inputs creates nothing new and never touches a mapping whose status
// a curator has advanced.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/traditional-medicine/mapcurator/internal/logging"
)

// NotFoundDescription is stored when a suggestion's code has no row in
// its system's reference table. Treated as a placeholder: later runs
// may replace it.
const NotFoundDescription = "Not Found in Source File"

// Suggestion-table column rules. The suggestion file is produced by
// the discovery pipeline and is less volatile than the reference
// tables, but spellings still drift between exports.
var (
	suggestionEntryRule = ColumnRule{
		Exact:  []string{"ICD_Name", "ICD11_Name"},
		Tokens: [][]string{{"icd", "name"}, {"entry", "name"}},
	}
	suggestionSystemRule = ColumnRule{
		Exact: []string{"System"},
	}
	suggestionCodeRule = ColumnRule{
		Exact:  []string{"Code"},
		Tokens: [][]string{{"code"}},
	}
	suggestionTermRule = ColumnRule{
		Exact:  []string{"Suggested_Term", "Term"},
		Tokens: [][]string{{"suggested", "term"}, {"term"}},
	}
	suggestionConfidenceRule = ColumnRule{
		Exact:  []string{"Confidence"},
		Tokens: [][]string{{"confidence"}},
	}
	suggestionJustificationRule = ColumnRule{
		Exact:  []string{"Justification"},
		Tokens: [][]string{{"justification"}, {"reason"}},
	}
)

// IngestSources names the input files for one run.
type IngestSources struct {
	SuggestionFile string
	ReferenceFiles map[System]string
}

// IngestResult summarizes one run.
type IngestResult struct {
	RowsRead                 int      `json:"rowsRead"`
	RowsSkipped              int      `json:"rowsSkipped"`
	EntriesCreated           int      `json:"entriesCreated"`
	TermsCreated             int      `json:"termsCreated"`
	TermsUpdated             int      `json:"termsUpdated"`
	MappingsCreated          int      `json:"mappingsCreated"`
	MappingsExisting         int      `json:"mappingsExisting"`
	ShortDefinitionFallbacks int      `json:"shortDefinitionFallbacks"`
	MissingReferences        []System `json:"missingReferences,omitempty"`
}

// Ingestor runs the repopulation pipeline.
type Ingestor struct {
	store       Store
	sources     IngestSources
	sourceLabel string
}

// NewIngestor creates an ingestor over the given source files.
// sourceLabel is recorded on every mapping the run creates.
func NewIngestor(store Store, sources IngestSources, sourceLabel string) *Ingestor {
	if sourceLabel == "" {
		sourceLabel = "ai_discovery"
	}
	return &Ingestor{store: store, sources: sources, sourceLabel: sourceLabel}
}

// Run reads the source files and executes the merge. progress may be
// nil. A missing reference file degrades that system's descriptions to
// the not-found placeholder; a missing suggestion file fails the run.
func (ing *Ingestor) Run(ctx context.Context, progress func(step string)) (*IngestResult, error) {
	report := func(step string) {
		if progress != nil {
			progress(step)
		}
	}

	suggestions, err := readCSVFile(ing.sources.SuggestionFile)
	if err != nil {
		return nil, fmt.Errorf("read suggestion table: %w", err)
	}
	report(fmt.Sprintf("loaded %d suggestion rows", max(0, len(suggestions)-1)))

	refs := make(map[System][][]string)
	var missing []System
	for _, profile := range AllProfiles() {
		path, ok := ing.sources.ReferenceFiles[profile.System]
		if !ok || path == "" {
			missing = append(missing, profile.System)
			continue
		}
		records, err := readCSVFile(path)
		if err != nil {
			logging.FromContext(ctx).Warn("reference table unavailable",
				"system", profile.System,
				"path", path,
				"error", err,
			)
			missing = append(missing, profile.System)
			continue
		}
		refs[profile.System] = records
		report(fmt.Sprintf("loaded %s reference table (%d rows)", profile.System, max(0, len(records)-1)))
	}

	result, err := ing.runRecords(ctx, suggestions, refs, report)
	if err != nil {
		return nil, err
	}
	result.MissingReferences = missing
	return result, nil
}

// mergedRow is one suggestion enriched from its reference table.
type mergedRow struct {
	entryName     string
	system        System
	code          string
	termText      string
	confidence    *int
	justification string
	description   string
	shortDef      string
	native        string
	sourceRow     int
}

// refRow is one reference-table row worth keeping.
type refRow struct {
	native    string
	shortDef  string
	longDef   string
	sourceRow int
}

// runRecords merges in-memory tables and writes the result in a single
// transaction. Split from Run so the merge can be tested against
// record fixtures without touching the filesystem.
func (ing *Ingestor) runRecords(ctx context.Context, suggestions [][]string, refs map[System][][]string, report func(string)) (*IngestResult, error) {
	if report == nil {
		report = func(string) {}
	}
	result := &IngestResult{}
	logger := logging.FromContext(ctx)

	if len(suggestions) < 2 {
		return nil, fmt.Errorf("suggestion table has no data rows: %w", ErrInvalidInput)
	}

	header := suggestions[0]
	entryCol, ok := suggestionEntryRule.Resolve(header)
	if !ok {
		return nil, fmt.Errorf("suggestion table: entry name column not found: %w", ErrInvalidInput)
	}
	systemCol, ok := suggestionSystemRule.Resolve(header)
	if !ok {
		return nil, fmt.Errorf("suggestion table: system column not found: %w", ErrInvalidInput)
	}
	termCol, ok := suggestionTermRule.Resolve(header)
	if !ok {
		return nil, fmt.Errorf("suggestion table: term column not found: %w", ErrInvalidInput)
	}
	codeCol, hasCode := suggestionCodeRule.Resolve(header)
	confidenceCol, hasConfidence := suggestionConfidenceRule.Resolve(header)
	justificationCol, hasJustification := suggestionJustificationRule.Resolve(header)

	refIndexes := make(map[System]map[string]refRow)
	for system, records := range refs {
		idx, err := buildReferenceIndex(system, records)
		if err != nil {
			logger.Warn("reference table unusable", "system", system, "error", err)
			continue
		}
		refIndexes[system] = idx
	}

	// Merge phase: enrich each suggestion, grouping by entry name and
	// preserving first-seen order.
	groupOrder := make([]string, 0)
	groups := make(map[string][]mergedRow)

	for i, row := range suggestions[1:] {
		cell := func(col int, present bool) string {
			if !present || col >= len(row) {
				return ""
			}
			return CleanCell(row[col])
		}

		entryName := cell(entryCol, true)
		if entryName == "" {
			result.RowsSkipped++
			continue
		}

		system, ok := ParseSystem(cell(systemCol, true))
		if !ok {
			result.RowsSkipped++
			logger.Warn("unknown system, skipping row", "row", i+2, "system", cell(systemCol, true))
			continue
		}

		merged := mergedRow{
			entryName:     entryName,
			system:        system,
			code:          cell(codeCol, hasCode),
			termText:      cell(termCol, true),
			justification: cell(justificationCol, hasJustification),
			confidence:    ParseConfidence(cell(confidenceCol, hasConfidence)),
			description:   NotFoundDescription,
		}
		if merged.termText == "" && merged.code == "" {
			result.RowsSkipped++
			continue
		}

		if ref, ok := refIndexes[system][merged.code]; ok && merged.code != "" {
			merged.native = ref.native
			merged.shortDef = ref.shortDef
			merged.sourceRow = ref.sourceRow
			switch {
			case ref.longDef != "":
				merged.description = ref.longDef
			case ref.shortDef != "":
				merged.description = ref.shortDef
				result.ShortDefinitionFallbacks++
			}
		}

		if _, seen := groups[entryName]; !seen {
			groupOrder = append(groupOrder, entryName)
		}
		groups[entryName] = append(groups[entryName], merged)
		result.RowsRead++
	}

	report(fmt.Sprintf("merged %d rows into %d entry groups", result.RowsRead, len(groupOrder)))

	// Write phase: one transaction for the whole run. Any store failure
	// rolls back every group.
	err := ing.store.WithTx(ctx, func(tx Store) error {
		for gi, entryName := range groupOrder {
			if err := ing.writeGroup(ctx, tx, entryName, groups[entryName], result); err != nil {
				return fmt.Errorf("entry %q: %w", entryName, err)
			}
			if (gi+1)%100 == 0 {
				report(fmt.Sprintf("written %d/%d entry groups", gi+1, len(groupOrder)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report(fmt.Sprintf("ingestion complete: %d entries created, %d terms created, %d mappings created",
		result.EntriesCreated, result.TermsCreated, result.MappingsCreated))
	return result, nil
}

// writeGroup upserts one entry group. Terms are backfill-only on
// update; mappings are create-only, so curated statuses survive
// repeated runs.
func (ing *Ingestor) writeGroup(ctx context.Context, tx Store, entryName string, rows []mergedRow, result *IngestResult) error {
	entry, err := tx.GetEntryByName(ctx, entryName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		entry, err = tx.CreateEntry(ctx, CreateEntryParams{Name: entryName})
		if err != nil {
			return err
		}
		result.EntriesCreated++
	}

	for _, row := range rows {
		params := CreateTermParams{
			System:          row.system,
			Code:            row.code,
			Text:            row.termText,
			ShortDefinition: row.shortDef,
			LongDefinition:  row.description,
			NativeLabel:     row.native,
			SourceRow:       row.sourceRow,
		}

		term, err := ing.getTerm(ctx, tx, row)
		switch {
		case err == nil:
			if err := tx.BackfillTerm(ctx, term.ID, params); err != nil {
				return err
			}
			result.TermsUpdated++
		case errors.Is(err, ErrNotFound):
			term, err = tx.CreateTerm(ctx, params)
			if err != nil {
				return err
			}
			result.TermsCreated++
		default:
			return err
		}

		_, err = tx.GetMapping(ctx, entry.ID, term.ID)
		switch {
		case err == nil:
			// Existing mapping of any status is left untouched.
			result.MappingsExisting++
		case errors.Is(err, ErrNotFound):
			_, err = tx.CreateMapping(ctx, CreateMappingParams{
				EntryID:         entry.ID,
				TermID:          term.ID,
				Status:          StatusSuggested,
				AIJustification: row.justification,
				AIConfidence:    row.confidence,
				Origin:          "ingestion",
				SourceLabel:     ing.sourceLabel,
			})
			if err != nil {
				return err
			}
			result.MappingsCreated++
		default:
			return err
		}
	}

	return nil
}

func (ing *Ingestor) getTerm(ctx context.Context, tx Store, row mergedRow) (*Term, error) {
	if row.code != "" {
		return tx.GetTermByCode(ctx, row.system, row.code)
	}
	return tx.GetTermByText(ctx, row.system, row.termText)
}

// buildReferenceIndex maps term codes to their reference rows.
// Row provenance is recorded as the 1-based spreadsheet position
// (data index + 2, accounting for the header row).
func buildReferenceIndex(system System, records [][]string) (map[string]refRow, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("reference table for %s has no data rows", system)
	}

	profile, ok := Profile(system)
	if !ok {
		return nil, fmt.Errorf("system %s not registered", system)
	}

	header := records[0]
	codeCol, ok := profile.Code.Resolve(header)
	if !ok {
		return nil, fmt.Errorf("reference table for %s: code column not found", system)
	}
	nativeCol, hasNative := profile.Native.Resolve(header)
	longCol, hasLong := LongDefinitionRule.Resolve(header)
	shortCol, hasShort := ShortDefinitionRule.Resolve(header)

	index := make(map[string]refRow, len(records)-1)
	for i, row := range records[1:] {
		cell := func(col int, present bool) string {
			if !present || col >= len(row) {
				return ""
			}
			return CleanCell(row[col])
		}

		code := cell(codeCol, true)
		if code == "" {
			continue
		}
		if _, dup := index[code]; dup {
			continue // first occurrence wins
		}

		index[code] = refRow{
			native:    cell(nativeCol, hasNative),
			shortDef:  cell(shortCol, hasShort),
			longDef:   cell(longCol, hasLong),
			sourceRow: i + 2,
		}
	}

	return index, nil
}

// readCSVFile reads a whole CSV file, tolerating ragged rows and a
// UTF-8 BOM on the first header cell.
func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, row)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	return records, nil
}
