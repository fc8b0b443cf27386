package core

import "context"

// Stats serves the dashboard read surface. While a reset is clearing
// and repopulating the database, aggregate views return zeros instead
// of half-cleared counts.
type Stats struct {
	store Store
	reset *ResetManager
}

// NewStats creates the read surface. reset may be nil when reset
// orchestration is not wired (tests, one-off tools).
func NewStats(store Store, reset *ResetManager) *Stats {
	return &Stats{store: store, reset: reset}
}

func (s *Stats) resetInFlight() bool {
	return s.reset != nil && s.reset.Running()
}

// Counts returns mapping counts by status plus entry and term totals.
func (s *Stats) Counts(ctx context.Context) (StatusCounts, error) {
	if s.resetInFlight() {
		return StatusCounts{}, nil
	}

	var counts StatusCounts
	byStatus, err := s.store.CountMappingsByStatus(ctx)
	if err != nil {
		return StatusCounts{}, err
	}
	counts.Suggested = byStatus[StatusSuggested]
	counts.Staged = byStatus[StatusStaged]
	counts.Verified = byStatus[StatusVerified]
	counts.RejectedCorrection = byStatus[StatusRejectedCorrection]
	counts.RejectedOrphan = byStatus[StatusRejectedOrphan]

	if counts.Entries, err = s.store.CountEntries(ctx); err != nil {
		return StatusCounts{}, err
	}
	if counts.Terms, err = s.store.CountTerms(ctx); err != nil {
		return StatusCounts{}, err
	}
	return counts, nil
}

// CompletenessStats breaks entries down by how many systems contribute
// a staged or verified mapping.
func (s *Stats) CompletenessStats(ctx context.Context) (Completeness, error) {
	if s.resetInFlight() {
		return Completeness{}, nil
	}
	return s.store.CompletenessCounts(ctx)
}

// RejectedMappings lists mappings awaiting correction, joined with
// their term and entry for the correction queue view.
func (s *Stats) RejectedMappings(ctx context.Context) ([]MappingDetail, error) {
	return s.store.ListRejectedCorrections(ctx)
}

// MasterMapData returns the verified and staged mappings grouped for
// the master map view.
func (s *Stats) MasterMapData(ctx context.Context) ([]MappingDetail, error) {
	return s.store.ListMasterMap(ctx)
}

// AuditLog returns audit records matching the filter, newest first.
// An unset limit defaults to DefaultAuditLimit.
func (s *Stats) AuditLog(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}
	return s.store.ListAudit(ctx, filter)
}
