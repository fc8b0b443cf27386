package core

import (
	"context"
	"errors"
	"testing"
)

// fakeResolver serves canned lookup results.
type fakeResolver struct {
	candidates []EntryCandidate
	details    EntryDetails
	searchErr  error
	detailsErr error
}

func (r *fakeResolver) Search(ctx context.Context, name string) ([]EntryCandidate, error) {
	return r.candidates, r.searchErr
}

func (r *fakeResolver) FetchDetails(ctx context.Context, id string) (EntryDetails, error) {
	return r.details, r.detailsErr
}

func TestAddEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending entry", func(t *testing.T) {
		f := newFakeStore()
		l := NewLifecycle(f, nil)

		entry, err := l.AddEntry(ctx, AddEntryRequest{
			Name:         "Night blindness",
			ExternalCode: "9D50",
			Actor:        "curator",
		})
		if err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
		if entry.Status != EntryPending {
			t.Errorf("status = %q, want %q", entry.Status, EntryPending)
		}
		if entry.ExternalCode != "9D50" {
			t.Errorf("external code = %q", entry.ExternalCode)
		}

		audits, _ := f.ListAudit(ctx, AuditFilter{Action: ActionEntryCreated})
		if len(audits) != 1 {
			t.Errorf("audit records = %d, want 1", len(audits))
		}
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		f := newFakeStore()
		seedEntry(t, f, "Night blindness")
		l := NewLifecycle(f, nil)

		_, err := l.AddEntry(ctx, AddEntryRequest{Name: "Night blindness"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("blank name is invalid", func(t *testing.T) {
		l := NewLifecycle(newFakeStore(), nil)
		if _, err := l.AddEntry(ctx, AddEntryRequest{Name: "   "}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestEnrichEntry(t *testing.T) {
	ctx := context.Background()

	resolver := &fakeResolver{
		candidates: []EntryCandidate{{ID: "icd-123", Title: "Night blindness", Score: 0.97}},
		details:    EntryDetails{Title: "Night blindness", Description: "Impaired vision in dim light.", Code: "9D50"},
	}

	t.Run("backfills empty fields", func(t *testing.T) {
		f := newFakeStore()
		seedEntry(t, f, "Night blindness")
		e := NewEnricher(f, resolver)

		entry, err := e.EnrichEntry(ctx, "Night blindness", "curator")
		if err != nil {
			t.Fatalf("EnrichEntry: %v", err)
		}
		if entry.ExternalCode != "9D50" || entry.Description != "Impaired vision in dim light." {
			t.Fatalf("entry = %+v, lookup details not applied", entry)
		}
	})

	t.Run("keeps stored values", func(t *testing.T) {
		f := newFakeStore()
		if _, err := f.CreateEntry(ctx, CreateEntryParams{
			Name:         "Night blindness",
			ExternalCode: "LOCAL-1",
			Description:  "Curator-written description.",
		}); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		e := NewEnricher(f, resolver)

		entry, err := e.EnrichEntry(ctx, "Night blindness", "curator")
		if err != nil {
			t.Fatalf("EnrichEntry: %v", err)
		}
		if entry.ExternalCode != "LOCAL-1" || entry.Description != "Curator-written description." {
			t.Fatalf("enrichment overwrote stored values: %+v", entry)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		f := newFakeStore()
		seedEntry(t, f, "Night blindness")
		e := NewEnricher(f, &fakeResolver{})

		if _, err := e.EnrichEntry(ctx, "Night blindness", "curator"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("resolver not configured", func(t *testing.T) {
		e := NewEnricher(newFakeStore(), nil)
		if _, err := e.EnrichEntry(ctx, "X", "curator"); !errors.Is(err, ErrDependencyUnavailable) {
			t.Fatalf("err = %v, want ErrDependencyUnavailable", err)
		}
	})

	t.Run("unknown entry", func(t *testing.T) {
		e := NewEnricher(newFakeStore(), resolver)
		if _, err := e.EnrichEntry(ctx, "Missing", "curator"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}
