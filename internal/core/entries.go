package core

// entries.go covers explicit entry creation and metadata enrichment
// from the external classification lookup service.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/traditional-medicine/mapcurator/internal/logging"
)

// AddEntryRequest creates a classification entry by hand.
type AddEntryRequest struct {
	Name         string `json:"name"`
	ExternalCode string `json:"externalCode,omitempty"`
	Description  string `json:"description,omitempty"`
	Actor        string `json:"actor,omitempty"`
}

// AddEntry creates an entry, failing with a conflict when the name is
// already taken.
func (l *Lifecycle) AddEntry(ctx context.Context, req AddEntryRequest) (*Entry, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("entry name: %w", ErrInvalidInput)
	}

	var created *Entry
	err := l.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetEntryByName(ctx, req.Name); err == nil {
			return fmt.Errorf("entry %q: %w", req.Name, ErrConflict)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		entry, err := tx.CreateEntry(ctx, CreateEntryParams{
			Name:         req.Name,
			ExternalCode: req.ExternalCode,
			Description:  req.Description,
		})
		if err != nil {
			return err
		}

		if err := tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionEntryCreated, 0, req.Actor, req.Name)); err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Enricher backfills entry metadata from the classification lookup
// service.
type Enricher struct {
	store    Store
	resolver EntryResolver
}

// NewEnricher creates an enricher over the lookup collaborator.
func NewEnricher(store Store, resolver EntryResolver) *Enricher {
	return &Enricher{store: store, resolver: resolver}
}

// EnrichEntry searches the lookup service by entry name, fetches the
// best candidate's details, and backfills the entry's external code
// and description. Stored non-empty values are kept.
func (e *Enricher) EnrichEntry(ctx context.Context, name, actor string) (*Entry, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("classification lookup not configured: %w", ErrDependencyUnavailable)
	}

	entry, err := e.store.GetEntryByName(ctx, name)
	if err != nil {
		return nil, err
	}

	candidates, err := e.resolver.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no lookup candidate for %q: %w", name, ErrNotFound)
	}

	details, err := e.resolver.FetchDetails(ctx, candidates[0].ID)
	if err != nil {
		return nil, err
	}

	externalCode := entry.ExternalCode
	if externalCode == "" {
		externalCode = details.Code
	}
	description := entry.Description
	if description == "" {
		description = details.Description
	}

	err = e.store.WithTx(ctx, func(tx Store) error {
		if err := tx.UpdateEntryDetails(ctx, entry.ID, externalCode, description); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionEntryEnriched, 0, actor, name))
	})
	if err != nil {
		return nil, err
	}

	entry.ExternalCode = externalCode
	entry.Description = description

	logging.FromContext(ctx).Info("entry enriched", "entry", name, "code", externalCode)
	return entry, nil
}
