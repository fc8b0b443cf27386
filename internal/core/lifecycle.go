package core

// lifecycle.go implements the curation state machine over mappings:
//
//	suggested -> staged | rejected_orphan | rejected_correction
//	staged <-> verified              (commit / undo)
//	staged, verified -> suggested    (revert)
//	rejected_correction -> staged | suggested (remap, see remap.go)
//
// rejected_orphan is terminal. Within one (entry, system, status)
// group at most one mapping carries the primary flag.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/traditional-medicine/mapcurator/internal/logging"
)

// RejectReasonOrphan marks a rejection as having no valid equivalence
// at all; any other reason routes the mapping to rejected_correction.
const RejectReasonOrphan = "orphan"

// Lifecycle applies curation decisions to mappings.
type Lifecycle struct {
	store Store
	ai    Justifier // nil disables AI refresh; placeholders are stored instead
}

// NewLifecycle creates a lifecycle engine. ai may be nil.
func NewLifecycle(store Store, ai Justifier) *Lifecycle {
	return &Lifecycle{store: store, ai: ai}
}

// CurationTerm names one term inside a curation decision. Terms are
// matched by code when present, by text otherwise.
type CurationTerm struct {
	Code string `json:"code,omitempty"`
	Text string `json:"text"`
}

// RejectedCuration is a rejected term plus the curator's reason.
type RejectedCuration struct {
	CurationTerm
	Reason string `json:"reason,omitempty"`
}

// SystemCuration holds one system's verdict for one entry: a primary
// term, zero or more aliases, and zero or more rejections.
type SystemCuration struct {
	System   System             `json:"system"`
	Primary  *CurationTerm      `json:"primary,omitempty"`
	Aliases  []CurationTerm     `json:"aliases,omitempty"`
	Rejected []RejectedCuration `json:"rejected,omitempty"`
}

// CurationDecision is one entry's worth of curation verdicts.
type CurationDecision struct {
	EntryName string           `json:"entryName"`
	Systems   []SystemCuration `json:"systems"`
	Actor     string           `json:"actor,omitempty"`
}

// CurationSummary reports what a batch submission touched.
type CurationSummary struct {
	EntriesProcessed int `json:"entriesProcessed"`
	EntriesFailed    int `json:"entriesFailed"`
	MappingsUpdated  int `json:"mappingsUpdated"`
	TermsSkipped     int `json:"termsSkipped"`
}

// SubmitCuration applies a batch of per-entry decisions. Each entry is
// processed in its own transaction: a failure rolls back that entry's
// writes and the batch continues. Unresolvable term references are
// logged and skipped rather than failing the entry.
func (l *Lifecycle) SubmitCuration(ctx context.Context, decisions []CurationDecision) (CurationSummary, error) {
	var summary CurationSummary
	logger := logging.FromContext(ctx)

	for _, decision := range decisions {
		updated, skipped, err := l.submitEntry(ctx, decision)
		if err != nil {
			summary.EntriesFailed++
			logger.Warn("curation decision failed",
				"entry", decision.EntryName,
				"error", err,
			)
			continue
		}
		summary.EntriesProcessed++
		summary.MappingsUpdated += updated
		summary.TermsSkipped += skipped
	}

	return summary, nil
}

// submitEntry applies one decision inside a single transaction.
func (l *Lifecycle) submitEntry(ctx context.Context, decision CurationDecision) (updated, skipped int, err error) {
	if strings.TrimSpace(decision.EntryName) == "" {
		return 0, 0, fmt.Errorf("entry name: %w", ErrInvalidInput)
	}

	logger := logging.FromContext(ctx)

	err = l.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntryByName(ctx, decision.EntryName)
		if err != nil {
			return err
		}

		// Terms resolved once per entry; decisions frequently name the
		// same term as both a previous run's alias and this run's primary.
		termCache := make(map[string]*Term)

		resolve := func(system System, ct CurationTerm) (*Term, error) {
			key := string(system) + "\x00" + ct.Code + "\x00" + strings.ToLower(ct.Text)
			if t, ok := termCache[key]; ok {
				return t, nil
			}
			t, err := l.resolveTerm(ctx, tx, system, ct)
			if err != nil {
				return nil, err
			}
			termCache[key] = t
			return t, nil
		}

		apply := func(system System, ct CurationTerm, status Status, primary bool, action AuditAction, reason string) error {
			term, err := resolve(system, ct)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					skipped++
					logger.Warn("term not found, skipping",
						"entry", decision.EntryName,
						"system", system,
						"code", ct.Code,
						"term", ct.Text,
					)
					return nil
				}
				return err
			}

			mapping, err := tx.GetMapping(ctx, entry.ID, term.ID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					skipped++
					logger.Warn("mapping not found, skipping",
						"entry", decision.EntryName,
						"system", system,
						"term", term.Text,
					)
					return nil
				}
				return err
			}

			if err := tx.UpdateMappingState(ctx, mapping.ID, status, primary); err != nil {
				return err
			}
			if err := tx.InsertAudit(ctx, NewAuditRecord(ctx, action, mapping.ID, decision.Actor, reason)); err != nil {
				return err
			}
			updated++
			return nil
		}

		for _, sc := range decision.Systems {
			if sc.Primary != nil {
				if err := apply(sc.System, *sc.Primary, StatusStaged, true, ActionCurationSubmitted, "primary"); err != nil {
					return err
				}
			}
			for _, alias := range sc.Aliases {
				if err := apply(sc.System, alias, StatusStaged, false, ActionCurationSubmitted, "alias"); err != nil {
					return err
				}
			}
			for _, rej := range sc.Rejected {
				status := StatusRejectedCorrection
				if strings.EqualFold(strings.TrimSpace(rej.Reason), RejectReasonOrphan) {
					status = StatusRejectedOrphan
				}
				if err := apply(sc.System, rej.CurationTerm, status, false, ActionCurationSubmitted, rej.Reason); err != nil {
					return err
				}
			}
		}

		if updated > 0 {
			return tx.SetEntryStatus(ctx, entry.ID, EntryMapped)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return updated, skipped, nil
}

// resolveTerm finds a term by code when present, falling back to a
// case-insensitive text match.
func (l *Lifecycle) resolveTerm(ctx context.Context, store Store, system System, ct CurationTerm) (*Term, error) {
	if ct.Code != "" {
		return store.GetTermByCode(ctx, system, ct.Code)
	}
	if ct.Text == "" {
		return nil, fmt.Errorf("term without code or text: %w", ErrInvalidInput)
	}
	return store.GetTermByText(ctx, system, ct.Text)
}

// CommitToMaster transitions every staged mapping to verified.
// Primary flags survive the transition.
func (l *Lifecycle) CommitToMaster(ctx context.Context, actor string) (int64, error) {
	var committed int64
	err := l.store.WithTx(ctx, func(tx Store) error {
		n, err := tx.BulkUpdateStatus(ctx, StatusStaged, StatusVerified)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoStagedData
		}
		committed = n
		return tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionCommitted, 0, actor,
			fmt.Sprintf("%d mappings committed", n)))
	})
	if err != nil {
		return 0, err
	}

	logging.FromContext(ctx).Info("staged mappings committed", "count", committed)
	return committed, nil
}

// UndoVerification moves one entry's verified mappings back to staged.
func (l *Lifecycle) UndoVerification(ctx context.Context, entryName, actor string) (int64, error) {
	var undone int64
	err := l.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntryByName(ctx, entryName)
		if err != nil {
			return err
		}

		n, err := tx.UpdateEntryMappings(ctx, entry.ID, StatusVerified, StatusStaged)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("entry %q: %w", entryName, ErrNothingToUndo)
		}
		undone = n
		return tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionUndoVerification, 0, actor, entryName))
	})
	if err != nil {
		return 0, err
	}
	return undone, nil
}

// RevertEntry pushes one entry's staged and verified mappings back to
// suggested, clearing primary flags and resetting the entry tag.
func (l *Lifecycle) RevertEntry(ctx context.Context, entryName, actor string) (int64, error) {
	var reverted int64
	err := l.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntryByName(ctx, entryName)
		if err != nil {
			return err
		}

		n, err := tx.RevertEntryMappings(ctx, entry.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("entry %q has no staged or verified mappings: %w", entryName, ErrNotFound)
		}
		reverted = n

		if err := tx.SetEntryStatus(ctx, entry.ID, EntryPending); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionReverted, 0, actor, entryName))
	})
	if err != nil {
		return 0, err
	}
	return reverted, nil
}

// justify calls the AI collaborator with a single bounded attempt.
// Any failure, including a missing collaborator, degrades to the
// placeholder justification with confidence 0.
func (l *Lifecycle) justify(ctx context.Context, entryName, termText, description string) Justification {
	if l.ai == nil {
		return Justification{Text: PlaceholderJustification, Confidence: 0}
	}

	j, err := l.ai.Justify(ctx, entryName, termText, description)
	if err != nil {
		logging.FromContext(ctx).Warn("ai justification unavailable",
			"entry", entryName,
			"term", termText,
			"error", err,
		)
		return Justification{Text: PlaceholderJustification, Confidence: 0}
	}
	return j
}
