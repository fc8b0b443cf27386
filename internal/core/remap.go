package core

// remap.go implements the operations that materialize or move links:
// remapping a rejected mapping to a better entry, manual verification
// of a freeform term, and the editor's full reconciliation of one
// (entry, system) staged set.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/traditional-medicine/mapcurator/internal/logging"
)

// RemapRequest moves one rejected_correction mapping to a destination
// entry, which may be declared new.
type RemapRequest struct {
	System          System `json:"system"`
	TermCode        string `json:"termCode,omitempty"`
	TermText        string `json:"termText,omitempty"`
	SourceEntryName string `json:"sourceEntryName"`
	DestEntryName   string `json:"destEntryName"`
	DestIsNew       bool   `json:"destIsNew,omitempty"`
	Actor           string `json:"actor,omitempty"`
}

// RemapResult describes where the mapping landed.
type RemapResult struct {
	MappingID int64  `json:"mappingId"`
	EntryName string `json:"entryName"`
	Status    Status `json:"status"`
	IsPrimary bool   `json:"isPrimary"`
}

// RemapRejected moves a rejected_correction mapping to the destination
// entry. When the destination already links the same term, the old
// rejected row is deleted and the existing link is reclassified, so a
// (entry, term) pair never gains a second row. The destination's
// staged population decides the new status: staged when any staged
// mapping exists (primary only if the system has no staged primary
// yet), suggested otherwise.
func (l *Lifecycle) RemapRejected(ctx context.Context, req RemapRequest) (*RemapResult, error) {
	if req.DestEntryName == "" {
		return nil, fmt.Errorf("destination entry name: %w", ErrInvalidInput)
	}

	var result RemapResult
	err := l.store.WithTx(ctx, func(tx Store) error {
		source, err := tx.GetEntryByName(ctx, req.SourceEntryName)
		if err != nil {
			return err
		}

		term, err := l.resolveTerm(ctx, tx, req.System, CurationTerm{Code: req.TermCode, Text: req.TermText})
		if err != nil {
			return err
		}

		mapping, err := tx.GetMapping(ctx, source.ID, term.ID)
		if err != nil {
			return err
		}
		if mapping.Status != StatusRejectedCorrection {
			return fmt.Errorf("mapping for %s/%s is %s, not %s: %w",
				req.System, term.Text, mapping.Status, StatusRejectedCorrection, ErrNotFound)
		}

		dest, err := tx.GetEntryByName(ctx, req.DestEntryName)
		if errors.Is(err, ErrNotFound) {
			if !req.DestIsNew {
				return err
			}
			dest, err = tx.CreateEntry(ctx, CreateEntryParams{Name: req.DestEntryName})
		}
		if err != nil {
			return err
		}

		// If the destination already links this term, collapse onto the
		// existing row instead of creating a duplicate link.
		target := mapping
		if existing, err := tx.GetMapping(ctx, dest.ID, term.ID); err == nil {
			if err := tx.DeleteMapping(ctx, mapping.ID); err != nil {
				return err
			}
			target = existing
		} else if !errors.Is(err, ErrNotFound) {
			return err
		} else if err := tx.RepointMapping(ctx, mapping.ID, dest.ID); err != nil {
			return err
		}

		status := StatusSuggested
		isPrimary := false
		anyStaged, err := tx.AnyWithStatus(ctx, dest.ID, StatusStaged)
		if err != nil {
			return err
		}
		if anyStaged {
			status = StatusStaged
			hasPrimary, err := tx.HasPrimary(ctx, dest.ID, req.System, StatusStaged)
			if err != nil {
				return err
			}
			isPrimary = !hasPrimary
		}

		j := l.justify(ctx, dest.Name, term.Text, term.LongDefinition)
		if err := tx.UpdateMappingAI(ctx, target.ID, j.Text, &j.Confidence); err != nil {
			return err
		}
		if err := tx.UpdateMappingState(ctx, target.ID, status, isPrimary); err != nil {
			return err
		}

		reason := fmt.Sprintf("from %q to %q", req.SourceEntryName, req.DestEntryName)
		if err := tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionRemapped, target.ID, req.Actor, reason)); err != nil {
			return err
		}

		result = RemapResult{
			MappingID: target.ID,
			EntryName: dest.Name,
			Status:    status,
			IsPrimary: isPrimary,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("mapping remapped",
		"term", req.TermText,
		"from", req.SourceEntryName,
		"to", req.DestEntryName,
		"status", result.Status,
	)
	return &result, nil
}

// VerifyRequest verifies one freeform term directly against an entry.
type VerifyRequest struct {
	EntryName   string `json:"entryName"`
	System      System `json:"system"`
	Code        string `json:"code,omitempty"`
	TermText    string `json:"termText"`
	Description string `json:"description,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

// VerifyWithAI upserts the term and mapping, refreshes the AI
// justification, and sets the mapping verified in one step. Terms
// submitted without a code get a deterministic TMP- placeholder code.
// The mapping becomes the verified primary only when the (entry,
// system) group has none yet.
func (l *Lifecycle) VerifyWithAI(ctx context.Context, req VerifyRequest) (*Mapping, error) {
	if strings.TrimSpace(req.TermText) == "" {
		return nil, fmt.Errorf("term text: %w", ErrInvalidInput)
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = PlaceholderCode(req.TermText)
	}

	var verified *Mapping
	err := l.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntryByName(ctx, req.EntryName)
		if err != nil {
			return err
		}

		term, err := tx.GetTermByCode(ctx, req.System, code)
		switch {
		case errors.Is(err, ErrNotFound):
			term, err = tx.CreateTerm(ctx, CreateTermParams{
				System:         req.System,
				Code:           code,
				Text:           req.TermText,
				LongDefinition: req.Description,
			})
		case err == nil:
			// The curator may have edited the descriptive fields;
			// their values win over what is stored.
			err = tx.UpdateTermDetails(ctx, term.ID, CreateTermParams{
				Text:           req.TermText,
				LongDefinition: req.Description,
			})
			if err == nil {
				term.Text = req.TermText
				if req.Description != "" {
					term.LongDefinition = req.Description
				}
			}
		}
		if err != nil {
			return err
		}

		mapping, err := tx.GetMapping(ctx, entry.ID, term.ID)
		if errors.Is(err, ErrNotFound) {
			mapping, err = tx.CreateMapping(ctx, CreateMappingParams{
				EntryID: entry.ID,
				TermID:  term.ID,
				Status:  StatusSuggested,
				Origin:  "manual",
			})
		}
		if err != nil {
			return err
		}

		j := l.justify(ctx, entry.Name, term.Text, req.Description)
		if err := tx.UpdateMappingAI(ctx, mapping.ID, j.Text, &j.Confidence); err != nil {
			return err
		}

		hasPrimary, err := tx.HasPrimary(ctx, entry.ID, req.System, StatusVerified)
		if err != nil {
			return err
		}
		isPrimary := !hasPrimary

		if err := tx.UpdateMappingState(ctx, mapping.ID, StatusVerified, isPrimary); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionManualVerified, mapping.ID, req.Actor, req.TermText)); err != nil {
			return err
		}

		mapping.Status = StatusVerified
		mapping.IsPrimary = isPrimary
		mapping.AIJustification = j.Text
		mapping.AIConfidence = &j.Confidence
		verified = mapping
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// EditorUpdate is a full replacement of one (entry, system) staged set.
type EditorUpdate struct {
	EntryName string         `json:"entryName"`
	System    System         `json:"system"`
	Primary   CurationTerm   `json:"primary"`
	Aliases   []CurationTerm `json:"aliases,omitempty"`
	Actor     string         `json:"actor,omitempty"`
}

// UpdateMasterMapping reconciles the staged mappings of one (entry,
// system) against a full replacement set. Terms in the new set are
// created or relinked as staged; existing staged mappings whose term
// is absent from the set are deleted. This is a reconciliation, not an
// append.
func (l *Lifecycle) UpdateMasterMapping(ctx context.Context, req EditorUpdate) error {
	if strings.TrimSpace(req.Primary.Text) == "" {
		return fmt.Errorf("primary term text: %w", ErrInvalidInput)
	}

	return l.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntryByName(ctx, req.EntryName)
		if err != nil {
			return err
		}

		existing, err := tx.ListEntrySystemMappings(ctx, entry.ID, req.System, StatusStaged)
		if err != nil {
			return err
		}

		kept := make(map[int64]bool)

		place := func(ct CurationTerm, isPrimary bool) error {
			term, err := l.resolveTerm(ctx, tx, req.System, ct)
			if errors.Is(err, ErrNotFound) {
				term, err = tx.CreateTerm(ctx, CreateTermParams{
					System: req.System,
					Code:   ct.Code,
					Text:   ct.Text,
				})
			}
			if err != nil {
				return err
			}

			mapping, err := tx.GetMapping(ctx, entry.ID, term.ID)
			if errors.Is(err, ErrNotFound) {
				mapping, err = tx.CreateMapping(ctx, CreateMappingParams{
					EntryID: entry.ID,
					TermID:  term.ID,
					Status:  StatusStaged,
					Origin:  "editor",
				})
			}
			if err != nil {
				return err
			}

			kept[mapping.ID] = true
			return tx.UpdateMappingState(ctx, mapping.ID, StatusStaged, isPrimary)
		}

		if err := place(req.Primary, true); err != nil {
			return err
		}
		for _, alias := range req.Aliases {
			if err := place(alias, false); err != nil {
				return err
			}
		}

		for _, old := range existing {
			if !kept[old.ID] {
				if err := tx.DeleteMapping(ctx, old.ID); err != nil {
					return err
				}
			}
		}

		return tx.InsertAudit(ctx, NewAuditRecord(ctx, ActionEditorUpdated, 0, req.Actor,
			fmt.Sprintf("%s/%s", req.EntryName, req.System)))
	})
}
