package core

import (
	"context"
	"errors"
	"testing"
)

func TestSubmitCuration(t *testing.T) {
	ctx := context.Background()

	t.Run("stages primary, aliases, and rejections", func(t *testing.T) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Fever, unspecified")
		jwara := seedTerm(t, f, SystemAyurveda, "AYU-1", "Jwara")
		santapa := seedTerm(t, f, SystemAyurveda, "AYU-2", "Santapa")
		wrong := seedTerm(t, f, SystemAyurveda, "AYU-3", "Atisara")
		orphan := seedTerm(t, f, SystemAyurveda, "AYU-4", "Kshaya")
		for _, term := range []*Term{jwara, santapa, wrong, orphan} {
			seedMapping(t, f, entry.ID, term.ID, StatusSuggested, false)
		}

		l := NewLifecycle(f, nil)
		summary, err := l.SubmitCuration(ctx, []CurationDecision{{
			EntryName: "Fever, unspecified",
			Actor:     "curator",
			Systems: []SystemCuration{{
				System:  SystemAyurveda,
				Primary: &CurationTerm{Code: "AYU-1", Text: "Jwara"},
				Aliases: []CurationTerm{{Code: "AYU-2", Text: "Santapa"}},
				Rejected: []RejectedCuration{
					{CurationTerm: CurationTerm{Code: "AYU-3"}, Reason: "wrong concept"},
					{CurationTerm: CurationTerm{Code: "AYU-4"}, Reason: "orphan"},
				},
			}},
		}})
		if err != nil {
			t.Fatalf("SubmitCuration: %v", err)
		}
		if summary.EntriesProcessed != 1 || summary.MappingsUpdated != 4 {
			t.Fatalf("summary = %+v, want 1 entry, 4 updates", summary)
		}

		checkMapping := func(termID int64, status Status, primary bool) {
			t.Helper()
			m, err := f.GetMapping(ctx, entry.ID, termID)
			if err != nil {
				t.Fatalf("GetMapping: %v", err)
			}
			if m.Status != status || m.IsPrimary != primary {
				t.Errorf("mapping term=%d = (%s, primary=%v), want (%s, %v)",
					termID, m.Status, m.IsPrimary, status, primary)
			}
		}
		checkMapping(jwara.ID, StatusStaged, true)
		checkMapping(santapa.ID, StatusStaged, false)
		checkMapping(wrong.ID, StatusRejectedCorrection, false)
		checkMapping(orphan.ID, StatusRejectedOrphan, false)

		got, err := f.GetEntryByName(ctx, "Fever, unspecified")
		if err != nil {
			t.Fatalf("GetEntryByName: %v", err)
		}
		if got.Status != EntryMapped {
			t.Errorf("entry status = %q, want %q", got.Status, EntryMapped)
		}
	})

	t.Run("unknown term is skipped, not fatal", func(t *testing.T) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Cough")
		kasa := seedTerm(t, f, SystemAyurveda, "AYU-9", "Kasa")
		seedMapping(t, f, entry.ID, kasa.ID, StatusSuggested, false)

		l := NewLifecycle(f, nil)
		summary, err := l.SubmitCuration(ctx, []CurationDecision{{
			EntryName: "Cough",
			Systems: []SystemCuration{{
				System:  SystemAyurveda,
				Primary: &CurationTerm{Code: "AYU-9"},
				Aliases: []CurationTerm{{Code: "NO-SUCH-CODE"}},
			}},
		}})
		if err != nil {
			t.Fatalf("SubmitCuration: %v", err)
		}
		if summary.TermsSkipped != 1 || summary.MappingsUpdated != 1 {
			t.Fatalf("summary = %+v, want 1 skip, 1 update", summary)
		}
	})

	t.Run("unknown entry fails the decision only", func(t *testing.T) {
		f := newFakeStore()
		l := NewLifecycle(f, nil)
		summary, err := l.SubmitCuration(ctx, []CurationDecision{
			{EntryName: "Missing", Systems: []SystemCuration{{System: SystemSiddha}}},
		})
		if err != nil {
			t.Fatalf("SubmitCuration: %v", err)
		}
		if summary.EntriesFailed != 1 || summary.EntriesProcessed != 0 {
			t.Fatalf("summary = %+v, want 1 failed", summary)
		}
	})
}

func TestCommitUndoRevert(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeStore, *Lifecycle, *Entry, *Term, *Term) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Fever, unspecified")
		jwara := seedTerm(t, f, SystemAyurveda, "AYU-1", "Jwara")
		santapa := seedTerm(t, f, SystemAyurveda, "AYU-2", "Santapa")
		seedMapping(t, f, entry.ID, jwara.ID, StatusStaged, true)
		seedMapping(t, f, entry.ID, santapa.ID, StatusStaged, false)
		return f, NewLifecycle(f, nil), entry, jwara, santapa
	}

	t.Run("commit promotes staged to verified keeping primaries", func(t *testing.T) {
		f, l, entry, jwara, _ := setup(t)
		n, err := l.CommitToMaster(ctx, "curator")
		if err != nil {
			t.Fatalf("CommitToMaster: %v", err)
		}
		if n != 2 {
			t.Fatalf("committed %d, want 2", n)
		}
		m, _ := f.GetMapping(ctx, entry.ID, jwara.ID)
		if m.Status != StatusVerified || !m.IsPrimary {
			t.Errorf("primary after commit = (%s, %v), want (verified, true)", m.Status, m.IsPrimary)
		}
	})

	t.Run("commit with nothing staged", func(t *testing.T) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Cough")
		kasa := seedTerm(t, f, SystemAyurveda, "AYU-9", "Kasa")
		seedMapping(t, f, entry.ID, kasa.ID, StatusSuggested, false)

		l := NewLifecycle(f, nil)
		if _, err := l.CommitToMaster(ctx, "curator"); !errors.Is(err, ErrNoStagedData) {
			t.Fatalf("err = %v, want ErrNoStagedData", err)
		}
		m, _ := f.GetMapping(ctx, entry.ID, kasa.ID)
		if m.Status != StatusSuggested {
			t.Errorf("mapping status = %s, want suggested untouched", m.Status)
		}
	})

	t.Run("undo returns verified mappings to staged", func(t *testing.T) {
		f, l, entry, jwara, _ := setup(t)
		if _, err := l.CommitToMaster(ctx, "curator"); err != nil {
			t.Fatalf("CommitToMaster: %v", err)
		}
		n, err := l.UndoVerification(ctx, "Fever, unspecified", "curator")
		if err != nil {
			t.Fatalf("UndoVerification: %v", err)
		}
		if n != 2 {
			t.Fatalf("undone %d, want 2", n)
		}
		m, _ := f.GetMapping(ctx, entry.ID, jwara.ID)
		if m.Status != StatusStaged || !m.IsPrimary {
			t.Errorf("primary after undo = (%s, %v), want (staged, true)", m.Status, m.IsPrimary)
		}
	})

	t.Run("undo with nothing verified", func(t *testing.T) {
		_, l, _, _, _ := setup(t)
		if _, err := l.UndoVerification(ctx, "Fever, unspecified", "curator"); !errors.Is(err, ErrNothingToUndo) {
			t.Fatalf("err = %v, want ErrNothingToUndo", err)
		}
	})

	t.Run("revert returns everything to suggested and clears primaries", func(t *testing.T) {
		f, l, entry, jwara, santapa := setup(t)
		n, err := l.RevertEntry(ctx, "Fever, unspecified", "curator")
		if err != nil {
			t.Fatalf("RevertEntry: %v", err)
		}
		if n != 2 {
			t.Fatalf("reverted %d, want 2", n)
		}
		for _, term := range []*Term{jwara, santapa} {
			m, _ := f.GetMapping(ctx, entry.ID, term.ID)
			if m.Status != StatusSuggested || m.IsPrimary {
				t.Errorf("mapping term=%d = (%s, %v), want (suggested, false)", term.ID, m.Status, m.IsPrimary)
			}
		}
		got, _ := f.GetEntryByName(ctx, "Fever, unspecified")
		if got.Status != EntryPending {
			t.Errorf("entry status = %q, want %q", got.Status, EntryPending)
		}
	})

	t.Run("revert unknown entry", func(t *testing.T) {
		_, l, _, _, _ := setup(t)
		if _, err := l.RevertEntry(ctx, "Missing", "curator"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("revert then resubmitting the same decision reproduces it", func(t *testing.T) {
		f, l, entry, jwara, santapa := setup(t)
		if _, err := l.RevertEntry(ctx, "Fever, unspecified", "curator"); err != nil {
			t.Fatalf("RevertEntry: %v", err)
		}

		_, err := l.SubmitCuration(ctx, []CurationDecision{{
			EntryName: "Fever, unspecified",
			Actor:     "curator",
			Systems: []SystemCuration{{
				System:  SystemAyurveda,
				Primary: &CurationTerm{Code: "AYU-1", Text: "Jwara"},
				Aliases: []CurationTerm{{Code: "AYU-2", Text: "Santapa"}},
			}},
		}})
		if err != nil {
			t.Fatalf("SubmitCuration after revert: %v", err)
		}

		m, _ := f.GetMapping(ctx, entry.ID, jwara.ID)
		if m.Status != StatusStaged || !m.IsPrimary {
			t.Errorf("primary after round trip = (%s, %v), want (staged, true)", m.Status, m.IsPrimary)
		}
		m, _ = f.GetMapping(ctx, entry.ID, santapa.ID)
		if m.Status != StatusStaged || m.IsPrimary {
			t.Errorf("alias after round trip = (%s, %v), want (staged, false)", m.Status, m.IsPrimary)
		}
		got, _ := f.GetEntryByName(ctx, "Fever, unspecified")
		if got.Status != EntryMapped {
			t.Errorf("entry status = %q, want %q", got.Status, EntryMapped)
		}
	})
}

func TestPrimaryUniquenessAcrossCycle(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	entry := seedEntry(t, f, "Fever, unspecified")
	jwara := seedTerm(t, f, SystemAyurveda, "AYU-1", "Jwara")
	santapa := seedTerm(t, f, SystemAyurveda, "AYU-2", "Santapa")
	seedMapping(t, f, entry.ID, jwara.ID, StatusSuggested, false)
	seedMapping(t, f, entry.ID, santapa.ID, StatusSuggested, false)

	l := NewLifecycle(f, nil)
	decide := func(primaryCode, aliasCode string) {
		t.Helper()
		_, err := l.SubmitCuration(ctx, []CurationDecision{{
			EntryName: "Fever, unspecified",
			Systems: []SystemCuration{{
				System:  SystemAyurveda,
				Primary: &CurationTerm{Code: primaryCode},
				Aliases: []CurationTerm{{Code: aliasCode}},
			}},
		}})
		if err != nil {
			t.Fatalf("SubmitCuration: %v", err)
		}
	}

	// Promote Jwara, then swap the primary to Santapa. At every point
	// the (entry, system, staged) group holds exactly one primary.
	decide("AYU-1", "AYU-2")
	decide("AYU-2", "AYU-1")

	primaries := 0
	for _, term := range []*Term{jwara, santapa} {
		m, _ := f.GetMapping(ctx, entry.ID, term.ID)
		if m.Status != StatusStaged {
			t.Errorf("term %s status = %s, want staged", term.Code, m.Status)
		}
		if m.IsPrimary {
			primaries++
			if term.ID != santapa.ID {
				t.Errorf("primary is term %s, want Santapa", term.Code)
			}
		}
	}
	if primaries != 1 {
		t.Fatalf("staged primaries = %d, want exactly 1", primaries)
	}
}

func TestRemapRejected(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeStore, *Lifecycle, *Entry, *Term) {
		f := newFakeStore()
		source := seedEntry(t, f, "Fever, unspecified")
		term := seedTerm(t, f, SystemAyurveda, "AYU-3", "Atisara")
		seedMapping(t, f, source.ID, term.ID, StatusRejectedCorrection, false)
		return f, NewLifecycle(f, &fakeJustifier{verdict: Justification{Text: "plausible match", Confidence: 80}}), source, term
	}

	t.Run("destination with staged data gets staged primary", func(t *testing.T) {
		f, l, _, term := setup(t)
		dest := seedEntry(t, f, "Diarrhoea")
		other := seedTerm(t, f, SystemAyurveda, "AYU-5", "Grahani")
		seedMapping(t, f, dest.ID, other.ID, StatusStaged, false)

		result, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-3",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Diarrhoea",
			Actor:           "curator",
		})
		if err != nil {
			t.Fatalf("RemapRejected: %v", err)
		}
		if result.Status != StatusStaged || !result.IsPrimary {
			t.Fatalf("result = %+v, want staged primary", result)
		}
		m, err := f.GetMapping(ctx, dest.ID, term.ID)
		if err != nil {
			t.Fatalf("mapping not moved: %v", err)
		}
		if m.AIJustification != "plausible match" {
			t.Errorf("justification = %q, want refreshed verdict", m.AIJustification)
		}
	})

	t.Run("destination with staged primary gets staged alias", func(t *testing.T) {
		f, l, _, _ := setup(t)
		dest := seedEntry(t, f, "Diarrhoea")
		other := seedTerm(t, f, SystemAyurveda, "AYU-5", "Grahani")
		seedMapping(t, f, dest.ID, other.ID, StatusStaged, true)

		result, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-3",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Diarrhoea",
		})
		if err != nil {
			t.Fatalf("RemapRejected: %v", err)
		}
		if result.Status != StatusStaged || result.IsPrimary {
			t.Fatalf("result = %+v, want staged non-primary", result)
		}
	})

	t.Run("destination without staged data gets suggested", func(t *testing.T) {
		f, l, _, _ := setup(t)
		seedEntry(t, f, "Diarrhoea")

		result, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-3",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Diarrhoea",
		})
		if err != nil {
			t.Fatalf("RemapRejected: %v", err)
		}
		if result.Status != StatusSuggested || result.IsPrimary {
			t.Fatalf("result = %+v, want suggested non-primary", result)
		}
	})

	t.Run("new destination entry is created on request", func(t *testing.T) {
		f, l, _, _ := setup(t)
		_, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-3",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Dysentery",
			DestIsNew:       true,
		})
		if err != nil {
			t.Fatalf("RemapRejected: %v", err)
		}
		if _, err := f.GetEntryByName(ctx, "Dysentery"); err != nil {
			t.Fatalf("destination entry not created: %v", err)
		}
	})

	t.Run("unknown destination without DestIsNew", func(t *testing.T) {
		_, l, _, _ := setup(t)
		_, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-3",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Dysentery",
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate link collapses onto existing mapping", func(t *testing.T) {
		f, l, _, term := setup(t)
		dest := seedEntry(t, f, "Diarrhoea")
		existing := seedMapping(t, f, dest.ID, term.ID, StatusSuggested, false)

		result, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-3",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Diarrhoea",
		})
		if err != nil {
			t.Fatalf("RemapRejected: %v", err)
		}
		if result.MappingID != existing.ID {
			t.Fatalf("landed on mapping %d, want existing %d", result.MappingID, existing.ID)
		}
		total, _ := f.CountMappings(ctx)
		if total != 1 {
			t.Fatalf("mappings after collapse = %d, want 1", total)
		}
	})

	t.Run("mapping that is not awaiting correction", func(t *testing.T) {
		f := newFakeStore()
		source := seedEntry(t, f, "Fever, unspecified")
		term := seedTerm(t, f, SystemAyurveda, "AYU-1", "Jwara")
		seedMapping(t, f, source.ID, term.ID, StatusVerified, true)
		seedEntry(t, f, "Diarrhoea")

		l := NewLifecycle(f, nil)
		_, err := l.RemapRejected(ctx, RemapRequest{
			System:          SystemAyurveda,
			TermCode:        "AYU-1",
			SourceEntryName: "Fever, unspecified",
			DestEntryName:   "Diarrhoea",
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestVerifyWithAI(t *testing.T) {
	ctx := context.Background()

	t.Run("creates term with placeholder code and verifies primary", func(t *testing.T) {
		f := newFakeStore()
		seedEntry(t, f, "Fever, unspecified")
		ai := &fakeJustifier{verdict: Justification{Text: "strong equivalence", Confidence: 92}}
		l := NewLifecycle(f, ai)

		m, err := l.VerifyWithAI(ctx, VerifyRequest{
			EntryName: "Fever, unspecified",
			System:    SystemSiddha,
			TermText:  "Suram",
			Actor:     "curator",
		})
		if err != nil {
			t.Fatalf("VerifyWithAI: %v", err)
		}
		if m.Status != StatusVerified || !m.IsPrimary {
			t.Fatalf("mapping = (%s, %v), want verified primary", m.Status, m.IsPrimary)
		}
		if m.AIJustification != "strong equivalence" || m.AIConfidence == nil || *m.AIConfidence != 92 {
			t.Errorf("AI fields = (%q, %v)", m.AIJustification, m.AIConfidence)
		}

		term, err := f.GetTermByCode(ctx, SystemSiddha, "TMP-SURAM")
		if err != nil {
			t.Fatalf("placeholder-coded term not created: %v", err)
		}
		if term.ID != m.TermID {
			t.Errorf("mapping points at term %d, want %d", m.TermID, term.ID)
		}
	})

	t.Run("existing term takes the curator's edited fields", func(t *testing.T) {
		f := newFakeStore()
		seedEntry(t, f, "Fever, unspecified")
		stale := seedTerm(t, f, SystemSiddha, "SID-1", "Surm")
		if err := f.BackfillTerm(ctx, stale.ID, CreateTermParams{LongDefinition: "old definition"}); err != nil {
			t.Fatalf("BackfillTerm: %v", err)
		}

		l := NewLifecycle(f, &fakeJustifier{verdict: Justification{Text: "ok", Confidence: 80}})
		_, err := l.VerifyWithAI(ctx, VerifyRequest{
			EntryName:   "Fever, unspecified",
			System:      SystemSiddha,
			Code:        "SID-1",
			TermText:    "Suram",
			Description: "febrile state in Siddha texts",
			Actor:       "curator",
		})
		if err != nil {
			t.Fatalf("VerifyWithAI: %v", err)
		}

		term, err := f.GetTermByCode(ctx, SystemSiddha, "SID-1")
		if err != nil {
			t.Fatalf("GetTermByCode: %v", err)
		}
		if term.Text != "Suram" {
			t.Errorf("term text = %q, want edited spelling", term.Text)
		}
		if term.LongDefinition != "febrile state in Siddha texts" {
			t.Errorf("long definition = %q, want edited value", term.LongDefinition)
		}
	})

	t.Run("second verification in a system is not primary", func(t *testing.T) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Fever, unspecified")
		suram := seedTerm(t, f, SystemSiddha, "SID-1", "Suram")
		seedMapping(t, f, entry.ID, suram.ID, StatusVerified, true)

		l := NewLifecycle(f, &fakeJustifier{verdict: Justification{Text: "ok", Confidence: 70}})
		m, err := l.VerifyWithAI(ctx, VerifyRequest{
			EntryName: "Fever, unspecified",
			System:    SystemSiddha,
			Code:      "SID-2",
			TermText:  "Veppu",
		})
		if err != nil {
			t.Fatalf("VerifyWithAI: %v", err)
		}
		if m.IsPrimary {
			t.Fatal("second verified mapping became primary")
		}
	})

	t.Run("AI failure stores placeholder with zero confidence", func(t *testing.T) {
		f := newFakeStore()
		seedEntry(t, f, "Fever, unspecified")
		l := NewLifecycle(f, &fakeJustifier{err: errors.New("upstream timeout")})

		m, err := l.VerifyWithAI(ctx, VerifyRequest{
			EntryName: "Fever, unspecified",
			System:    SystemUnani,
			Code:      "UNA-1",
			TermText:  "Humma",
		})
		if err != nil {
			t.Fatalf("VerifyWithAI: %v", err)
		}
		if m.AIJustification != PlaceholderJustification {
			t.Errorf("justification = %q, want placeholder", m.AIJustification)
		}
		if m.AIConfidence == nil || *m.AIConfidence != 0 {
			t.Errorf("confidence = %v, want 0", m.AIConfidence)
		}
		if m.Status != StatusVerified {
			t.Errorf("status = %s, verification must not depend on the AI", m.Status)
		}
	})

	t.Run("empty term text", func(t *testing.T) {
		l := NewLifecycle(newFakeStore(), nil)
		if _, err := l.VerifyWithAI(ctx, VerifyRequest{EntryName: "X", System: SystemUnani}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestUpdateMasterMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles the staged set", func(t *testing.T) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Fever, unspecified")
		jwara := seedTerm(t, f, SystemAyurveda, "AYU-1", "Jwara")
		santapa := seedTerm(t, f, SystemAyurveda, "AYU-2", "Santapa")
		seedMapping(t, f, entry.ID, jwara.ID, StatusStaged, true)
		seedMapping(t, f, entry.ID, santapa.ID, StatusStaged, false)

		l := NewLifecycle(f, nil)
		err := l.UpdateMasterMapping(ctx, EditorUpdate{
			EntryName: "Fever, unspecified",
			System:    SystemAyurveda,
			Primary:   CurationTerm{Code: "AYU-7", Text: "Jvara Roga"},
			Aliases:   []CurationTerm{{Code: "AYU-1", Text: "Jwara"}},
			Actor:     "editor",
		})
		if err != nil {
			t.Fatalf("UpdateMasterMapping: %v", err)
		}

		// Santapa was absent from the replacement set.
		if _, err := f.GetMapping(ctx, entry.ID, santapa.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("absent alias survived reconciliation: %v", err)
		}

		newTerm, err := f.GetTermByCode(ctx, SystemAyurveda, "AYU-7")
		if err != nil {
			t.Fatalf("replacement primary term not created: %v", err)
		}
		primary, _ := f.GetMapping(ctx, entry.ID, newTerm.ID)
		if primary.Status != StatusStaged || !primary.IsPrimary {
			t.Errorf("new primary = (%s, %v), want staged primary", primary.Status, primary.IsPrimary)
		}
		demoted, _ := f.GetMapping(ctx, entry.ID, jwara.ID)
		if demoted.Status != StatusStaged || demoted.IsPrimary {
			t.Errorf("demoted alias = (%s, %v), want staged non-primary", demoted.Status, demoted.IsPrimary)
		}
	})

	t.Run("other systems are untouched", func(t *testing.T) {
		f := newFakeStore()
		entry := seedEntry(t, f, "Fever, unspecified")
		suram := seedTerm(t, f, SystemSiddha, "SID-1", "Suram")
		seedMapping(t, f, entry.ID, suram.ID, StatusStaged, true)

		l := NewLifecycle(f, nil)
		err := l.UpdateMasterMapping(ctx, EditorUpdate{
			EntryName: "Fever, unspecified",
			System:    SystemAyurveda,
			Primary:   CurationTerm{Code: "AYU-1", Text: "Jwara"},
		})
		if err != nil {
			t.Fatalf("UpdateMasterMapping: %v", err)
		}
		m, err := f.GetMapping(ctx, entry.ID, suram.ID)
		if err != nil || m.Status != StatusStaged || !m.IsPrimary {
			t.Fatalf("siddha mapping disturbed: %v %+v", err, m)
		}
	})

	t.Run("empty primary", func(t *testing.T) {
		l := NewLifecycle(newFakeStore(), nil)
		err := l.UpdateMasterMapping(ctx, EditorUpdate{EntryName: "X", System: SystemAyurveda})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}
