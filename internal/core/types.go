// Package core provides the business logic for vocabulary mapping curation.
// This package has no transport dependencies and can be driven by any frontend.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// System identifies one of the secondary terminology systems.
type System string

const (
	SystemAyurveda System = "ayurveda"
	SystemSiddha   System = "siddha"
	SystemUnani    System = "unani"
)

// Systems lists all supported systems in canonical order.
func Systems() []System {
	return []System{SystemAyurveda, SystemSiddha, SystemUnani}
}

// Status represents the curation state of a mapping.
type Status string

const (
	StatusSuggested          Status = "suggested"
	StatusStaged             Status = "staged"
	StatusVerified           Status = "verified"
	StatusRejectedCorrection Status = "rejected_correction"
	StatusRejectedOrphan     Status = "rejected_orphan"
)

// Entry status tags. Derived bookkeeping, not authoritative.
const (
	EntryPending  = "Pending"
	EntryMapped   = "Mapped"
	EntryOrphaned = "Orphaned"
)

// Entry is an item of the primary classification being mapped to.
type Entry struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ExternalCode string    `json:"externalCode,omitempty"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Term is a code/label pair from one secondary system.
// Identified by (system, code), or (system, term text) when the code is absent.
type Term struct {
	ID              int64     `json:"id"`
	System          System    `json:"system"`
	Code            string    `json:"code,omitempty"`
	Text            string    `json:"text"`
	ShortDefinition string    `json:"shortDefinition,omitempty"`
	LongDefinition  string    `json:"longDefinition,omitempty"`
	NativeLabel     string    `json:"nativeLabel,omitempty"`
	SourceRow       int       `json:"sourceRow,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Mapping links exactly one Entry to exactly one Term.
//
// For a given (entry, system, status) at most one mapping may carry
// IsPrimary = true, and IsPrimary is only meaningful for staged and
// verified mappings. A (entry, term) pair has at most one mapping row.
type Mapping struct {
	ID              int64     `json:"id"`
	EntryID         int64     `json:"entryId"`
	TermID          int64     `json:"termId"`
	Status          Status    `json:"status"`
	IsPrimary       bool      `json:"isPrimary"`
	AIJustification string    `json:"aiJustification,omitempty"`
	AIConfidence    *int      `json:"aiConfidence,omitempty"`
	Origin          string    `json:"origin,omitempty"`
	SourceLabel     string    `json:"sourceLabel,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// MappingDetail is a mapping joined with its term and entry name,
// used by list views and reconciliation.
type MappingDetail struct {
	Mapping
	Term      Term   `json:"term"`
	EntryName string `json:"entryName"`
}

// CreateEntryParams are the fields set when creating an Entry.
type CreateEntryParams struct {
	Name         string
	ExternalCode string
	Description  string
	Status       string // defaults to EntryPending when empty
}

// CreateTermParams are the fields set when creating a Term.
// For backfill updates, only empty stored fields are written.
type CreateTermParams struct {
	System          System
	Code            string
	Text            string
	ShortDefinition string
	LongDefinition  string
	NativeLabel     string
	SourceRow       int
}

// CreateMappingParams are the fields set when creating a Mapping.
type CreateMappingParams struct {
	EntryID         int64
	TermID          int64
	Status          Status
	IsPrimary       bool
	AIJustification string
	AIConfidence    *int
	Origin          string
	SourceLabel     string
}

// StatusCounts is the aggregate view returned by the stats surface.
type StatusCounts struct {
	Suggested          int64 `json:"suggested"`
	Staged             int64 `json:"staged"`
	Verified           int64 `json:"verified"`
	RejectedCorrection int64 `json:"rejectedCorrection"`
	RejectedOrphan     int64 `json:"rejectedOrphan"`
	Entries            int64 `json:"entries"`
	Terms              int64 `json:"terms"`
}

// Completeness breaks entries down by how many systems contribute a
// staged or verified mapping.
type Completeness struct {
	ThreeSystems int64 `json:"threeSystems"`
	TwoSystems   int64 `json:"twoSystems"`
	OneSystem    int64 `json:"oneSystem"`
}

// Justification is the AI collaborator's verdict for one mapping.
type Justification struct {
	Text       string
	Confidence int // 0-100
}

// Justifier scores a proposed term-to-entry equivalence.
// Implementations make a single bounded attempt; callers substitute a
// placeholder on any failure and continue.
type Justifier interface {
	Justify(ctx context.Context, entryName, termText, description string) (Justification, error)
}

// PlaceholderJustification is stored when the AI collaborator is
// unavailable. The paired confidence is always 0.
const PlaceholderJustification = "Pending AI justification (service unavailable)"

// EntryCandidate is a search hit from the classification lookup service.
type EntryCandidate struct {
	ID    string
	Title string
	Score float64
}

// EntryDetails is the detail record fetched for one candidate.
type EntryDetails struct {
	Title       string
	Description string
	Code        string
}

// EntryResolver is the external classification lookup service boundary.
type EntryResolver interface {
	Search(ctx context.Context, name string) ([]EntryCandidate, error)
	FetchDetails(ctx context.Context, id string) (EntryDetails, error)
}
