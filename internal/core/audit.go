package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of curation action being audited.
type AuditAction string

const (
	ActionCurationSubmitted AuditAction = "curation_submitted"
	ActionCommitted         AuditAction = "committed"
	ActionUndoVerification  AuditAction = "undo_verification"
	ActionReverted          AuditAction = "reverted"
	ActionRemapped          AuditAction = "remapped"
	ActionManualVerified    AuditAction = "manual_verified"
	ActionEditorUpdated     AuditAction = "editor_updated"
	ActionEntryCreated      AuditAction = "entry_created"
	ActionEntryEnriched     AuditAction = "entry_enriched"
	ActionResetStarted      AuditAction = "reset_started"
	ActionResetCompleted    AuditAction = "reset_completed"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditRecord is a single append-only audit log entry.
// Records are never mutated or deleted outside a full reset.
type AuditRecord struct {
	ID        string        `json:"id"`
	MappingID int64         `json:"mappingId,omitempty"`
	Action    AuditAction   `json:"action"`
	Severity  AuditSeverity `json:"severity"`
	Actor     string        `json:"actor,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AuditFilter contains filtering options for querying the audit log.
type AuditFilter struct {
	Action    AuditAction
	Actor     string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// DefaultAuditLimit caps unfiltered audit log reads.
const DefaultAuditLimit = 100

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionCommitted, ActionReverted, ActionManualVerified:
		return SeverityHigh
	case ActionResetStarted, ActionResetCompleted:
		return SeverityCritical
	case ActionEntryCreated, ActionEntryEnriched:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// NewAuditRecord builds a record for an action, pulling request
// provenance (IP, user agent) from the context when present.
func NewAuditRecord(ctx context.Context, action AuditAction, mappingID int64, actor, reason string) AuditRecord {
	return AuditRecord{
		ID:        uuid.New().String(),
		MappingID: mappingID,
		Action:    action,
		Severity:  determineSeverity(action),
		Actor:     actor,
		Reason:    reason,
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}
