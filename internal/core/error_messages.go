// Package core provides the business logic for vocabulary mapping curation.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. When curators encounter errors, they can quote the error
// code to support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Curation Errors (MAP001-MAP099)
//
//	MAP001 - Not found: The entry, term, or mapping does not exist
//	MAP002 - Conflict: A record with this name already exists
//	MAP003 - Invalid input: A required field is missing or malformed
//	MAP004 - Nothing staged: Commit requested with no staged mappings
//	MAP005 - Nothing to undo: The entry has no verified mappings
//
// # Repopulation Errors (RST001-RST099)
//
//	RST001 - Already running: A repopulation job is in progress
//	RST002 - Validation failed: Post-repopulation counts were zero
//
// # External Service Errors (EXT001-EXT099)
//
//	EXT001 - Service unavailable: A collaborator service did not respond
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB002 - Unique constraint
//	DB003 - Foreign key
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	REQ003 - Rate limited
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// application logs for the original technical error when users report it.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are
// defined before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Patterns are matched using strings.Contains, so partial matches
// work, and the first match wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Curation Errors (MAP001-MAP005)
	// Raised by the mapping lifecycle operations.
	// =========================================================================
	{
		pattern: "nothing to undo",
		msg: UserMessage{
			Message: "This entry has no verified mappings to undo",
			Action:  "Verify mappings for the entry before undoing",
			Code:    "MAP005",
		},
	},
	{
		pattern: "no staged data",
		msg: UserMessage{
			Message: "There are no staged mappings to commit",
			Action:  "Stage at least one mapping before committing",
			Code:    "MAP004",
		},
	},
	{
		pattern: "invalid input",
		msg: UserMessage{
			Message: "A required field is missing or malformed",
			Action:  "Check the request payload and resubmit",
			Code:    "MAP003",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "A record with this name already exists",
			Action:  "Use the existing record or pick a different name",
			Code:    "MAP002",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "The entry, term, or mapping does not exist",
			Action:  "Verify the name, system, and code are correct",
			Code:    "MAP001",
		},
	},

	// =========================================================================
	// Repopulation Errors (RST001-RST002)
	// Raised by the reset and repopulation job.
	// =========================================================================
	{
		pattern: "reset already running",
		msg: UserMessage{
			Message: "A repopulation job is already in progress",
			Action:  "Poll the reset status endpoint and retry once it finishes",
			Code:    "RST001",
		},
	},
	{
		pattern: "population validation failed",
		msg: UserMessage{
			Message: "Repopulation finished with zero entries or mappings",
			Action:  "Check the source files and the reset step log",
			Code:    "RST002",
		},
	},

	// =========================================================================
	// External Service Errors (EXT001)
	// Raised by the classification lookup collaborator.
	// =========================================================================
	{
		pattern: "dependency unavailable",
		msg: UserMessage{
			Message: "An external service did not respond",
			Action:  "Try again in a few moments",
			Code:    "EXT001",
		},
	},

	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// These errors occur when data violates database constraints.
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this identifier already exists",
			Action:  "Review the data for duplicate key values",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Review the data for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review the data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure the parent records exist first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure the parent records exist first",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// These errors occur when database connectivity is disrupted.
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later or narrow the request",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "REQ003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be
// shown to users. Returns true if the error matches a specific pattern
// (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}
