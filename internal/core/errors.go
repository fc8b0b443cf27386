package core

import "errors"

// Sentinel errors for the curation taxonomy. Callers branch on these
// with errors.Is; wrapped variants carry operation context.
var (
	// ErrNotFound indicates a referenced entry, term, or mapping is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate creation attempt, such as an
	// entry name that already exists.
	ErrConflict = errors.New("already exists")

	// ErrInvalidInput indicates a missing or malformed required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoStagedData is returned by commit when nothing is staged.
	ErrNoStagedData = errors.New("no staged data")

	// ErrNothingToUndo is returned by undo when an entry has no
	// verified mappings.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrAlreadyRunning rejects a repopulation request while one is
	// in progress. There is no queueing.
	ErrAlreadyRunning = errors.New("reset already running")

	// ErrPopulationValidation indicates the post-reset sanity check
	// found zero entries or zero mappings.
	ErrPopulationValidation = errors.New("population validation failed")

	// ErrDependencyUnavailable indicates an external collaborator
	// failure. The AI collaborator's variant is always absorbed into a
	// placeholder; the lookup service's variant surfaces to the caller.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
