package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/traditional-medicine/mapcurator/internal/logging"
)

// ResetState is the lifecycle of one reset job.
type ResetState string

const (
	ResetIdle      ResetState = "idle"
	ResetRunning   ResetState = "running"
	ResetCompleted ResetState = "completed"
	ResetError     ResetState = "error"
)

// resetStepTotal is the number of macro steps a reset reports progress
// against. Sub-steps (ingestion progress, fallback deletes) append to
// the log without advancing the fraction.
const resetStepTotal = 6

// maxResetSteps caps the step log so a chatty ingestion cannot grow
// the status payload without bound.
const maxResetSteps = 200

// ResetStatus is a point-in-time snapshot of the current or most
// recent reset job.
type ResetStatus struct {
	JobID     string     `json:"jobId,omitempty"`
	State     ResetState `json:"state"`
	StartedAt time.Time  `json:"startedAt,omitzero"`
	EndedAt   time.Time  `json:"endedAt,omitzero"`
	Steps     []string   `json:"steps,omitempty"`
	Progress  float64    `json:"progress"`
	Error     string     `json:"error,omitempty"`
}

// ResetManager serializes full database resets. At most one job runs
// at a time; its progress is observable while it runs and the final
// status is retained until the next job starts.
type ResetManager struct {
	store     Store
	ingest    *Ingestor
	artifacts []string

	mu      sync.Mutex
	running bool
	status  ResetStatus
}

// NewResetManager creates a manager. artifacts are filesystem paths
// removed best-effort during a reset (export files, cached reports).
func NewResetManager(store Store, ingest *Ingestor, artifacts []string) *ResetManager {
	return &ResetManager{
		store:     store,
		ingest:    ingest,
		artifacts: artifacts,
		status:    ResetStatus{State: ResetIdle},
	}
}

// Running reports whether a reset job is currently executing. Stats
// surfaces short-circuit to zeros while this is true.
func (rm *ResetManager) Running() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.running
}

// Status returns a snapshot of the current job. The step log is copied
// so callers cannot observe later mutation.
func (rm *ResetManager) Status() ResetStatus {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	snapshot := rm.status
	snapshot.Steps = append([]string(nil), rm.status.Steps...)
	return snapshot
}

// Start launches a reset job in the background and returns its ID.
// Returns ErrAlreadyRunning if a job is in flight. The job detaches
// from the caller's context so an abandoned HTTP request cannot leave
// the database half-cleared.
func (rm *ResetManager) Start(ctx context.Context, actor string) (string, error) {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	jobID := uuid.New().String()
	rm.running = true
	rm.status = ResetStatus{
		JobID:     jobID,
		State:     ResetRunning,
		StartedAt: time.Now().UTC(),
	}
	rm.mu.Unlock()

	// Carry request provenance into the detached job context so the
	// completion audit record still names who asked for the reset.
	jobCtx := ContextWithIPAddress(context.Background(), GetIPAddressFromContext(ctx))
	jobCtx = ContextWithUserAgent(jobCtx, GetUserAgentFromContext(ctx))

	go rm.run(jobCtx, jobID, actor)
	return jobID, nil
}

func (rm *ResetManager) run(ctx context.Context, jobID, actor string) {
	logger := logging.FromContext(ctx).With("job_id", jobID)

	fail := func(step int, err error) {
		logger.Error("reset failed", "step", step, "error", err)
		rm.mu.Lock()
		rm.running = false
		rm.status.State = ResetError
		rm.status.EndedAt = time.Now().UTC()
		rm.status.Error = err.Error()
		rm.mu.Unlock()
	}

	rm.step(1, "reset started")
	logger.Info("reset started", "actor", actor)
	if err := rm.store.InsertAudit(ctx, NewAuditRecord(ctx, ActionResetStarted, 0, actor, "job "+jobID)); err != nil {
		logger.Warn("failed to record reset start", "error", err)
	}

	// Step 2: clear all tables. Truncate is fast but needs exclusive
	// locks; if anything is holding one, fall back to ordered deletes.
	rm.step(2, "clearing database")
	if err := rm.store.TruncateAll(ctx); err != nil {
		logger.Warn("truncate failed, falling back to ordered deletes", "error", err)
		rm.appendStep("truncate blocked, deleting row by row")
		if err := rm.store.DeleteAllOrdered(ctx, func(step string) {
			rm.appendStep(step)
		}); err != nil {
			fail(2, fmt.Errorf("clear database: %w", err))
			return
		}
	}

	// Step 3: remove derived artifacts. Best effort only.
	rm.step(3, "removing derived artifacts")
	for _, path := range rm.artifacts {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("artifact not removed", "path", path, "error", err)
		}
	}

	// Step 4: repopulate from source files.
	rm.step(4, "repopulating from source files")
	var result *IngestResult
	if rm.ingest != nil {
		var err error
		result, err = rm.ingest.Run(ctx, rm.appendStep)
		if err != nil {
			fail(4, fmt.Errorf("repopulate: %w", err))
			return
		}
	}

	// Step 5: sanity check. An empty database after a repopulation run
	// means the source files were unusable; surface that as a failure
	// rather than reporting a clean reset.
	rm.step(5, "validating population")
	entries, err := rm.store.CountEntries(ctx)
	if err != nil {
		fail(5, err)
		return
	}
	mappings, err := rm.store.CountMappings(ctx)
	if err != nil {
		fail(5, err)
		return
	}
	if rm.ingest != nil && (entries == 0 || mappings == 0) {
		fail(5, fmt.Errorf("%w: %d entries, %d mappings after repopulation", ErrPopulationValidation, entries, mappings))
		return
	}

	rm.step(6, "reset complete")
	if result != nil {
		logger.Info("reset complete",
			"entries_created", result.EntriesCreated,
			"terms_created", result.TermsCreated,
			"mappings_created", result.MappingsCreated,
		)
	}

	record := NewAuditRecord(ctx, ActionResetCompleted, 0, actor, fmt.Sprintf("job %s", jobID))
	if err := rm.store.InsertAudit(ctx, record); err != nil {
		logger.Warn("reset audit record not written", "error", err)
	}

	rm.mu.Lock()
	rm.running = false
	rm.status.State = ResetCompleted
	rm.status.EndedAt = time.Now().UTC()
	rm.status.Progress = 1
	rm.mu.Unlock()
}

// step records a macro step and advances the progress fraction.
func (rm *ResetManager) step(n int, msg string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.status.Progress = float64(n) / resetStepTotal
	rm.appendStepLocked(fmt.Sprintf("[%d/%d] %s", n, resetStepTotal, msg))
}

// appendStep records a sub-step without advancing progress.
func (rm *ResetManager) appendStep(msg string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.appendStepLocked(msg)
}

func (rm *ResetManager) appendStepLocked(msg string) {
	if len(rm.status.Steps) >= maxResetSteps {
		return
	}
	rm.status.Steps = append(rm.status.Steps, msg)
}
