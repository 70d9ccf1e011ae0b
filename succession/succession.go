// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package succession owns the cycle lifecycle. Every stage change goes
// through the Machine, which validates the edge, runs its guard, applies
// its side effects atomically with the status change, and records the
// transition in the audit log. Illegal or guard-failing transitions fail
// without applying any side effect.
package succession

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/eligibility"
	"github.com/blinklabs-io/baton/evaluation"
	"github.com/blinklabs-io/baton/event"
	"github.com/blinklabs-io/baton/notify"
)

// CycleTransitionEventType is published after every committed stage change
const CycleTransitionEventType event.EventType = "cycle.transition"

// CycleTransitionEvent is the event bus payload for a stage change
type CycleTransitionEvent struct {
	CycleID uint
	From    models.CycleStatus
	To      models.CycleStatus
	ActorID uint64
	Forced  bool
}

// StateTransitionError reports an illegal or guard-failing transition,
// naming the attempted edge and the unmet guard
type StateTransitionError struct {
	CycleID uint
	From    models.CycleStatus
	To      models.CycleStatus
	Guard   string
	Reason  string
}

func (e *StateTransitionError) Error() string {
	if e.Guard == "" {
		return fmt.Sprintf(
			"illegal transition %s -> %s for cycle %d",
			e.From,
			e.To,
			e.CycleID,
		)
	}
	return fmt.Sprintf(
		"transition %s -> %s for cycle %d blocked by guard %s: %s",
		e.From,
		e.To,
		e.CycleID,
		e.Guard,
		e.Reason,
	)
}

// MachineConfig holds state machine configuration
type MachineConfig struct {
	Logger      *slog.Logger
	Database    *database.Database
	EventBus    *event.EventBus
	Auditor     *audit.Recorder
	Eligibility *eligibility.Engine
	Evaluation  *evaluation.Engine
	Dispatcher  notify.Dispatcher
	// StageDurations sets each stage's deadline on entry; stages without
	// an entry get no deadline and are never auto-advanced
	StageDurations map[models.CycleStatus]time.Duration
}

// Machine is the cycle state machine
type Machine struct {
	config     MachineConfig
	logger     *slog.Logger
	cycleLocks sync.Map // cycleID -> *sync.Mutex
}

func NewMachine(cfg MachineConfig) *Machine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Machine{
		config: cfg,
		logger: logger.With("component", "succession"),
	}
}

// lockCycle returns the per-cycle mutex, creating it on first use. State
// transitions hold this for their full duration so the automation
// scheduler and a concurrent admin action cannot both succeed on the same
// edge.
func (m *Machine) lockCycle(cycleID uint) *sync.Mutex {
	mu, _ := m.cycleLocks.LoadOrStore(cycleID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Path returns the cycle's stage sequence. The applications window only
// appears for cycles that accept self-applications in a dedicated stage.
func Path(cycle *models.SuccessionCycle) []models.CycleStatus {
	if cycle.AcceptsApplications {
		return models.CycleStatuses
	}
	path := make([]models.CycleStatus, 0, len(models.CycleStatuses)-2)
	for _, status := range models.CycleStatuses {
		switch status {
		case models.CycleStatusApplicationsOpen,
			models.CycleStatusApplicationsClosed:
			continue
		}
		path = append(path, status)
	}
	return path
}

// NextStatus returns the cycle's forward stage, or false when the cycle
// is terminal
func NextStatus(cycle *models.SuccessionCycle) (models.CycleStatus, bool) {
	path := Path(cycle)
	for idx, status := range path {
		if status == cycle.Status {
			if idx+1 >= len(path) {
				return "", false
			}
			return path[idx+1], true
		}
	}
	return "", false
}

// PrevStatus returns the cycle's prior stage, or false when the cycle is
// in draft
func PrevStatus(cycle *models.SuccessionCycle) (models.CycleStatus, bool) {
	path := Path(cycle)
	for idx, status := range path {
		if status == cycle.Status {
			if idx == 0 {
				return "", false
			}
			return path[idx-1], true
		}
	}
	return "", false
}

// Advance moves a cycle one stage forward, running the edge's guard and
// side effects. The status change, roster snapshots, score finalization,
// and the audit entry commit in one transaction; nothing is applied when
// the guard fails.
func (m *Machine) Advance(
	ctx context.Context,
	actorID uint64,
	cycleID uint,
) (*models.SuccessionCycle, error) {
	return m.advance(ctx, actorID, cycleID, false, "")
}

// ForceClose advances a cycle past a failing guard. Admin-only; requires
// a reason, which is recorded as an override in the audit log.
func (m *Machine) ForceClose(
	ctx context.Context,
	adminID uint64,
	cycleID uint,
	reason string,
) (*models.SuccessionCycle, error) {
	if reason == "" {
		return nil, models.NewValidationError(
			"reason",
			"a force-close reason is required",
		)
	}
	return m.advance(ctx, adminID, cycleID, true, reason)
}

func (m *Machine) advance(
	ctx context.Context,
	actorID uint64,
	cycleID uint,
	forced bool,
	reason string,
) (*models.SuccessionCycle, error) {
	mu := m.lockCycle(cycleID)
	mu.Lock()
	defer mu.Unlock()

	cycle, err := m.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return nil, err
	}
	from := cycle.Status
	to, ok := NextStatus(cycle)
	if !ok {
		return nil, &StateTransitionError{
			CycleID: cycleID,
			From:    from,
			To:      to,
			Guard:   "terminal",
			Reason:  "cycle has no forward transition",
		}
	}
	if !forced {
		if err := m.runGuard(cycle, from, to); err != nil {
			return nil, err
		}
	}

	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := m.applyEffects(ctx, txn, cycle, to); err != nil {
		return nil, err
	}
	deadline := m.stageDeadline(to)
	changed, err := m.config.Database.SetCycleStatus(
		cycleID,
		from,
		to,
		deadline,
		txn,
	)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Another writer won the edge; report a conflict, not a partial
		// transition
		return nil, &models.ConflictError{
			Entity: "succession_cycle",
			Key:    fmt.Sprintf("cycle=%d status=%s", cycleID, from),
		}
	}
	action := "cycle.advance"
	auditAfter := map[string]any{"status": to}
	if forced {
		action = "cycle.force_close"
		auditAfter["override_reason"] = reason
	}
	if err := m.config.Auditor.Record(txn, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: "succession_cycle",
		EntityID:   cycleID,
		Before:     map[string]any{"status": from},
		After:      auditAfter,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}

	cycle.Status = to
	cycle.StageDeadline = deadline
	m.logger.Info(
		"cycle stage advanced",
		"cycle_id", cycleID,
		"from", from,
		"to", to,
		"forced", forced,
	)
	m.afterCommit(ctx, cycle, from, to, actorID, forced)
	return cycle, nil
}

// Revert steps a cycle back one stage. Admin-only; requires a reason and
// is always audited. No side effects are unwound; derived state stays in
// place and is recomputed when the cycle moves forward again.
func (m *Machine) Revert(
	ctx context.Context,
	adminID uint64,
	cycleID uint,
	reason string,
) (*models.SuccessionCycle, error) {
	if reason == "" {
		return nil, models.NewValidationError(
			"reason",
			"a revert reason is required",
		)
	}
	mu := m.lockCycle(cycleID)
	mu.Lock()
	defer mu.Unlock()

	cycle, err := m.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return nil, err
	}
	from := cycle.Status
	to, ok := PrevStatus(cycle)
	if !ok {
		return nil, &StateTransitionError{
			CycleID: cycleID,
			From:    from,
			To:      to,
			Guard:   "initial",
			Reason:  "cycle is in its first stage",
		}
	}
	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	deadline := m.stageDeadline(to)
	changed, err := m.config.Database.SetCycleStatus(
		cycleID,
		from,
		to,
		deadline,
		txn,
	)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &models.ConflictError{
			Entity: "succession_cycle",
			Key:    fmt.Sprintf("cycle=%d status=%s", cycleID, from),
		}
	}
	if err := m.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "cycle.revert",
		EntityType: "succession_cycle",
		EntityID:   cycleID,
		Before:     map[string]any{"status": from},
		After: map[string]any{
			"status":        to,
			"revert_reason": reason,
		},
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	cycle.Status = to
	cycle.StageDeadline = deadline
	m.logger.Warn(
		"cycle stage reverted",
		"cycle_id", cycleID,
		"from", from,
		"to", to,
		"admin_id", adminID,
		"reason", reason,
	)
	if m.config.EventBus != nil {
		m.config.EventBus.Publish(
			CycleTransitionEventType,
			event.NewEvent(CycleTransitionEventType, CycleTransitionEvent{
				CycleID: cycleID,
				From:    from,
				To:      to,
				ActorID: adminID,
			}),
		)
	}
	return cycle, nil
}

func (m *Machine) stageDeadline(status models.CycleStatus) time.Time {
	duration, ok := m.config.StageDurations[status]
	if !ok || duration <= 0 {
		return time.Time{}
	}
	return time.Now().Add(duration)
}
