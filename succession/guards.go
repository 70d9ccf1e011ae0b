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

package succession

import (
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/event"
	"github.com/blinklabs-io/baton/notify"
)

const (
	GuardEligibleCandidates = "eligible_candidates"
	GuardScoringComplete    = "scoring_complete"
)

// runGuard checks the entry condition for the target stage. Guards read
// committed state only; they run before the transition transaction opens.
func (m *Machine) runGuard(
	cycle *models.SuccessionCycle,
	from models.CycleStatus,
	to models.CycleStatus,
) error {
	switch to {
	case models.CycleStatusEvaluations:
		return m.guardEligibleCandidates(cycle, from, to)
	case models.CycleStatusEvaluationsClosed:
		return m.guardScoringComplete(cycle, from, to)
	}
	return nil
}

// guardEligibleCandidates requires every open position to carry at least
// one active, eligible candidacy before evaluations begin
func (m *Machine) guardEligibleCandidates(
	cycle *models.SuccessionCycle,
	from models.CycleStatus,
	to models.CycleStatus,
) error {
	positions, err := m.config.Database.GetPositionsByCycle(
		cycle.ID,
		true,
		nil,
	)
	if err != nil {
		return err
	}
	for _, position := range positions {
		count, err := m.config.Database.CountEligibleCandidates(
			position.ID,
			nil,
		)
		if err != nil {
			return err
		}
		if count == 0 {
			return &StateTransitionError{
				CycleID: cycle.ID,
				From:    from,
				To:      to,
				Guard:   GuardEligibleCandidates,
				Reason: fmt.Sprintf(
					"position %d (%s) has no eligible candidates",
					position.ID,
					position.Title,
				),
			}
		}
	}
	return nil
}

// guardScoringComplete requires every assigned, non-recused evaluator to
// have scored every criterion for every assigned candidate before the
// evaluations stage closes
func (m *Machine) guardScoringComplete(
	cycle *models.SuccessionCycle,
	from models.CycleStatus,
	to models.CycleStatus,
) error {
	positions, err := m.config.Database.GetPositionsByCycle(
		cycle.ID,
		true,
		nil,
	)
	if err != nil {
		return err
	}
	for _, position := range positions {
		complete, err := m.config.Evaluation.Complete(position.ID)
		if err != nil {
			return err
		}
		if !complete {
			return &StateTransitionError{
				CycleID: cycle.ID,
				From:    from,
				To:      to,
				Guard:   GuardScoringComplete,
				Reason: fmt.Sprintf(
					"position %d (%s) has outstanding evaluation scores",
					position.ID,
					position.Title,
				),
			}
		}
	}
	return nil
}

// applyEffects runs the side effects tied to entering a stage inside the
// transition transaction, so the status change and its derived records
// commit or roll back as one.
func (m *Machine) applyEffects(
	_ context.Context,
	txn *database.Txn,
	cycle *models.SuccessionCycle,
	to models.CycleStatus,
) error {
	switch to {
	case models.CycleStatusEvaluations:
		return m.snapshotRoster(txn, cycle)
	case models.CycleStatusEvaluationsClosed:
		return m.finalizeScores(txn, cycle)
	}
	return nil
}

// snapshotRoster freezes the candidate roster for each open position as
// the cycle enters evaluations. Later withdrawals or disqualifications do
// not remove a snapshot; downstream stages read the frozen roster.
func (m *Machine) snapshotRoster(
	txn *database.Txn,
	cycle *models.SuccessionCycle,
) error {
	positions, err := m.config.Database.GetPositionsByCycle(
		cycle.ID,
		true,
		txn,
	)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, position := range positions {
		nominations, err := m.config.Database.GetNominationsByPosition(
			position.ID,
			true,
			txn,
		)
		if err != nil {
			return err
		}
		for _, nomination := range nominations {
			existing, err := m.config.Database.GetSnapshotByPair(
				position.ID,
				nomination.NomineeID,
				txn,
			)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			snapshot := models.CandidateSnapshot{
				CycleID:      cycle.ID,
				PositionID:   position.ID,
				NomineeID:    nomination.NomineeID,
				NominationID: nomination.ID,
				SnapshotAt:   now,
			}
			if err := m.config.Database.CreateCandidateSnapshot(
				&snapshot,
				txn,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// finalizeScores writes each snapshotted candidate's weighted total onto
// the snapshot as the evaluations stage closes
func (m *Machine) finalizeScores(
	txn *database.Txn,
	cycle *models.SuccessionCycle,
) error {
	positions, err := m.config.Database.GetPositionsByCycle(
		cycle.ID,
		true,
		txn,
	)
	if err != nil {
		return err
	}
	for _, position := range positions {
		if err := m.config.Evaluation.FinalizeScores(
			position.ID,
			txn,
		); err != nil {
			return err
		}
	}
	return nil
}

// afterCommit runs the effects that are safe to repeat or lose: the
// eligibility sweep on opening nominations, notifications, and the
// transition event. None of these can fail the committed transition.
func (m *Machine) afterCommit(
	ctx context.Context,
	cycle *models.SuccessionCycle,
	from models.CycleStatus,
	to models.CycleStatus,
	actorID uint64,
	forced bool,
) {
	switch to {
	case models.CycleStatusNominationsOpen:
		if m.config.Eligibility != nil {
			if err := m.config.Eligibility.RecomputeCycle(
				ctx,
				actorID,
				cycle.ID,
			); err != nil {
				m.logger.Warn(
					"eligibility sweep failed",
					"cycle_id", cycle.ID,
					"error", err,
				)
			}
		}
	case models.CycleStatusInterviews:
		m.notifyAdvancingCandidates(ctx, cycle)
	case models.CycleStatusSelection:
		m.notifyCommittee(ctx, cycle)
	}
	if m.config.EventBus != nil {
		m.config.EventBus.Publish(
			CycleTransitionEventType,
			event.NewEvent(CycleTransitionEventType, CycleTransitionEvent{
				CycleID: cycle.ID,
				From:    from,
				To:      to,
				ActorID: actorID,
				Forced:  forced,
			}),
		)
	}
}

func (m *Machine) notifyAdvancingCandidates(
	ctx context.Context,
	cycle *models.SuccessionCycle,
) {
	if m.config.Dispatcher == nil {
		return
	}
	positions, err := m.config.Database.GetPositionsByCycle(
		cycle.ID,
		true,
		nil,
	)
	if err != nil {
		m.logger.Warn(
			"failed to load positions for candidate notifications",
			"cycle_id", cycle.ID,
			"error", err,
		)
		return
	}
	for _, position := range positions {
		snapshots, err := m.config.Database.GetCandidateSnapshots(
			position.ID,
			nil,
		)
		if err != nil {
			m.logger.Warn(
				"failed to load candidate roster for notifications",
				"position_id", position.ID,
				"error", err,
			)
			continue
		}
		for _, snapshot := range snapshots {
			req := notify.NewRequest(
				snapshot.NomineeID,
				notify.TemplateNomineeAdvancing,
				map[string]any{
					"cycle_id":    cycle.ID,
					"position_id": position.ID,
					"stage":       string(models.CycleStatusInterviews),
				},
			)
			if err := m.config.Dispatcher.Dispatch(ctx, req); err != nil {
				m.logger.Warn(
					"failed to dispatch candidate notification",
					"recipient_id", snapshot.NomineeID,
					"error", err,
				)
			}
		}
	}
}

func (m *Machine) notifyCommittee(
	ctx context.Context,
	cycle *models.SuccessionCycle,
) {
	if m.config.Dispatcher == nil {
		return
	}
	for _, memberID := range cycle.CommitteeMembers {
		req := notify.NewRequest(
			memberID,
			notify.TemplateCommitteeVote,
			map[string]any{
				"cycle_id": cycle.ID,
				"stage":    string(models.CycleStatusSelection),
			},
		)
		if err := m.config.Dispatcher.Dispatch(ctx, req); err != nil {
			m.logger.Warn(
				"failed to dispatch committee notification",
				"recipient_id", memberID,
				"error", err,
			)
		}
	}
}
