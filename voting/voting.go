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

// Package voting collects selection-committee ballots, tallies them
// against a configured quorum, and records the final selection. A tie at
// quorum never auto-produces a selection; an explicit admin action is
// required, which keeps politically sensitive outcomes in human hands.
package voting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/notify"
)

// DefaultQuorumFraction is the default affirmative-vote fraction of the
// seated committee required to clear a candidate (simple majority)
const DefaultQuorumFraction = 0.5

// EngineConfig holds engine configuration
type EngineConfig struct {
	Logger     *slog.Logger
	Database   *database.Database
	Auditor    *audit.Recorder
	Dispatcher notify.Dispatcher
	// QuorumFraction is passed explicitly so the same engine logic is
	// reusable across chapters with different policies
	QuorumFraction float64
}

// Engine manages ballots, tallies, and selections
type Engine struct {
	config EngineConfig
	logger *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.QuorumFraction <= 0 || cfg.QuorumFraction > 1 {
		cfg.QuorumFraction = DefaultQuorumFraction
	}
	return &Engine{
		config: cfg,
		logger: logger.With("component", "voting"),
	}
}

// QuorumThreshold returns the minimum yes count for a seated committee of
// the given size: ceil(fraction * seated)
func (e *Engine) QuorumThreshold(seated int) int {
	return int(math.Ceil(e.config.QuorumFraction * float64(seated)))
}

// BallotRequest is one ballot submission. VoterID must match ActorID; a
// ballot under another voter's identity is rejected, never merged.
type BallotRequest struct {
	ActorID      uint64
	VoterID      uint64
	CycleID      uint
	PositionID   uint
	NominationID uint
	Choice       models.VoteChoice
	Comments     string
}

// CastBallot records one committee ballot. Each committee member casts at
// most one ballot per (position, nominee); resubmission overwrites only
// their own prior ballot.
func (e *Engine) CastBallot(
	_ context.Context,
	req BallotRequest,
) (*models.Vote, error) {
	if req.VoterID != req.ActorID {
		return nil, &models.ConflictError{
			Entity: "vote",
			Key: fmt.Sprintf(
				"voter=%d actor=%d",
				req.VoterID,
				req.ActorID,
			),
		}
	}
	if !req.Choice.Valid() {
		return nil, models.NewValidationError(
			"vote",
			fmt.Sprintf("unknown ballot choice %q", req.Choice),
		)
	}
	cycle, err := e.config.Database.GetCycle(req.CycleID, nil)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleStatusSelection {
		return nil, models.NewValidationError(
			"cycle_id",
			fmt.Sprintf(
				"ballots are only accepted while the cycle is in %s, currently %s",
				models.CycleStatusSelection,
				cycle.Status,
			),
		)
	}
	if !cycle.IsCommitteeMember(req.ActorID) {
		return nil, &models.AuthorizationError{
			ActorID: req.ActorID,
			Action:  "vote.cast",
			Reason:  "member is not on the selection committee",
		}
	}
	nomination, err := e.config.Database.GetNomination(req.NominationID, nil)
	if err != nil {
		return nil, err
	}
	if nomination.PositionID != req.PositionID {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidate is not for the given position",
		)
	}
	// The ballot is the frozen roster snapshot; a candidacy that never
	// made it onto the roster cannot collect votes
	snapshot, err := e.config.Database.GetSnapshotByPair(
		req.PositionID,
		nomination.NomineeID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidate is not on the ballot for the position",
		)
	}
	vote := &models.Vote{
		CycleID:      req.CycleID,
		PositionID:   req.PositionID,
		NominationID: req.NominationID,
		VoterID:      req.VoterID,
		Choice:       req.Choice,
		Comments:     req.Comments,
		CastAt:       time.Now(),
	}
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := e.config.Database.UpsertVote(vote, txn); err != nil {
		return nil, err
	}
	if err := e.config.Auditor.Record(txn, audit.Entry{
		ActorID:    req.ActorID,
		Action:     "vote.cast",
		EntityType: "vote",
		EntityID:   vote.ID,
		After: map[string]any{
			"position_id":   vote.PositionID,
			"nomination_id": vote.NominationID,
			"choice":        vote.Choice,
		},
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return vote, nil
}

// CandidateTally is the per-candidate ballot count for a position
type CandidateTally struct {
	NominationID    uint
	NomineeID       uint64
	Yes             int
	No              int
	Abstain         int
	EvaluationScore float64
	ClearsQuorum    bool
}

// Tally counts ballots per candidate for a position. A candidate clears
// quorum iff yes >= ceil(fraction * seated) and yes > no.
func (e *Engine) Tally(
	cycleID uint,
	positionID uint,
) ([]CandidateTally, error) {
	cycle, err := e.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return nil, err
	}
	threshold := e.QuorumThreshold(cycle.SeatedCommitteeSize())
	snapshots, err := e.config.Database.GetCandidateSnapshots(
		positionID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	tallies := make([]CandidateTally, 0, len(snapshots))
	for _, snapshot := range snapshots {
		votes, err := e.config.Database.GetVotesByNomination(
			snapshot.NominationID,
			nil,
		)
		if err != nil {
			return nil, err
		}
		tally := CandidateTally{
			NominationID:    snapshot.NominationID,
			NomineeID:       snapshot.NomineeID,
			EvaluationScore: snapshot.TotalScore,
		}
		for _, vote := range votes {
			switch vote.Choice {
			case models.VoteChoiceYes:
				tally.Yes++
			case models.VoteChoiceNo:
				tally.No++
			case models.VoteChoiceAbstain:
				tally.Abstain++
			}
		}
		tally.ClearsQuorum = tally.Yes >= threshold && tally.Yes > tally.No
		tallies = append(tallies, tally)
	}
	return tallies, nil
}

// Qualifiers returns the candidates clearing quorum, ranked by yes count
// and then evaluation score. When more than one candidate qualifies the
// selection is not auto-finalized; an explicit admin action must record
// the final decision.
func (e *Engine) Qualifiers(
	cycleID uint,
	positionID uint,
) ([]CandidateTally, error) {
	tallies, err := e.Tally(cycleID, positionID)
	if err != nil {
		return nil, err
	}
	var qualifiers []CandidateTally
	for _, tally := range tallies {
		if tally.ClearsQuorum {
			qualifiers = append(qualifiers, tally)
		}
	}
	sort.SliceStable(qualifiers, func(a, b int) bool {
		if qualifiers[a].Yes != qualifiers[b].Yes {
			return qualifiers[a].Yes > qualifiers[b].Yes
		}
		if qualifiers[a].EvaluationScore != qualifiers[b].EvaluationScore {
			return qualifiers[a].EvaluationScore > qualifiers[b].EvaluationScore
		}
		return qualifiers[a].NominationID < qualifiers[b].NominationID
	})
	return qualifiers, nil
}

// RecordSelection records the final, admin-confirmed decision for a
// position. The chosen candidate must have cleared quorum. Any prior
// active selection for the position is deactivated, preserving at most
// one active selection.
func (e *Engine) RecordSelection(
	ctx context.Context,
	adminID uint64,
	cycleID uint,
	positionID uint,
	nominationID uint,
	rationale string,
) (*models.Selection, error) {
	if rationale == "" {
		return nil, models.NewValidationError(
			"rationale",
			"a decision rationale is required",
		)
	}
	cycle, err := e.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return nil, err
	}
	switch cycle.Status {
	case models.CycleStatusSelection, models.CycleStatusApprovalPending:
	default:
		return nil, models.NewValidationError(
			"cycle_id",
			fmt.Sprintf(
				"selections cannot be recorded while the cycle is in %s",
				cycle.Status,
			),
		)
	}
	qualifiers, err := e.Qualifiers(cycleID, positionID)
	if err != nil {
		return nil, err
	}
	var chosen *CandidateTally
	for idx := range qualifiers {
		if qualifiers[idx].NominationID == nominationID {
			chosen = &qualifiers[idx]
			break
		}
	}
	if chosen == nil {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidate did not clear quorum",
		)
	}
	selection := &models.Selection{
		CycleID:      cycleID,
		PositionID:   positionID,
		NominationID: nominationID,
		NomineeID:    chosen.NomineeID,
		Rationale:    rationale,
		DecidedBy:    adminID,
		DecidedAt:    time.Now(),
	}
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := e.config.Database.CreateSelection(selection, txn); err != nil {
		return nil, err
	}
	if err := e.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "selection.record",
		EntityType: "selection",
		EntityID:   selection.ID,
		After:      selection,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	if e.config.Dispatcher != nil {
		//nolint:errcheck
		e.config.Dispatcher.Dispatch(ctx, notify.NewRequest(
			chosen.NomineeID,
			notify.TemplateSelectionRecorded,
			map[string]any{
				"position_id":  positionID,
				"selection_id": selection.ID,
			},
		))
	}
	e.logger.Info(
		"selection recorded",
		"position_id", positionID,
		"nomination_id", nominationID,
		"admin_id", adminID,
	)
	return selection, nil
}
