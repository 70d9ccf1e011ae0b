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

// Package interview tracks admin-assigned interview slots and structured
// feedback. There is no automated scheduling; the component's job is to
// refuse feedback for candidates without an elapsed slot.
package interview

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/database/types"
)

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	Auditor  *audit.Recorder
	// Now returns the current time; overridable for tests
	Now func() time.Time
}

// Scheduler manages interview slots and feedback
type Scheduler struct {
	config SchedulerConfig
	logger *slog.Logger
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		config: cfg,
		logger: logger.With("component", "interview"),
	}
}

// Schedule creates an interview slot for a candidate with a panel
func (s *Scheduler) Schedule(
	_ context.Context,
	adminID uint64,
	nominationID uint,
	scheduledAt time.Time,
	panel []uint64,
) (*models.InterviewSlot, error) {
	if len(panel) == 0 {
		return nil, models.NewValidationError(
			"panel",
			"at least one panel member is required",
		)
	}
	nomination, err := s.config.Database.GetNomination(nominationID, nil)
	if err != nil {
		return nil, err
	}
	if !nomination.ActiveCandidacy() {
		return nil, models.NewValidationError(
			"nomination_id",
			"interviews can only be scheduled for active candidacies",
		)
	}
	slot := &models.InterviewSlot{
		CycleID:      nomination.CycleID,
		PositionID:   nomination.PositionID,
		NominationID: nominationID,
		ScheduledAt:  scheduledAt,
		Panel:        types.MemberIDList(panel),
		CreatedAt:    s.config.Now(),
	}
	txn := s.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := s.config.Database.CreateInterviewSlot(slot, txn); err != nil {
		return nil, err
	}
	if err := s.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "interview.schedule",
		EntityType: "interview_slot",
		EntityID:   slot.ID,
		After:      slot,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return slot, nil
}

// SubmitFeedback records a panelist's structured feedback for a
// candidate. Feedback is only accepted for candidates with a scheduled
// slot whose time has elapsed, and only from members on the slot's panel.
// Resubmission overwrites the panelist's own prior feedback.
func (s *Scheduler) SubmitFeedback(
	_ context.Context,
	panelistID uint64,
	nominationID uint,
	feedbackText string,
) (*models.InterviewFeedback, error) {
	if feedbackText == "" {
		return nil, models.NewValidationError(
			"feedback",
			"feedback text is required",
		)
	}
	slot, err := s.config.Database.GetSlotByNomination(nominationID, nil)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidate has no scheduled interview slot",
		)
	}
	now := s.config.Now()
	if !slot.Elapsed(now) {
		return nil, models.NewValidationError(
			"nomination_id",
			"feedback is not accepted before the interview slot time",
		)
	}
	if !slot.Panel.Contains(panelistID) {
		return nil, &models.AuthorizationError{
			ActorID: panelistID,
			Action:  "interview.feedback",
			Reason:  "member is not on the interview panel",
		}
	}
	feedback := &models.InterviewFeedback{
		NominationID: nominationID,
		PanelistID:   panelistID,
		Feedback:     feedbackText,
		SubmittedAt:  now,
	}
	txn := s.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := s.config.Database.UpsertInterviewFeedback(
		feedback,
		txn,
	); err != nil {
		return nil, err
	}
	if err := s.config.Auditor.Record(txn, audit.Entry{
		ActorID:    panelistID,
		Action:     "interview.feedback",
		EntityType: "interview_feedback",
		EntityID:   feedback.ID,
		After:      feedback,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return feedback, nil
}
