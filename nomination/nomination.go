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

// Package nomination accepts and validates candidacies. Three provenances
// exist: third-party nominations, self-nominations (applications), and
// secondments pending the nominee's consent. Duplicate submissions for the
// same (position, nominee) pair merge evidence into the existing record so
// evaluators never see a fragmented candidacy.
package nomination

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/notify"
)

const DefaultMinJustificationLength = 50

// IntakeConfig holds intake configuration
type IntakeConfig struct {
	Logger                 *slog.Logger
	Database               *database.Database
	Auditor                *audit.Recorder
	Dispatcher             notify.Dispatcher
	MinJustificationLength int
}

// Intake validates and records candidacies
type Intake struct {
	config IntakeConfig
	logger *slog.Logger
}

func NewIntake(cfg IntakeConfig) *Intake {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.MinJustificationLength <= 0 {
		cfg.MinJustificationLength = DefaultMinJustificationLength
	}
	return &Intake{
		config: cfg,
		logger: logger.With("component", "nomination"),
	}
}

// SubmitRequest is the input for all three candidacy paths
type SubmitRequest struct {
	CycleID       uint
	PositionID    uint
	NominatorID   uint64
	NomineeID     uint64
	Justification string
	Evidence      []models.EvidenceItem
}

// SubmitResult reports the recorded candidacy. EligibilityPending flags
// that the nominee's eligibility has not been computed yet; the candidacy
// is still recorded.
type SubmitResult struct {
	Nomination         *models.Nomination
	EligibilityPending bool
	Merged             bool
}

// SubmitNomination records a third-party nomination. Self-nominations must
// use the application path.
func (i *Intake) SubmitNomination(
	ctx context.Context,
	req SubmitRequest,
) (*SubmitResult, error) {
	if req.NominatorID == req.NomineeID {
		return nil, models.NewValidationError(
			"nominator_id",
			"self-nominations must be submitted as an application",
		)
	}
	return i.submit(ctx, req, models.ProvenanceNomination)
}

// SubmitApplication records a self-nomination
func (i *Intake) SubmitApplication(
	ctx context.Context,
	req SubmitRequest,
) (*SubmitResult, error) {
	if req.NominatorID != req.NomineeID {
		return nil, models.NewValidationError(
			"nominator_id",
			"an application must be submitted by the nominee",
		)
	}
	return i.submit(ctx, req, models.ProvenanceApplication)
}

// SubmitSecondment records a third-party proposal that becomes a full
// candidacy only once the nominee consents
func (i *Intake) SubmitSecondment(
	ctx context.Context,
	req SubmitRequest,
) (*SubmitResult, error) {
	if req.NominatorID == req.NomineeID {
		return nil, models.NewValidationError(
			"nominator_id",
			"a secondment must be proposed by another member",
		)
	}
	result, err := i.submit(ctx, req, models.ProvenanceSecondment)
	if err != nil {
		return nil, err
	}
	if !result.Merged && i.config.Dispatcher != nil {
		//nolint:errcheck
		i.config.Dispatcher.Dispatch(ctx, notify.NewRequest(
			req.NomineeID,
			notify.TemplateSecondmentConsent,
			map[string]any{
				"nomination_id": result.Nomination.ID,
				"position_id":   req.PositionID,
			},
		))
	}
	return result, nil
}

// stageAccepts reports whether a cycle stage accepts new candidacies of
// the given provenance. Applications use the dedicated applications window
// when the cycle has one, otherwise the nominations window.
func stageAccepts(
	cycle *models.SuccessionCycle,
	provenance models.NominationProvenance,
) bool {
	switch provenance {
	case models.ProvenanceApplication:
		if cycle.AcceptsApplications {
			return cycle.Status == models.CycleStatusApplicationsOpen
		}
		return cycle.Status == models.CycleStatusNominationsOpen
	default:
		return cycle.Status == models.CycleStatusNominationsOpen
	}
}

func (i *Intake) submit(
	ctx context.Context,
	req SubmitRequest,
	provenance models.NominationProvenance,
) (*SubmitResult, error) {
	cycle, err := i.config.Database.GetCycle(req.CycleID, nil)
	if err != nil {
		return nil, err
	}
	if !stageAccepts(cycle, provenance) {
		return nil, models.NewValidationError(
			"cycle_id",
			fmt.Sprintf(
				"cycle stage %s does not accept new candidacies",
				cycle.Status,
			),
		)
	}
	position, err := i.config.Database.GetPosition(req.PositionID, nil)
	if err != nil {
		return nil, err
	}
	if position.CycleID != req.CycleID {
		return nil, models.NewValidationError(
			"position_id",
			"position does not belong to the cycle",
		)
	}
	if !position.Open {
		return nil, models.NewValidationError(
			"position_id",
			"position is not open for candidacies",
		)
	}
	if len(req.Justification) < i.config.MinJustificationLength {
		return nil, models.NewValidationError(
			"justification",
			fmt.Sprintf(
				"justification must be at least %d characters",
				i.config.MinJustificationLength,
			),
		)
	}
	record, err := i.config.Database.GetEligibilityRecord(
		req.PositionID,
		req.NomineeID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	eligibilityPending := record == nil ||
		record.Status == models.EligibilityStatusPending
	if record != nil &&
		record.Status == models.EligibilityStatusIneligible {
		return nil, models.NewValidationError(
			"nominee_id",
			"nominee is not eligible for the position",
		)
	}

	existing, err := i.config.Database.GetNominationByPair(
		req.PositionID,
		req.NomineeID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return i.merge(ctx, existing, req, eligibilityPending)
	}

	nomination := &models.Nomination{
		CycleID:       req.CycleID,
		PositionID:    req.PositionID,
		NominatorID:   req.NominatorID,
		NomineeID:     req.NomineeID,
		Justification: req.Justification,
		Evidence:      models.EvidenceList(req.Evidence),
		Status:        models.NominationStatusSubmitted,
		Provenance:    provenance,
		SubmittedAt:   time.Now(),
	}
	if provenance == models.ProvenanceSecondment {
		nomination.ConsentStatus = models.ConsentStatusPending
	}
	txn := i.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := i.config.Database.CreateNomination(nomination, txn); err != nil {
		return nil, err
	}
	if err := i.config.Auditor.Record(txn, audit.Entry{
		ActorID:    req.NominatorID,
		Action:     "nomination.submit",
		EntityType: "nomination",
		EntityID:   nomination.ID,
		After:      nomination,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	i.logger.Info(
		"candidacy recorded",
		"nomination_id", nomination.ID,
		"position_id", req.PositionID,
		"nominee_id", req.NomineeID,
		"provenance", provenance,
	)
	return &SubmitResult{
		Nomination:         nomination,
		EligibilityPending: eligibilityPending,
	}, nil
}

// merge folds a duplicate submission into the existing candidacy for the
// (position, nominee) pair. Evidence is appended in order with exact
// duplicates dropped. Merging into a withdrawn record resubmits it.
func (i *Intake) merge(
	_ context.Context,
	existing *models.Nomination,
	req SubmitRequest,
	eligibilityPending bool,
) (*SubmitResult, error) {
	if existing.Status == models.NominationStatusDisqualified {
		return nil, models.NewValidationError(
			"nominee_id",
			"candidacy was disqualified and cannot accept new submissions",
		)
	}
	before := *existing
	seen := make(map[models.EvidenceItem]struct{})
	for _, item := range existing.Evidence {
		seen[item] = struct{}{}
	}
	for _, item := range req.Evidence {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		existing.Evidence = append(existing.Evidence, item)
	}
	if existing.Status == models.NominationStatusWithdrawn {
		existing.Status = models.NominationStatusSubmitted
	}
	txn := i.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := i.config.Database.UpdateNomination(existing, txn); err != nil {
		return nil, err
	}
	if err := i.config.Auditor.Record(txn, audit.Entry{
		ActorID:    req.NominatorID,
		Action:     "nomination.merge",
		EntityType: "nomination",
		EntityID:   existing.ID,
		Before:     &before,
		After:      existing,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	i.logger.Info(
		"duplicate candidacy merged",
		"nomination_id", existing.ID,
		"position_id", req.PositionID,
		"nominee_id", req.NomineeID,
	)
	return &SubmitResult{
		Nomination:         existing,
		EligibilityPending: eligibilityPending,
		Merged:             true,
	}, nil
}

// RespondToSecondment records the nominee's consent decision. Only the
// nominee may respond, and only while the decision is pending.
func (i *Intake) RespondToSecondment(
	_ context.Context,
	actorID uint64,
	nominationID uint,
	accept bool,
) (*models.Nomination, error) {
	nomination, err := i.config.Database.GetNomination(nominationID, nil)
	if err != nil {
		return nil, err
	}
	if nomination.Provenance != models.ProvenanceSecondment {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidacy is not a secondment",
		)
	}
	if actorID != nomination.NomineeID {
		return nil, &models.AuthorizationError{
			ActorID: actorID,
			Action:  "secondment.respond",
			Reason:  "only the nominee may respond to a secondment",
		}
	}
	if nomination.ConsentStatus != models.ConsentStatusPending {
		return nil, models.NewValidationError(
			"nomination_id",
			fmt.Sprintf(
				"consent already %s",
				nomination.ConsentStatus,
			),
		)
	}
	before := *nomination
	if accept {
		nomination.ConsentStatus = models.ConsentStatusAccepted
	} else {
		nomination.ConsentStatus = models.ConsentStatusDeclined
	}
	txn := i.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := i.config.Database.UpdateNomination(nomination, txn); err != nil {
		return nil, err
	}
	if err := i.config.Auditor.Record(txn, audit.Entry{
		ActorID:    actorID,
		Action:     "secondment.respond",
		EntityType: "nomination",
		EntityID:   nomination.ID,
		Before:     &before,
		After:      nomination,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return nomination, nil
}

// Withdraw changes a candidacy's status to withdrawn. The record is kept
// so the audit history stays intact. Only the nominee or the original
// nominator may withdraw.
func (i *Intake) Withdraw(
	ctx context.Context,
	actorID uint64,
	nominationID uint,
) (*models.Nomination, error) {
	nomination, err := i.config.Database.GetNomination(nominationID, nil)
	if err != nil {
		return nil, err
	}
	if actorID != nomination.NomineeID && actorID != nomination.NominatorID {
		return nil, &models.AuthorizationError{
			ActorID: actorID,
			Action:  "nomination.withdraw",
			Reason:  "only the nominee or nominator may withdraw a candidacy",
		}
	}
	if nomination.Status != models.NominationStatusSubmitted {
		return nil, models.NewValidationError(
			"nomination_id",
			fmt.Sprintf("candidacy is already %s", nomination.Status),
		)
	}
	before := *nomination
	nomination.Status = models.NominationStatusWithdrawn
	txn := i.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := i.config.Database.UpdateNomination(nomination, txn); err != nil {
		return nil, err
	}
	if err := i.config.Auditor.Record(txn, audit.Entry{
		ActorID:    actorID,
		Action:     "nomination.withdraw",
		EntityType: "nomination",
		EntityID:   nomination.ID,
		Before:     &before,
		After:      nomination,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	if i.config.Dispatcher != nil {
		//nolint:errcheck
		i.config.Dispatcher.Dispatch(ctx, notify.NewRequest(
			nomination.NominatorID,
			notify.TemplateCandidacyWithdrawn,
			map[string]any{"nomination_id": nomination.ID},
		))
	}
	return nomination, nil
}

// Disqualify is the explicit admin action recommended by the eligibility
// engine when a nominee loses eligibility after nomination. It is never
// applied automatically.
func (i *Intake) Disqualify(
	_ context.Context,
	adminID uint64,
	nominationID uint,
	reason string,
) (*models.Nomination, error) {
	if reason == "" {
		return nil, models.NewValidationError(
			"reason",
			"a disqualification reason is required",
		)
	}
	nomination, err := i.config.Database.GetNomination(nominationID, nil)
	if err != nil {
		return nil, err
	}
	if nomination.Status == models.NominationStatusDisqualified {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidacy is already disqualified",
		)
	}
	before := *nomination
	nomination.Status = models.NominationStatusDisqualified
	txn := i.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := i.config.Database.UpdateNomination(nomination, txn); err != nil {
		return nil, err
	}
	if err := i.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "nomination.disqualify",
		EntityType: "nomination",
		EntityID:   nomination.ID,
		Before:     &before,
		After: map[string]any{
			"status": nomination.Status,
			"reason": reason,
		},
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	i.logger.Info(
		"candidacy disqualified",
		"nomination_id", nomination.ID,
		"admin_id", adminID,
		"reason", reason,
	)
	return nomination, nil
}
