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
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/database/types"
)

// CycleSpec describes a new succession cycle
type CycleSpec struct {
	Year                int
	Name                string
	Description         string
	StartDate           time.Time
	EndDate             time.Time
	AcceptsApplications bool
}

// CreateCycle records a new cycle in draft. The cycle stays invisible to
// non-admins until it is published.
func (m *Machine) CreateCycle(
	_ context.Context,
	adminID uint64,
	spec CycleSpec,
) (*models.SuccessionCycle, error) {
	verr := &models.ValidationError{}
	if spec.Name == "" {
		verr.Add("name", "a cycle name is required")
	}
	if spec.Year <= 0 {
		verr.Add("year", "a cycle year is required")
	}
	if !spec.EndDate.IsZero() && !spec.StartDate.IsZero() &&
		spec.EndDate.Before(spec.StartDate) {
		verr.Add("end_date", "end date precedes start date")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	cycle := models.SuccessionCycle{
		Year:                spec.Year,
		Name:                spec.Name,
		Description:         spec.Description,
		Status:              models.CycleStatusDraft,
		StartDate:           spec.StartDate,
		EndDate:             spec.EndDate,
		AcceptsApplications: spec.AcceptsApplications,
	}
	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := m.config.Database.CreateCycle(&cycle, txn); err != nil {
		return nil, err
	}
	if err := m.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "cycle.create",
		EntityType: "succession_cycle",
		EntityID:   cycle.ID,
		After:      &cycle,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	m.logger.Info(
		"cycle created",
		"cycle_id", cycle.ID,
		"year", cycle.Year,
		"name", cycle.Name,
	)
	return &cycle, nil
}

// PublishCycle makes a cycle visible to members. Publishing is one-way.
func (m *Machine) PublishCycle(
	_ context.Context,
	adminID uint64,
	cycleID uint,
) error {
	mu := m.lockCycle(cycleID)
	mu.Lock()
	defer mu.Unlock()

	cycle, err := m.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return err
	}
	if cycle.IsPublished {
		return nil
	}
	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	cycle.IsPublished = true
	if err := m.config.Database.UpdateCycle(cycle, txn); err != nil {
		return err
	}
	if err := m.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "cycle.publish",
		EntityType: "succession_cycle",
		EntityID:   cycleID,
		Before:     map[string]any{"is_published": false},
		After:      map[string]any{"is_published": true},
	}); err != nil {
		return err
	}
	return txn.Commit()
}

// SetCommittee replaces the cycle's selection committee. The committee is
// frozen once the selection stage begins; membership edits after that
// would change quorum mid-vote.
func (m *Machine) SetCommittee(
	_ context.Context,
	adminID uint64,
	cycleID uint,
	memberIDs []uint64,
) error {
	mu := m.lockCycle(cycleID)
	mu.Lock()
	defer mu.Unlock()

	cycle, err := m.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return err
	}
	switch cycle.Status {
	case models.CycleStatusSelection,
		models.CycleStatusApprovalPending,
		models.CycleStatusCompleted,
		models.CycleStatusArchived:
		return models.NewValidationError(
			"committee_members",
			"committee membership is frozen once selection begins",
		)
	}
	seen := make(map[uint64]struct{}, len(memberIDs))
	committee := make(types.MemberIDList, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		if _, ok := seen[memberID]; ok {
			continue
		}
		seen[memberID] = struct{}{}
		committee = append(committee, memberID)
	}
	before := cycle.CommitteeMembers
	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	cycle.CommitteeMembers = committee
	if err := m.config.Database.UpdateCycle(cycle, txn); err != nil {
		return err
	}
	if err := m.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "cycle.set_committee",
		EntityType: "succession_cycle",
		EntityID:   cycleID,
		Before:     map[string]any{"committee_members": before},
		After:      map[string]any{"committee_members": committee},
	}); err != nil {
		return err
	}
	return txn.Commit()
}

// PositionSpec describes a position and its eligibility criteria
type PositionSpec struct {
	Title                string
	HierarchyLevel       int
	Open                 bool
	MinTenureYears       float64
	MinEventsOrganized   int
	MinTrainingsAttended int
	MinPeerNominations   int
	RequiredPriorRole    string
}

// AddPosition attaches a position to a draft cycle. Positions added after
// the cycle leaves draft require an override reason and are recorded as
// admin overrides.
func (m *Machine) AddPosition(
	_ context.Context,
	adminID uint64,
	cycleID uint,
	spec PositionSpec,
	overrideReason string,
) (*models.Position, error) {
	if spec.Title == "" {
		return nil, models.NewValidationError(
			"title",
			"a position title is required",
		)
	}
	mu := m.lockCycle(cycleID)
	mu.Lock()
	defer mu.Unlock()

	cycle, err := m.config.Database.GetCycle(cycleID, nil)
	if err != nil {
		return nil, err
	}
	override := cycle.Status != models.CycleStatusDraft
	if override && overrideReason == "" {
		return nil, models.NewValidationError(
			"override_reason",
			"adding a position to a non-draft cycle requires a reason",
		)
	}
	position := models.Position{
		CycleID:              cycleID,
		Title:                spec.Title,
		HierarchyLevel:       spec.HierarchyLevel,
		Open:                 spec.Open,
		MinTenureYears:       spec.MinTenureYears,
		MinEventsOrganized:   spec.MinEventsOrganized,
		MinTrainingsAttended: spec.MinTrainingsAttended,
		MinPeerNominations:   spec.MinPeerNominations,
		RequiredPriorRole:    spec.RequiredPriorRole,
	}
	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := m.config.Database.CreatePosition(&position, txn); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		ActorID:    adminID,
		Action:     "position.create",
		EntityType: "position",
		EntityID:   position.ID,
		After:      &position,
	}
	if override {
		entry.Action = "position.admin_override"
		entry.After = map[string]any{
			"position":        &position,
			"override_reason": overrideReason,
			"cycle_status":    cycle.Status,
		}
	}
	if err := m.config.Auditor.Record(txn, entry); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return &position, nil
}

// UpdatePosition edits a position's criteria. Edits on a draft cycle pass
// silently; edits after nominations exist shift eligibility under live
// candidacies, so they require an override reason and an audit trail.
func (m *Machine) UpdatePosition(
	ctx context.Context,
	adminID uint64,
	positionID uint,
	spec PositionSpec,
	overrideReason string,
) (*models.Position, error) {
	position, err := m.config.Database.GetPosition(positionID, nil)
	if err != nil {
		return nil, err
	}
	mu := m.lockCycle(position.CycleID)
	mu.Lock()
	defer mu.Unlock()

	cycle, err := m.config.Database.GetCycle(position.CycleID, nil)
	if err != nil {
		return nil, err
	}
	override := cycle.Status != models.CycleStatusDraft
	if override && overrideReason == "" {
		return nil, models.NewValidationError(
			"override_reason",
			"editing a position on a non-draft cycle requires a reason",
		)
	}
	before := *position
	position.Title = spec.Title
	position.HierarchyLevel = spec.HierarchyLevel
	position.Open = spec.Open
	position.MinTenureYears = spec.MinTenureYears
	position.MinEventsOrganized = spec.MinEventsOrganized
	position.MinTrainingsAttended = spec.MinTrainingsAttended
	position.MinPeerNominations = spec.MinPeerNominations
	position.RequiredPriorRole = spec.RequiredPriorRole

	txn := m.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := m.config.Database.UpdatePosition(position, txn); err != nil {
		return nil, err
	}
	entry := audit.Entry{
		ActorID:    adminID,
		Action:     "position.update",
		EntityType: "position",
		EntityID:   positionID,
		Before:     &before,
		After:      position,
	}
	if override {
		entry.Action = "position.admin_override"
		entry.After = map[string]any{
			"position":        position,
			"override_reason": overrideReason,
			"cycle_status":    cycle.Status,
		}
	}
	if err := m.config.Auditor.Record(txn, entry); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	// Criteria changed under live candidacies; refresh eligibility so
	// records track the new thresholds
	if override && m.config.Eligibility != nil {
		if err := m.config.Eligibility.RecomputePosition(
			ctx,
			adminID,
			positionID,
		); err != nil {
			m.logger.Warn(
				"eligibility refresh after position edit failed",
				"position_id", positionID,
				"error", err,
			)
		}
	}
	return position, nil
}
