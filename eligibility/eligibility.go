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

// Package eligibility derives whether a member qualifies for a position
// from tenure and activity signals. Records are always recomputed from
// current data; they are never hand-edited, and recomputation with
// unchanged inputs leaves the stored record byte-identical.
package eligibility

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/notify"
)

const defaultWorkers = 8

// MemberProfile is a member's aggregated activity snapshot from the
// external member/event data source
type MemberProfile struct {
	MemberID          uint64
	TenureYears       float64
	EventsOrganized   int
	TrainingsAttended int
	PeerNominations   int
	PriorRoles        []string
}

// MemberDataSource is the read-only query interface to the external
// member/event data stores. The engine does not own this data.
type MemberDataSource interface {
	Profile(ctx context.Context, memberID uint64) (*MemberProfile, error)
	Members(ctx context.Context) ([]uint64, error)
}

// ComputationError reports that the upstream data source could not be
// queried for a member. The member's record is left pending, never marked
// ineligible on missing data.
type ComputationError struct {
	MemberID uint64
	Err      error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf(
		"eligibility computation failed for member %d: %s",
		e.MemberID,
		e.Err,
	)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// CriterionResult is the pass/fail breakdown for one criterion, with a
// numeric margin in the detail (e.g. "tenure 2.1y < required 3.0y")
type CriterionResult struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
	Detail    string `json:"detail"`
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	Logger     *slog.Logger
	Database   *database.Database
	DataSource MemberDataSource
	Dispatcher notify.Dispatcher
	Auditor    *audit.Recorder
	Workers    int
}

// Engine computes eligibility records
type Engine struct {
	config EngineConfig
	logger *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Engine{
		config: cfg,
		logger: logger.With("component", "eligibility"),
	}
}

// evaluate runs a position's criteria against a profile. Criteria appear
// in a fixed canonical order so the serialized breakdown is deterministic.
func evaluate(
	position *models.Position,
	profile *MemberProfile,
) (bool, []CriterionResult) {
	var results []CriterionResult
	eligible := true
	addResult := func(name string, met bool, detail string) {
		results = append(results, CriterionResult{
			Criterion: name,
			Met:       met,
			Detail:    detail,
		})
		if !met {
			eligible = false
		}
	}
	if position.MinTenureYears > 0 {
		met := profile.TenureYears >= position.MinTenureYears
		cmp := "<"
		if met {
			cmp = ">="
		}
		addResult(
			"tenure",
			met,
			fmt.Sprintf(
				"tenure %.1fy %s required %.1fy",
				profile.TenureYears,
				cmp,
				position.MinTenureYears,
			),
		)
	}
	if position.MinEventsOrganized > 0 {
		met := profile.EventsOrganized >= position.MinEventsOrganized
		cmp := "<"
		if met {
			cmp = ">="
		}
		addResult(
			"events_organized",
			met,
			fmt.Sprintf(
				"events organized %d %s required %d",
				profile.EventsOrganized,
				cmp,
				position.MinEventsOrganized,
			),
		)
	}
	if position.MinTrainingsAttended > 0 {
		met := profile.TrainingsAttended >= position.MinTrainingsAttended
		cmp := "<"
		if met {
			cmp = ">="
		}
		addResult(
			"trainings_attended",
			met,
			fmt.Sprintf(
				"trainings attended %d %s required %d",
				profile.TrainingsAttended,
				cmp,
				position.MinTrainingsAttended,
			),
		)
	}
	if position.MinPeerNominations > 0 {
		met := profile.PeerNominations >= position.MinPeerNominations
		cmp := "<"
		if met {
			cmp = ">="
		}
		addResult(
			"peer_nominations",
			met,
			fmt.Sprintf(
				"peer nominations %d %s required %d",
				profile.PeerNominations,
				cmp,
				position.MinPeerNominations,
			),
		)
	}
	if position.RequiredPriorRole != "" {
		met := slices.Contains(profile.PriorRoles, position.RequiredPriorRole)
		detail := fmt.Sprintf(
			"missing required prior role %q",
			position.RequiredPriorRole,
		)
		if met {
			detail = fmt.Sprintf(
				"held required prior role %q",
				position.RequiredPriorRole,
			)
		}
		addResult("prior_role", met, detail)
	}
	return eligible, results
}

// checksum fingerprints a computed result so unchanged recomputation can
// be detected without comparing records field by field
func checksum(status models.EligibilityStatus, reasons string) string {
	sum := sha256.Sum256([]byte(string(status) + "\x00" + reasons))
	return hex.EncodeToString(sum[:])
}

// Recompute derives the eligibility record for one (position, member)
// pair. When the derived result matches the stored record the stored
// record is returned untouched, which keeps unchanged recomputation
// byte-identical. Returns the record and whether the member newly became
// eligible.
func (e *Engine) Recompute(
	ctx context.Context,
	positionID uint,
	memberID uint64,
) (*models.EligibilityRecord, bool, error) {
	position, err := e.config.Database.GetPosition(positionID, nil)
	if err != nil {
		return nil, false, err
	}
	existing, err := e.config.Database.GetEligibilityRecord(
		positionID,
		memberID,
		nil,
	)
	if err != nil {
		return nil, false, err
	}
	profile, err := e.config.DataSource.Profile(ctx, memberID)
	if err != nil {
		// Mark pending only when there is no previously computed result;
		// a transient upstream failure must not erase known state
		if existing == nil {
			pending := &models.EligibilityRecord{
				PositionID: positionID,
				MemberID:   memberID,
				Status:     models.EligibilityStatusPending,
				Reasons:    "",
				Checksum:   checksum(models.EligibilityStatusPending, ""),
				ComputedAt: time.Now(),
			}
			if upsertErr := e.config.Database.UpsertEligibilityRecord(
				pending,
				nil,
			); upsertErr != nil {
				return nil, false, upsertErr
			}
			existing = pending
		}
		return existing, false, &ComputationError{MemberID: memberID, Err: err}
	}
	eligible, results := evaluate(position, profile)
	status := models.EligibilityStatusIneligible
	if eligible {
		status = models.EligibilityStatusEligible
	}
	reasons, err := json.Marshal(results)
	if err != nil {
		return nil, false, err
	}
	sum := checksum(status, string(reasons))
	if existing != nil && existing.Checksum == sum {
		// Unchanged inputs; leave the stored record untouched
		return existing, false, nil
	}
	record := &models.EligibilityRecord{
		PositionID: positionID,
		MemberID:   memberID,
		Status:     status,
		Reasons:    string(reasons),
		Checksum:   sum,
		ComputedAt: time.Now(),
	}
	if err := e.config.Database.UpsertEligibilityRecord(record, nil); err != nil {
		return nil, false, err
	}
	newlyEligible := status == models.EligibilityStatusEligible &&
		(existing == nil || existing.Status != models.EligibilityStatusEligible)
	if newlyEligible && e.config.Dispatcher != nil {
		//nolint:errcheck
		e.config.Dispatcher.Dispatch(ctx, notify.NewRequest(
			memberID,
			notify.TemplateNewlyEligible,
			map[string]any{
				"position_id":    positionID,
				"position_title": position.Title,
			},
		))
	}
	return record, newlyEligible, nil
}

// RecomputePosition recomputes eligibility for every member against one
// position. Computation is read-heavy and safely parallelizable per
// member, bounded by the configured worker count. Individual member
// failures are joined and returned after the sweep completes. The sweep
// itself is recorded as one audit entry attributed to the actor; the
// per-member records are derived data and carry no per-row entries.
func (e *Engine) RecomputePosition(
	ctx context.Context,
	actorID uint64,
	positionID uint,
) error {
	members, err := e.config.DataSource.Members(ctx)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	var newlyEligible int
	sem := make(chan struct{}, e.config.Workers)
	for _, memberID := range members {
		wg.Add(1)
		sem <- struct{}{}
		go func(memberID uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			_, newly, err := e.Recompute(ctx, positionID, memberID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if newly {
				newlyEligible++
			}
		}(memberID)
	}
	wg.Wait()
	if e.config.Auditor != nil {
		if auditErr := e.config.Auditor.Record(nil, audit.Entry{
			ActorID:    actorID,
			Action:     "eligibility.recompute",
			EntityType: "position",
			EntityID:   positionID,
			After: map[string]any{
				"members":        len(members),
				"newly_eligible": newlyEligible,
				"failures":       len(errs),
			},
		}); auditErr != nil {
			errs = append(errs, auditErr)
		}
	}
	return errors.Join(errs...)
}

// RecomputeCycle sweeps every open position in a cycle. Runs on entry to
// nominations_open and on admin request.
func (e *Engine) RecomputeCycle(
	ctx context.Context,
	actorID uint64,
	cycleID uint,
) error {
	positions, err := e.config.Database.GetPositionsByCycle(cycleID, true, nil)
	if err != nil {
		return err
	}
	var errs []error
	for _, position := range positions {
		if err := e.RecomputePosition(ctx, actorID, position.ID); err != nil {
			errs = append(errs, fmt.Errorf(
				"position %d: %w",
				position.ID,
				err,
			))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	e.logger.Info(
		"eligibility sweep complete",
		"cycle_id", cycleID,
		"positions", len(positions),
	)
	return nil
}

// DisqualificationRecommendation flags an active candidacy whose nominee
// is no longer eligible. Ineligibility discovered after nomination never
// changes the candidacy automatically; an admin must act on it.
type DisqualificationRecommendation struct {
	NominationID uint
	PositionID   uint
	NomineeID    uint64
	Reasons      string
}

// Recommendations lists active candidacies for a position whose nominee's
// current record is not eligible
func (e *Engine) Recommendations(
	positionID uint,
) ([]DisqualificationRecommendation, error) {
	nominations, err := e.config.Database.GetNominationsByPosition(
		positionID,
		true,
		nil,
	)
	if err != nil {
		return nil, err
	}
	var recommendations []DisqualificationRecommendation
	for _, nomination := range nominations {
		record, err := e.config.Database.GetEligibilityRecord(
			positionID,
			nomination.NomineeID,
			nil,
		)
		if err != nil {
			return nil, err
		}
		if record == nil || record.Status != models.EligibilityStatusIneligible {
			continue
		}
		recommendations = append(
			recommendations,
			DisqualificationRecommendation{
				NominationID: nomination.ID,
				PositionID:   positionID,
				NomineeID:    nomination.NomineeID,
				Reasons:      record.Reasons,
			},
		)
	}
	return recommendations, nil
}
