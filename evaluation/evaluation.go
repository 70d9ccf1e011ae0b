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

// Package evaluation collects weighted rubric scores from assigned
// evaluators and aggregates them into a ranked, normalized total per
// candidate. Ranking is deterministic; ties are broken by unanimity count
// and then earliest nomination time, never randomized.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/notify"
)

const (
	DefaultScaleMax = 10.0
	WeightEpsilon   = 1e-9
)

// EngineConfig holds engine configuration
type EngineConfig struct {
	Logger     *slog.Logger
	Database   *database.Database
	Auditor    *audit.Recorder
	Dispatcher notify.Dispatcher
	// ScaleMax is the top of the raw score range (0..ScaleMax)
	ScaleMax float64
}

// Engine manages rubrics, evaluator assignments, and score aggregation
type Engine struct {
	config EngineConfig
	logger *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ScaleMax <= 0 {
		cfg.ScaleMax = DefaultScaleMax
	}
	return &Engine{
		config: cfg,
		logger: logger.With("component", "evaluation"),
	}
}

// CriterionSpec is one rubric entry to create
type CriterionSpec struct {
	Name   string
	Weight float64
}

// CreateCriteria creates a position's full rubric in one shot. Weights
// must sum to 1.0; partial rubrics are rejected up front rather than
// failing at aggregation time.
func (e *Engine) CreateCriteria(
	_ context.Context,
	adminID uint64,
	cycleID uint,
	positionID uint,
	specs []CriterionSpec,
) ([]models.EvaluationCriterion, error) {
	if len(specs) == 0 {
		return nil, models.NewValidationError(
			"criteria",
			"at least one criterion is required",
		)
	}
	var sum float64
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, models.NewValidationError(
				"name",
				"criterion name is required",
			)
		}
		if spec.Weight <= 0 || spec.Weight > 1 {
			return nil, models.NewValidationError(
				"weight",
				fmt.Sprintf(
					"criterion %q weight %g outside (0, 1]",
					spec.Name,
					spec.Weight,
				),
			)
		}
		sum += spec.Weight
	}
	if math.Abs(sum-1.0) > WeightEpsilon {
		return nil, models.NewValidationError(
			"weight",
			fmt.Sprintf("criterion weights sum to %g, expected 1.0", sum),
		)
	}
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	criteria := make([]models.EvaluationCriterion, 0, len(specs))
	for _, spec := range specs {
		criterion := models.EvaluationCriterion{
			CycleID:    cycleID,
			PositionID: positionID,
			Name:       spec.Name,
			Weight:     spec.Weight,
			CreatedAt:  time.Now(),
		}
		if err := e.config.Database.CreateCriterion(&criterion, txn); err != nil {
			return nil, err
		}
		if err := e.config.Auditor.Record(txn, audit.Entry{
			ActorID:    adminID,
			Action:     "evaluation.criterion_create",
			EntityType: "evaluation_criterion",
			EntityID:   criterion.ID,
			After:      &criterion,
		}); err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion)
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return criteria, nil
}

// AssignEvaluator makes a member an evaluator for a position
func (e *Engine) AssignEvaluator(
	ctx context.Context,
	adminID uint64,
	cycleID uint,
	positionID uint,
	memberID uint64,
) (*models.Evaluator, error) {
	existing, err := e.config.Database.GetEvaluatorByMember(
		positionID,
		memberID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &models.ConflictError{
			Entity: "evaluator",
			Key: fmt.Sprintf(
				"position=%d member=%d",
				positionID,
				memberID,
			),
		}
	}
	evaluator := &models.Evaluator{
		CycleID:    cycleID,
		PositionID: positionID,
		MemberID:   memberID,
		CreatedAt:  time.Now(),
	}
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := e.config.Database.CreateEvaluator(evaluator, txn); err != nil {
		return nil, err
	}
	if err := e.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "evaluation.evaluator_assign",
		EntityType: "evaluator",
		EntityID:   evaluator.ID,
		After:      evaluator,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	if e.config.Dispatcher != nil {
		//nolint:errcheck
		e.config.Dispatcher.Dispatch(ctx, notify.NewRequest(
			memberID,
			notify.TemplateEvaluatorAssigned,
			map[string]any{"position_id": positionID},
		))
	}
	return evaluator, nil
}

// AssignCandidate gives an evaluator one candidate to score. An evaluator
// who nominated the candidate is a conflict of interest and is rejected.
func (e *Engine) AssignCandidate(
	_ context.Context,
	adminID uint64,
	evaluatorID uint,
	nominationID uint,
) (*models.EvaluatorAssignment, error) {
	evaluator, err := e.config.Database.GetEvaluator(evaluatorID, nil)
	if err != nil {
		return nil, err
	}
	nomination, err := e.config.Database.GetNomination(nominationID, nil)
	if err != nil {
		return nil, err
	}
	if nomination.PositionID != evaluator.PositionID {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidate is not for the evaluator's position",
		)
	}
	if nomination.NominatorID == evaluator.MemberID {
		return nil, models.NewValidationError(
			"evaluator_id",
			"evaluator nominated the candidate and must not score them",
		)
	}
	if nomination.NomineeID == evaluator.MemberID {
		return nil, models.NewValidationError(
			"evaluator_id",
			"evaluator cannot score their own candidacy",
		)
	}
	assignment := &models.EvaluatorAssignment{
		EvaluatorID:  evaluatorID,
		NominationID: nominationID,
		CreatedAt:    time.Now(),
	}
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := e.config.Database.CreateAssignment(assignment, txn); err != nil {
		return nil, err
	}
	if err := e.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "evaluation.candidate_assign",
		EntityType: "evaluator_assignment",
		EntityID:   assignment.ID,
		After:      assignment,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return assignment, nil
}

// Recuse excludes an evaluator for conflict of interest. Their submitted
// scores are kept but excluded from aggregation.
func (e *Engine) Recuse(
	_ context.Context,
	adminID uint64,
	evaluatorID uint,
	reason string,
) error {
	if reason == "" {
		return models.NewValidationError(
			"reason",
			"a recusal reason is required",
		)
	}
	evaluator, err := e.config.Database.GetEvaluator(evaluatorID, nil)
	if err != nil {
		return err
	}
	before := *evaluator
	evaluator.Recused = true
	evaluator.RecusalReason = reason
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := e.config.Database.UpdateEvaluator(evaluator, txn); err != nil {
		return err
	}
	if err := e.config.Auditor.Record(txn, audit.Entry{
		ActorID:    adminID,
		Action:     "evaluation.recuse",
		EntityType: "evaluator",
		EntityID:   evaluator.ID,
		Before:     &before,
		After:      evaluator,
	}); err != nil {
		return err
	}
	return txn.Commit()
}

// ScoreRequest is one rubric score submission
type ScoreRequest struct {
	ActorID      uint64
	EvaluatorID  uint
	NominationID uint
	CriterionID  uint
	RawScore     float64
	Comments     string
}

// SubmitScore records one score for (evaluator, candidate, criterion).
// Resubmission by the same evaluator overwrites their prior score. A
// submission under another evaluator's key is rejected, never merged.
func (e *Engine) SubmitScore(
	_ context.Context,
	req ScoreRequest,
) (*models.EvaluationScore, error) {
	evaluator, err := e.config.Database.GetEvaluator(req.EvaluatorID, nil)
	if err != nil {
		return nil, err
	}
	if evaluator.MemberID != req.ActorID {
		return nil, &models.ConflictError{
			Entity: "evaluation_score",
			Key: fmt.Sprintf(
				"evaluator=%d actor=%d",
				req.EvaluatorID,
				req.ActorID,
			),
		}
	}
	if evaluator.Recused {
		return nil, models.NewValidationError(
			"evaluator_id",
			"recused evaluators may not submit scores",
		)
	}
	position, err := e.config.Database.GetPosition(evaluator.PositionID, nil)
	if err != nil {
		return nil, err
	}
	cycle, err := e.config.Database.GetCycle(position.CycleID, nil)
	if err != nil {
		return nil, err
	}
	if cycle.Status != models.CycleStatusEvaluations {
		return nil, models.NewValidationError(
			"cycle_id",
			fmt.Sprintf(
				"scores are only accepted while the cycle is in %s, currently %s",
				models.CycleStatusEvaluations,
				cycle.Status,
			),
		)
	}
	if req.RawScore < 0 || req.RawScore > e.config.ScaleMax {
		return nil, models.NewValidationError(
			"raw_score",
			fmt.Sprintf(
				"score %g outside range 0-%g",
				req.RawScore,
				e.config.ScaleMax,
			),
		)
	}
	criteria, err := e.config.Database.GetCriteriaByPosition(
		evaluator.PositionID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	validCriterion := false
	for _, criterion := range criteria {
		if criterion.ID == req.CriterionID {
			validCriterion = true
			break
		}
	}
	if !validCriterion {
		return nil, models.NewValidationError(
			"criterion_id",
			"criterion does not belong to the evaluator's position",
		)
	}
	assignments, err := e.config.Database.GetAssignmentsByEvaluator(
		req.EvaluatorID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	assigned := false
	for _, assignment := range assignments {
		if assignment.NominationID == req.NominationID {
			assigned = true
			break
		}
	}
	if !assigned {
		return nil, models.NewValidationError(
			"nomination_id",
			"candidate is not assigned to the evaluator",
		)
	}
	score := &models.EvaluationScore{
		EvaluatorID:  req.EvaluatorID,
		NominationID: req.NominationID,
		CriterionID:  req.CriterionID,
		RawScore:     req.RawScore,
		Comments:     req.Comments,
		CreatedAt:    time.Now(),
	}
	txn := e.config.Database.Transaction()
	defer txn.Rollback() //nolint:errcheck
	if err := e.config.Database.UpsertEvaluationScore(score, txn); err != nil {
		return nil, err
	}
	if err := e.config.Auditor.Record(txn, audit.Entry{
		ActorID:    req.ActorID,
		Action:     "evaluation.score_submit",
		EntityType: "evaluation_score",
		EntityID:   score.ID,
		After:      score,
	}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return score, nil
}
