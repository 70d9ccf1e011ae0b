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

package evaluation

import (
	"sort"
	"time"

	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
)

// CandidateScore is one candidate's aggregated result. Total is
// normalized to a 0-100 scale. Unanimity counts the criteria on which all
// non-recused evaluators gave identical scores; it is the first tie-break
// key, followed by earliest nomination time.
type CandidateScore struct {
	NominationID uint
	NomineeID    uint64
	Total        float64
	Unanimity    int
	SubmittedAt  time.Time
	PerCriterion map[string]float64
}

// OutstandingWork is one unscored (evaluator, candidate, criterion) unit
// blocking the close of the evaluations stage
type OutstandingWork struct {
	EvaluatorID   uint
	MemberID      uint64
	NominationID  uint
	CriterionName string
}

type scoreKey struct {
	evaluatorID  uint
	nominationID uint
	criterionID  uint
}

// collect loads everything aggregation and completeness need for one
// position: the rubric, the non-recused evaluators with their
// assignments, and the submitted scores keyed for lookup
func (e *Engine) collect(
	positionID uint,
) (
	[]models.EvaluationCriterion,
	[]models.Evaluator,
	map[uint][]models.EvaluatorAssignment,
	map[scoreKey]models.EvaluationScore,
	error,
) {
	criteria, err := e.config.Database.GetCriteriaByPosition(positionID, nil)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	evaluators, err := e.config.Database.GetEvaluatorsByPosition(
		positionID,
		false,
		nil,
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	assignments := make(map[uint][]models.EvaluatorAssignment)
	for _, evaluator := range evaluators {
		evalAssignments, err := e.config.Database.GetAssignmentsByEvaluator(
			evaluator.ID,
			nil,
		)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		assignments[evaluator.ID] = evalAssignments
	}
	scores, err := e.config.Database.GetScoresByPosition(positionID, nil)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	scoreIndex := make(map[scoreKey]models.EvaluationScore, len(scores))
	for _, score := range scores {
		scoreIndex[scoreKey{
			evaluatorID:  score.EvaluatorID,
			nominationID: score.NominationID,
			criterionID:  score.CriterionID,
		}] = score
	}
	return criteria, evaluators, assignments, scoreIndex, nil
}

// Outstanding lists every unscored (evaluator, candidate, criterion) unit
// for a position's non-recused evaluators. The evaluations stage cannot
// close while this is non-empty, short of an admin force-close.
func (e *Engine) Outstanding(positionID uint) ([]OutstandingWork, error) {
	criteria, evaluators, assignments, scoreIndex, err := e.collect(
		positionID,
	)
	if err != nil {
		return nil, err
	}
	var outstanding []OutstandingWork
	for _, evaluator := range evaluators {
		for _, assignment := range assignments[evaluator.ID] {
			for _, criterion := range criteria {
				key := scoreKey{
					evaluatorID:  evaluator.ID,
					nominationID: assignment.NominationID,
					criterionID:  criterion.ID,
				}
				if _, ok := scoreIndex[key]; !ok {
					outstanding = append(outstanding, OutstandingWork{
						EvaluatorID:   evaluator.ID,
						MemberID:      evaluator.MemberID,
						NominationID:  assignment.NominationID,
						CriterionName: criterion.Name,
					})
				}
			}
		}
	}
	return outstanding, nil
}

// Complete reports whether every non-recused assigned evaluator has scored
// all of their candidates on all criteria
func (e *Engine) Complete(positionID uint) (bool, error) {
	outstanding, err := e.Outstanding(positionID)
	if err != nil {
		return false, err
	}
	return len(outstanding) == 0, nil
}

// Aggregate computes ranked totals for a position's candidates:
// total = sum(weight * mean(non-recused scores for the criterion)),
// normalized to 0-100. The candidate roster comes from the snapshot taken
// when evaluations opened; before a snapshot exists the active candidacies
// are used, which makes the ranking previewable during scoring.
func (e *Engine) Aggregate(positionID uint) ([]CandidateScore, error) {
	criteria, evaluators, _, scoreIndex, err := e.collect(positionID)
	if err != nil {
		return nil, err
	}
	type candidate struct {
		nominationID uint
		nomineeID    uint64
		submittedAt  time.Time
	}
	var candidates []candidate
	snapshots, err := e.config.Database.GetCandidateSnapshots(positionID, nil)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > 0 {
		for _, snapshot := range snapshots {
			nomination, err := e.config.Database.GetNomination(
				snapshot.NominationID,
				nil,
			)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, candidate{
				nominationID: snapshot.NominationID,
				nomineeID:    snapshot.NomineeID,
				submittedAt:  nomination.SubmittedAt,
			})
		}
	} else {
		nominations, err := e.config.Database.GetNominationsByPosition(
			positionID,
			true,
			nil,
		)
		if err != nil {
			return nil, err
		}
		for _, nomination := range nominations {
			candidates = append(candidates, candidate{
				nominationID: nomination.ID,
				nomineeID:    nomination.NomineeID,
				submittedAt:  nomination.SubmittedAt,
			})
		}
	}

	results := make([]CandidateScore, 0, len(candidates))
	for _, cand := range candidates {
		result := CandidateScore{
			NominationID: cand.nominationID,
			NomineeID:    cand.nomineeID,
			SubmittedAt:  cand.submittedAt,
			PerCriterion: make(map[string]float64, len(criteria)),
		}
		for _, criterion := range criteria {
			var sum float64
			var count int
			unanimous := true
			var first float64
			for _, evaluator := range evaluators {
				score, ok := scoreIndex[scoreKey{
					evaluatorID:  evaluator.ID,
					nominationID: cand.nominationID,
					criterionID:  criterion.ID,
				}]
				if !ok {
					continue
				}
				if count == 0 {
					first = score.RawScore
				} else if score.RawScore != first {
					unanimous = false
				}
				sum += score.RawScore
				count++
			}
			if count == 0 {
				continue
			}
			mean := sum / float64(count)
			result.PerCriterion[criterion.Name] = mean
			result.Total += criterion.Weight * mean
			if unanimous && count > 1 {
				result.Unanimity++
			}
		}
		// Normalize from the raw 0..ScaleMax range to 0-100
		result.Total = result.Total / e.config.ScaleMax * 100
		results = append(results, result)
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Total != results[b].Total {
			return results[a].Total > results[b].Total
		}
		if results[a].Unanimity != results[b].Unanimity {
			return results[a].Unanimity > results[b].Unanimity
		}
		if !results[a].SubmittedAt.Equal(results[b].SubmittedAt) {
			return results[a].SubmittedAt.Before(results[b].SubmittedAt)
		}
		return results[a].NominationID < results[b].NominationID
	})
	return results, nil
}

// FinalizeScores writes the aggregated totals onto the candidate
// snapshots, inside the caller's transaction when one is given. Called as
// a side effect when the evaluations stage closes so later score writes
// cannot change the recorded outcome.
func (e *Engine) FinalizeScores(positionID uint, txn *database.Txn) error {
	results, err := e.Aggregate(positionID)
	if err != nil {
		return err
	}
	snapshots, err := e.config.Database.GetCandidateSnapshots(positionID, nil)
	if err != nil {
		return err
	}
	totals := make(map[uint]float64, len(results))
	for _, result := range results {
		totals[result.NominationID] = result.Total
	}
	for _, snapshot := range snapshots {
		total, ok := totals[snapshot.NominationID]
		if !ok {
			continue
		}
		if err := e.config.Database.SetSnapshotScore(
			snapshot.ID,
			total,
			txn,
		); err != nil {
			return err
		}
	}
	e.logger.Info(
		"scores finalized",
		"position_id", positionID,
		"candidates", len(snapshots),
	)
	return nil
}
