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
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = uint64(1)

type fixture struct {
	engine   *Engine
	db       *database.Database
	cycle    *models.SuccessionCycle
	position *models.Position
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	cycle := &models.SuccessionCycle{
		Year:      2026,
		Name:      "2026 Leadership Cycle",
		Status:    models.CycleStatusEvaluations,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 6, 0),
	}
	require.NoError(t, db.CreateCycle(cycle, nil))
	position := &models.Position{
		CycleID: cycle.ID,
		Title:   "Chapter Lead",
		Open:    true,
	}
	require.NoError(t, db.CreatePosition(position, nil))
	engine := NewEngine(EngineConfig{
		Database: db,
		Auditor:  audit.NewRecorder(db, nil, nil),
	})
	return &fixture{
		engine:   engine,
		db:       db,
		cycle:    cycle,
		position: position,
	}
}

func (f *fixture) createNomination(
	t *testing.T,
	nomineeID uint64,
	submittedAt time.Time,
) *models.Nomination {
	t.Helper()
	nomination := &models.Nomination{
		CycleID:     f.cycle.ID,
		PositionID:  f.position.ID,
		NominatorID: 900 + nomineeID,
		NomineeID:   nomineeID,
		Status:      models.NominationStatusSubmitted,
		Provenance:  models.ProvenanceNomination,
		SubmittedAt: submittedAt,
	}
	require.NoError(t, f.db.CreateNomination(nomination, nil))
	return nomination
}

func (f *fixture) createCriteria(
	t *testing.T,
	specs []CriterionSpec,
) []models.EvaluationCriterion {
	t.Helper()
	criteria, err := f.engine.CreateCriteria(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		specs,
	)
	require.NoError(t, err)
	return criteria
}

func (f *fixture) assignEvaluator(
	t *testing.T,
	memberID uint64,
	nominations ...*models.Nomination,
) *models.Evaluator {
	t.Helper()
	evaluator, err := f.engine.AssignEvaluator(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		memberID,
	)
	require.NoError(t, err)
	for _, nomination := range nominations {
		_, err := f.engine.AssignCandidate(
			context.Background(),
			adminID,
			evaluator.ID,
			nomination.ID,
		)
		require.NoError(t, err)
	}
	return evaluator
}

func (f *fixture) submitScore(
	t *testing.T,
	evaluator *models.Evaluator,
	nominationID, criterionID uint,
	raw float64,
) {
	t.Helper()
	_, err := f.engine.SubmitScore(context.Background(), ScoreRequest{
		ActorID:      evaluator.MemberID,
		EvaluatorID:  evaluator.ID,
		NominationID: nominationID,
		CriterionID:  criterionID,
		RawScore:     raw,
	})
	require.NoError(t, err)
}

func TestCreateCriteriaWeightValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateCriteria(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		[]CriterionSpec{
			{Name: "leadership", Weight: 0.5},
			{Name: "communication", Weight: 0.4},
		},
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "sum to 0.9")

	_, err = f.engine.CreateCriteria(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		[]CriterionSpec{
			{Name: "leadership", Weight: 1.2},
		},
	)
	require.ErrorAs(t, err, &valErr)

	_, err = f.engine.CreateCriteria(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		nil,
	)
	require.ErrorAs(t, err, &valErr)

	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 0.6},
		{Name: "communication", Weight: 0.4},
	})
	assert.Len(t, criteria, 2)
}

func TestAssignEvaluatorDuplicate(t *testing.T) {
	f := newFixture(t)
	f.assignEvaluator(t, 10)

	_, err := f.engine.AssignEvaluator(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		10,
	)
	var conflictErr *models.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestAssignCandidateConflictOfInterest(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	evaluator := f.assignEvaluator(t, nomination.NominatorID)

	_, err := f.engine.AssignCandidate(
		context.Background(),
		adminID,
		evaluator.ID,
		nomination.ID,
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "nominated the candidate")

	// An evaluator never scores their own candidacy either
	self, err := f.engine.AssignEvaluator(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		42,
	)
	require.NoError(t, err)
	_, err = f.engine.AssignCandidate(
		context.Background(),
		adminID,
		self.ID,
		nomination.ID,
	)
	require.ErrorAs(t, err, &valErr)
}

func TestSubmitScoreIdentityMismatch(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)

	_, err := f.engine.SubmitScore(context.Background(), ScoreRequest{
		ActorID:      11,
		EvaluatorID:  evaluator.ID,
		NominationID: nomination.ID,
		CriterionID:  criteria[0].ID,
		RawScore:     7,
	})
	var conflictErr *models.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestSubmitScoreValidation(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)

	// Out of range
	_, err := f.engine.SubmitScore(context.Background(), ScoreRequest{
		ActorID:      10,
		EvaluatorID:  evaluator.ID,
		NominationID: nomination.ID,
		CriterionID:  criteria[0].ID,
		RawScore:     11,
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)

	// Unassigned candidate
	other := f.createNomination(t, 43, time.Now())
	_, err = f.engine.SubmitScore(context.Background(), ScoreRequest{
		ActorID:      10,
		EvaluatorID:  evaluator.ID,
		NominationID: other.ID,
		CriterionID:  criteria[0].ID,
		RawScore:     7,
	})
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "not assigned")
}

func TestSubmitScoreOutsideEvaluationsStage(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)
	f.cycle.Status = models.CycleStatusEvaluationsClosed
	require.NoError(t, f.db.UpdateCycle(f.cycle, nil))

	_, err := f.engine.SubmitScore(context.Background(), ScoreRequest{
		ActorID:      10,
		EvaluatorID:  evaluator.ID,
		NominationID: nomination.ID,
		CriterionID:  criteria[0].ID,
		RawScore:     7,
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestSubmitScoreOverwrite(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)

	f.submitScore(t, evaluator, nomination.ID, criteria[0].ID, 6)
	f.submitScore(t, evaluator, nomination.ID, criteria[0].ID, 8)

	scores, err := f.db.GetScoresByPosition(f.position.ID, nil)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 8.0, scores[0].RawScore, 1e-9)
}

func TestOutstandingAndComplete(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 0.6},
		{Name: "communication", Weight: 0.4},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)

	outstanding, err := f.engine.Outstanding(f.position.ID)
	require.NoError(t, err)
	assert.Len(t, outstanding, 2)
	complete, err := f.engine.Complete(f.position.ID)
	require.NoError(t, err)
	assert.False(t, complete)

	f.submitScore(t, evaluator, nomination.ID, criteria[0].ID, 7)
	outstanding, err = f.engine.Outstanding(f.position.ID)
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, "communication", outstanding[0].CriterionName)

	f.submitScore(t, evaluator, nomination.ID, criteria[1].ID, 9)
	complete, err = f.engine.Complete(f.position.ID)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestRecusalExcludesFromCompleteness(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)

	// Recusal requires a reason
	err := f.engine.Recuse(context.Background(), adminID, evaluator.ID, "")
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)

	require.NoError(t, f.engine.Recuse(
		context.Background(),
		adminID,
		evaluator.ID,
		"nominee is a direct report",
	))
	complete, err := f.engine.Complete(f.position.ID)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestRecusedEvaluatorCannotScore(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)
	require.NoError(t, f.engine.Recuse(
		context.Background(),
		adminID,
		evaluator.ID,
		"nominee is a direct report",
	))

	_, err := f.engine.SubmitScore(context.Background(), ScoreRequest{
		ActorID:      10,
		EvaluatorID:  evaluator.ID,
		NominationID: nomination.ID,
		CriterionID:  criteria[0].ID,
		RawScore:     7,
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestAggregateWeightedTotals(t *testing.T) {
	f := newFixture(t)
	alice := f.createNomination(t, 42, time.Now())
	bob := f.createNomination(t, 43, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 0.6},
		{Name: "communication", Weight: 0.4},
	})
	ev1 := f.assignEvaluator(t, 10, alice, bob)
	ev2 := f.assignEvaluator(t, 11, alice, bob)

	f.submitScore(t, ev1, alice.ID, criteria[0].ID, 8)
	f.submitScore(t, ev2, alice.ID, criteria[0].ID, 6)
	f.submitScore(t, ev1, alice.ID, criteria[1].ID, 9)
	f.submitScore(t, ev2, alice.ID, criteria[1].ID, 7)
	f.submitScore(t, ev1, bob.ID, criteria[0].ID, 5)
	f.submitScore(t, ev2, bob.ID, criteria[0].ID, 5)
	f.submitScore(t, ev1, bob.ID, criteria[1].ID, 6)
	f.submitScore(t, ev2, bob.ID, criteria[1].ID, 4)

	results, err := f.engine.Aggregate(f.position.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Alice: 0.6*mean(8,6) + 0.4*mean(9,7) = 4.2 + 3.2 = 7.4 -> 74.0
	assert.Equal(t, alice.ID, results[0].NominationID)
	assert.InDelta(t, 74.0, results[0].Total, 1e-9)
	assert.InDelta(t, 7.0, results[0].PerCriterion["leadership"], 1e-9)
	// Bob: 0.6*mean(5,5) + 0.4*mean(6,4) = 3.0 + 2.0 = 5.0 -> 50.0
	assert.Equal(t, bob.ID, results[1].NominationID)
	assert.InDelta(t, 50.0, results[1].Total, 1e-9)
	// Both evaluators gave Bob 5 on leadership
	assert.Equal(t, 1, results[1].Unanimity)
}

func TestAggregateExcludesRecusedScores(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	ev1 := f.assignEvaluator(t, 10, nomination)
	ev2 := f.assignEvaluator(t, 11, nomination)
	f.submitScore(t, ev1, nomination.ID, criteria[0].ID, 8)
	f.submitScore(t, ev2, nomination.ID, criteria[0].ID, 2)

	// The recused evaluator's submitted score is kept but excluded
	require.NoError(t, f.engine.Recuse(
		context.Background(),
		adminID,
		ev2.ID,
		"nominee is a direct report",
	))
	results, err := f.engine.Aggregate(f.position.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 80.0, results[0].Total, 1e-9)
	scores, err := f.db.GetScoresByPosition(f.position.ID, nil)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestAggregateTieBreaks(t *testing.T) {
	f := newFixture(t)
	earlier := f.createNomination(
		t,
		42,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	later := f.createNomination(
		t,
		43,
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	)
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	ev1 := f.assignEvaluator(t, 10, earlier, later)
	ev2 := f.assignEvaluator(t, 11, earlier, later)

	// Equal totals, equal unanimity: the earlier nomination ranks first
	f.submitScore(t, ev1, earlier.ID, criteria[0].ID, 7)
	f.submitScore(t, ev2, earlier.ID, criteria[0].ID, 7)
	f.submitScore(t, ev1, later.ID, criteria[0].ID, 7)
	f.submitScore(t, ev2, later.ID, criteria[0].ID, 7)

	results, err := f.engine.Aggregate(f.position.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, earlier.ID, results[0].NominationID)
	assert.Equal(t, later.ID, results[1].NominationID)

	// Higher unanimity wins at equal totals: split 6/8 averages 7 but is
	// not unanimous
	f.submitScore(t, ev1, later.ID, criteria[0].ID, 6)
	f.submitScore(t, ev2, later.ID, criteria[0].ID, 8)
	results, err = f.engine.Aggregate(f.position.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, earlier.ID, results[0].NominationID)
	assert.Equal(t, 1, results[0].Unanimity)
	assert.Equal(t, 0, results[1].Unanimity)
}

func TestFinalizeScoresWritesSnapshots(t *testing.T) {
	f := newFixture(t)
	nomination := f.createNomination(t, 42, time.Now())
	criteria := f.createCriteria(t, []CriterionSpec{
		{Name: "leadership", Weight: 1.0},
	})
	evaluator := f.assignEvaluator(t, 10, nomination)
	f.submitScore(t, evaluator, nomination.ID, criteria[0].ID, 8)
	require.NoError(t, f.db.CreateCandidateSnapshot(
		&models.CandidateSnapshot{
			CycleID:      f.cycle.ID,
			PositionID:   f.position.ID,
			NomineeID:    42,
			NominationID: nomination.ID,
			SnapshotAt:   time.Now(),
		},
		nil,
	))

	require.NoError(t, f.engine.FinalizeScores(f.position.ID, nil))
	snapshots, err := f.db.GetCandidateSnapshots(f.position.ID, nil)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].Scored)
	assert.InDelta(t, 80.0, snapshots[0].TotalScore, 1e-9)
}
