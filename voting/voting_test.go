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

package voting

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/database/types"
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

func newFixture(t *testing.T, committee []uint64) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	cycle := &models.SuccessionCycle{
		Year:             2026,
		Name:             "2026 Leadership Cycle",
		Status:           models.CycleStatusSelection,
		CommitteeMembers: types.MemberIDList(committee),
		StartDate:        time.Now(),
		EndDate:          time.Now().AddDate(0, 6, 0),
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

// addCandidate creates an active candidacy with its snapshot, as taken
// when the evaluations stage opened
func (f *fixture) addCandidate(
	t *testing.T,
	nomineeID uint64,
	totalScore float64,
) *models.Nomination {
	t.Helper()
	nomination := &models.Nomination{
		CycleID:     f.cycle.ID,
		PositionID:  f.position.ID,
		NominatorID: 900 + nomineeID,
		NomineeID:   nomineeID,
		Status:      models.NominationStatusSubmitted,
		Provenance:  models.ProvenanceNomination,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, f.db.CreateNomination(nomination, nil))
	require.NoError(t, f.db.CreateCandidateSnapshot(
		&models.CandidateSnapshot{
			CycleID:      f.cycle.ID,
			PositionID:   f.position.ID,
			NomineeID:    nomineeID,
			NominationID: nomination.ID,
			TotalScore:   totalScore,
			Scored:       true,
			SnapshotAt:   time.Now(),
		},
		nil,
	))
	return nomination
}

func (f *fixture) castBallot(
	t *testing.T,
	voterID uint64,
	nominationID uint,
	choice models.VoteChoice,
) {
	t.Helper()
	_, err := f.engine.CastBallot(context.Background(), BallotRequest{
		ActorID:      voterID,
		VoterID:      voterID,
		CycleID:      f.cycle.ID,
		PositionID:   f.position.ID,
		NominationID: nominationID,
		Choice:       choice,
	})
	require.NoError(t, err)
}

func TestQuorumThreshold(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12, 13, 14})

	// ceil(0.5 * seated)
	assert.Equal(t, 3, f.engine.QuorumThreshold(5))
	assert.Equal(t, 2, f.engine.QuorumThreshold(4))
	assert.Equal(t, 1, f.engine.QuorumThreshold(1))
	assert.Equal(t, 0, f.engine.QuorumThreshold(0))
}

func TestCastBallotIdentityMismatch(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)

	_, err := f.engine.CastBallot(context.Background(), BallotRequest{
		ActorID:      10,
		VoterID:      11,
		CycleID:      f.cycle.ID,
		PositionID:   f.position.ID,
		NominationID: nomination.ID,
		Choice:       models.VoteChoiceYes,
	})
	var conflictErr *models.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestCastBallotCandidateNotOnBallot(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})

	// A candidacy without a roster snapshot never made it onto the ballot
	nomination := &models.Nomination{
		CycleID:     f.cycle.ID,
		PositionID:  f.position.ID,
		NominatorID: 942,
		NomineeID:   42,
		Status:      models.NominationStatusSubmitted,
		Provenance:  models.ProvenanceNomination,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, f.db.CreateNomination(nomination, nil))

	_, err := f.engine.CastBallot(context.Background(), BallotRequest{
		ActorID:      10,
		VoterID:      10,
		CycleID:      f.cycle.ID,
		PositionID:   f.position.ID,
		NominationID: nomination.ID,
		Choice:       models.VoteChoiceYes,
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "not on the ballot")
}

func TestCastBallotNonCommitteeMember(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)

	_, err := f.engine.CastBallot(context.Background(), BallotRequest{
		ActorID:      99,
		VoterID:      99,
		CycleID:      f.cycle.ID,
		PositionID:   f.position.ID,
		NominationID: nomination.ID,
		Choice:       models.VoteChoiceYes,
	})
	var authErr *models.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestCastBallotOutsideSelectionStage(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)
	f.cycle.Status = models.CycleStatusInterviews
	require.NoError(t, f.db.UpdateCycle(f.cycle, nil))

	_, err := f.engine.CastBallot(context.Background(), BallotRequest{
		ActorID:      10,
		VoterID:      10,
		CycleID:      f.cycle.ID,
		PositionID:   f.position.ID,
		NominationID: nomination.ID,
		Choice:       models.VoteChoiceYes,
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestCastBallotInvalidChoice(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)

	_, err := f.engine.CastBallot(context.Background(), BallotRequest{
		ActorID:      10,
		VoterID:      10,
		CycleID:      f.cycle.ID,
		PositionID:   f.position.ID,
		NominationID: nomination.ID,
		Choice:       models.VoteChoice("maybe"),
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestCastBallotOverwritesOwn(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)

	f.castBallot(t, 10, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 10, nomination.ID, models.VoteChoiceNo)

	votes, err := f.db.GetVotesByNomination(nomination.ID, nil)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, models.VoteChoiceNo, votes[0].Choice)
}

func TestTallyQuorumBoundary(t *testing.T) {
	// Five seats, threshold ceil(0.5*5) = 3
	f := newFixture(t, []uint64{10, 11, 12, 13, 14})
	nomination := f.addCandidate(t, 42, 74.0)

	f.castBallot(t, 10, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, nomination.ID, models.VoteChoiceYes)
	tallies, err := f.engine.Tally(f.cycle.ID, f.position.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.False(t, tallies[0].ClearsQuorum)

	f.castBallot(t, 12, nomination.ID, models.VoteChoiceYes)
	tallies, err = f.engine.Tally(f.cycle.ID, f.position.ID)
	require.NoError(t, err)
	assert.True(t, tallies[0].ClearsQuorum)
	assert.Equal(t, 3, tallies[0].Yes)
}

func TestTallyYesMustExceedNo(t *testing.T) {
	// Six seats, threshold 3. Abstentions count toward seats, not yes/no.
	f := newFixture(t, []uint64{10, 11, 12, 13, 14, 15})
	nomination := f.addCandidate(t, 42, 74.0)

	f.castBallot(t, 10, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 12, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 13, nomination.ID, models.VoteChoiceNo)
	f.castBallot(t, 14, nomination.ID, models.VoteChoiceNo)
	f.castBallot(t, 15, nomination.ID, models.VoteChoiceNo)

	tallies, err := f.engine.Tally(f.cycle.ID, f.position.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	// Yes meets the threshold but does not exceed no
	assert.Equal(t, 3, tallies[0].Yes)
	assert.Equal(t, 3, tallies[0].No)
	assert.False(t, tallies[0].ClearsQuorum)
}

func TestQualifiersRanking(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	alice := f.addCandidate(t, 42, 74.0)
	bob := f.addCandidate(t, 43, 82.0)
	carol := f.addCandidate(t, 44, 60.0)

	// Alice and Bob clear quorum with equal yes counts; Bob's higher
	// evaluation score ranks him first. Carol misses quorum.
	f.castBallot(t, 10, alice.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, alice.ID, models.VoteChoiceYes)
	f.castBallot(t, 10, bob.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, bob.ID, models.VoteChoiceYes)
	f.castBallot(t, 10, carol.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, carol.ID, models.VoteChoiceNo)

	qualifiers, err := f.engine.Qualifiers(f.cycle.ID, f.position.ID)
	require.NoError(t, err)
	require.Len(t, qualifiers, 2)
	assert.Equal(t, bob.ID, qualifiers[0].NominationID)
	assert.Equal(t, alice.ID, qualifiers[1].NominationID)
}

func TestRecordSelection(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)
	f.castBallot(t, 10, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, nomination.ID, models.VoteChoiceYes)

	// Rationale is required
	_, err := f.engine.RecordSelection(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		nomination.ID,
		"",
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)

	selection, err := f.engine.RecordSelection(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		nomination.ID,
		"Strongest evaluation record and unanimous committee support.",
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), selection.NomineeID)
	assert.Equal(t, adminID, selection.DecidedBy)

	active, err := f.db.GetActiveSelection(f.position.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, selection.ID, active.ID)
}

func TestRecordSelectionRequiresQuorum(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	nomination := f.addCandidate(t, 42, 74.0)
	f.castBallot(t, 10, nomination.ID, models.VoteChoiceYes)
	f.castBallot(t, 11, nomination.ID, models.VoteChoiceNo)
	f.castBallot(t, 12, nomination.ID, models.VoteChoiceNo)

	_, err := f.engine.RecordSelection(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		nomination.ID,
		"Committee consensus.",
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "did not clear quorum")
}

func TestRecordSelectionReplacesPrior(t *testing.T) {
	f := newFixture(t, []uint64{10, 11, 12})
	alice := f.addCandidate(t, 42, 74.0)
	bob := f.addCandidate(t, 43, 82.0)
	for _, nomination := range []*models.Nomination{alice, bob} {
		f.castBallot(t, 10, nomination.ID, models.VoteChoiceYes)
		f.castBallot(t, 11, nomination.ID, models.VoteChoiceYes)
	}

	first, err := f.engine.RecordSelection(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		alice.ID,
		"Initial decision.",
	)
	require.NoError(t, err)
	second, err := f.engine.RecordSelection(
		context.Background(),
		adminID,
		f.cycle.ID,
		f.position.ID,
		bob.ID,
		"Revised after approval feedback.",
	)
	require.NoError(t, err)

	// At most one active selection per position
	active, err := f.db.GetActiveSelection(f.position.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.NotEqual(t, first.ID, active.ID)
}
