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

package nomination

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJustification = strings.Repeat(
	"Led the mentorship program for two years. ",
	3,
)

type captureDispatcher struct {
	mu       sync.Mutex
	requests []notify.Request
}

func (d *captureDispatcher) Dispatch(
	_ context.Context,
	req notify.Request,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return nil
}

func (d *captureDispatcher) byTemplate(key string) []notify.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Request
	for _, req := range d.requests {
		if req.TemplateKey == key {
			out = append(out, req)
		}
	}
	return out
}

type fixture struct {
	intake     *Intake
	db         *database.Database
	dispatcher *captureDispatcher
	cycle      *models.SuccessionCycle
	position   *models.Position
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
		Status:    models.CycleStatusNominationsOpen,
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
	dispatcher := &captureDispatcher{}
	intake := NewIntake(IntakeConfig{
		Database:   db,
		Auditor:    audit.NewRecorder(db, nil, nil),
		Dispatcher: dispatcher,
	})
	return &fixture{
		intake:     intake,
		db:         db,
		dispatcher: dispatcher,
		cycle:      cycle,
		position:   position,
	}
}

func (f *fixture) markEligible(t *testing.T, memberID uint64) {
	t.Helper()
	require.NoError(t, f.db.UpsertEligibilityRecord(
		&models.EligibilityRecord{
			PositionID: f.position.ID,
			MemberID:   memberID,
			Status:     models.EligibilityStatusEligible,
			ComputedAt: time.Now(),
		},
		nil,
	))
}

func (f *fixture) submitRequest(nominatorID, nomineeID uint64) SubmitRequest {
	return SubmitRequest{
		CycleID:       f.cycle.ID,
		PositionID:    f.position.ID,
		NominatorID:   nominatorID,
		NomineeID:     nomineeID,
		Justification: testJustification,
	}
}

func TestSubmitNomination(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)
	assert.False(t, result.Merged)
	assert.False(t, result.EligibilityPending)
	assert.Equal(t, models.NominationStatusSubmitted, result.Nomination.Status)
	assert.Equal(t, models.ProvenanceNomination, result.Nomination.Provenance)
}

func TestSubmitNominationRejectsSelf(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	_, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(42, 42),
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "application")
}

func TestSubmitApplicationRequiresSelf(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	_, err := f.intake.SubmitApplication(
		context.Background(),
		f.submitRequest(7, 42),
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)

	result, err := f.intake.SubmitApplication(
		context.Background(),
		f.submitRequest(42, 42),
	)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceApplication, result.Nomination.Provenance)
}

func TestSubmitApplicationStageWindows(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	// A cycle with a dedicated applications window rejects applications
	// during nominations_open
	f.cycle.AcceptsApplications = true
	f.cycle.Status = models.CycleStatusNominationsOpen
	require.NoError(t, f.db.UpdateCycle(f.cycle, nil))
	_, err := f.intake.SubmitApplication(
		context.Background(),
		f.submitRequest(42, 42),
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)

	f.cycle.Status = models.CycleStatusApplicationsOpen
	require.NoError(t, f.db.UpdateCycle(f.cycle, nil))
	_, err = f.intake.SubmitApplication(
		context.Background(),
		f.submitRequest(42, 42),
	)
	require.NoError(t, err)

	// Third-party nominations never use the applications window
	_, err = f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 43),
	)
	require.ErrorAs(t, err, &valErr)
}

func TestSubmitJustificationTooShort(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	req := f.submitRequest(7, 42)
	req.Justification = "too short"
	_, err := f.intake.SubmitNomination(context.Background(), req)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "justification")
}

func TestSubmitIneligibleNominee(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.UpsertEligibilityRecord(
		&models.EligibilityRecord{
			PositionID: f.position.ID,
			MemberID:   42,
			Status:     models.EligibilityStatusIneligible,
			ComputedAt: time.Now(),
		},
		nil,
	))

	_, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "not eligible")
}

func TestSubmitUncomputedEligibilityPending(t *testing.T) {
	f := newFixture(t)

	// No eligibility record exists; the candidacy is recorded but flagged
	result, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)
	assert.True(t, result.EligibilityPending)
}

func TestDuplicateSubmissionMergesEvidence(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	first := f.submitRequest(7, 42)
	first.Evidence = []models.EvidenceItem{
		{Type: "event", Title: "Summit 2025", Content: "Organized the summit"},
	}
	result, err := f.intake.SubmitNomination(context.Background(), first)
	require.NoError(t, err)
	nominationID := result.Nomination.ID

	second := f.submitRequest(9, 42)
	second.Evidence = []models.EvidenceItem{
		{Type: "event", Title: "Summit 2025", Content: "Organized the summit"},
		{Type: "training", Title: "Facilitation", Content: "Completed course"},
	}
	result, err = f.intake.SubmitNomination(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, result.Merged)
	assert.Equal(t, nominationID, result.Nomination.ID)
	// The exact duplicate item is dropped, the new one appended
	require.Len(t, result.Nomination.Evidence, 2)
	assert.Equal(t, "Summit 2025", result.Nomination.Evidence[0].Title)
	assert.Equal(t, "Facilitation", result.Nomination.Evidence[1].Title)

	// Only one candidacy exists for the pair
	nominations, err := f.db.GetNominationsByPosition(f.position.ID, false, nil)
	require.NoError(t, err)
	assert.Len(t, nominations, 1)
}

func TestMergeIntoWithdrawnResubmits(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)
	_, err = f.intake.Withdraw(
		context.Background(),
		42,
		result.Nomination.ID,
	)
	require.NoError(t, err)

	result, err = f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(9, 42),
	)
	require.NoError(t, err)
	assert.True(t, result.Merged)
	assert.Equal(t, models.NominationStatusSubmitted, result.Nomination.Status)
}

func TestMergeIntoDisqualifiedRejected(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)
	_, err = f.intake.Disqualify(
		context.Background(),
		1,
		result.Nomination.ID,
		"lost eligibility after nomination",
	)
	require.NoError(t, err)

	_, err = f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(9, 42),
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "disqualified")
}

func TestSecondmentConsentFlow(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitSecondment(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceSecondment, result.Nomination.Provenance)
	assert.Equal(
		t,
		models.ConsentStatusPending,
		result.Nomination.ConsentStatus,
	)

	// The nominee is asked to consent
	reqs := f.dispatcher.byTemplate(notify.TemplateSecondmentConsent)
	require.Len(t, reqs, 1)
	assert.Equal(t, uint64(42), reqs[0].RecipientID)

	// Only the nominee may respond
	_, err = f.intake.RespondToSecondment(
		context.Background(),
		7,
		result.Nomination.ID,
		true,
	)
	var authErr *models.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	nomination, err := f.intake.RespondToSecondment(
		context.Background(),
		42,
		result.Nomination.ID,
		true,
	)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentStatusAccepted, nomination.ConsentStatus)

	// The decision is final
	_, err = f.intake.RespondToSecondment(
		context.Background(),
		42,
		result.Nomination.ID,
		false,
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestSecondmentDeclined(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitSecondment(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)
	nomination, err := f.intake.RespondToSecondment(
		context.Background(),
		42,
		result.Nomination.ID,
		false,
	)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentStatusDeclined, nomination.ConsentStatus)

	// A declined secondment is not an active candidacy
	count, err := f.db.CountEligibleCandidates(f.position.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestWithdrawAuthorization(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)

	_, err = f.intake.Withdraw(context.Background(), 99, result.Nomination.ID)
	var authErr *models.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	// The nominator may withdraw
	nomination, err := f.intake.Withdraw(
		context.Background(),
		7,
		result.Nomination.ID,
	)
	require.NoError(t, err)
	assert.Equal(t, models.NominationStatusWithdrawn, nomination.Status)

	// The nominator is told about the withdrawal
	reqs := f.dispatcher.byTemplate(notify.TemplateCandidacyWithdrawn)
	assert.Len(t, reqs, 1)

	// Already withdrawn
	_, err = f.intake.Withdraw(context.Background(), 42, result.Nomination.ID)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestDisqualifyRequiresReason(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)

	result, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	require.NoError(t, err)

	_, err = f.intake.Disqualify(
		context.Background(),
		1,
		result.Nomination.ID,
		"",
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)

	nomination, err := f.intake.Disqualify(
		context.Background(),
		1,
		result.Nomination.ID,
		"lost eligibility after nomination",
	)
	require.NoError(t, err)
	assert.Equal(t, models.NominationStatusDisqualified, nomination.Status)
}

func TestSubmitClosedStage(t *testing.T) {
	f := newFixture(t)
	f.markEligible(t, 42)
	f.cycle.Status = models.CycleStatusEvaluations
	require.NoError(t, f.db.UpdateCycle(f.cycle, nil))

	_, err := f.intake.SubmitNomination(
		context.Background(),
		f.submitRequest(7, 42),
	)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "does not accept new candidacies")
}
