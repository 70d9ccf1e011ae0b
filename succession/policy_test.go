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
	"testing"

	"github.com/blinklabs-io/baton/database/models"
	"github.com/stretchr/testify/assert"
)

func TestVisibleFieldsEvaluatorNeverSeesNominator(t *testing.T) {
	for _, status := range models.CycleStatuses {
		fields := VisibleFields(RoleEvaluator, status, EntityNomination)
		assert.False(
			t,
			fields.Contains("nominator_id"),
			"evaluator sees nominator_id at %s",
			status,
		)
		assert.True(t, fields.Contains("justification"))
	}
}

func TestVisibleFieldsCandidateScores(t *testing.T) {
	// Nothing before scores are finalized
	fields := VisibleFields(
		RoleCandidate,
		models.CycleStatusEvaluations,
		EntityScores,
	)
	assert.True(t, fields.Empty())

	fields = VisibleFields(
		RoleCandidate,
		models.CycleStatusEvaluationsClosed,
		EntityScores,
	)
	assert.True(t, fields.Contains("total"))
	// Their own total only, not the per-criterion breakdown
	assert.False(t, fields.Contains("per_criterion"))
}

func TestVisibleFieldsMemberNominations(t *testing.T) {
	fields := VisibleFields(
		RoleMember,
		models.CycleStatusNominationsOpen,
		EntityNomination,
	)
	assert.True(t, fields.Empty())

	fields = VisibleFields(
		RoleMember,
		models.CycleStatusEvaluations,
		EntityNomination,
	)
	assert.True(t, fields.Contains("nominee_id"))
	assert.False(t, fields.Contains("justification"))
}

func TestVisibleFieldsSelectionPublicFromCompleted(t *testing.T) {
	fields := VisibleFields(
		RoleMember,
		models.CycleStatusApprovalPending,
		EntitySelection,
	)
	assert.True(t, fields.Empty())

	for _, status := range []models.CycleStatus{
		models.CycleStatusCompleted,
		models.CycleStatusArchived,
	} {
		fields = VisibleFields(RoleMember, status, EntitySelection)
		assert.True(t, fields.Contains("nominee_id"))
		assert.True(t, fields.Contains("rationale"))
	}
}

func TestVisibleFieldsVotes(t *testing.T) {
	// Committee members see ballots only once the selection stage starts
	fields := VisibleFields(
		RoleCommittee,
		models.CycleStatusInterviews,
		EntityVotes,
	)
	assert.True(t, fields.Empty())

	fields = VisibleFields(
		RoleCommittee,
		models.CycleStatusSelection,
		EntityVotes,
	)
	assert.True(t, fields.Contains("choice"))

	// Ordinary members never see individual ballots
	for _, status := range models.CycleStatuses {
		fields = VisibleFields(RoleMember, status, EntityVotes)
		assert.True(t, fields.Empty())
	}
}

func TestVisibleFieldsAdminAlwaysFull(t *testing.T) {
	for _, status := range models.CycleStatuses {
		fields := VisibleFields(RoleAdmin, status, EntityCycle)
		assert.True(t, fields.Contains("committee_members"))
		fields = VisibleFields(RoleAdmin, status, EntityScores)
		assert.True(t, fields.Contains("per_criterion"))
	}
}

func TestVisibleFieldsUnknownInputs(t *testing.T) {
	assert.True(
		t,
		VisibleFields("auditor", models.CycleStatusDraft, EntityCycle).Empty(),
	)
	assert.True(
		t,
		VisibleFields(RoleAdmin, "unknown", EntityCycle).Empty(),
	)
	assert.True(
		t,
		VisibleFields(RoleAdmin, models.CycleStatusDraft, "reports").Empty(),
	)
}

func TestFieldSetNames(t *testing.T) {
	fields := fieldSet("b", "a", "c")
	assert.Equal(t, []string{"a", "b", "c"}, fields.Names())
}
