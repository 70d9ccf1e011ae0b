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
	"sort"

	"github.com/blinklabs-io/baton/database/models"
)

// Role is a viewer's relationship to a cycle, resolved by the caller
// before asking the policy what the viewer may see
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCommittee Role = "committee"
	RoleEvaluator Role = "evaluator"
	// RoleCandidate is a member viewing their own candidacy
	RoleCandidate Role = "candidate"
	RoleMember    Role = "member"
)

// Entity names a record kind the policy covers
type Entity string

const (
	EntityCycle      Entity = "cycle"
	EntityNomination Entity = "nomination"
	EntityScores     Entity = "scores"
	EntityVotes      Entity = "votes"
	EntitySelection  Entity = "selection"
)

// FieldSet is the set of field names a viewer may see
type FieldSet map[string]struct{}

func (f FieldSet) Contains(field string) bool {
	_, ok := f[field]
	return ok
}

func (f FieldSet) Empty() bool {
	return len(f) == 0
}

// Names returns the visible field names sorted for stable output
func (f FieldSet) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldSet(fields ...string) FieldSet {
	fs := make(FieldSet, len(fields))
	for _, field := range fields {
		fs[field] = struct{}{}
	}
	return fs
}

func (f FieldSet) union(other FieldSet) FieldSet {
	merged := make(FieldSet, len(f)+len(other))
	for field := range f {
		merged[field] = struct{}{}
	}
	for field := range other {
		merged[field] = struct{}{}
	}
	return merged
}

// visibilityRule grants a field set to a role for an entity, optionally
// gated on the cycle having reached a stage
type visibilityRule struct {
	entity Entity
	role   Role
	// from gates the grant on the cycle having reached this stage;
	// empty means the grant applies at every stage
	from   models.CycleStatus
	fields FieldSet
}

var (
	cyclePublicFields = fieldSet(
		"id", "year", "name", "description", "status",
		"start_date", "end_date", "stage_deadline",
	)
	cycleAdminFields = cyclePublicFields.union(fieldSet(
		"is_published", "accepts_applications", "committee_members",
		"created_at", "updated_at",
	))
	nominationOwnFields = fieldSet(
		"id", "position_id", "nominee_id", "status", "provenance",
		"consent_status", "justification", "evidence", "submitted_at",
	)
	nominationPublicFields = fieldSet(
		"id", "position_id", "nominee_id", "status",
	)
	nominationFullFields = nominationOwnFields.union(fieldSet(
		"nominator_id", "updated_at",
	))
	scoreFullFields = fieldSet(
		"nomination_id", "nominee_id", "total", "per_criterion",
		"unanimity", "submitted_at",
	)
	scoreOwnFields = fieldSet(
		"nomination_id", "total",
	)
	voteFields = fieldSet(
		"nomination_id", "voter_id", "choice", "cast_at",
	)
	selectionFields = fieldSet(
		"position_id", "nomination_id", "nominee_id", "rationale",
		"selected_at",
	)
)

// visibilityRules is the single table driving VisibleFields. Admins see
// everything at every stage; everyone else gains fields as the cycle
// progresses.
var visibilityRules = []visibilityRule{
	{entity: EntityCycle, role: RoleAdmin, fields: cycleAdminFields},
	{entity: EntityCycle, role: RoleCommittee, fields: cycleAdminFields},
	{entity: EntityCycle, role: RoleEvaluator, fields: cyclePublicFields},
	{entity: EntityCycle, role: RoleCandidate, fields: cyclePublicFields},
	{entity: EntityCycle, role: RoleMember, fields: cyclePublicFields},

	{entity: EntityNomination, role: RoleAdmin, fields: nominationFullFields},
	{
		entity: EntityNomination,
		role:   RoleCommittee,
		fields: nominationFullFields,
	},
	// Evaluators see candidacy substance but never who nominated
	{
		entity: EntityNomination,
		role:   RoleEvaluator,
		fields: nominationOwnFields,
	},
	{
		entity: EntityNomination,
		role:   RoleCandidate,
		fields: nominationOwnFields,
	},
	{
		entity: EntityNomination,
		role:   RoleMember,
		from:   models.CycleStatusEvaluations,
		fields: nominationPublicFields,
	},

	{entity: EntityScores, role: RoleAdmin, fields: scoreFullFields},
	{
		entity: EntityScores,
		role:   RoleCommittee,
		from:   models.CycleStatusEvaluationsClosed,
		fields: scoreFullFields,
	},
	// Candidates learn their own total only after scores are finalized
	{
		entity: EntityScores,
		role:   RoleCandidate,
		from:   models.CycleStatusEvaluationsClosed,
		fields: scoreOwnFields,
	},

	{entity: EntityVotes, role: RoleAdmin, fields: voteFields},
	{
		entity: EntityVotes,
		role:   RoleCommittee,
		from:   models.CycleStatusSelection,
		fields: voteFields,
	},

	{entity: EntitySelection, role: RoleAdmin, fields: selectionFields},
	{
		entity: EntitySelection,
		role:   RoleCommittee,
		from:   models.CycleStatusSelection,
		fields: selectionFields,
	},
	{
		entity: EntitySelection,
		role:   RoleCandidate,
		from:   models.CycleStatusCompleted,
		fields: selectionFields,
	},
	{
		entity: EntitySelection,
		role:   RoleMember,
		from:   models.CycleStatusCompleted,
		fields: selectionFields,
	},
}

// stageIndex orders statuses for "from this stage onward" comparisons.
// The applications stages sit between nominations and evaluations whether
// or not a given cycle uses them.
func stageIndex(status models.CycleStatus) int {
	for idx, s := range models.CycleStatuses {
		if s == status {
			return idx
		}
	}
	return -1
}

// VisibleFields returns the fields of an entity a viewer with the given
// role may see while the cycle is at the given stage. Unknown roles,
// entities, and stages see nothing. Pure; reads only the rule table.
func VisibleFields(
	role Role,
	status models.CycleStatus,
	entity Entity,
) FieldSet {
	current := stageIndex(status)
	if current < 0 {
		return FieldSet{}
	}
	visible := FieldSet{}
	for _, rule := range visibilityRules {
		if rule.entity != entity || rule.role != role {
			continue
		}
		if rule.from != "" && current < stageIndex(rule.from) {
			continue
		}
		visible = visible.union(rule.fields)
	}
	return visible
}
