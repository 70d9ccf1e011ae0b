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

package models

import (
	"time"

	"github.com/blinklabs-io/baton/database/types"
)

// CycleStatus is the lifecycle stage of a succession cycle. The set of
// statuses is closed; transitions between them are owned by the succession
// state machine and are never written directly.
type CycleStatus string

const (
	CycleStatusDraft              CycleStatus = "draft"
	CycleStatusActive             CycleStatus = "active"
	CycleStatusNominationsOpen    CycleStatus = "nominations_open"
	CycleStatusNominationsClosed  CycleStatus = "nominations_closed"
	CycleStatusApplicationsOpen   CycleStatus = "applications_open"
	CycleStatusApplicationsClosed CycleStatus = "applications_closed"
	CycleStatusEvaluations        CycleStatus = "evaluations"
	CycleStatusEvaluationsClosed  CycleStatus = "evaluations_closed"
	CycleStatusInterviews         CycleStatus = "interviews"
	CycleStatusInterviewsClosed   CycleStatus = "interviews_closed"
	CycleStatusSelection          CycleStatus = "selection"
	CycleStatusApprovalPending    CycleStatus = "approval_pending"
	CycleStatusCompleted          CycleStatus = "completed"
	CycleStatusArchived           CycleStatus = "archived"
)

// CycleStatuses lists all statuses in lifecycle order
var CycleStatuses = []CycleStatus{
	CycleStatusDraft,
	CycleStatusActive,
	CycleStatusNominationsOpen,
	CycleStatusNominationsClosed,
	CycleStatusApplicationsOpen,
	CycleStatusApplicationsClosed,
	CycleStatusEvaluations,
	CycleStatusEvaluationsClosed,
	CycleStatusInterviews,
	CycleStatusInterviewsClosed,
	CycleStatusSelection,
	CycleStatusApprovalPending,
	CycleStatusCompleted,
	CycleStatusArchived,
}

// Valid returns true if the status is a known lifecycle stage
func (s CycleStatus) Valid() bool {
	for _, status := range CycleStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal returns true for statuses with no forward transition
func (s CycleStatus) Terminal() bool {
	return s == CycleStatusArchived
}

// AcceptsCandidacies returns true while new nominations or applications may
// be recorded for the cycle
func (s CycleStatus) AcceptsCandidacies() bool {
	switch s {
	case CycleStatusNominationsOpen, CycleStatusApplicationsOpen:
		return true
	default:
		return false
	}
}

// SuccessionCycle is one full run of the succession process for a given
// year. Cycles are never physically deleted; a finished cycle is archived.
type SuccessionCycle struct {
	ID                  uint               `gorm:"primarykey"`
	Year                int                `gorm:"index"`
	Name                string             `gorm:"index"`
	Description         string
	Status              CycleStatus        `gorm:"index;size:32"`
	StartDate           time.Time
	EndDate             time.Time
	StageDeadline       time.Time          `gorm:"index"`
	IsPublished         bool               `gorm:"default:false"`
	AcceptsApplications bool               `gorm:"default:false"`
	CommitteeMembers    types.MemberIDList `gorm:"type:text"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (SuccessionCycle) TableName() string {
	return "succession_cycle"
}

// IsCommitteeMember returns true if the given member sits on the cycle's
// selection committee
func (c *SuccessionCycle) IsCommitteeMember(memberID uint64) bool {
	return c.CommitteeMembers.Contains(memberID)
}

// SeatedCommitteeSize returns the number of seated committee members
func (c *SuccessionCycle) SeatedCommitteeSize() int {
	return len(c.CommitteeMembers)
}
