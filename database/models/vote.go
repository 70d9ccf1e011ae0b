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

import "time"

// VoteChoice is a committee member's ballot on one candidate
type VoteChoice string

const (
	VoteChoiceYes     VoteChoice = "yes"
	VoteChoiceNo      VoteChoice = "no"
	VoteChoiceAbstain VoteChoice = "abstain"
)

// Valid returns true for a known ballot choice
func (v VoteChoice) Valid() bool {
	switch v {
	case VoteChoiceYes, VoteChoiceNo, VoteChoiceAbstain:
		return true
	default:
		return false
	}
}

// Vote is one committee ballot on one candidate for one position. The
// unique index makes resubmission by the same voter overwrite their own
// prior ballot only.
type Vote struct {
	ID           uint       `gorm:"primarykey"`
	CycleID      uint       `gorm:"index"`
	PositionID   uint       `gorm:"index"`
	NominationID uint       `gorm:"uniqueIndex:idx_vote_nomination_voter"`
	VoterID      uint64     `gorm:"uniqueIndex:idx_vote_nomination_voter"`
	Choice       VoteChoice `gorm:"size:8"`
	Comments     string     `gorm:"type:text"`
	CastAt       time.Time
	UpdatedAt    time.Time
}

func (Vote) TableName() string {
	return "vote"
}

// Selection is the final, admin-confirmed decision for a position. At most
// one active selection may exist per position; superseded selections are
// kept inactive for the audit trail.
type Selection struct {
	ID           uint   `gorm:"primarykey"`
	CycleID      uint   `gorm:"index"`
	PositionID   uint   `gorm:"index"`
	NominationID uint   `gorm:"index"`
	NomineeID    uint64 `gorm:"index"`
	Rationale    string `gorm:"type:text"`
	DecidedBy    uint64
	DecidedAt    time.Time
	Active       bool `gorm:"index;default:true"`
}

func (Selection) TableName() string {
	return "selection"
}
