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

// InterviewSlot is an admin-assigned interview time for a candidate with a
// panel of members. No automated scheduling; slots are created by hand.
type InterviewSlot struct {
	ID           uint               `gorm:"primarykey"`
	CycleID      uint               `gorm:"index"`
	PositionID   uint               `gorm:"index"`
	NominationID uint               `gorm:"index"`
	ScheduledAt  time.Time          `gorm:"index"`
	Panel        types.MemberIDList `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (InterviewSlot) TableName() string {
	return "interview_slot"
}

// Elapsed returns true once the slot's scheduled time has passed
func (s *InterviewSlot) Elapsed(now time.Time) bool {
	return now.After(s.ScheduledAt)
}

// InterviewFeedback is structured free-text feedback keyed by (candidate,
// panelist). Accepted only after the candidate's slot time has elapsed.
type InterviewFeedback struct {
	ID           uint   `gorm:"primarykey"`
	NominationID uint   `gorm:"uniqueIndex:idx_feedback_nomination_panelist"`
	PanelistID   uint64 `gorm:"uniqueIndex:idx_feedback_nomination_panelist"`
	Feedback     string `gorm:"type:text"`
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

func (InterviewFeedback) TableName() string {
	return "interview_feedback"
}
