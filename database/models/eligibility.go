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

// EligibilityStatus is the derived qualification state of a member for a
// position. Pending means the upstream member data source could not be
// queried; it is never reported as ineligible.
type EligibilityStatus string

const (
	EligibilityStatusPending    EligibilityStatus = "pending"
	EligibilityStatusEligible   EligibilityStatus = "eligible"
	EligibilityStatusIneligible EligibilityStatus = "ineligible"
)

// EligibilityRecord is the derived qualification of a member for a
// position. Records are always recomputed from current member data and the
// position's criteria; they are never hand-edited. Reasons holds the
// per-criterion breakdown as canonical JSON so that recomputation with
// unchanged inputs produces a byte-identical record.
type EligibilityRecord struct {
	ID         uint              `gorm:"primarykey"`
	PositionID uint              `gorm:"uniqueIndex:idx_eligibility_position_member"`
	MemberID   uint64            `gorm:"uniqueIndex:idx_eligibility_position_member"`
	Status     EligibilityStatus `gorm:"index;size:16"`
	Reasons    string            `gorm:"type:text"`
	Checksum   string            `gorm:"size:64"`
	ComputedAt time.Time
}

func (EligibilityRecord) TableName() string {
	return "eligibility_record"
}

// Eligible returns true only for an affirmative eligibility result
func (r *EligibilityRecord) Eligible() bool {
	return r.Status == EligibilityStatusEligible
}
