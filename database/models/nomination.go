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
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NominationStatus tracks the candidacy record itself. Withdrawal and
// disqualification are status changes, never deletions, so the audit trail
// stays intact.
type NominationStatus string

const (
	NominationStatusSubmitted    NominationStatus = "submitted"
	NominationStatusWithdrawn    NominationStatus = "withdrawn"
	NominationStatusDisqualified NominationStatus = "disqualified"
)

// NominationProvenance distinguishes the three paths a candidacy can take:
// a third-party nomination, a self-nomination (application), or a
// secondment proposed on someone's behalf pending their consent.
type NominationProvenance string

const (
	ProvenanceNomination  NominationProvenance = "nomination"
	ProvenanceApplication NominationProvenance = "application"
	ProvenanceSecondment  NominationProvenance = "secondment"
)

// ConsentStatus gates promotion of a secondment to a full candidacy. Empty
// for nominations and applications.
type ConsentStatus string

const (
	ConsentStatusPending  ConsentStatus = "pending"
	ConsentStatusAccepted ConsentStatus = "accepted"
	ConsentStatusDeclined ConsentStatus = "declined"
)

// EvidenceItem is one entry in a candidacy's supporting evidence list
type EvidenceItem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// EvidenceList stores ordered supporting evidence as a JSON column
//
//nolint:recvcheck
type EvidenceList []EvidenceItem

func (l EvidenceList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]EvidenceItem(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *EvidenceList) Scan(val any) error {
	var data []byte
	switch v := val.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	var tmp []EvidenceItem
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("failed to decode evidence list: %w", err)
	}
	*l = EvidenceList(tmp)
	return nil
}

// Nomination is a candidacy for a position within a cycle. The unique index
// on (position, nominee) means a second submission for the same pair merges
// evidence into the existing record rather than creating a duplicate.
type Nomination struct {
	ID            uint                 `gorm:"primarykey"`
	CycleID       uint                 `gorm:"index"`
	PositionID    uint                 `gorm:"uniqueIndex:idx_nomination_position_nominee"`
	NomineeID     uint64               `gorm:"uniqueIndex:idx_nomination_position_nominee"`
	NominatorID   uint64               `gorm:"index"`
	Justification string               `gorm:"type:text"`
	Evidence      EvidenceList         `gorm:"type:text"`
	Status        NominationStatus     `gorm:"index;size:16"`
	Provenance    NominationProvenance `gorm:"size:16"`
	ConsentStatus ConsentStatus        `gorm:"size:16"`
	SubmittedAt   time.Time            `gorm:"index"`
	UpdatedAt     time.Time
}

func (Nomination) TableName() string {
	return "nomination"
}

// ActiveCandidacy returns true when the record represents a live candidacy:
// submitted and, for a secondment, consented to by the nominee
func (n *Nomination) ActiveCandidacy() bool {
	if n.Status != NominationStatusSubmitted {
		return false
	}
	if n.Provenance == ProvenanceSecondment {
		return n.ConsentStatus == ConsentStatusAccepted
	}
	return true
}

// CandidateSnapshot pins the roster of candidates scored for a position.
// Taken when the cycle enters evaluations so later eligibility changes do
// not silently alter who is scored. TotalScore is filled in when the
// evaluations stage closes.
type CandidateSnapshot struct {
	ID           uint    `gorm:"primarykey"`
	CycleID      uint    `gorm:"index"`
	PositionID   uint    `gorm:"uniqueIndex:idx_snapshot_position_nominee"`
	NomineeID    uint64  `gorm:"uniqueIndex:idx_snapshot_position_nominee"`
	NominationID uint    `gorm:"index"`
	TotalScore   float64
	Scored       bool
	SnapshotAt   time.Time
}

func (CandidateSnapshot) TableName() string {
	return "candidate_snapshot"
}
