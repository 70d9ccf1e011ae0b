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

package database

import (
	"errors"

	"github.com/blinklabs-io/baton/database/models"
	"gorm.io/gorm"
)

func (d *Database) CreateInterviewSlot(
	slot *models.InterviewSlot,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(slot); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetInterviewSlot(
	slotID uint,
	txn *Txn,
) (*models.InterviewSlot, error) {
	var slot models.InterviewSlot
	db := d.resolveDB(txn)
	if result := db.First(&slot, slotID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrSlotNotFound
		}
		return nil, result.Error
	}
	return &slot, nil
}

// GetSlotByNomination returns the candidate's interview slot, or nil when
// none has been scheduled
func (d *Database) GetSlotByNomination(
	nominationID uint,
	txn *Txn,
) (*models.InterviewSlot, error) {
	var slot models.InterviewSlot
	db := d.resolveDB(txn)
	result := db.Where(
		"nomination_id = ?",
		nominationID,
	).First(&slot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &slot, nil
}

func (d *Database) GetSlotsByPosition(
	positionID uint,
	txn *Txn,
) ([]models.InterviewSlot, error) {
	var slots []models.InterviewSlot
	db := d.resolveDB(txn)
	if result := db.Where(
		"position_id = ?",
		positionID,
	).Order("scheduled_at, id").Find(&slots); result.Error != nil {
		return nil, result.Error
	}
	return slots, nil
}

// UpsertInterviewFeedback writes a panelist's feedback for a candidate,
// replacing any prior feedback from the same panelist
func (d *Database) UpsertInterviewFeedback(
	feedback *models.InterviewFeedback,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	var existing models.InterviewFeedback
	result := db.Where(
		"nomination_id = ? AND panelist_id = ?",
		feedback.NominationID,
		feedback.PanelistID,
	).First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		if createResult := db.Create(feedback); createResult.Error != nil {
			return createResult.Error
		}
		return nil
	}
	feedback.ID = existing.ID
	feedback.SubmittedAt = existing.SubmittedAt
	if saveResult := db.Save(feedback); saveResult.Error != nil {
		return saveResult.Error
	}
	return nil
}

func (d *Database) GetFeedbackByNomination(
	nominationID uint,
	txn *Txn,
) ([]models.InterviewFeedback, error) {
	var feedback []models.InterviewFeedback
	db := d.resolveDB(txn)
	if result := db.Where(
		"nomination_id = ?",
		nominationID,
	).Order("id").Find(&feedback); result.Error != nil {
		return nil, result.Error
	}
	return feedback, nil
}
