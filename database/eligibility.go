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

// UpsertEligibilityRecord writes a derived eligibility record for a
// (position, member) pair, replacing any prior record for the pair
func (d *Database) UpsertEligibilityRecord(
	record *models.EligibilityRecord,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	var existing models.EligibilityRecord
	result := db.Where(
		"position_id = ? AND member_id = ?",
		record.PositionID,
		record.MemberID,
	).First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		if createResult := db.Create(record); createResult.Error != nil {
			return createResult.Error
		}
		return nil
	}
	record.ID = existing.ID
	if saveResult := db.Save(record); saveResult.Error != nil {
		return saveResult.Error
	}
	return nil
}

func (d *Database) GetEligibilityRecord(
	positionID uint,
	memberID uint64,
	txn *Txn,
) (*models.EligibilityRecord, error) {
	var record models.EligibilityRecord
	db := d.resolveDB(txn)
	result := db.Where(
		"position_id = ? AND member_id = ?",
		positionID,
		memberID,
	).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

func (d *Database) GetEligibilityRecordsByPosition(
	positionID uint,
	txn *Txn,
) ([]models.EligibilityRecord, error) {
	var records []models.EligibilityRecord
	db := d.resolveDB(txn)
	if result := db.Where(
		"position_id = ?",
		positionID,
	).Order("member_id").Find(&records); result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// CountEligibleCandidates returns the number of active candidacies for a
// position whose nominee holds an eligible record. Used by the stage guard
// before entering evaluations.
func (d *Database) CountEligibleCandidates(
	positionID uint,
	txn *Txn,
) (int64, error) {
	var count int64
	db := d.resolveDB(txn)
	result := db.Model(&models.Nomination{}).
		Joins(
			"JOIN eligibility_record ON eligibility_record.position_id = nomination.position_id"+
				" AND eligibility_record.member_id = nomination.nominee_id",
		).
		Where("nomination.position_id = ?", positionID).
		Where("nomination.status = ?", models.NominationStatusSubmitted).
		Where(
			"nomination.provenance != ? OR nomination.consent_status = ?",
			models.ProvenanceSecondment,
			models.ConsentStatusAccepted,
		).
		Where("eligibility_record.status = ?", models.EligibilityStatusEligible).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
