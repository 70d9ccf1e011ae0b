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

// UpsertVote records a ballot, overwriting the same voter's prior ballot
// for the candidate if one exists. The caller is responsible for verifying
// that the ballot's voter is the acting member; this method only keys the
// write on (nomination, voter).
func (d *Database) UpsertVote(
	vote *models.Vote,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	var existing models.Vote
	result := db.Where(
		"nomination_id = ? AND voter_id = ?",
		vote.NominationID,
		vote.VoterID,
	).First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		if createResult := db.Create(vote); createResult.Error != nil {
			return createResult.Error
		}
		return nil
	}
	vote.ID = existing.ID
	vote.CastAt = existing.CastAt
	if saveResult := db.Save(vote); saveResult.Error != nil {
		return saveResult.Error
	}
	return nil
}

func (d *Database) GetVotesByNomination(
	nominationID uint,
	txn *Txn,
) ([]models.Vote, error) {
	var votes []models.Vote
	db := d.resolveDB(txn)
	if result := db.Where(
		"nomination_id = ?",
		nominationID,
	).Order("id").Find(&votes); result.Error != nil {
		return nil, result.Error
	}
	return votes, nil
}

func (d *Database) GetVotesByPosition(
	positionID uint,
	txn *Txn,
) ([]models.Vote, error) {
	var votes []models.Vote
	db := d.resolveDB(txn)
	if result := db.Where(
		"position_id = ?",
		positionID,
	).Order("id").Find(&votes); result.Error != nil {
		return nil, result.Error
	}
	return votes, nil
}

// CreateSelection records the final decision for a position, deactivating
// any prior active selection so at most one stays active
func (d *Database) CreateSelection(
	selection *models.Selection,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	result := db.Model(&models.Selection{}).
		Where("position_id = ? AND active = ?", selection.PositionID, true).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	selection.Active = true
	if createResult := db.Create(selection); createResult.Error != nil {
		return createResult.Error
	}
	return nil
}

// GetActiveSelection returns the active selection for a position, or nil
// when the position is undecided
func (d *Database) GetActiveSelection(
	positionID uint,
	txn *Txn,
) (*models.Selection, error) {
	var selection models.Selection
	db := d.resolveDB(txn)
	result := db.Where(
		"position_id = ? AND active = ?",
		positionID,
		true,
	).First(&selection)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &selection, nil
}
