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
	"time"

	"github.com/blinklabs-io/baton/database/models"
	"gorm.io/gorm"
)

func (d *Database) CreateNomination(
	nomination *models.Nomination,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(nomination); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) UpdateNomination(
	nomination *models.Nomination,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Save(nomination); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetNomination(
	nominationID uint,
	txn *Txn,
) (*models.Nomination, error) {
	var nomination models.Nomination
	db := d.resolveDB(txn)
	if result := db.First(&nomination, nominationID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrNominationNotFound
		}
		return nil, result.Error
	}
	return &nomination, nil
}

// GetNominationByPair returns the candidacy record for a (position,
// nominee) pair, or nil when none exists. The pair is unique, so duplicate
// submissions merge into whatever this returns.
func (d *Database) GetNominationByPair(
	positionID uint,
	nomineeID uint64,
	txn *Txn,
) (*models.Nomination, error) {
	var nomination models.Nomination
	db := d.resolveDB(txn)
	result := db.Where(
		"position_id = ? AND nominee_id = ?",
		positionID,
		nomineeID,
	).First(&nomination)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &nomination, nil
}

func (d *Database) GetNominationsByPosition(
	positionID uint,
	activeOnly bool,
	txn *Txn,
) ([]models.Nomination, error) {
	var nominations []models.Nomination
	db := d.resolveDB(txn).Where("position_id = ?", positionID)
	if activeOnly {
		db = db.Where("status = ?", models.NominationStatusSubmitted).
			Where(
				"provenance != ? OR consent_status = ?",
				models.ProvenanceSecondment,
				models.ConsentStatusAccepted,
			)
	}
	if result := db.Order("submitted_at, id").
		Find(&nominations); result.Error != nil {
		return nil, result.Error
	}
	return nominations, nil
}

func (d *Database) CreateCandidateSnapshot(
	snapshot *models.CandidateSnapshot,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(snapshot); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetCandidateSnapshots(
	positionID uint,
	txn *Txn,
) ([]models.CandidateSnapshot, error) {
	var snapshots []models.CandidateSnapshot
	db := d.resolveDB(txn)
	if result := db.Where(
		"position_id = ?",
		positionID,
	).Order("id").Find(&snapshots); result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

// SetSnapshotScore records the finalized weighted total for a snapshotted
// candidate when the evaluations stage closes
func (d *Database) SetSnapshotScore(
	snapshotID uint,
	totalScore float64,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	result := db.Model(&models.CandidateSnapshot{}).
		Where("id = ?", snapshotID).
		Updates(map[string]any{
			"total_score": totalScore,
			"scored":      true,
		})
	return result.Error
}

// GetSnapshotByPair returns the snapshot row for a (position, nominee)
// pair, or nil when the candidate was not snapshotted
func (d *Database) GetSnapshotByPair(
	positionID uint,
	nomineeID uint64,
	txn *Txn,
) (*models.CandidateSnapshot, error) {
	var snapshot models.CandidateSnapshot
	db := d.resolveDB(txn)
	result := db.Where(
		"position_id = ? AND nominee_id = ?",
		positionID,
		nomineeID,
	).First(&snapshot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &snapshot, nil
}

// touchNomination is a small helper for status changes that must also bump
// UpdatedAt even when gorm would consider the struct unchanged
func (d *Database) touchNomination(
	nominationID uint,
	updates map[string]any,
	txn *Txn,
) error {
	updates["updated_at"] = time.Now()
	db := d.resolveDB(txn)
	result := db.Model(&models.Nomination{}).
		Where("id = ?", nominationID).
		Updates(updates)
	return result.Error
}

// SetNominationStatus updates just the status of a nomination
func (d *Database) SetNominationStatus(
	nominationID uint,
	status models.NominationStatus,
	txn *Txn,
) error {
	return d.touchNomination(
		nominationID,
		map[string]any{"status": status},
		txn,
	)
}
