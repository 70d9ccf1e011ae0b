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

func (d *Database) CreateCycle(
	cycle *models.SuccessionCycle,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(cycle); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetCycle(
	cycleID uint,
	txn *Txn,
) (*models.SuccessionCycle, error) {
	var cycle models.SuccessionCycle
	db := d.resolveDB(txn)
	if result := db.First(&cycle, cycleID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCycleNotFound
		}
		return nil, result.Error
	}
	return &cycle, nil
}

func (d *Database) UpdateCycle(
	cycle *models.SuccessionCycle,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Save(cycle); result.Error != nil {
		return result.Error
	}
	return nil
}

// SetCycleStatus moves a cycle to a new status with an optimistic check on
// the expected current status. Returns false without error when the check
// fails, meaning another writer won the transition.
func (d *Database) SetCycleStatus(
	cycleID uint,
	from models.CycleStatus,
	to models.CycleStatus,
	stageDeadline time.Time,
	txn *Txn,
) (bool, error) {
	db := d.resolveDB(txn)
	result := db.Model(&models.SuccessionCycle{}).
		Where("id = ? AND status = ?", cycleID, from).
		Updates(map[string]any{
			"status":         to,
			"stage_deadline": stageDeadline,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetNonTerminalCycles returns all cycles that can still progress. Used by
// the automation scheduler each tick.
func (d *Database) GetNonTerminalCycles(
	txn *Txn,
) ([]models.SuccessionCycle, error) {
	var cycles []models.SuccessionCycle
	db := d.resolveDB(txn)
	if result := db.Where(
		"status NOT IN ?",
		[]models.CycleStatus{
			models.CycleStatusCompleted,
			models.CycleStatusArchived,
		},
	).Order("id").Find(&cycles); result.Error != nil {
		return nil, result.Error
	}
	return cycles, nil
}

func (d *Database) GetCyclesByStatus(
	status models.CycleStatus,
	txn *Txn,
) ([]models.SuccessionCycle, error) {
	var cycles []models.SuccessionCycle
	db := d.resolveDB(txn)
	if result := db.Where(
		"status = ?",
		status,
	).Order("id").Find(&cycles); result.Error != nil {
		return nil, result.Error
	}
	return cycles, nil
}
