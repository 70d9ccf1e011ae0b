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

func (d *Database) CreatePosition(
	position *models.Position,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(position); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetPosition(
	positionID uint,
	txn *Txn,
) (*models.Position, error) {
	var position models.Position
	db := d.resolveDB(txn)
	if result := db.First(&position, positionID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrPositionNotFound
		}
		return nil, result.Error
	}
	return &position, nil
}

func (d *Database) UpdatePosition(
	position *models.Position,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Save(position); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetPositionsByCycle returns a cycle's positions ordered by seniority
// (lower hierarchy level first)
func (d *Database) GetPositionsByCycle(
	cycleID uint,
	openOnly bool,
	txn *Txn,
) ([]models.Position, error) {
	var positions []models.Position
	db := d.resolveDB(txn).Where("cycle_id = ?", cycleID)
	if openOnly {
		db = db.Where("open = ?", true)
	}
	if result := db.Order("hierarchy_level, id").
		Find(&positions); result.Error != nil {
		return nil, result.Error
	}
	return positions, nil
}
