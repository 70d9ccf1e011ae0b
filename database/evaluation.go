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

func (d *Database) CreateCriterion(
	criterion *models.EvaluationCriterion,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(criterion); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetCriteriaByPosition returns a position's rubric in stable name order.
// Aggregation iterates this, so name order is the canonical criterion
// order everywhere.
func (d *Database) GetCriteriaByPosition(
	positionID uint,
	txn *Txn,
) ([]models.EvaluationCriterion, error) {
	var criteria []models.EvaluationCriterion
	db := d.resolveDB(txn)
	if result := db.Where(
		"position_id = ?",
		positionID,
	).Order("name").Find(&criteria); result.Error != nil {
		return nil, result.Error
	}
	return criteria, nil
}

func (d *Database) CreateEvaluator(
	evaluator *models.Evaluator,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(evaluator); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) UpdateEvaluator(
	evaluator *models.Evaluator,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Save(evaluator); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetEvaluator(
	evaluatorID uint,
	txn *Txn,
) (*models.Evaluator, error) {
	var evaluator models.Evaluator
	db := d.resolveDB(txn)
	if result := db.First(&evaluator, evaluatorID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrEvaluatorNotFound
		}
		return nil, result.Error
	}
	return &evaluator, nil
}

// GetEvaluatorByMember returns the evaluator row for a member on a
// position, or nil when the member is not an assigned evaluator
func (d *Database) GetEvaluatorByMember(
	positionID uint,
	memberID uint64,
	txn *Txn,
) (*models.Evaluator, error) {
	var evaluator models.Evaluator
	db := d.resolveDB(txn)
	result := db.Where(
		"position_id = ? AND member_id = ?",
		positionID,
		memberID,
	).First(&evaluator)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &evaluator, nil
}

func (d *Database) GetEvaluatorsByPosition(
	positionID uint,
	includeRecused bool,
	txn *Txn,
) ([]models.Evaluator, error) {
	var evaluators []models.Evaluator
	db := d.resolveDB(txn).Where("position_id = ?", positionID)
	if !includeRecused {
		db = db.Where("recused = ?", false)
	}
	if result := db.Order("id").Find(&evaluators); result.Error != nil {
		return nil, result.Error
	}
	return evaluators, nil
}

func (d *Database) CreateAssignment(
	assignment *models.EvaluatorAssignment,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(assignment); result.Error != nil {
		return result.Error
	}
	return nil
}

func (d *Database) GetAssignmentsByEvaluator(
	evaluatorID uint,
	txn *Txn,
) ([]models.EvaluatorAssignment, error) {
	var assignments []models.EvaluatorAssignment
	db := d.resolveDB(txn)
	if result := db.Where(
		"evaluator_id = ?",
		evaluatorID,
	).Order("id").Find(&assignments); result.Error != nil {
		return nil, result.Error
	}
	return assignments, nil
}

// UpsertEvaluationScore writes one rubric score, overwriting the same
// evaluator's prior score for the (candidate, criterion) key if present
func (d *Database) UpsertEvaluationScore(
	score *models.EvaluationScore,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	var existing models.EvaluationScore
	result := db.Where(
		"evaluator_id = ? AND nomination_id = ? AND criterion_id = ?",
		score.EvaluatorID,
		score.NominationID,
		score.CriterionID,
	).First(&existing)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		if createResult := db.Create(score); createResult.Error != nil {
			return createResult.Error
		}
		return nil
	}
	score.ID = existing.ID
	score.CreatedAt = existing.CreatedAt
	if saveResult := db.Save(score); saveResult.Error != nil {
		return saveResult.Error
	}
	return nil
}

// GetScoresByPosition returns all scores submitted by the position's
// evaluators, recused included. Aggregation filters on the evaluator set
// it cares about.
func (d *Database) GetScoresByPosition(
	positionID uint,
	txn *Txn,
) ([]models.EvaluationScore, error) {
	var scores []models.EvaluationScore
	db := d.resolveDB(txn)
	result := db.
		Joins("JOIN evaluator ON evaluator.id = evaluation_score.evaluator_id").
		Where("evaluator.position_id = ?", positionID).
		Order("evaluation_score.id").
		Find(&scores)
	if result.Error != nil {
		return nil, result.Error
	}
	return scores, nil
}
