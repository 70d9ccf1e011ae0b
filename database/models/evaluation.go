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

// EvaluationCriterion is one rubric entry for a position. Weights across a
// position's criteria must sum to 1.0; this is validated at creation time
// by the evaluation engine.
type EvaluationCriterion struct {
	ID         uint    `gorm:"primarykey"`
	CycleID    uint    `gorm:"index"`
	PositionID uint    `gorm:"uniqueIndex:idx_criterion_position_name"`
	Name       string  `gorm:"uniqueIndex:idx_criterion_position_name"`
	Weight     float64
	CreatedAt  time.Time
}

func (EvaluationCriterion) TableName() string {
	return "evaluation_criterion"
}

// Evaluator assigns a member to score candidates for a position. A recused
// evaluator's scores are excluded from aggregation and their outstanding
// assignments do not block closing the stage.
type Evaluator struct {
	ID            uint   `gorm:"primarykey"`
	CycleID       uint   `gorm:"index"`
	PositionID    uint   `gorm:"uniqueIndex:idx_evaluator_position_member"`
	MemberID      uint64 `gorm:"uniqueIndex:idx_evaluator_position_member"`
	Recused       bool   `gorm:"default:false"`
	RecusalReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Evaluator) TableName() string {
	return "evaluator"
}

// EvaluatorAssignment maps an evaluator to one candidate they must score
type EvaluatorAssignment struct {
	ID           uint `gorm:"primarykey"`
	EvaluatorID  uint `gorm:"uniqueIndex:idx_assignment_evaluator_nomination"`
	NominationID uint `gorm:"uniqueIndex:idx_assignment_evaluator_nomination"`
	CreatedAt    time.Time
}

func (EvaluatorAssignment) TableName() string {
	return "evaluator_assignment"
}

// EvaluationScore is one rubric score. The unique index makes resubmission
// an overwrite of the evaluator's own prior score, never a duplicate row.
type EvaluationScore struct {
	ID           uint    `gorm:"primarykey"`
	EvaluatorID  uint    `gorm:"uniqueIndex:idx_score_evaluator_nomination_criterion"`
	NominationID uint    `gorm:"uniqueIndex:idx_score_evaluator_nomination_criterion"`
	CriterionID  uint    `gorm:"uniqueIndex:idx_score_evaluator_nomination_criterion"`
	RawScore     float64
	Comments     string  `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (EvaluationScore) TableName() string {
	return "evaluation_score"
}
