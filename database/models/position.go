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

// Position is a leadership role being filled within a cycle. Lower
// hierarchy levels are more senior. The eligibility criteria are stored
// inline since they are immutable once nominations open (admin override
// excepted, which is audited).
type Position struct {
	ID                   uint    `gorm:"primarykey"`
	CycleID              uint    `gorm:"index"`
	Title                string  `gorm:"index"`
	HierarchyLevel       int
	Open                 bool    `gorm:"default:true"`
	MinTenureYears       float64
	MinEventsOrganized   int
	MinTrainingsAttended int
	MinPeerNominations   int
	RequiredPriorRole    string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (Position) TableName() string {
	return "position"
}
