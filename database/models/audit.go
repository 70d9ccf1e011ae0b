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

// SystemActorID is the actor recorded for writes made by the automation
// scheduler rather than a member
const SystemActorID uint64 = 0

// AuditLogEntry is an append-only record of one mutating operation. Entries
// are immutable once written; there are no update or delete paths.
type AuditLogEntry struct {
	ID         uint   `gorm:"primarykey"`
	ActorID    uint64 `gorm:"index"`
	Action     string `gorm:"index;size:64"`
	EntityType string `gorm:"index;size:64"`
	EntityID   uint   `gorm:"index"`
	Before     string `gorm:"type:text"`
	After      string `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}
