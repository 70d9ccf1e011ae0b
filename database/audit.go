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
	"time"

	"github.com/blinklabs-io/baton/database/models"
)

func (d *Database) CreateAuditLogEntry(
	entry *models.AuditLogEntry,
	txn *Txn,
) error {
	db := d.resolveDB(txn)
	if result := db.Create(entry); result.Error != nil {
		return result.Error
	}
	return nil
}

// AuditFilter selects audit log entries for export. Zero values mean no
// filtering on that field.
type AuditFilter struct {
	ActorID    uint64
	Action     string
	EntityType string
	EntityID   uint
	From       time.Time
	To         time.Time
	Limit      int
}

// GetAuditLogEntries returns entries matching the filter in insertion
// order. The audit log is append-only, so insertion order is time order.
func (d *Database) GetAuditLogEntries(
	filter AuditFilter,
	txn *Txn,
) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	db := d.resolveDB(txn).Model(&models.AuditLogEntry{})
	if filter.ActorID != 0 {
		db = db.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		db = db.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != 0 {
		db = db.Where("entity_id = ?", filter.EntityID)
	}
	if !filter.From.IsZero() {
		db = db.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("created_at < ?", filter.To)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if result := db.Order("id").Find(&entries); result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}
