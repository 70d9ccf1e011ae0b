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

// Package audit is the single choke-point for mutation records. Every
// write anywhere in the engine goes through Recorder.Record so each change
// is attributable to an actor.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/event"
)

// RecordedEventType is published for every audit entry written
const RecordedEventType event.EventType = "audit.recorded"

// RecordedEvent is the event bus payload for a written audit entry
type RecordedEvent struct {
	Entry models.AuditLogEntry
}

// Entry describes one mutation to record. Before and After are marshaled
// to JSON; nil marshals to an empty string.
type Entry struct {
	ActorID    uint64
	Action     string
	EntityType string
	EntityID   uint
	Before     any
	After      any
}

// Recorder writes append-only audit entries and announces them on the
// event bus
type Recorder struct {
	db     *database.Database
	bus    *event.EventBus
	logger *slog.Logger
}

func NewRecorder(
	db *database.Database,
	bus *event.EventBus,
	logger *slog.Logger,
) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Recorder{
		db:     db,
		bus:    bus,
		logger: logger.With("component", "audit"),
	}
}

// Record writes one audit entry inside the caller's transaction. When txn
// is nil the entry is written directly. The bus announcement is
// best-effort and asynchronous.
func (r *Recorder) Record(txn *database.Txn, entry Entry) error {
	before, err := marshalSummary(entry.Before)
	if err != nil {
		return fmt.Errorf("failed to encode audit before summary: %w", err)
	}
	after, err := marshalSummary(entry.After)
	if err != nil {
		return fmt.Errorf("failed to encode audit after summary: %w", err)
	}
	row := models.AuditLogEntry{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Before:     before,
		After:      after,
		CreatedAt:  time.Now(),
	}
	if err := r.db.CreateAuditLogEntry(&row, txn); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	if r.bus != nil {
		r.bus.PublishAsync(
			RecordedEventType,
			event.NewEvent(RecordedEventType, RecordedEvent{Entry: row}),
		)
	}
	r.logger.Debug(
		"audit entry recorded",
		"actor", entry.ActorID,
		"action", entry.Action,
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
	)
	return nil
}

func marshalSummary(val any) (string, error) {
	if val == nil {
		return "", nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
