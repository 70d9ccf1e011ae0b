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

package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
)

// ExportFormat selects the audit export encoding
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

var csvHeader = []string{
	"id",
	"actor_id",
	"action",
	"entity_type",
	"entity_id",
	"before",
	"after",
	"timestamp",
}

// Export writes filtered audit entries to w in the requested format. CSV
// output uses RFC 4180 quoting, so free-text before/after summaries with
// commas or quotes survive a round trip.
func (r *Recorder) Export(
	w io.Writer,
	filter database.AuditFilter,
	format ExportFormat,
) error {
	entries, err := r.db.GetAuditLogEntries(filter, nil)
	if err != nil {
		return fmt.Errorf("failed to query audit entries: %w", err)
	}
	switch format {
	case ExportFormatCSV:
		return writeCSV(w, entries)
	case ExportFormatJSON:
		return writeJSON(w, entries)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

func writeCSV(w io.Writer, entries []models.AuditLogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		record := []string{
			strconv.FormatUint(uint64(entry.ID), 10),
			strconv.FormatUint(entry.ActorID, 10),
			entry.Action,
			entry.EntityType,
			strconv.FormatUint(uint64(entry.EntityID), 10),
			entry.Before,
			entry.After,
			entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type exportEntry struct {
	ID         uint   `json:"id"`
	ActorID    uint64 `json:"actor_id"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
	Before     string `json:"before,omitempty"`
	After      string `json:"after,omitempty"`
	Timestamp  string `json:"timestamp"`
}

func writeJSON(w io.Writer, entries []models.AuditLogEntry) error {
	out := make([]exportEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, exportEntry{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			Action:     entry.Action,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Before:     entry.Before,
			After:      entry.After,
			Timestamp:  entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
