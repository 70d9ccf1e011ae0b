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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/internal/config"
	"github.com/spf13/cobra"
)

var auditFlags = struct {
	format     string
	output     string
	actorID    uint64
	action     string
	entityType string
	entityID   uint
	from       string
	to         string
	limit      int
}{}

func auditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log operations",
	}
	cmd.AddCommand(auditExportCommand())
	return cmd
}

func auditExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit log entries as CSV or JSON",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			if err := auditExportRun(cfg); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().
		StringVar(&auditFlags.format, "format", "csv", "export format (csv or json)")
	cmd.Flags().
		StringVarP(&auditFlags.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().
		Uint64Var(&auditFlags.actorID, "actor", 0, "filter by actor member ID")
	cmd.Flags().
		StringVar(&auditFlags.action, "action", "", "filter by action")
	cmd.Flags().
		StringVar(&auditFlags.entityType, "entity-type", "", "filter by entity type")
	cmd.Flags().
		UintVar(&auditFlags.entityID, "entity-id", 0, "filter by entity ID")
	cmd.Flags().
		StringVar(&auditFlags.from, "from", "", "filter from timestamp (RFC 3339)")
	cmd.Flags().
		StringVar(&auditFlags.to, "to", "", "filter to timestamp (RFC 3339)")
	cmd.Flags().
		IntVar(&auditFlags.limit, "limit", 0, "maximum entries to export")
	return cmd
}

func auditExportRun(cfg *config.Config) error {
	logger := commonRun()

	format := audit.ExportFormat(auditFlags.format)
	switch format {
	case audit.ExportFormatCSV, audit.ExportFormatJSON:
	default:
		return fmt.Errorf(
			"unknown export format: %s (must be csv or json)",
			auditFlags.format,
		)
	}
	filter := database.AuditFilter{
		ActorID:    auditFlags.actorID,
		Action:     auditFlags.action,
		EntityType: auditFlags.entityType,
		EntityID:   auditFlags.entityID,
		Limit:      auditFlags.limit,
	}
	if auditFlags.from != "" {
		from, err := time.Parse(time.RFC3339, auditFlags.from)
		if err != nil {
			return fmt.Errorf("invalid --from timestamp: %w", err)
		}
		filter.From = from
	}
	if auditFlags.to != "" {
		to, err := time.Parse(time.RFC3339, auditFlags.to)
		if err != nil {
			return fmt.Errorf("invalid --to timestamp: %w", err)
		}
		filter.To = to
	}

	db, err := database.New(&database.Config{
		DataDir: cfg.DataDir,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	recorder := audit.NewRecorder(db, nil, logger)

	var out io.Writer = os.Stdout
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return recorder.Export(out, filter, format)
}
