package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"venom/internal/api"
	"venom/internal/client"
	"venom/internal/store"
	"venom/internal/ui/common"
)

// auditRow is the printable form of an audit entry.
type auditRow struct {
	ID      int64  `json:"id" yaml:"id"`
	Time    string `json:"time" yaml:"time"`
	Actor   string `json:"actor" yaml:"actor"`
	Action  string `json:"action" yaml:"action"`
	Details any    `json:"details" yaml:"details"`
}

func newAuditCmd() *cobra.Command {
	var (
		output string
		limit  int
		local  bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			var entries []api.AuditEntry
			if local {
				st, err := store.Open(cfg.Database.Path)
				if err != nil {
					return err
				}
				defer st.Close()
				entries, err = st.ListAudits(cmd.Context(), limit)
				if err != nil {
					return err
				}
			} else {
				c := clientFactory(cfg, cfg.Origin(), zap.NewNop())(cfg.APIBase)
				if entries, err = fetchAudit(cmd.Context(), c); err != nil {
					return err
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
			}
			return printAudit(cmd.OutOrStdout(), output, entries)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	cmd.Flags().BoolVar(&local, "local", false, "Read the database directly instead of calling the API")
	return cmd
}

func fetchAudit(ctx context.Context, c client.AuditClient) ([]api.AuditEntry, error) {
	entries, err := c.ListAudit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit: %w", err)
	}
	return entries, nil
}

func toRows(entries []api.AuditEntry) []auditRow {
	rows := make([]auditRow, 0, len(entries))
	for _, e := range entries {
		var details any
		if len(e.Details) > 0 {
			if err := json.Unmarshal(e.Details, &details); err != nil {
				details = string(e.Details)
			}
		}
		rows = append(rows, auditRow{
			ID:      e.ID,
			Time:    common.FormatUnix(e.TS),
			Actor:   e.Actor,
			Action:  e.Action,
			Details: details,
		})
	}
	return rows
}

func printAudit(w io.Writer, format string, entries []api.AuditEntry) error {
	rows := toRows(entries)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		t := ltable.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "Time", "Actor", "Action", "Details")
		for i, e := range entries {
			t.Row(strconv.FormatInt(e.ID, 10), rows[i].Time, e.Actor, e.Action, common.Truncate(string(e.Details), 60))
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
