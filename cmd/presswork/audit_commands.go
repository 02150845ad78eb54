package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"presswork/internal/audit"
	"presswork/internal/config"
	"presswork/internal/services"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the compliance audit ledger",
	}
	auditCmd.AddCommand(newAuditListCommand(ctx))
	auditCmd.AddCommand(newAuditVerifyCommand(ctx))
	return auditCmd
}

func newAuditListCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAuditLog(func(_ *config.Config, log *audit.Log) error {
				events, err := log.Events(cmd.Context(), strings.TrimSpace(sessionID))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, events)
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No audit events recorded")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						event.Timestamp.Local().Format(time.DateTime),
						event.AgentID,
						event.Action,
						event.Decision,
						truncate(event.Reason, 60),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Time", "Agent", "Action", "Decision", "Reason"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only events for one pipeline session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func newAuditVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit ledger hash chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAuditLog(func(_ *config.Config, log *audit.Log) error {
				ok, err := log.VerifyChainIntegrity(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					return services.Wrap(services.ErrAuditIntegrity, "audit", "verify",
						"ledger hash chain is broken and requires operator intervention", nil)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Audit chain intact")
				return nil
			})
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
