package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"presswork/internal/compliance"
	"presswork/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Rights registry utilities",
	}
	registryCmd.AddCommand(newRegistryCheckCommand(ctx))
	return registryCmd
}

func newRegistryCheckCommand(ctx *commandContext) *cobra.Command {
	var refType string
	var usageMode string
	var baselineRisk int

	cmd := &cobra.Command{
		Use:   "check <title>",
		Short: "Dry-run the rights check and risk score for one reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := registry.Load(cfg.Paths.RegistryPath)
			if err != nil {
				return fmt.Errorf("load rights registry: %w", err)
			}

			ref := compliance.Reference{
				Title:        strings.TrimSpace(args[0]),
				Type:         compliance.ReferenceType(strings.TrimSpace(refType)),
				UsageMode:    usageMode,
				BaselineRisk: baselineRisk,
			}
			checker := compliance.NewRightsChecker(reg)
			scorer := compliance.NewRiskScorer(reg, cfg.Compliance.AutoBlockThreshold, cfg.Compliance.HumanReviewThreshold)

			decision := checker.Check(ref)
			scored := scorer.Score(ref, decision)

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Rights decision", string(decision.Decision)},
				{"Reason", decision.Reason},
				{"Final risk score", strconv.Itoa(scored.FinalRiskScore)},
				{"Compliance status", string(scored.ComplianceStatus)},
				{"Auto blocked", yesNo(scored.AutoBlocked)},
				{"Human review", yesNo(scored.HumanReviewRequired)},
			}
			if scored.RewriteInstructions != "" {
				rows = append(rows, []string{"Rewrite instructions", scored.RewriteInstructions})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&refType, "type", string(compliance.ReferenceCommentary), "Reference type (licensed_direct, public_domain, style_only, commentary)")
	cmd.Flags().StringVar(&usageMode, "usage", "", "How the reference will be used")
	cmd.Flags().IntVar(&baselineRisk, "baseline-risk", 0, "Baseline risk carried by the reference")
	return cmd
}
