package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"presswork/internal/compliance"
	"presswork/internal/config"
	"presswork/internal/runstore"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var productRef string
	var platforms []string
	var sourcePairs []string
	var referencesJSON string
	var referencesFile string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a new content production run",
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceData, err := parseSourcePairs(sourcePairs)
			if err != nil {
				return err
			}
			if referencesFile != "" {
				raw, err := os.ReadFile(referencesFile)
				if err != nil {
					return fmt.Errorf("read references file: %w", err)
				}
				referencesJSON = string(raw)
			}
			if strings.TrimSpace(referencesJSON) != "" {
				var refs []compliance.Reference
				if err := json.Unmarshal([]byte(referencesJSON), &refs); err != nil {
					return fmt.Errorf("references must be a JSON array: %w", err)
				}
				sourceData["references"] = referencesJSON
			}

			return ctx.withRunStore(func(_ *config.Config, store *runstore.Store) error {
				run, err := store.NewRun(cmd.Context(), strings.TrimSpace(productRef), platforms, sourceData)
				if err != nil {
					return fmt.Errorf("queue run: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued run %s for %s\n", run.ID, run.ProductRef)
				fmt.Fprintf(out, "Platforms: %s\n", strings.Join(run.TargetPlatforms, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&productRef, "product", "", "Product reference the content is for")
	cmd.Flags().StringArrayVar(&platforms, "platform", nil, "Target platform (repeatable)")
	cmd.Flags().StringArrayVarP(&sourcePairs, "source", "s", nil, "Source data as key=value (repeatable)")
	cmd.Flags().StringVar(&referencesJSON, "references", "", "Cultural/IP references as a JSON array")
	cmd.Flags().StringVar(&referencesFile, "references-file", "", "Read the references JSON array from a file")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunStore(func(_ *config.Config, store *runstore.Store) error {
				run, err := store.GetByID(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, run)
				}
				return renderRun(cmd, run)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON")
	return cmd
}

func renderRun(cmd *cobra.Command, run *runstore.Run) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Product:    %s\n", run.ProductRef)
	fmt.Fprintf(out, "Status:     %s\n", run.Status.Label())
	fmt.Fprintf(out, "Platforms:  %s\n", strings.Join(run.TargetPlatforms, ", "))
	fmt.Fprintf(out, "Rewrites:   rights=%d qa=%d\n", run.RightsRewrites, run.QARewrites)
	fmt.Fprintf(out, "Created:    %s\n", run.CreatedAt.Local().Format(time.RFC1123))
	if run.CompletedAt != nil {
		fmt.Fprintf(out, "Finished:   %s\n", run.CompletedAt.Local().Format(time.RFC1123))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Reason:     %s\n", run.ErrorMessage)
	}

	var pkgs []compliance.PlatformPackage
	if err := runstore.DecodePayload(run.PackagesJSON, &pkgs); err != nil {
		return err
	}
	if len(pkgs) > 0 {
		rows := make([][]string, 0, len(pkgs))
		for _, pkg := range pkgs {
			rows = append(rows, []string{pkg.Platform, string(pkg.ComplianceStatus), shortHash(pkg.ContentHash), pkg.Caption})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Platform", "Compliance", "Hash", "Caption"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunStore(func(_ *config.Config, store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs queued")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.ProductRef,
						run.Status.Label(),
						strings.Join(run.TargetPlatforms, ","),
						strconv.Itoa(run.RightsRewrites + run.QARewrites),
						run.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Product", "Status", "Platforms", "Rewrites", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunStore(func(_ *config.Config, store *runstore.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Total", strconv.Itoa(health.Total)},
					{"Pending", strconv.Itoa(health.Pending)},
					{"Active", strconv.Itoa(health.Active)},
					{"Completed", strconv.Itoa(health.Completed)},
					{"Rejected", strconv.Itoa(health.Rejected)},
					{"Errored", strconv.Itoa(health.Errored)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"State", "Runs"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func parseSourcePairs(pairs []string) (map[string]string, error) {
	sourceData := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("source data %q is not key=value", pair)
		}
		sourceData[key] = value
	}
	return sourceData, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
