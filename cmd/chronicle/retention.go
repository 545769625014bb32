package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"heirloom-hq/chronicle/pkg/lifecycle/retention"
	"heirloom-hq/chronicle/pkg/telemetry/logging"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Manage retention policies",
	Long:  `Run retention policies and inspect the effective policy set.`,
}

var retentionRunFlags struct {
	policy string
}

var retentionRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run retention policies immediately",
	Long: `Run retention policies immediately, outside the daemon's schedule.

Examples:
  # Run all enabled policies
  chronicle retention run

  # Run a single policy
  chronicle retention run --policy export-request-cleanup`,
	RunE: runRetentionRun,
}

var retentionPoliciesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Show the effective retention policy set",
	RunE:  runRetentionPolicies,
}

func init() {
	rootCmd.AddCommand(retentionCmd)
	retentionCmd.AddCommand(retentionRunCmd, retentionPoliciesCmd)

	retentionRunCmd.Flags().StringVar(&retentionRunFlags.policy, "policy", "", "run only the named policy")
}

// newRetentionEngine wires an engine for one-shot CLI use.
func newRetentionEngine() (*retention.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !verbose {
		cfg.Telemetry.Logging.Level = "error"
	}
	logging.Setup(cfg.Telemetry.Logging, os.Stderr)

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	blobs, err := openBlobStore(cfg)
	if err != nil {
		closeRepository(repo)
		return nil, nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	engine := retention.NewEngine(repo, blobs, nil)
	if cfg.Retention.PolicyFile != "" {
		overrides, err := retention.LoadPolicyFile(cfg.Retention.PolicyFile)
		if err != nil {
			closeRepository(repo)
			return nil, nil, err
		}
		if err := engine.ApplyOverrides(overrides); err != nil {
			closeRepository(repo)
			return nil, nil, err
		}
	}
	return engine, func() { closeRepository(repo) }, nil
}

func runRetentionRun(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := newRetentionEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var reports []*retention.Report
	if retentionRunFlags.policy != "" {
		var found bool
		for _, p := range engine.Policies() {
			if p.Name == retentionRunFlags.policy {
				reports = append(reports, engine.ExecutePolicy(ctx, p))
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown policy: %s", retentionRunFlags.policy)
		}
	} else {
		reports = engine.ExecuteAll(ctx)
	}

	expired, err := engine.ExpireArtifacts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "artifact expiry sweep failed: %v\n", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-30s %-10s %-10s %-14s %s\n", "POLICY", "PROCESSED", "DELETED", "STORAGE FREED", "ERRORS")
	for _, r := range reports {
		fmt.Fprintf(w, "%-30s %-10d %-10d %-14d %d\n",
			r.Policy, r.ItemsProcessed, r.ItemsDeleted, r.StorageFreed, len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  ! %s\n", e)
		}
	}
	fmt.Fprintf(w, "\nArtifacts expired: %d\n", expired)
	return nil
}

func runRetentionPolicies(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := newRetentionEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-30s %-9s %-10s %-18s %s\n", "NAME", "DAYS", "ENABLED", "SCOPE", "DATA TYPES")
	for _, p := range engine.Policies() {
		var scope []string
		if p.ApplyToArchived {
			scope = append(scope, "archived")
		}
		if p.ApplyToActive {
			scope = append(scope, "active")
		}
		types := make([]string, 0, len(p.DataTypes))
		for _, d := range p.DataTypes {
			types = append(types, string(d))
		}
		fmt.Fprintf(w, "%-30s %-9d %-10v %-18s %s\n",
			p.Name, p.RetentionPeriodDays, p.Enabled, strings.Join(scope, ","), strings.Join(types, ","))
	}
	return nil
}
