package cmd

import (
	"github.com/spf13/cobra"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/output"
	"github.com/Aman-CERP/mdsearch/internal/preflight"
)

// doctorReport is the JSON form of a doctor run.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics for the configured root and data directory.

Checks:
  - Root exists and can be listed
  - Data directory is writable
  - Disk space (50MB minimum)
  - File descriptor limit (1024 recommended)
  - inotify watch limit (Linux)
  - Socket path length

Use --verbose for detailed diagnostic information.`,
		Example: `  mdsearch doctor
  mdsearch doctor --verbose
  mdsearch doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			var target preflight.Target
			if target.Root, err = cfg.RootDir(); err != nil {
				return err
			}
			if target.DataDir, err = cfg.DataDir(); err != nil {
				return err
			}
			if target.SocketPath, err = cfg.SocketPath(); err != nil {
				return err
			}

			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(cmd.Context(), target)

			if jsonOutput {
				if err := output.New(cmd.OutOrStdout()).JSON(doctorReport{
					Status: checker.SummaryStatus(results),
					Checks: results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return mderrors.New(mderrors.ErrCodeConfigInvalid, "system check failed", nil).
					WithSuggestion("Fix the failed checks above, then run 'mdsearch doctor' again.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
