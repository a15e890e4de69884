package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"coinpulse/internal/app"
	"coinpulse/internal/task/scheduler"
	logx "coinpulse/pkg/logx"
)

func newRunNowCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "run-now",
		Short: "Run the daily job now under the manual-operation lock",
		Long: "Runs the job once, guarded by manual_operation.lock. A concurrent manual run\n" +
			"makes this a no-op; a job already recorded for today is skipped unless --force.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := logx.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
			svc, store, err := app.OpenScheduler(cfg, log, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			res := svc.RunNow(cmd.Context(), force)
			printResult(cmd, res)
			if res.Outcome == scheduler.OutcomeFailed {
				return fmt.Errorf("job failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "run even if the job already ran today")
	return cmd
}

func printResult(cmd *cobra.Command, res scheduler.Result) {
	w := cmd.OutOrStdout()
	switch res.Outcome {
	case scheduler.OutcomeSucceeded:
		color.New(color.FgGreen).Fprintln(w, "✓ "+res.Summary())
	case scheduler.OutcomeFailed:
		color.New(color.FgRed).Fprintln(w, "✗ "+res.Summary())
	default:
		color.New(color.FgYellow).Fprintln(w, "- "+res.Summary())
	}
}
