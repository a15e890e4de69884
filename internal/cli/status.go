package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"coinpulse/internal/app"
	"coinpulse/internal/task/lock"
	logx "coinpulse/pkg/logx"
)

type statusJSON struct {
	Job        string `json:"job"`
	At         string `json:"at"`
	Timezone   string `json:"timezone"`
	LastRun    string `json:"last_run,omitempty"`
	NextTarget string `json:"next_target"`
	DueNow     bool   `json:"due_now"`
	JobLock    string `json:"job_lock"`
	ManualLock string `json:"manual_lock"`
	Recent     any    `json:"recent"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		recent int
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the trigger decision, lock states and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			svc, store, err := app.OpenScheduler(cfg, logx.NewWriter(cmd.ErrOrStderr(), "warn"), nil)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := svc.Status(cmd.Context(), recent)
			if err != nil {
				return err
			}
			if asJSON {
				out := statusJSON{
					Job:        st.Job,
					At:         st.At.String(),
					Timezone:   st.Location,
					NextTarget: st.Decision.Target.Format("2006-01-02T15:04:05Z07:00"),
					DueNow:     st.Decision.ShouldRun,
					JobLock:    st.JobLock.String(),
					ManualLock: st.ManualLock.String(),
					Recent:     st.Recent,
				}
				if st.HasLastRun {
					out.LastRun = st.LastRun.Format("2006-01-02")
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			printHeader(cmd, "coinpulse status")
			w := cmd.OutOrStdout()
			for _, line := range st.Lines() {
				fmt.Fprintln(w, line)
			}
			if st.ManualLock == lock.ProbeHeld {
				color.New(color.FgYellow).Fprintln(w, "a manual run is in progress")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVarP(&recent, "recent", "n", 5, "number of recent runs to show")
	return cmd
}

func printHeader(cmd *cobra.Command, title string) {
	color.New(color.Bold, color.FgCyan).Fprintln(cmd.OutOrStdout(), title)
}
