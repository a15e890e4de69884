package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"coinpulse/internal/config"
	"coinpulse/internal/task/lock"
)

type cleanOptions struct {
	dir       string
	job       string
	force     bool
	jobMaxAge time.Duration
	manMaxAge time.Duration
}

// NewCleanLocksCmd builds the stale-lock cleanup command. With a nil root it
// is standalone (lockclean) and --dir is required; otherwise missing flags
// fall back to the config file.
func NewCleanLocksCmd(root *rootOptions) *cobra.Command {
	o := &cleanOptions{}
	use := "clean-locks"
	if root == nil {
		use = "lockclean"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: "Remove stale lock files (job lock older than 30m, manual lock older than 10m)",
		Long: "Checks <dir>/<job>.lock and <dir>/" + lock.ManualFileName + " and removes those older\n" +
			"than their threshold, or all of them with --force. It does not check whether a\n" +
			"lock is held: run it only when no job is expected to be running.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: root == nil,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := o.manager(cmd, root)
			if err != nil {
				return err
			}
			printHeader(cmd, "lock cleanup: "+m.Dir)
			for _, r := range m.CleanStale(o.force) {
				printStale(cmd, r)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.dir, "dir", "d", "", "directory holding the lock files")
	f.StringVar(&o.job, "job", "", "job name (lock file <job>.lock)")
	f.BoolVarP(&o.force, "force", "f", false, "remove lock files regardless of age")
	f.DurationVar(&o.jobMaxAge, "job-max-age", lock.DefaultJobMaxAge, "stale threshold for the job lock")
	f.DurationVar(&o.manMaxAge, "manual-max-age", lock.DefaultManualMaxAge, "stale threshold for the manual lock")
	return cmd
}

func (o *cleanOptions) manager(cmd *cobra.Command, root *rootOptions) (*lock.Manager, error) {
	dir, job := strings.TrimSpace(o.dir), strings.TrimSpace(o.job)
	jobAge, manAge := o.jobMaxAge, o.manMaxAge

	if root != nil && (dir == "" || job == "") {
		cfg, err := root.load()
		if err != nil && dir == "" {
			return nil, err
		}
		if err != nil {
			// --dir given; the config only supplies defaults.
			cfg = &config.Config{}
		}
		if dir == "" {
			dir = cfg.Scheduler.Dir()
		}
		if job == "" {
			job = cfg.Job.JobName()
		}
		if j, m, err := cfg.Locks.MaxAges(); err == nil {
			if !cmd.Flags().Changed("job-max-age") {
				jobAge = j
			}
			if !cmd.Flags().Changed("manual-max-age") {
				manAge = m
			}
		}
	}
	if dir == "" {
		return nil, errors.New("--dir is required")
	}
	if job == "" {
		job = config.DefaultJobName
	}
	m := lock.NewManager(dir, job)
	m.JobMaxAge, m.ManualMaxAge = jobAge, manAge
	return m, nil
}

func printStale(cmd *cobra.Command, r lock.StaleResult) {
	w := cmd.OutOrStdout()
	switch {
	case r.Err != nil:
		color.New(color.FgRed).Fprintln(w, "✗ "+r.String())
	case r.Removed:
		color.New(color.FgGreen).Fprintln(w, "✓ "+r.String())
	default:
		color.New(color.Faint).Fprintln(w, "· "+r.String())
	}
}
