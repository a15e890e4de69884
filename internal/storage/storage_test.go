package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	logx "coinpulse/pkg/logx"
)

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}

	fs, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state")}, logx.Nop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	out["file"] = fs

	ss, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "coinpulse.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	out["sqlite"] = ss

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

func TestLastRunLifecycle(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC+3", 3*3600)

	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := st.LastRun(ctx, "scrape", loc); err != nil || ok {
				t.Fatalf("fresh store: ok=%v err=%v", ok, err)
			}

			day := time.Date(2026, 3, 14, 8, 1, 30, 0, loc)
			if err := st.SetLastRun(ctx, "scrape", day); err != nil {
				t.Fatalf("SetLastRun: %v", err)
			}
			got, ok, err := st.LastRun(ctx, "scrape", loc)
			if err != nil || !ok {
				t.Fatalf("LastRun: ok=%v err=%v", ok, err)
			}
			want := time.Date(2026, 3, 14, 0, 0, 0, 0, loc)
			if !got.Equal(want) {
				t.Fatalf("LastRun = %v, want %v", got, want)
			}

			// Other jobs are independent.
			if _, ok, _ := st.LastRun(ctx, "other", loc); ok {
				t.Fatal("marker leaked across jobs")
			}

			if err := st.ClearLastRun(ctx, "scrape"); err != nil {
				t.Fatalf("ClearLastRun: %v", err)
			}
			if _, ok, _ := st.LastRun(ctx, "scrape", loc); ok {
				t.Fatal("marker still present after clear")
			}
			if err := st.ClearLastRun(ctx, "scrape"); err != nil {
				t.Fatalf("second ClearLastRun: %v", err)
			}
		})
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 8, 1, 0, 0, time.UTC)

	for name, st := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			recs := []RunRecord{
				{ID: "a", Job: "scrape", Trigger: "auto", StartedAt: base, Took: 2 * time.Second, OK: true},
				{ID: "b", Job: "scrape", Trigger: "manual", Force: true, StartedAt: base.Add(time.Hour), Took: time.Second, Error: "exit status 1"},
				{ID: "c", Job: "scrape", Trigger: "auto", StartedAt: base.Add(24 * time.Hour), Took: 3 * time.Second, OK: true},
				{ID: "x", Job: "other", Trigger: "auto", StartedAt: base, OK: true},
			}
			for _, r := range recs {
				if err := st.AppendRun(ctx, r); err != nil {
					t.Fatalf("AppendRun: %v", err)
				}
			}

			got, err := st.RecentRuns(ctx, "scrape", 2)
			if err != nil {
				t.Fatalf("RecentRuns: %v", err)
			}
			want := []RunRecord{recs[2], recs[1]}
			opt := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })
			if diff := cmp.Diff(want, got, opt); diff != "" {
				t.Fatalf("RecentRuns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis", Path: t.TempDir()}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
