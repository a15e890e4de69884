package app

import (
	"fmt"
	"os"

	"coinpulse/internal/config"
	"coinpulse/internal/eventbus"
	"coinpulse/internal/storage"
	"coinpulse/internal/task/scheduler"
	logx "coinpulse/pkg/logx"
)

// OpenScheduler builds the scheduler service and its store from cfg. The
// daemon and the operator CLI share it so both sides use the same lock
// files and last-run marker. The caller closes the store.
func OpenScheduler(cfg *config.Config, log logx.Logger, bus eventbus.Bus) (*scheduler.Service, storage.Store, error) {
	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(sc.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	cmd, err := mapJob(cfg)
	if err != nil {
		return nil, nil, err
	}
	stc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := storage.Open(stc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, nil, err
	}
	svc := scheduler.New(sc, cmd, st, log.With(logx.String("comp", "scheduler")), bus)
	return svc, st, nil
}
