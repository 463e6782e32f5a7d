package cron

import (
	"fmt"
	log "log/slog"
)

// InitCron 注册并启动全部定时任务
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	mgr.Start()
	log.Info("Cron Jobs started", "jobs", len(mgr.engine.Entries()), "digest_spec", mgr.digestSpec)
	return nil
}
