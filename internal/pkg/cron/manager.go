package cron

import (
	"Parley/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine     *cron.Cron
	digestSpec string
	digestJob  *job.ModerationDigestJob
}

// NewCronManager digestSpec 为带秒字段的 cron 表达式，为空时不注册摘要任务
func NewCronManager(digestSpec string, digestJob *job.ModerationDigestJob) *Manager {
	return &Manager{
		engine:     cron.New(cron.WithSeconds()),
		digestSpec: digestSpec,
		digestJob:  digestJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if s.digestSpec == "" || s.digestJob == nil {
		log.Info("moderation digest job disabled")
		return nil
	}
	if _, err := s.engine.AddJob(s.digestSpec, s.digestJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
