package job

import (
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// digestTimeout 单次摘要任务的最长执行时间，同时作为锁的过期时间
const digestTimeout = time.Minute

// Locker 分布式锁，为 nil 时视为单实例部署
type Locker interface {
	TryLock(ctx context.Context, key string, value string, expiration time.Duration, retryTimes int) (bool, error)
	UnLock(ctx context.Context, key string, value string)
}

// DigestPublisher 由 service.ModerationService 实现
type DigestPublisher interface {
	PublishDigest(ctx context.Context) (int, error)
}

// ModerationDigestJob 定期聚合待处理举报并发布摘要事件
type ModerationDigestJob struct {
	moderationSvc DigestPublisher
	locker        Locker
}

func NewModerationDigestJob(moderationSvc DigestPublisher, locker Locker) *ModerationDigestJob {
	return &ModerationDigestJob{
		moderationSvc: moderationSvc,
		locker:        locker,
	}
}

func (s *ModerationDigestJob) Run() {
	traceID := "job-moderation-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	ctx, cancel := context.WithTimeout(ctx, digestTimeout)
	defer cancel()

	if s.locker != nil {
		locked, err := s.locker.TryLock(ctx, consts.ModerationDigestLockKey, traceID, digestTimeout, 0)
		if err != nil {
			log.ErrorContext(ctx, "moderation digest lock error", "err", err)
			return
		}
		if !locked {
			log.DebugContext(ctx, "moderation digest running elsewhere, skipped")
			return
		}
		defer s.locker.UnLock(context.Background(), consts.ModerationDigestLockKey, traceID)
	}

	messages, err := s.moderationSvc.PublishDigest(ctx)
	if err != nil {
		log.ErrorContext(ctx, "moderation digest failed", "err", err)
		return
	}
	if messages > 0 {
		log.InfoContext(ctx, "moderation digest published", "messages", messages)
	}
}
