package kafka

import (
	"Parley/internal/api/dto"
	"Parley/internal/pkg/logger"
	"Parley/internal/pkg/util"
	"context"
	log "log/slog"
	"strings"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PurgeCommand 上游账号系统下发的用户内容清理指令
type PurgeCommand struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

// UserPurger 由 service.ModerationService 实现
type UserPurger interface {
	DeleteAllByUser(ctx context.Context, userID string) (*dto.PurgeDTO, error)
}

// PurgeHandler 消费清理指令，删除用户的全部消息
type PurgeHandler struct {
	purger UserPurger
}

func NewPurgeHandler(purger UserPurger) *PurgeHandler {
	return &PurgeHandler{
		purger: purger,
	}
}

func (s *PurgeHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("purge consumer setup")
	return nil
}

func (s *PurgeHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("purge consumer cleanup")
	return nil
}

func (s *PurgeHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-purge consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("topic-purge consume claim end")
	return nil
}

// logic 格式错误的指令直接跳过，只有存储错误才返回以触发重试
func (s *PurgeHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = context.WithValue(ctx, logger.TraceIDKey, "kafka-purge-"+uuid.NewString())

	var cmd PurgeCommand
	if err := decodeMessage(msg, &cmd); err != nil {
		log.WarnContext(ctx, "skip malformed purge command", "err", err)
		return nil
	}
	cmd.UserID = strings.TrimSpace(cmd.UserID)
	if err := util.ValidateDTO(&cmd); err != nil {
		log.WarnContext(ctx, "skip invalid purge command", "offset", msg.Offset, "err", err)
		return nil
	}

	result, err := s.purger.DeleteAllByUser(ctx, cmd.UserID)
	if err != nil {
		return errors.Wrapf(err, "purge user %s", cmd.UserID)
	}
	log.InfoContext(ctx, "user content purged", "user_id", cmd.UserID, "deleted", result.DeletedMessages, "reason", cmd.Reason)
	return nil
}
