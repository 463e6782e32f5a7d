package service

import (
	"Parley/internal/api/dto"
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/es"
	"Parley/internal/repository"
	"context"
	log "log/slog"
	"strings"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

type ModerationService interface {
	Report(ctx context.Context, reporterID string, req *dto.CreateReportReq) (*dto.ReportDTO, error)
	ListReports(ctx context.Context, req *dto.ListReportsReq) ([]*dto.ReportDTO, error)
	ResolveReport(ctx context.Context, operatorID, id string, req *dto.ResolveReportReq) (*dto.ReportDTO, error)
	ResolveAllForMessage(ctx context.Context, operatorID, conversationID, messageID string, req *dto.ResolveReportReq) (*dto.ResolveAllDTO, error)
	Queue(ctx context.Context) ([]*dto.ReportGroupDTO, error)
	PublishDigest(ctx context.Context) (int, error)
	DeleteAllByUser(ctx context.Context, userID string) (*dto.PurgeDTO, error)
}

type moderationServiceImpl struct {
	reportRepo  repository.ReportRepo
	messageRepo repository.MessageRepo
	searchRepo  es.MessageRepo
	publisher   EventPublisher
	pageSize    int
}

// NewModerationService pageSize 为一次聚合最多读取的待处理举报数
func NewModerationService(
	reportRepo repository.ReportRepo,
	messageRepo repository.MessageRepo,
	searchRepo es.MessageRepo,
	publisher EventPublisher,
	pageSize int,
) ModerationService {
	return &moderationServiceImpl{
		reportRepo:  reportRepo,
		messageRepo: messageRepo,
		searchRepo:  searchRepo,
		publisher:   publisher,
		pageSize:    pageSize,
	}
}

// Report 举报消息，被举报消息必须存在
func (s *moderationServiceImpl) Report(ctx context.Context, reporterID string, req *dto.CreateReportReq) (*dto.ReportDTO, error) {
	msg, err := s.messageRepo.GetByID(ctx, req.ConversationID, req.MessageID)
	if err != nil {
		return nil, translate(err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	report, err := s.reportRepo.Insert(ctx, &model.Report{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		ReporterID:     reporterID,
		Reason:         strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return nil, translate(err)
	}
	return toReportDTO(report), nil
}

func (s *moderationServiceImpl) ListReports(ctx context.Context, req *dto.ListReportsReq) ([]*dto.ReportDTO, error) {
	reports, err := s.reportRepo.List(ctx, req.Status, req.Limit)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*dto.ReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportDTO(r))
	}
	return out, nil
}

// ResolveReport 处理单条举报，status 为 deleted 时同时删除被举报消息
func (s *moderationServiceImpl) ResolveReport(ctx context.Context, operatorID, id string, req *dto.ResolveReportReq) (*dto.ReportDTO, error) {
	report, err := s.reportRepo.Resolve(ctx, id, req.Status, operatorID)
	if err != nil {
		return nil, translate(err)
	}
	if report == nil {
		existing, err := s.reportRepo.Get(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		if existing == nil {
			return nil, ErrReportNotFound
		}
		return nil, ErrReportResolved
	}

	if report.Status == model.ReportDeleted {
		s.removeMessage(ctx, report.ConversationID, report.MessageID)
	}
	return toReportDTO(report), nil
}

func (s *moderationServiceImpl) ResolveAllForMessage(ctx context.Context, operatorID, conversationID, messageID string, req *dto.ResolveReportReq) (*dto.ResolveAllDTO, error) {
	resolved, err := s.reportRepo.ResolveAllForMessage(ctx, messageID, req.Status, operatorID)
	if err != nil {
		return nil, translate(err)
	}
	out := &dto.ResolveAllDTO{Resolved: resolved}
	if req.Status == model.ReportDeleted {
		out.MessageDeleted = s.removeMessage(ctx, conversationID, messageID)
	}
	log.InfoContext(ctx, "reports resolved for message",
		"message_id", messageID, "status", req.Status, "resolved", resolved, "by", operatorID)
	return out, nil
}

// Queue 审核队列：聚合待处理举报，并发补全消息内容，查询失败的消息不展示内容
func (s *moderationServiceImpl) Queue(ctx context.Context) ([]*dto.ReportGroupDTO, error) {
	groups, err := s.reportRepo.AggregatePending(ctx, s.pageSize)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]*dto.ReportGroupDTO, len(groups))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, group := range groups {
		item := &dto.ReportGroupDTO{}
		_ = copier.Copy(item, group)
		out[i] = item

		g.Go(func() error {
			msg, err := s.messageRepo.GetByID(gCtx, group.ConversationID, group.MessageID)
			if err != nil {
				log.DebugContext(gCtx, "queue message lookup dropped", "message_id", group.MessageID, "err", err)
				return nil
			}
			if msg != nil {
				item.Message = toMessageDTO(msg)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// PublishDigest 发布待处理举报摘要，返回涉及的消息数
func (s *moderationServiceImpl) PublishDigest(ctx context.Context) (int, error) {
	groups, err := s.reportRepo.AggregatePending(ctx, s.pageSize)
	if err != nil {
		return 0, translate(err)
	}
	if len(groups) == 0 {
		return 0, nil
	}

	reports := 0
	for _, g := range groups {
		reports += len(g.ReportIDs)
	}
	top := groups
	if len(top) > 10 {
		top = top[:10]
	}
	publishEvent(ctx, s.publisher, consts.ChannelModeration, model.EventModeration, map[string]any{
		"messages": len(groups),
		"reports":  reports,
		"top":      top,
	})
	return len(groups), nil
}

// DeleteAllByUser 删除用户的全部消息并清理搜索索引
func (s *moderationServiceImpl) DeleteAllByUser(ctx context.Context, userID string) (*dto.PurgeDTO, error) {
	deleted, err := s.messageRepo.DeleteAllBySender(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "purge user messages interrupted", "user_id", userID, "deleted", len(deleted), "err", err)
		return nil, translate(err)
	}

	if s.searchRepo != nil {
		if _, err = s.searchRepo.DeleteBySender(ctx, userID); err != nil {
			log.WarnContext(ctx, "purge search index failed", "user_id", userID, "err", err)
		}
	}
	publishEvent(ctx, s.publisher, consts.ChannelModeration, model.EventUserPurged, map[string]any{
		"user_id": userID,
		"count":   len(deleted),
	})
	return &dto.PurgeDTO{UserID: userID, DeletedMessages: len(deleted)}, nil
}

// removeMessage 审核删除消息，失败只记录日志
func (s *moderationServiceImpl) removeMessage(ctx context.Context, conversationID, messageID string) bool {
	deleted, err := s.messageRepo.Delete(ctx, conversationID, messageID)
	if err != nil {
		log.ErrorContext(ctx, "moderation delete message failed", "message_id", messageID, "err", err)
		return false
	}
	if !deleted {
		return false
	}
	if s.searchRepo != nil {
		if err = s.searchRepo.DeleteMessage(ctx, messageID); err != nil {
			log.WarnContext(ctx, "delete message from index failed", "message_id", messageID, "err", err)
		}
	}
	publishEvent(ctx, s.publisher, consts.ChannelConversation+conversationID, model.EventMessageDeleted, map[string]any{
		"id":              messageID,
		"conversation_id": conversationID,
	})
	return true
}

func toReportDTO(r *model.Report) *dto.ReportDTO {
	out := &dto.ReportDTO{}
	_ = copier.Copy(out, r)
	return out
}
