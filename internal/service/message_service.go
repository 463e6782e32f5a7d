package service

import (
	"Parley/internal/api/config"
	"Parley/internal/api/dto"
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/es"
	"Parley/internal/pkg/util"
	"Parley/internal/repository"
	"context"
	log "log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jinzhu/copier"
)

type MessageService interface {
	Send(ctx context.Context, senderID, conversationID string, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	List(ctx context.Context, conversationID string, req *dto.ListMessagesReq) (*dto.MessagePageDTO, error)
	Get(ctx context.Context, conversationID, id string) (*dto.MessageDTO, error)
	Edit(ctx context.Context, userID, conversationID, id string, req *dto.EditMessageReq) (*dto.MessageDTO, error)
	Delete(ctx context.Context, userID, role, conversationID, id string) error
	ToggleReaction(ctx context.Context, userID, conversationID, id, src string) (*dto.MessageDTO, error)
	RemoveReaction(ctx context.Context, userID, conversationID, id, src string) (*dto.MessageDTO, error)
	Search(ctx context.Context, conversationID string, req *dto.SearchMessagesReq) (*dto.SearchResultDTO, error)
}

type messageServiceImpl struct {
	messageRepo repository.MessageRepo
	searchRepo  es.MessageRepo
	publisher   EventPublisher
	limits      config.ServerDefaults
}

// NewMessageService searchRepo 可为 nil，此时不建立搜索索引，Search 返回 ErrSearchDisabled
func NewMessageService(messageRepo repository.MessageRepo, searchRepo es.MessageRepo, publisher EventPublisher, limits config.ServerDefaults) MessageService {
	return &messageServiceImpl{
		messageRepo: messageRepo,
		searchRepo:  searchRepo,
		publisher:   publisher,
		limits:      limits,
	}
}

func (s *messageServiceImpl) checkText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrParamInvalid
	}
	if s.limits.MaxMessageLength > 0 && utf8.RuneCountInString(text) > s.limits.MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return text, nil
}

// Send 发送消息
func (s *messageServiceImpl) Send(ctx context.Context, senderID, conversationID string, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if err := util.ValidateVar(conversationID, "required,max=64,printascii"); err != nil {
		return nil, ErrParamInvalid
	}
	text, err := s.checkText(req.Text)
	if err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.Insert(ctx, &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	})
	if err != nil {
		return nil, translate(err)
	}

	s.indexMessage(ctx, msg)
	out := toMessageDTO(msg)
	publishEvent(ctx, s.publisher, consts.ChannelConversation+conversationID, model.EventMessageCreated, out)
	return out, nil
}

// List 历史消息分页
func (s *messageServiceImpl) List(ctx context.Context, conversationID string, req *dto.ListMessagesReq) (*dto.MessagePageDTO, error) {
	before, err := util.DecodeTimeCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	limit := req.Limit
	if limit <= 0 {
		limit = consts.DefaultPageSize
	}
	if limit > consts.MaxPageSize {
		limit = consts.MaxPageSize
	}

	messages, err := s.messageRepo.ListPage(ctx, conversationID, before, limit)
	if err != nil {
		return nil, translate(err)
	}

	page := &dto.MessagePageDTO{Messages: make([]*dto.MessageDTO, 0, len(messages))}
	for _, m := range messages {
		page.Messages = append(page.Messages, toMessageDTO(m))
	}
	if len(messages) == limit {
		page.NextCursor = util.EncodeTimeCursor(messages[0].CreatedAt)
	}
	return page, nil
}

func (s *messageServiceImpl) Get(ctx context.Context, conversationID, id string) (*dto.MessageDTO, error) {
	msg, err := s.messageRepo.GetByID(ctx, conversationID, id)
	if err != nil {
		return nil, translate(err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return toMessageDTO(msg), nil
}

// Edit 仅消息发送者可以编辑
func (s *messageServiceImpl) Edit(ctx context.Context, userID, conversationID, id string, req *dto.EditMessageReq) (*dto.MessageDTO, error) {
	text, err := s.checkText(req.Text)
	if err != nil {
		return nil, err
	}
	current, err := s.messageRepo.GetByID(ctx, conversationID, id)
	if err != nil {
		return nil, translate(err)
	}
	if current == nil {
		return nil, ErrMessageNotFound
	}
	if current.SenderID != userID {
		return nil, ErrMessageNotOwned
	}

	msg, err := s.messageRepo.UpdateText(ctx, conversationID, id, text)
	if err != nil {
		return nil, translate(err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	s.indexMessage(ctx, msg)
	out := toMessageDTO(msg)
	publishEvent(ctx, s.publisher, consts.ChannelConversation+conversationID, model.EventMessageEdited, out)
	return out, nil
}

// Delete 发送者本人或管理人员可以删除
func (s *messageServiceImpl) Delete(ctx context.Context, userID, role, conversationID, id string) error {
	current, err := s.messageRepo.GetByID(ctx, conversationID, id)
	if err != nil {
		return translate(err)
	}
	if current == nil {
		return ErrMessageNotFound
	}
	if current.SenderID != userID && !model.IsStaff(role) {
		return UnauthorizedError
	}

	deleted, err := s.messageRepo.Delete(ctx, conversationID, id)
	if err != nil {
		return translate(err)
	}
	if !deleted {
		return ErrMessageNotFound
	}

	s.unindexMessage(ctx, id)
	publishEvent(ctx, s.publisher, consts.ChannelConversation+conversationID, model.EventMessageDeleted, map[string]any{
		"id":              id,
		"conversation_id": conversationID,
	})
	return nil
}

// ToggleReaction 未生效时（消息不存在或并发冲突重试耗尽）返回 ErrActionNotApplied
func (s *messageServiceImpl) ToggleReaction(ctx context.Context, userID, conversationID, id, src string) (*dto.MessageDTO, error) {
	msg, err := s.messageRepo.ToggleReaction(ctx, conversationID, id, src, userID)
	return s.afterReaction(ctx, msg, err)
}

func (s *messageServiceImpl) RemoveReaction(ctx context.Context, userID, conversationID, id, src string) (*dto.MessageDTO, error) {
	msg, err := s.messageRepo.RemoveReaction(ctx, conversationID, id, src, userID)
	return s.afterReaction(ctx, msg, err)
}

func (s *messageServiceImpl) afterReaction(ctx context.Context, msg *model.Message, err error) (*dto.MessageDTO, error) {
	if err != nil {
		return nil, translate(err)
	}
	if msg == nil {
		return nil, ErrActionNotApplied
	}
	out := toMessageDTO(msg)
	publishEvent(ctx, s.publisher, consts.ChannelConversation+msg.ConversationID, model.EventReactionChanged, map[string]any{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"reactions":       out.Reactions,
	})
	return out, nil
}

// Search 会话内关键词搜索，结果来自搜索索引，可能与行存储短暂不一致
func (s *messageServiceImpl) Search(ctx context.Context, conversationID string, req *dto.SearchMessagesReq) (*dto.SearchResultDTO, error) {
	if s.searchRepo == nil {
		return nil, ErrSearchDisabled
	}
	if conversationID == "" || strings.TrimSpace(req.Keyword) == "" {
		return nil, ErrParamInvalid
	}
	after, err := util.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, ErrParamInvalid
	}
	size := req.Size
	if size <= 0 {
		size = 20
	}

	hits, err := s.searchRepo.Search(ctx, conversationID, req.Keyword, after, size)
	if err != nil {
		log.ErrorContext(ctx, "message search failed", "conversation_id", conversationID, "err", err)
		return nil, UnExpectedError
	}

	result := &dto.SearchResultDTO{Hits: make([]*dto.SearchHitDTO, 0, len(hits))}
	for _, h := range hits {
		item := &dto.SearchHitDTO{}
		_ = copier.Copy(item, h)
		result.Hits = append(result.Hits, item)
	}
	if len(hits) == size {
		result.NextCursor = util.EncodeCursor(hits[len(hits)-1].Sort)
	}
	return result, nil
}

func (s *messageServiceImpl) indexMessage(ctx context.Context, msg *model.Message) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.IndexMessage(ctx, es.NewMessageES(msg)); err != nil {
		log.WarnContext(ctx, "index message failed", "message_id", msg.ID, "err", err)
	}
}

func (s *messageServiceImpl) unindexMessage(ctx context.Context, id string) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.DeleteMessage(ctx, id); err != nil {
		log.WarnContext(ctx, "delete message from index failed", "message_id", id, "err", err)
	}
}

func toMessageDTO(m *model.Message) *dto.MessageDTO {
	out := &dto.MessageDTO{}
	_ = copier.Copy(out, m)
	if out.Reactions == nil {
		out.Reactions = []dto.ReactionDTO{}
	}
	return out
}
