package repository

import (
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	colID             = "id"
	colConversationID = "conversation_id"
	colSenderID       = "sender_id"
	colText           = "text"
	colCreatedAt      = "created_at"
	colEditedAt       = "edited_at"
	colReactions      = "reactions"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *model.Message) (*model.Message, error)
	ListPage(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*model.Message, error)
	GetByID(ctx context.Context, conversationID, id string) (*model.Message, error)
	UpdateText(ctx context.Context, conversationID, id, text string) (*model.Message, error)
	Delete(ctx context.Context, conversationID, id string) (bool, error)
	ToggleReaction(ctx context.Context, conversationID, id, src, userID string) (*model.Message, error)
	RemoveReaction(ctx context.Context, conversationID, id, src, userID string) (*model.Message, error)
	DeleteAllBySender(ctx context.Context, senderID string) ([]*model.Message, error)
}

type messageRepoImpl struct {
	messages rowstore.Table
	lookup   *rowstore.LookupIndex
}

func NewMessageRepo(store rowstore.Store) MessageRepo {
	return &messageRepoImpl{
		messages: store.Table(consts.TableMessages),
		lookup:   rowstore.NewLookupIndex(store.Table(consts.TableMessageLookup)),
	}
}

// messageKey 聚簇键为 13 位毫秒时间戳 + 消息 ID，字典序即时间序
func messageKey(conversationID string, createdAt time.Time, id string) rowstore.Key {
	return rowstore.Key{
		Partition:  conversationID,
		Clustering: fmt.Sprintf("%013d#%s", createdAt.UnixMilli(), id),
	}
}

func lookupKey(conversationID, id string) rowstore.Key {
	return rowstore.Key{Partition: conversationID, Clustering: id}
}

// Insert 先写主表再写索引，两次写入之间崩溃会留下无索引的消息
func (s *messageRepoImpl) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg == nil || msg.ConversationID == "" || msg.SenderID == "" {
		return nil, ErrInvalidArgument
	}
	m := *msg
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC().Truncate(time.Millisecond)
	m.EditedAt = nil

	reactions, err := model.EncodeReactions(m.Reactions)
	if err != nil {
		return nil, err
	}
	key := messageKey(m.ConversationID, m.CreatedAt, m.ID)
	res, err := s.messages.InsertIfAbsent(ctx, key, rowstore.Row{
		colID:             m.ID,
		colConversationID: m.ConversationID,
		colSenderID:       m.SenderID,
		colText:           m.Text,
		colCreatedAt:      m.CreatedAt,
		colReactions:      reactions,
	})
	if err != nil {
		return nil, err
	}
	if !res.Applied {
		return nil, ErrDuplicateID
	}

	if err = s.lookup.Write(ctx, lookupKey(m.ConversationID, m.ID), key, rowstore.Row{colCreatedAt: m.CreatedAt}); err != nil {
		log.ErrorContext(ctx, "message lookup write failed, message is unaddressable by id",
			"conversation_id", m.ConversationID, "message_id", m.ID, "err", err)
		return nil, err
	}
	return toMessage(res.Observed)
}

// ListPage 返回 before 之前（不含）最近的 limit 条消息，按时间正序
func (s *messageRepoImpl) ListPage(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*model.Message, error) {
	if conversationID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = consts.DefaultPageSize
	}
	q := rowstore.Query{Partition: conversationID, Desc: true, Limit: limit}
	if before != nil {
		q.Before = fmt.Sprintf("%013d", before.UnixMilli())
	}

	entries, err := rowstore.Collect(ctx, s.messages, q)
	if err != nil {
		return nil, err
	}
	messages := make([]*model.Message, 0, len(entries))
	for _, e := range entries {
		m, err := toMessage(e.Row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	slices.Reverse(messages)
	return messages, nil
}

// resolve 通过索引定位主表键，索引缺失即视为消息不存在
func (s *messageRepoImpl) resolve(ctx context.Context, conversationID, id string) (rowstore.Key, bool, error) {
	if conversationID == "" || id == "" {
		return rowstore.Key{}, false, ErrInvalidArgument
	}
	return s.lookup.Resolve(ctx, lookupKey(conversationID, id))
}

func (s *messageRepoImpl) GetByID(ctx context.Context, conversationID, id string) (*model.Message, error) {
	key, found, err := s.resolve(ctx, conversationID, id)
	if err != nil || !found {
		return nil, err
	}
	row, err := s.messages.Get(ctx, key)
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toMessage(row)
}

func (s *messageRepoImpl) UpdateText(ctx context.Context, conversationID, id, text string) (*model.Message, error) {
	key, found, err := s.resolve(ctx, conversationID, id)
	if err != nil || !found {
		return nil, err
	}
	res, err := s.messages.UpdateIf(ctx, key, rowstore.Row{
		colText:     text,
		colEditedAt: time.Now(),
	}, nil)
	if err != nil || !res.Applied {
		return nil, err
	}
	return toMessage(res.Observed)
}

// Delete 先删索引再删主表，主表删除失败时消息已不可按 ID 访问
func (s *messageRepoImpl) Delete(ctx context.Context, conversationID, id string) (bool, error) {
	key, found, err := s.resolve(ctx, conversationID, id)
	if err != nil || !found {
		return false, err
	}
	if err = s.deleteKey(ctx, lookupKey(conversationID, id), key); err != nil {
		return false, err
	}
	return true, nil
}

func (s *messageRepoImpl) deleteKey(ctx context.Context, natural, key rowstore.Key) error {
	if err := s.lookup.Delete(ctx, natural); err != nil {
		return err
	}
	return s.messages.Delete(ctx, key)
}

func (s *messageRepoImpl) ToggleReaction(ctx context.Context, conversationID, id, src, userID string) (*model.Message, error) {
	return s.mutateReactions(ctx, conversationID, id, src, userID, false)
}

// RemoveReaction 用户未回应时直接返回 nil，不会产生一次反向切换
func (s *messageRepoImpl) RemoveReaction(ctx context.Context, conversationID, id, src, userID string) (*model.Message, error) {
	return s.mutateReactions(ctx, conversationID, id, src, userID, true)
}

// mutateReactions 读取-切换-条件写入，条件为读到的原始列值（包括为空的情况）。
// 重试耗尽返回 nil，调用方应视为稍后重试。
func (s *messageRepoImpl) mutateReactions(ctx context.Context, conversationID, id, src, userID string, removeOnly bool) (*model.Message, error) {
	if src == "" || userID == "" {
		return nil, ErrInvalidArgument
	}
	key, found, err := s.resolve(ctx, conversationID, id)
	if err != nil || !found {
		return nil, err
	}

	msg, err := rowstore.Optimistic(ctx, rowstore.MaxAttempts, func(ctx context.Context, attempt int) (*model.Message, bool, error) {
		row, err := s.messages.Get(ctx, key)
		if errors.Is(err, rowstore.ErrNotFound) {
			return nil, true, nil
		}
		if err != nil {
			return nil, false, err
		}

		current := row[colReactions]
		reactions, err := model.DecodeReactions(row.String(colReactions))
		if err != nil {
			return nil, false, err
		}
		if removeOnly && !model.HasReacted(reactions, src, userID) {
			return nil, true, nil
		}
		encoded, err := model.EncodeReactions(model.ToggleReaction(reactions, src, userID))
		if err != nil {
			return nil, false, err
		}

		res, err := s.messages.UpdateIf(ctx, key,
			rowstore.Row{colReactions: encoded},
			rowstore.Cond{colReactions: current},
		)
		if err != nil {
			return nil, false, err
		}
		if !res.Applied {
			return nil, false, nil
		}
		m, err := toMessage(res.Observed)
		return m, true, err
	})
	if errors.Is(err, rowstore.ErrContention) {
		log.WarnContext(ctx, "reaction toggle gave up after concurrent updates",
			"conversation_id", conversationID, "message_id", id, "src", src)
		return nil, nil
	}
	return msg, err
}

// DeleteAllBySender 全表扫描按发送者过滤，没有任何索引支持，代价与表大小成正比。
// 先收集键再逐条删除（先索引后主表），返回被删除的消息。
func (s *messageRepoImpl) DeleteAllBySender(ctx context.Context, senderID string) ([]*model.Message, error) {
	if senderID == "" {
		return nil, ErrInvalidArgument
	}
	entries, err := rowstore.Collect(ctx, s.messages, rowstore.Query{
		Where: rowstore.Cond{colSenderID: senderID},
	})
	if err != nil {
		return nil, err
	}

	deleted := make([]*model.Message, 0, len(entries))
	for _, e := range entries {
		m, err := toMessage(e.Row)
		if err != nil {
			return deleted, err
		}
		if err = s.deleteKey(ctx, lookupKey(m.ConversationID, m.ID), e.Key); err != nil {
			return deleted, err
		}
		deleted = append(deleted, m)
	}
	log.InfoContext(ctx, "deleted all messages by sender", "sender_id", senderID, "count", len(deleted))
	return deleted, nil
}

func toMessage(row rowstore.Row) (*model.Message, error) {
	if row == nil {
		return nil, nil
	}
	reactions, err := model.DecodeReactions(row.String(colReactions))
	if err != nil {
		return nil, err
	}
	return &model.Message{
		ID:             row.String(colID),
		ConversationID: row.String(colConversationID),
		SenderID:       row.String(colSenderID),
		Text:           row.String(colText),
		CreatedAt:      row.Time(colCreatedAt),
		EditedAt:       row.TimePtr(colEditedAt),
		Reactions:      reactions,
	}, nil
}
