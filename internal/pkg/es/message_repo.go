package es

import (
	"context"
	"errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/conflicts"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

type MessageRepo interface {
	IndexMessage(ctx context.Context, msg *MessageES) error
	DeleteMessage(ctx context.Context, id string) error
	DeleteBySender(ctx context.Context, senderID string) (int64, error)
	Search(ctx context.Context, conversationID, keyword string, lastSortValues []interface{}, size int) ([]*MessageES, error)
}

type MessageRepoImpl struct {
	client *elasticsearch.TypedClient
	index  string
}

func NewMessageRepo(client *elasticsearch.TypedClient, index string) MessageRepo {
	return &MessageRepoImpl{client: client, index: index}
}

// EnsureMessageIndex 索引不存在时按固定 mapping 创建，标识字段必须是 keyword 才能精确过滤
func EnsureMessageIndex(ctx context.Context, client *elasticsearch.TypedClient, index string) error {
	exists, err := client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = client.Indices.Create(index).Mappings(&types.TypeMapping{
		Properties: map[string]types.Property{
			"id":              types.NewKeywordProperty(),
			"conversation_id": types.NewKeywordProperty(),
			"sender_id":       types.NewKeywordProperty(),
			"text":            types.NewTextProperty(),
			"created_at":      types.NewDateProperty(),
		},
	}).Do(ctx)
	return err
}

func (s *MessageRepoImpl) IndexMessage(ctx context.Context, msg *MessageES) error {
	_, err := s.client.Index(s.index).
		Id(msg.ID).
		Document(msg).
		Do(ctx)
	return err
}

func (s *MessageRepoImpl) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.client.Delete(s.index, id).Do(ctx)

	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) {
			if e.Status == NotFoundCode {
				return nil
			}
		}
		return err
	}

	return nil
}

// DeleteBySender 删除某用户的全部消息文档，返回删除数量
func (s *MessageRepoImpl) DeleteBySender(ctx context.Context, senderID string) (int64, error) {
	resp, err := s.client.DeleteByQuery(s.index).
		Query(&types.Query{
			Term: map[string]types.TermQuery{
				"sender_id": {Value: senderID},
			},
		}).
		Conflicts(conflicts.Proceed).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if resp.Deleted == nil {
		return 0, nil
	}
	return *resp.Deleted, nil
}

// Search 会话内关键词检索，按时间倒序，lastSortValues 为上一页最后一条的排序值
func (s *MessageRepoImpl) Search(ctx context.Context, conversationID, keyword string, lastSortValues []interface{}, size int) ([]*MessageES, error) {
	req := s.client.Search().
		Index(s.index).
		Query(&types.Query{
			Bool: &types.BoolQuery{
				Must: []types.Query{{
					Match: map[string]types.MatchQuery{
						"text": {Query: keyword},
					},
				}},
				Filter: []types.Query{{
					Term: map[string]types.TermQuery{
						"conversation_id": {Value: conversationID},
					},
				}},
			},
		}).
		Sort(
			types.SortOptions{SortOptions: map[string]types.FieldSort{
				"created_at": {Order: &sortorder.Desc},
			}},
			types.SortOptions{SortOptions: map[string]types.FieldSort{
				"id": {Order: &sortorder.Asc},
			}},
		).
		Size(size)

	// 注入游标
	if len(lastSortValues) > 0 {
		searchAfterValues := make([]types.FieldValue, len(lastSortValues))
		for i, v := range lastSortValues {
			searchAfterValues[i] = v
		}
		req.SearchAfter(searchAfterValues...)
	}

	return s.executeSearch(ctx, req)
}

func (s *MessageRepoImpl) executeSearch(ctx context.Context, req *search.Search) ([]*MessageES, error) {
	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*MessageES, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var msg MessageES
		if hit.Source_ == nil {
			continue
		}
		if err = json.Unmarshal(hit.Source_, &msg); err != nil {
			continue
		}
		if len(hit.Sort) > 0 {
			msg.Sort = make([]interface{}, len(hit.Sort))
			for i, v := range hit.Sort {
				msg.Sort[i] = v
			}
		}
		results = append(results, &msg)
	}
	return results, nil
}
