package repository

import (
	"Parley/internal/model"
	"Parley/internal/pkg/consts"
	"Parley/internal/pkg/rowstore"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	colMessageID  = "message_id"
	colReporterID = "reporter_id"
	colStatus     = "status"
	colResolvedBy = "resolved_by"
	colResolvedAt = "resolved_at"
)

type ReportRepo interface {
	Insert(ctx context.Context, report *model.Report) (*model.Report, error)
	Get(ctx context.Context, id string) (*model.Report, error)
	List(ctx context.Context, status string, limit int) ([]*model.Report, error)
	Resolve(ctx context.Context, id, status, resolvedBy string) (*model.Report, error)
	ResolveAllForMessage(ctx context.Context, messageID, status, resolvedBy string) (int, error)
	AggregatePending(ctx context.Context, pageSize int) ([]*model.ReportGroup, error)
}

type reportRepoImpl struct {
	reports rowstore.Table
	lookup  *rowstore.LookupIndex
}

// NewReportRepo 举报按创建时间存放在固定分区中，另建 report_id 索引用于按 ID 寻址
func NewReportRepo(store rowstore.Store) ReportRepo {
	return &reportRepoImpl{
		reports: store.Table(consts.TableReports),
		lookup:  rowstore.NewLookupIndex(store.Table(consts.TableReportLookup)),
	}
}

func reportKey(createdAt time.Time, id string) rowstore.Key {
	return rowstore.Key{
		Partition:  consts.ReportsPartition,
		Clustering: fmt.Sprintf("%013d#%s", createdAt.UnixMilli(), id),
	}
}

func (s *reportRepoImpl) Insert(ctx context.Context, report *model.Report) (*model.Report, error) {
	if report == nil || report.MessageID == "" || report.ReporterID == "" {
		return nil, ErrInvalidArgument
	}
	r := *report
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Millisecond)

	key := reportKey(r.CreatedAt, r.ID)
	res, err := s.reports.InsertIfAbsent(ctx, key, rowstore.Row{
		colID:             r.ID,
		colMessageID:      r.MessageID,
		colConversationID: r.ConversationID,
		colReporterID:     r.ReporterID,
		colReason:         r.Reason,
		colStatus:         model.ReportPending,
		colCreatedAt:      r.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if !res.Applied {
		return nil, ErrDuplicateID
	}
	if err = s.lookup.Write(ctx, rowstore.Key{Partition: r.ID}, key, nil); err != nil {
		return nil, err
	}
	return toReport(res.Observed), nil
}

func (s *reportRepoImpl) Get(ctx context.Context, id string) (*model.Report, error) {
	if id == "" {
		return nil, ErrInvalidArgument
	}
	key, found, err := s.lookup.Resolve(ctx, rowstore.Key{Partition: id})
	if err != nil || !found {
		return nil, err
	}
	row, err := s.reports.Get(ctx, key)
	if errors.Is(err, rowstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toReport(row), nil
}

// List 最新的在前，status 为空时不过滤
func (s *reportRepoImpl) List(ctx context.Context, status string, limit int) ([]*model.Report, error) {
	if limit <= 0 {
		limit = consts.DefaultReportLimit
	}
	q := rowstore.Query{Partition: consts.ReportsPartition, Desc: true, Limit: limit}
	if status != "" {
		q.Where = rowstore.Cond{colStatus: status}
	}
	entries, err := rowstore.Collect(ctx, s.reports, q)
	if err != nil {
		return nil, err
	}
	reports := make([]*model.Report, 0, len(entries))
	for _, e := range entries {
		reports = append(reports, toReport(e.Row))
	}
	return reports, nil
}

func validResolution(status string) bool {
	return status == model.ReportApproved || status == model.ReportDeleted
}

// Resolve 以 status == pending 为条件写入，已处理过的举报返回 nil
func (s *reportRepoImpl) Resolve(ctx context.Context, id, status, resolvedBy string) (*model.Report, error) {
	if id == "" || !validResolution(status) {
		return nil, ErrInvalidArgument
	}
	key, found, err := s.lookup.Resolve(ctx, rowstore.Key{Partition: id})
	if err != nil || !found {
		return nil, err
	}
	return s.resolveKey(ctx, key, status, resolvedBy)
}

func (s *reportRepoImpl) resolveKey(ctx context.Context, key rowstore.Key, status, resolvedBy string) (*model.Report, error) {
	res, err := s.reports.UpdateIf(ctx, key, rowstore.Row{
		colStatus:     status,
		colResolvedBy: resolvedBy,
		colResolvedAt: time.Now(),
	}, rowstore.Cond{colStatus: model.ReportPending})
	if err != nil || !res.Applied {
		return nil, err
	}
	return toReport(res.Observed), nil
}

// ResolveAllForMessage 处理某条消息下所有待处理举报，返回本次实际处理的数量
func (s *reportRepoImpl) ResolveAllForMessage(ctx context.Context, messageID, status, resolvedBy string) (int, error) {
	if messageID == "" || !validResolution(status) {
		return 0, ErrInvalidArgument
	}
	entries, err := rowstore.Collect(ctx, s.reports, rowstore.Query{
		Partition: consts.ReportsPartition,
		Where:     rowstore.Cond{colMessageID: messageID, colStatus: model.ReportPending},
	})
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, e := range entries {
		r, err := s.resolveKey(ctx, e.Key, status, resolvedBy)
		if err != nil {
			return resolved, err
		}
		if r != nil {
			resolved++
		}
	}
	return resolved, nil
}

// AggregatePending 读取至多 pageSize 条待处理举报，在内存中按消息分组。
// 同一举报人的多次举报只计一次；按去重后人数降序，人数相同则最早举报时间较晚的在前。
func (s *reportRepoImpl) AggregatePending(ctx context.Context, pageSize int) ([]*model.ReportGroup, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	entries, err := rowstore.Collect(ctx, s.reports, rowstore.Query{
		Partition: consts.ReportsPartition,
		Desc:      true,
		Limit:     pageSize,
		Where:     rowstore.Cond{colStatus: model.ReportPending},
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == pageSize {
		log.WarnContext(ctx, "pending report aggregation hit page size, older reports ignored", "page_size", pageSize)
	}

	reports := make([]*model.Report, 0, len(entries))
	for _, e := range entries {
		reports = append(reports, toReport(e.Row))
	}
	return GroupReports(reports), nil
}

// GroupReports 按消息聚合举报并排序
func GroupReports(reports []*model.Report) []*model.ReportGroup {
	groups := make(map[string]*model.ReportGroup)
	reporters := make(map[string]map[string]struct{})
	order := make([]string, 0)

	for _, r := range reports {
		g, ok := groups[r.MessageID]
		if !ok {
			g = &model.ReportGroup{
				MessageID:      r.MessageID,
				ConversationID: r.ConversationID,
				EarliestAt:     r.CreatedAt,
			}
			groups[r.MessageID] = g
			reporters[r.MessageID] = make(map[string]struct{})
			order = append(order, r.MessageID)
		}
		if r.CreatedAt.Before(g.EarliestAt) {
			g.EarliestAt = r.CreatedAt
		}
		g.ReportIDs = append(g.ReportIDs, r.ID)
		if _, seen := reporters[r.MessageID][r.ReporterID]; !seen {
			reporters[r.MessageID][r.ReporterID] = struct{}{}
			g.Reporters = append(g.Reporters, r.ReporterID)
		}
	}

	result := make([]*model.ReportGroup, 0, len(order))
	for _, id := range order {
		g := groups[id]
		g.ReportCount = len(g.Reporters)
		result = append(result, g)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ReportCount != result[j].ReportCount {
			return result[i].ReportCount > result[j].ReportCount
		}
		return result[i].EarliestAt.After(result[j].EarliestAt)
	})
	return result
}

func toReport(row rowstore.Row) *model.Report {
	if row == nil {
		return nil
	}
	return &model.Report{
		ID:             row.String(colID),
		MessageID:      row.String(colMessageID),
		ConversationID: row.String(colConversationID),
		ReporterID:     row.String(colReporterID),
		Reason:         row.String(colReason),
		Status:         row.String(colStatus),
		CreatedAt:      row.Time(colCreatedAt),
		ResolvedBy:     row.String(colResolvedBy),
		ResolvedAt:     row.TimePtr(colResolvedAt),
	}
}
