package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/internal/model"
	"Parley/internal/pkg/rowstore"
)

func fileReport(t *testing.T, repo ReportRepo, messageID, reporter string, at time.Time) *model.Report {
	t.Helper()
	r, err := repo.Insert(context.Background(), &model.Report{
		MessageID:      messageID,
		ConversationID: "c1",
		ReporterID:     reporter,
		CreatedAt:      at,
	})
	require.NoError(t, err)
	return r
}

func TestAggregatePendingCountsDistinctReporters(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(rowstore.NewMemoryStore())
	base := time.UnixMilli(1_700_000_000_000)

	fileReport(t, repo, "m1", "a", base)
	fileReport(t, repo, "m1", "b", base.Add(time.Second))
	fileReport(t, repo, "m1", "a", base.Add(2*time.Second))
	fileReport(t, repo, "m2", "c", base.Add(3*time.Second))

	groups, err := repo.AggregatePending(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "m1", groups[0].MessageID)
	assert.Equal(t, 2, groups[0].ReportCount)
	assert.Len(t, groups[0].ReportIDs, 3)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0].Reporters)
	assert.True(t, base.Equal(groups[0].EarliestAt))

	assert.Equal(t, "m2", groups[1].MessageID)
	assert.Equal(t, 1, groups[1].ReportCount)
}

func TestGroupReportsTieBreakByRecency(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	groups := GroupReports([]*model.Report{
		{ID: "1", MessageID: "old", ReporterID: "a", CreatedAt: base},
		{ID: "2", MessageID: "new", ReporterID: "a", CreatedAt: base.Add(time.Hour)},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "new", groups[0].MessageID)
	assert.Equal(t, "old", groups[1].MessageID)
}

func TestAggregatePendingIgnoresResolved(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(rowstore.NewMemoryStore())
	r := fileReport(t, repo, "m1", "a", time.Time{})
	fileReport(t, repo, "m2", "b", time.Time{})

	resolved, err := repo.Resolve(ctx, r.ID, model.ReportApproved, "mod")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, model.ReportApproved, resolved.Status)
	assert.Equal(t, "mod", resolved.ResolvedBy)

	groups, err := repo.AggregatePending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "m2", groups[0].MessageID)
}

func TestResolveIsOneWay(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(rowstore.NewMemoryStore())
	r := fileReport(t, repo, "m1", "a", time.Time{})

	first, err := repo.Resolve(ctx, r.ID, model.ReportDeleted, "mod1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.Resolve(ctx, r.ID, model.ReportApproved, "mod2")
	require.NoError(t, err)
	assert.Nil(t, second)

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportDeleted, got.Status)
	assert.Equal(t, "mod1", got.ResolvedBy)

	_, err = repo.Resolve(ctx, r.ID, model.ReportPending, "mod")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResolveAllForMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(rowstore.NewMemoryStore())
	fileReport(t, repo, "m1", "a", time.Time{})
	fileReport(t, repo, "m1", "b", time.Time{})
	fileReport(t, repo, "m2", "c", time.Time{})

	n, err := repo.ResolveAllForMessage(ctx, "m1", model.ReportDeleted, "mod")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := repo.List(ctx, model.ReportPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "m2", pending[0].MessageID)

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAggregatePendingBoundedByPageSize(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepo(rowstore.NewMemoryStore())
	base := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 5; i++ {
		fileReport(t, repo, "m1", string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
	}
	groups, err := repo.AggregatePending(ctx, 3)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].ReportCount)
	// 只读取最新的 3 条
	assert.True(t, base.Add(2*time.Second).Equal(groups[0].EarliestAt))
}
