package report_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/domain/reports"
)

var (
	from = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to   = from.AddDate(0, 1, 0)
)

func TestCountedWhere(t *testing.T) {
	sql, args, err := countedWhere(reports.SalesFilter{
		From:      from,
		To:        to,
		OwnerRef:  "PH-1",
		BranchRef: "BR-2",
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"(t.status IN (?,?,?) AND t.transaction_date >= ? AND t.transaction_date < ? AND t.owner_ref = ? AND t.branch_ref = ?)",
		sql)
	assert.Equal(t, []any{"completed", "partially_refunded", "refunded", from, to, "PH-1", "BR-2"}, args)
}

func TestBucketQuery(t *testing.T) {
	repo := NewReportRepo(nil)

	tests := []struct {
		group reports.Grouping
		want  []string
	}{
		{reports.GroupByDay, []string{"'YYYY-MM-DD'", "GROUP BY 1", "AT TIME ZONE 'UTC'"}},
		{reports.GroupByHour, []string{"'HH24'", "GROUP BY 1"}},
		{reports.GroupByCategory, []string{"jsonb_array_elements(t.doc->'items')", "'uncategorized'", "li->>'totalPrice'"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.group), func(t *testing.T) {
			q, err := repo.bucketQuery(reports.SalesFilter{From: from, To: to, GroupBy: tt.group})
			require.NoError(t, err)
			sql, _, err := q.ToSql()
			require.NoError(t, err)
			for _, fragment := range tt.want {
				assert.Contains(t, sql, fragment)
			}
			assert.True(t, strings.Contains(sql, "$1"), "uses dollar placeholders")
		})
	}
}

func TestBucketQuery_UnknownGrouping(t *testing.T) {
	_, err := NewReportRepo(nil).bucketQuery(reports.SalesFilter{GroupBy: "week"})
	assert.Error(t, err)
}
