package audit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Drift 一条计数器偏差：Stored 为冗余字段的值，Actual 为根据明细重新统计的值
type Drift struct {
	Table   string `db:"-" json:"table"`
	Counter string `db:"-" json:"counter"`
	ID      uint   `db:"id" json:"id"`
	Stored  int64  `db:"stored" json:"stored"`
	Actual  int64  `db:"actual" json:"actual"`
}

// Report 审计结果
type Report struct {
	Drifts []Drift `json:"drifts"`
}

// Clean 没有任何偏差
func (r Report) Clean() bool {
	return len(r.Drifts) == 0
}

const repliesCountQuery = `
SELECT p.id, p.replies_count AS stored, COUNT(r.id) AS actual
FROM posts p
LEFT JOIN replies r ON r.post_id = p.id AND r.deleted_at IS NULL
WHERE p.deleted_at IS NULL
GROUP BY p.id, p.replies_count
HAVING p.replies_count <> COUNT(r.id)
ORDER BY p.id`

const voteSum = `COALESCE(SUM(CASE v.vote_type WHEN 'like' THEN 1 WHEN 'dislike' THEN -1 ELSE 0 END), 0)`

var postLikesQuery = `
SELECT p.id, p.likes AS stored, ` + voteSum + ` AS actual
FROM posts p
LEFT JOIN votes v ON v.post_id = p.id
WHERE p.deleted_at IS NULL
GROUP BY p.id, p.likes
HAVING p.likes <> ` + voteSum + `
ORDER BY p.id`

var replyLikesQuery = `
SELECT r.id, r.likes AS stored, ` + voteSum + ` AS actual
FROM replies r
LEFT JOIN votes v ON v.reply_id = r.id
WHERE r.deleted_at IS NULL
GROUP BY r.id, r.likes
HAVING r.likes <> ` + voteSum + `
ORDER BY r.id`

// Auditor 只读地核对冗余计数器与明细行，不做修复
type Auditor struct {
	db *sqlx.DB
}

func NewAuditor(db *sqlx.DB) *Auditor {
	return &Auditor{db: db}
}

type check struct {
	table, counter, query string
}

var checks = []check{
	{"posts", "replies_count", repliesCountQuery},
	{"posts", "likes", postLikesQuery},
	{"replies", "likes", replyLikesQuery},
}

// Run 依次执行所有检查
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	var report Report
	for _, c := range checks {
		var rows []Drift
		if err := a.db.SelectContext(ctx, &rows, c.query); err != nil {
			return report, fmt.Errorf("audit %s.%s: %w", c.table, c.counter, err)
		}
		for i := range rows {
			rows[i].Table = c.table
			rows[i].Counter = c.counter
		}
		report.Drifts = append(report.Drifts, rows...)
	}
	return report, nil
}
