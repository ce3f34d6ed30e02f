package search

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Options 控制排序与评分叠加。
// TimeColumn 为主排序时间列（created_at 或 published_at），缺省 created_at；
// Keywords 非空时启用相关度评分，评分降序成为第一排序键。
type Options struct {
	TimeColumn string
	Keywords   []string
	Page       PageRequest
}

// 相关度权重：标题命中 3 分，描述与地点各 1 分，按关键词累加。
const (
	weightTitle       = 3
	weightDescription = 1
	weightLocation    = 1
)

// ScoreExpr 构造按关键词累加的 CASE WHEN 相关度表达式及绑定参数。
func ScoreExpr(keywords []string) (string, []any) {
	terms := make([]string, 0, len(keywords))
	args := make([]any, 0, len(keywords)*3)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		needle := "%" + kw + "%"
		terms = append(terms, fmt.Sprintf(
			"(CASE WHEN LOWER(title) LIKE ? THEN %d ELSE 0 END + CASE WHEN LOWER(COALESCE(search_text, '')) LIKE ? THEN %d ELSE 0 END + CASE WHEN LOWER(COALESCE(location, '')) LIKE ? THEN %d ELSE 0 END)",
			weightTitle, weightDescription, weightLocation))
		args = append(args, needle, needle, needle)
	}
	if len(terms) == 0 {
		return "", nil
	}
	return strings.Join(terms, " + "), args
}

// ApplyOrder 施加评分列与排序：评分激活时相关度优先，
// 时间列与 id 作为次级与末级排序键，保证全序、分页稳定。
func ApplyOrder(db *gorm.DB, sort Sort, opts Options) *gorm.DB {
	col := opts.TimeColumn
	if col == "" {
		col = "created_at"
	}
	dir := "DESC"
	if sort == SortOldest {
		dir = "ASC"
	}
	if expr, args := ScoreExpr(opts.Keywords); expr != "" {
		db = db.Select("*, ("+expr+") AS relevance", args...).Order("relevance DESC")
	}
	return db.Order(fmt.Sprintf("%s %s, id %s", col, dir, dir))
}
