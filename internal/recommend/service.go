package recommend

import (
	"context"
	"fmt"

	"job-board/internal/search"
)

// Store 抽象职位查询接口，便于测试替换。
type Store interface {
	SearchJobs(ctx context.Context, spec search.Spec, opts search.Options, scopes ...search.Scope) (search.Result, error)
}

// SavedJobs 抽象收藏记录读取接口。
type SavedJobs interface {
	ListIDs(ctx context.Context, userID uint) ([]uint, error)
	ListTitles(ctx context.Context, userID uint) ([]string, error)
}

// Service 生成个性化推荐流：
// 以收藏标题挖掘的关键词画像给已发布职位打分，排除已收藏职位，
// 画像为空时退化为按时间排序的普通列表。
type Service struct {
	store Store
	saved SavedJobs
}

// NewService 创建推荐服务。
func NewService(store Store, saved SavedJobs) *Service {
	return &Service{store: store, saved: saved}
}

// Recommend 返回用户的推荐职位页。raw 为调用方附加的过滤参数。
func (s *Service) Recommend(ctx context.Context, userID uint, raw map[string]string, page search.PageRequest) (search.Result, error) {
	titles, err := s.saved.ListTitles(ctx, userID)
	if err != nil {
		return search.Result{}, fmt.Errorf("list saved titles: %w", err)
	}
	profile := MineKeywords(titles)

	savedIDs, err := s.saved.ListIDs(ctx, userID)
	if err != nil {
		return search.Result{}, fmt.Errorf("list saved ids: %w", err)
	}

	spec := search.Compile(raw)
	opts := search.Options{
		TimeColumn: "published_at",
		Keywords:   Tokens(profile),
		Page:       page,
	}
	return s.store.SearchJobs(ctx, spec, opts, search.Published(), search.Excluding(savedIDs))
}
