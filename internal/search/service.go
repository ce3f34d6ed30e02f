package search

import "context"

// Store 抽象存储执行接口，便于测试替换。
type Store interface {
	SearchJobs(ctx context.Context, spec Spec, opts Options, scopes ...Scope) (Result, error)
}

// Service 对外提供职位搜索入口：先编译过滤条件，再交由存储执行。
type Service struct {
	store Store
}

// NewService 创建搜索服务。
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SearchPublished 在已发布职位范围内搜索，公共列表按发布时间排序。
func (s *Service) SearchPublished(ctx context.Context, raw map[string]string, page PageRequest) (Result, error) {
	spec := Compile(raw)
	opts := Options{TimeColumn: "published_at", Page: page}
	return s.store.SearchJobs(ctx, spec, opts, Published())
}

// SearchOwned 在指定雇主的职位范围内搜索，含草稿，按创建时间排序。
func (s *Service) SearchOwned(ctx context.Context, employerID uint, raw map[string]string, page PageRequest) (Result, error) {
	spec := Compile(raw)
	opts := Options{TimeColumn: "created_at", Page: page}
	return s.store.SearchJobs(ctx, spec, opts, OwnedBy(employerID))
}
