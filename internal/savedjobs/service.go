package savedjobs

import (
	"context"
	"errors"
	"fmt"

	"job-board/internal/model"
	"job-board/internal/search"
)

// ErrNotPublished 表示目标职位不可收藏（草稿或已撤回）。
var ErrNotPublished = errors.New("job is not published")

// Store 抽象收藏持久化接口，便于测试替换。
type Store interface {
	GetJob(ctx context.Context, id uint) (*model.Job, error)
	SaveJobForUser(ctx context.Context, userID, jobID uint) error
	UnsaveJobForUser(ctx context.Context, userID, jobID uint) error
	ListSavedJobIDs(ctx context.Context, userID uint) ([]uint, error)
	ListSavedJobTitles(ctx context.Context, userID uint) ([]string, error)
	ListSavedJobs(ctx context.Context, userID uint, page search.PageRequest) (search.Result, error)
}

// Service 维护用户收藏：仅已发布职位可收藏，重复收藏幂等。
type Service struct {
	store Store
}

// NewService 创建收藏服务。
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Save 收藏职位。职位不存在返回存储层 NotFound，未发布返回 ErrNotPublished。
func (s *Service) Save(ctx context.Context, userID, jobID uint) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.StatusPublished {
		return ErrNotPublished
	}
	if err := s.store.SaveJobForUser(ctx, userID, jobID); err != nil {
		return fmt.Errorf("save job %d for user %d: %w", jobID, userID, err)
	}
	return nil
}

// Unsave 取消收藏，记录不存在时同样成功。
func (s *Service) Unsave(ctx context.Context, userID, jobID uint) error {
	return s.store.UnsaveJobForUser(ctx, userID, jobID)
}

// ListIDs 返回用户收藏的职位 ID 集合。
func (s *Service) ListIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.store.ListSavedJobIDs(ctx, userID)
}

// ListTitles 返回用户收藏职位的标题，供关键词挖掘使用。
func (s *Service) ListTitles(ctx context.Context, userID uint) ([]string, error) {
	return s.store.ListSavedJobTitles(ctx, userID)
}

// List 返回用户收藏的职位页。
func (s *Service) List(ctx context.Context, userID uint, page search.PageRequest) (search.Result, error) {
	return s.store.ListSavedJobs(ctx, userID, page)
}
