package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"job-board/internal/model"
	"job-board/internal/search"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound 表示单条记录不存在。
var ErrNotFound = errors.New("record not found")

// Store 封装 SQLite 数据库访问，负责职位、收藏、投递、订阅的读写。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 Store 并自动迁移数据表。
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&model.Job{}, &model.SavedJob{}, &model.Application{}, &model.Subscription{}); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	return &Store{db: db}, nil
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// SearchJobs 在给定范围内执行过滤、排序与分页。
// 计数与取数各自独立构建查询，避免排序列污染计数。
func (s *Store) SearchJobs(ctx context.Context, spec search.Spec, opts search.Options, scopes ...search.Scope) (search.Result, error) {
	page := opts.Page.Normalize()

	build := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&model.Job{})
		for _, scope := range scopes {
			db = scope(db)
		}
		return search.ApplyAll(db, search.Predicates(spec))
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return search.Result{}, fmt.Errorf("count jobs: %w", err)
	}

	query := search.ApplyOrder(build(), spec.Sort, opts).
		Offset((page.Page - 1) * page.PerPage).
		Limit(page.PerPage)

	var jobs []model.Job
	if err := query.Find(&jobs).Error; err != nil {
		return search.Result{}, fmt.Errorf("list jobs: %w", err)
	}
	return search.NewResult(jobs, page, total), nil
}

// CreateJob 写入新职位。
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob 根据 ID 获取职位。
func (s *Store) GetJob(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// UpdateJob 整行保存职位。
func (s *Store) UpdateJob(ctx context.Context, job *model.Job) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// DeleteJob 删除职位并级联清理收藏与投递记录。
func (s *Store) DeleteJob(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&model.Application{}).Error; err != nil {
			return fmt.Errorf("delete applications: %w", err)
		}
		if err := tx.Where("job_id = ?", id).Delete(&model.SavedJob{}).Error; err != nil {
			return fmt.Errorf("delete saved rows: %w", err)
		}
		res := tx.Delete(&model.Job{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListPublishedSince 返回指定时刻之后发布的职位，按发布时间升序。
func (s *Store) ListPublishedSince(ctx context.Context, since time.Time) ([]model.Job, error) {
	var jobs []model.Job
	if err := s.db.WithContext(ctx).
		Where("status = ? AND published_at > ?", model.StatusPublished, since).
		Order("published_at ASC, id ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list published since: %w", err)
	}
	return jobs, nil
}

// SaveJobForUser 收藏职位，重复收藏幂等（主键冲突时忽略）。
func (s *Store) SaveJobForUser(ctx context.Context, userID, jobID uint) error {
	row := model.SavedJob{UserID: userID, JobID: jobID}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
		DoNothing: true,
	}).Create(&row)
	if tx.Error != nil {
		return fmt.Errorf("save job: %w", tx.Error)
	}
	return nil
}

// UnsaveJobForUser 取消收藏，记录不存在时视为成功。
func (s *Store) UnsaveJobForUser(ctx context.Context, userID, jobID uint) error {
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Delete(&model.SavedJob{}).Error; err != nil {
		return fmt.Errorf("unsave job: %w", err)
	}
	return nil
}

// ListSavedJobIDs 返回用户收藏的职位 ID 集合。
func (s *Store) ListSavedJobIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&model.SavedJob{}).
		Where("user_id = ?", userID).
		Pluck("job_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list saved job ids: %w", err)
	}
	return ids, nil
}

// ListSavedJobTitles 返回用户收藏职位的标题列表，按收藏时间升序。
func (s *Store) ListSavedJobTitles(ctx context.Context, userID uint) ([]string, error) {
	var titles []string
	if err := s.db.WithContext(ctx).Model(&model.SavedJob{}).
		Joins("JOIN jobs ON jobs.id = saved_jobs.job_id").
		Where("saved_jobs.user_id = ?", userID).
		Order("saved_jobs.created_at ASC").
		Pluck("jobs.title", &titles).Error; err != nil {
		return nil, fmt.Errorf("list saved job titles: %w", err)
	}
	return titles, nil
}

// ListSavedJobs 返回用户收藏的职位页，按收藏时间倒序。
func (s *Store) ListSavedJobs(ctx context.Context, userID uint, page search.PageRequest) (search.Result, error) {
	page = page.Normalize()

	build := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&model.Job{}).
			Joins("JOIN saved_jobs ON saved_jobs.job_id = jobs.id").
			Where("saved_jobs.user_id = ?", userID)
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return search.Result{}, fmt.Errorf("count saved jobs: %w", err)
	}

	var jobs []model.Job
	if err := build().
		Select("jobs.*").
		Order("saved_jobs.created_at DESC, jobs.id DESC").
		Offset((page.Page - 1) * page.PerPage).
		Limit(page.PerPage).
		Find(&jobs).Error; err != nil {
		return search.Result{}, fmt.Errorf("list saved jobs: %w", err)
	}
	return search.NewResult(jobs, page, total), nil
}

// CreateApplication 写入新投递。
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetApplication 根据 ID 获取投递。
func (s *Store) GetApplication(ctx context.Context, id uint) (*model.Application, error) {
	var app model.Application
	if err := s.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

// UpdateApplication 整行保存投递。
func (s *Store) UpdateApplication(ctx context.Context, app *model.Application) error {
	if err := s.db.WithContext(ctx).Save(app).Error; err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	return nil
}

// DeleteApplication 删除投递。
func (s *Store) DeleteApplication(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&model.Application{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// HasApplication 判断用户是否已投递指定职位。
func (s *Store) HasApplication(ctx context.Context, jobID, applicantID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("job_id = ? AND applicant_id = ?", jobID, applicantID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check application: %w", err)
	}
	return count > 0, nil
}

// ListApplicationsForJob 返回职位收到的全部投递，按投递时间升序。
func (s *Store) ListApplicationsForJob(ctx context.Context, jobID uint) ([]model.Application, error) {
	var apps []model.Application
	if err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC, id ASC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// CreateSubscription 新增订阅。
func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// ListSubscriptions 返回所有订阅记录。
func (s *Store) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}
