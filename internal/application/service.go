package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"job-board/internal/model"
)

// 业务冲突错误，传输层映射为 409。
var (
	ErrNotPublished   = errors.New("job is not published")
	ErrAlreadyApplied = errors.New("already applied to this job")
)

// ValidationError 表示投递状态迁移非法。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// validTransitions 列出投递状态机允许的迁移，
// rejected 与 accepted 为终态。
var validTransitions = map[string][]string{
	model.ApplicationSubmitted: {model.ApplicationReviewed, model.ApplicationRejected, model.ApplicationAccepted},
	model.ApplicationReviewed:  {model.ApplicationRejected, model.ApplicationAccepted},
}

// Store 抽象投递持久化接口，便于测试替换。
type Store interface {
	GetJob(ctx context.Context, id uint) (*model.Job, error)
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, id uint) (*model.Application, error)
	UpdateApplication(ctx context.Context, app *model.Application) error
	DeleteApplication(ctx context.Context, id uint) error
	HasApplication(ctx context.Context, jobID, applicantID uint) (bool, error)
	ListApplicationsForJob(ctx context.Context, jobID uint) ([]model.Application, error)
}

// Blobs 抽象简历文件存储。
type Blobs interface {
	Store(r io.Reader) (string, error)
	Delete(key string) error
	Download(key string) (io.ReadCloser, error)
}

// Service 维护职位投递写路径：仅已发布职位可投递，
// (job, applicant) 至多一条投递，简历存入文件存储后以键关联。
type Service struct {
	store Store
	blobs Blobs
}

// NewService 创建投递服务。
func NewService(store Store, blobs Blobs) *Service {
	return &Service{store: store, blobs: blobs}
}

// Apply 投递职位。resume 为 nil 时不携带简历。
func (s *Service) Apply(ctx context.Context, applicantID, jobID uint, message string, resume io.Reader, resumeName string) (*model.Application, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.StatusPublished {
		return nil, ErrNotPublished
	}

	exists, err := s.store.HasApplication(ctx, jobID, applicantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyApplied
	}

	app := &model.Application{
		JobID:       jobID,
		ApplicantID: applicantID,
		Message:     message,
		Status:      model.ApplicationSubmitted,
	}
	if resume != nil {
		key, err := s.blobs.Store(resume)
		if err != nil {
			return nil, fmt.Errorf("store resume: %w", err)
		}
		app.ResumeKey = key
		app.ResumeName = resumeName
	}

	if err := s.store.CreateApplication(ctx, app); err != nil {
		// 并发重复投递由 (job_id, applicant_id) 唯一索引兜底，
		// 失败时回收已写入的简历文件。
		if app.ResumeKey != "" {
			if derr := s.blobs.Delete(app.ResumeKey); derr != nil {
				log.Printf("cleanup resume %s: %v", app.ResumeKey, derr)
			}
		}
		return nil, err
	}
	return app, nil
}

// Withdraw 撤回本人投递并清理简历文件。
func (s *Service) Withdraw(ctx context.Context, applicantID, appID uint) error {
	app, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return err
	}
	if app.ApplicantID != applicantID {
		return &ValidationError{Msg: "application belongs to another applicant"}
	}
	if err := s.store.DeleteApplication(ctx, appID); err != nil {
		return err
	}
	if app.ResumeKey != "" {
		if err := s.blobs.Delete(app.ResumeKey); err != nil {
			log.Printf("cleanup resume %s: %v", app.ResumeKey, err)
		}
	}
	return nil
}

// ListForJob 返回职位收到的投递，供属主雇主查看。
func (s *Service) ListForJob(ctx context.Context, jobID uint) ([]model.Application, error) {
	return s.store.ListApplicationsForJob(ctx, jobID)
}

// UpdateStatus 迁移投递状态，非法迁移返回 ValidationError。
func (s *Service) UpdateStatus(ctx context.Context, appID uint, newStatus string) (*model.Application, error) {
	app, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(app.Status, newStatus) {
		return nil, &ValidationError{Msg: fmt.Sprintf("transition %s -> %s is not allowed", app.Status, newStatus)}
	}
	app.Status = newStatus
	if err := s.store.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// DownloadResume 打开投递附带的简历。无简历时返回 NotFound 语义由调用方处理。
func (s *Service) DownloadResume(ctx context.Context, appID uint) (io.ReadCloser, string, error) {
	app, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, "", err
	}
	if app.ResumeKey == "" {
		return nil, "", fmt.Errorf("application %d has no resume", appID)
	}
	rc, err := s.blobs.Download(app.ResumeKey)
	if err != nil {
		return nil, "", err
	}
	return rc, app.ResumeName, nil
}

// Get 返回单条投递，供传输层做属主校验。
func (s *Service) Get(ctx context.Context, appID uint) (*model.Application, error) {
	return s.store.GetApplication(ctx, appID)
}

func transitionAllowed(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
