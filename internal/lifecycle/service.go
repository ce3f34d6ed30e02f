package lifecycle

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"job-board/internal/model"

	"gorm.io/datatypes"
)

// ValidationError 表示业务规则校验失败，传输层映射为 422。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Store 抽象职位写路径接口，便于测试替换。
type Store interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id uint) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	DeleteJob(ctx context.Context, id uint) error
	ListApplicationsForJob(ctx context.Context, jobID uint) ([]model.Application, error)
}

// Blobs 抽象简历文件的删除，删除职位时级联清理。
type Blobs interface {
	Delete(key string) error
}

// Input 是创建/更新职位的载荷，nil 字段表示未提供。
type Input struct {
	Title          *string
	Description    *string
	Location       *string
	SalaryMin      *int
	SalaryMax      *int
	SalaryCurrency *string
	SalaryPeriod   *string
	IsRemote       *bool
	Status         *string
	Tags           map[string]any
}

// Service 维护职位 draft/published 状态机与写路径不变量：
// status 为 published 当且仅当 PublishedAt 非空。
// 调用方须已通过属主授权检查。
type Service struct {
	store Store
	blobs Blobs
	now   func() time.Time
}

// NewService 创建职位生命周期服务。
func NewService(store Store, blobs Blobs) *Service {
	return &Service{store: store, blobs: blobs, now: time.Now}
}

// ParseStatus 校验状态取值，仅接受 draft 与 published。
func ParseStatus(s string) (string, error) {
	switch s {
	case model.StatusDraft, model.StatusPublished:
		return s, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Create 创建职位，未指定状态时默认 draft；
// 以 published 创建时立即盖上发布时间。
func (s *Service) Create(ctx context.Context, employerID uint, in Input) (*model.Job, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, &ValidationError{Msg: "title is required"}
	}

	job := &model.Job{
		EmployerID: employerID,
		Title:      strings.TrimSpace(*in.Title),
		Status:     model.StatusDraft,
	}
	applyFields(job, in)

	if in.Status != nil {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		job.Status = status
	}
	if job.Status == model.StatusPublished {
		now := s.now()
		job.PublishedAt = &now
	}

	if err := validateSalary(job); err != nil {
		return nil, err
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Update 应用载荷并执行状态迁移：
// draft -> published 仅在发布时间为空时盖章（重复发布保留原时间）；
// published -> draft 清空发布时间；未提供状态字段时发布时间不动。
func (s *Service) Update(ctx context.Context, id uint, in Input) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, &ValidationError{Msg: "title is required"}
		}
		job.Title = title
	}
	applyFields(job, in)

	if in.Status != nil {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, &ValidationError{Msg: err.Error()}
		}
		switch status {
		case model.StatusPublished:
			if job.PublishedAt == nil {
				now := s.now()
				job.PublishedAt = &now
			}
		case model.StatusDraft:
			job.PublishedAt = nil
		}
		job.Status = status
	}

	if err := validateSalary(job); err != nil {
		return nil, err
	}
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete 删除职位，存储层级联清理收藏与投递，
// 随后清理投递携带的简历文件。级联先于删除取投递列表，
// 文件清理失败只记日志，不阻断删除。
func (s *Service) Delete(ctx context.Context, id uint) error {
	apps, err := s.store.ListApplicationsForJob(ctx, id)
	if err != nil {
		return fmt.Errorf("list applications for job %d: %w", id, err)
	}
	if err := s.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	for _, app := range apps {
		if app.ResumeKey == "" {
			continue
		}
		if err := s.blobs.Delete(app.ResumeKey); err != nil {
			log.Printf("cleanup resume %s: %v", app.ResumeKey, err)
		}
	}
	return nil
}

func applyFields(job *model.Job, in Input) {
	if in.Description != nil {
		job.Description = *in.Description
	}
	if in.Location != nil {
		if loc := strings.TrimSpace(*in.Location); loc == "" {
			job.Location = nil
		} else {
			job.Location = &loc
		}
	}
	if in.SalaryMin != nil {
		job.SalaryMin = in.SalaryMin
	}
	if in.SalaryMax != nil {
		job.SalaryMax = in.SalaryMax
	}
	if in.SalaryCurrency != nil {
		if cur := strings.TrimSpace(*in.SalaryCurrency); cur == "" {
			job.SalaryCurrency = nil
		} else {
			job.SalaryCurrency = &cur
		}
	}
	if in.SalaryPeriod != nil {
		if p := strings.TrimSpace(*in.SalaryPeriod); p == "" {
			job.SalaryPeriod = nil
		} else {
			job.SalaryPeriod = &p
		}
	}
	if in.IsRemote != nil {
		job.IsRemote = *in.IsRemote
	}
	if in.Tags != nil {
		job.Tags = datatypes.JSONMap(in.Tags)
	}
}

func validateSalary(job *model.Job) error {
	if job.SalaryMin != nil && *job.SalaryMin < 0 {
		return &ValidationError{Msg: "salary_min must not be negative"}
	}
	if job.SalaryMax != nil && *job.SalaryMax < 0 {
		return &ValidationError{Msg: "salary_max must not be negative"}
	}
	if job.SalaryMin != nil && job.SalaryMax != nil && *job.SalaryMin > *job.SalaryMax {
		return &ValidationError{Msg: "salary_min must not exceed salary_max"}
	}
	return nil
}
