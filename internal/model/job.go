package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"job-board/internal/textutil"
)

// 职位状态。只有 published 的职位对外可见、可投递、可收藏。
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Job 表示一条职位信息，归属于唯一的雇主
// - EmployerID: 发布者
// - Location: 工作地点，可为空（纯远程职位）
// - SearchText: 描述的纯文本影子列，由 BeforeSave 维护，搜索与评分只读它
// - SalaryMin/SalaryMax: 薪资区间，可部分缺失；两者都存在时 SalaryMin <= SalaryMax
// - PublishedAt: 首次发布时间；status 为 published 时非空，撤回草稿时清空
// - Tags: 平台标签，键值对
// - CreatedAt/UpdatedAt: 由 GORM 自动维护
type Job struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	EmployerID     uint              `gorm:"index" json:"employer_id"`
	Title          string            `json:"title"`
	Description    string            `gorm:"type:text" json:"description"`
	SearchText     string            `gorm:"type:text" json:"-"`
	Location       *string           `json:"location"`
	SalaryMin      *int              `json:"salary_min"`
	SalaryMax      *int              `json:"salary_max"`
	SalaryCurrency *string           `gorm:"size:3" json:"salary_currency"`
	SalaryPeriod   *string           `json:"salary_period"`
	IsRemote       bool              `json:"is_remote"`
	Status         string            `gorm:"index;default:draft" json:"status"`
	PublishedAt    *time.Time        `gorm:"index" json:"published_at"`
	Tags           datatypes.JSONMap `json:"tags"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// BeforeSave 同步纯文本检索列。描述允许携带富文本，
// 但检索与相关度评分不应命中标签或属性内的文字。
func (j *Job) BeforeSave(tx *gorm.DB) error {
	j.SearchText = textutil.StripHTML(j.Description)
	return nil
}

// SavedJob 记录用户收藏的职位，(UserID, JobID) 唯一，重复收藏幂等。
type SavedJob struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	JobID     uint      `gorm:"primaryKey;autoIncrement:false" json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}
