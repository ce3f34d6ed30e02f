package model

import "time"

// 投递状态。
const (
	ApplicationSubmitted = "submitted"
	ApplicationReviewed  = "reviewed"
	ApplicationRejected  = "rejected"
	ApplicationAccepted  = "accepted"
)

// Application 表示一次职位投递，(JobID, ApplicantID) 唯一。
// ResumeKey 指向简历存储中的不透明键，可为空。
type Application struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	JobID       uint      `gorm:"uniqueIndex:idx_job_applicant" json:"job_id"`
	ApplicantID uint      `gorm:"uniqueIndex:idx_job_applicant" json:"applicant_id"`
	Message     string    `gorm:"type:text" json:"message"`
	Status      string    `gorm:"default:submitted" json:"status"`
	ResumeKey   string    `json:"-"`
	ResumeName  string    `json:"resume_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
