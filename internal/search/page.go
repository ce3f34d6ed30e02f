package search

import "job-board/internal/model"

// 分页上限与默认值。
const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// PageRequest 表示 1 起始的分页请求。
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize 约束 Page >= 1、PerPage ∈ [1, 50]，缺省 10。
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Meta 是分页元数据。LastPage 最小为 1；
// 请求超出末页时返回空数据但元数据仍反映真实总量。
type Meta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// Result 是一页查询结果。
type Result struct {
	Data []model.Job `json:"data"`
	Meta Meta        `json:"meta"`
}

// NewResult 组装分页结果，Data 永不为 nil。
func NewResult(jobs []model.Job, page PageRequest, total int64) Result {
	if jobs == nil {
		jobs = []model.Job{}
	}
	last := int((total + int64(page.PerPage) - 1) / int64(page.PerPage))
	if last < 1 {
		last = 1
	}
	return Result{
		Data: jobs,
		Meta: Meta{
			CurrentPage: page.Page,
			LastPage:    last,
			PerPage:     page.PerPage,
			Total:       total,
		},
	}
}
