package search

import (
	"strings"

	"job-board/internal/model"

	"gorm.io/gorm"
)

// Predicate 是一条具名过滤谓词。所有激活的谓词按 AND 组合，
// 谓词内部的子条件按 OR 组合。
type Predicate struct {
	Name  string
	Apply func(*gorm.DB) *gorm.DB
}

// Scope 是调用方预先施加的基础限定，如“仅已发布”或“仅某雇主”。
type Scope func(*gorm.DB) *gorm.DB

// Published 限定只返回已发布职位。
func Published() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ?", model.StatusPublished)
	}
}

// OwnedBy 限定只返回指定雇主的职位。
func OwnedBy(employerID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("employer_id = ?", employerID)
	}
}

// Excluding 排除指定 ID 集合，集合为空时不限定。
func Excluding(ids []uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db
		}
		return db.Where("id NOT IN ?", ids)
	}
}

// Predicates 根据 Spec 构造激活的谓词列表，顺序固定。
func Predicates(spec Spec) []Predicate {
	preds := make([]Predicate, 0, 8)

	if spec.Text != "" {
		needle := likePattern(spec.Text)
		preds = append(preds, Predicate{Name: "text", Apply: func(db *gorm.DB) *gorm.DB {
			// 描述走纯文本影子列，标签与属性内的文字不参与匹配。
			return db.Where("LOWER(title) LIKE ? OR LOWER(COALESCE(search_text, '')) LIKE ? OR LOWER(location) LIKE ?", needle, needle, needle)
		}})
	}
	if spec.Location != "" {
		needle := likePattern(spec.Location)
		preds = append(preds, Predicate{Name: "location", Apply: func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(location) LIKE ?", needle)
		}})
	}
	if spec.IsRemote != nil {
		remote := *spec.IsRemote
		preds = append(preds, Predicate{Name: "remote", Apply: func(db *gorm.DB) *gorm.DB {
			return db.Where("is_remote = ?", remote)
		}})
	}
	if spec.Status != "" {
		status := spec.Status
		preds = append(preds, Predicate{Name: "status", Apply: func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", status)
		}})
	}
	if spec.SalaryMin != nil {
		floor := *spec.SalaryMin
		preds = append(preds, Predicate{Name: "salary_min", Apply: func(db *gorm.DB) *gorm.DB {
			// 无任何薪资信息的职位不参与薪资过滤；
			// 其余按“上界或下界满足下限即可”的宽松口径保留。
			return db.Where("(salary_min IS NOT NULL OR salary_max IS NOT NULL)").
				Where("(salary_max IS NOT NULL AND salary_max >= ?) OR (salary_max IS NULL AND salary_min IS NOT NULL AND salary_min >= ?) OR (salary_min IS NOT NULL AND salary_min >= ?)", floor, floor, floor)
		}})
	}
	if spec.SalaryMax != nil {
		ceil := *spec.SalaryMax
		preds = append(preds, Predicate{Name: "salary_max", Apply: func(db *gorm.DB) *gorm.DB {
			return db.Where("(salary_min IS NOT NULL OR salary_max IS NOT NULL)").
				Where("(salary_min IS NOT NULL AND salary_min <= ?) OR (salary_min IS NULL AND salary_max IS NOT NULL AND salary_max <= ?) OR (salary_max IS NOT NULL AND salary_max <= ?)", ceil, ceil, ceil)
		}})
	}
	if spec.Currency != "" {
		currency := spec.Currency
		preds = append(preds, Predicate{Name: "currency", Apply: func(db *gorm.DB) *gorm.DB {
			return db.Where("salary_currency = ?", currency)
		}})
	}
	if spec.Period != "" {
		period := spec.Period
		preds = append(preds, Predicate{Name: "period", Apply: func(db *gorm.DB) *gorm.DB {
			return db.Where("salary_period = ?", period)
		}})
	}
	return preds
}

// ApplyAll 将谓词列表依次折叠到查询上。
func ApplyAll(db *gorm.DB, preds []Predicate) *gorm.DB {
	for _, p := range preds {
		db = p.Apply(db)
	}
	return db
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
