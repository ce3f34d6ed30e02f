package search

import (
	"regexp"
	"strconv"
	"strings"
)

// Sort 表示排序方向，闭合枚举：newest（默认）或 oldest。
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// Spec 是过滤条件的规范化结果。零值字段表示该维度不过滤。
// 由 Compile 从原始请求参数构造，下游不再检查原始输入形态。
type Spec struct {
	Text      string
	Location  string
	IsRemote  *bool
	SalaryMin *int
	SalaryMax *int
	Currency  string
	Period    string
	Status    string
	Sort      Sort
}

// salaryRangePattern 匹配 "<min>-<max>" 组合薪资串，例如 "3000-5000"。
// 仅允许连字符两侧出现空格。
var salaryRangePattern = regexp.MustCompile(`^\d+\s*-\s*\d+$`)

// Compile 将原始键值参数编译为 Spec。纯函数，无副作用。
// 非法形态按字段静默降级为“不过滤”，从不报错；
// 组合薪资串的合法性校验归传输层负责，见 ValidSalaryRange。
func Compile(raw map[string]string) Spec {
	spec := Spec{Sort: SortNewest}

	text := strings.TrimSpace(raw["text"])
	if text == "" {
		text = strings.TrimSpace(raw["q"])
	}
	spec.Text = text
	spec.Location = strings.TrimSpace(raw["location"])

	if v, ok := raw["is_remote"]; ok && strings.TrimSpace(v) != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			spec.IsRemote = &b
		}
	}

	spec.SalaryMin = toIntOrNil(raw["salary_min"])
	spec.SalaryMax = toIntOrNil(raw["salary_max"])
	if spec.SalaryMin == nil && spec.SalaryMax == nil {
		if min, max, ok := ParseSalaryRange(raw["salary_range"]); ok {
			spec.SalaryMin = &min
			spec.SalaryMax = &max
		}
	}

	if v := strings.TrimSpace(raw["salary_currency"]); v != "" {
		spec.Currency = v
	}
	if v := strings.TrimSpace(raw["salary_period"]); v != "" {
		spec.Period = v
	}
	if v := strings.TrimSpace(raw["status"]); v != "" {
		spec.Status = v
	}
	if strings.TrimSpace(raw["sort"]) == string(SortOldest) {
		spec.Sort = SortOldest
	}
	return spec
}

// ParseSalaryRange 解析 "<min>-<max>" 组合薪资串。
func ParseSalaryRange(s string) (min, max int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || !salaryRangePattern.MatchString(s) {
		return 0, 0, false
	}
	parts := strings.SplitN(s, "-", 2)
	min, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	max, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return min, max, true
}

// ValidSalaryRange 供传输层校验组合薪资串：缺省合法，形态错误非法。
func ValidSalaryRange(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, _, ok := ParseSalaryRange(s)
	return ok
}

func toIntOrNil(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
