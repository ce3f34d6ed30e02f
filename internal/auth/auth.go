package auth

import (
	"errors"
	"strings"

	"job-board/internal/model"
)

// 角色取值。
const (
	RoleEmployer  = "employer"
	RoleApplicant = "applicant"
)

// 授权失败错误。
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Identity 表示已认证的调用者身份。
type Identity struct {
	UserID uint
	Role   string
}

// TokenEntry 是配置文件中的一条令牌映射。
type TokenEntry struct {
	Token  string `yaml:"token" json:"token"`
	UserID uint   `yaml:"user_id" json:"user_id"`
	Role   string `yaml:"role" json:"role"`
}

// Config 描述静态令牌表。完整的会话与口令体系不在本服务范围内。
type Config struct {
	Tokens []TokenEntry `yaml:"tokens" json:"tokens"`
}

// Resolver 把 Bearer 令牌解析为调用者身份。
type Resolver struct {
	tokens map[string]Identity
}

// NewResolver 根据配置构建 Resolver，忽略不完整的条目。
func NewResolver(cfg Config) *Resolver {
	tokens := make(map[string]Identity, len(cfg.Tokens))
	for _, entry := range cfg.Tokens {
		token := strings.TrimSpace(entry.Token)
		role := strings.TrimSpace(entry.Role)
		if token == "" || entry.UserID == 0 {
			continue
		}
		if role != RoleEmployer && role != RoleApplicant {
			continue
		}
		tokens[token] = Identity{UserID: entry.UserID, Role: role}
	}
	return &Resolver{tokens: tokens}
}

// Resolve 解析令牌，未知令牌返回 ErrUnauthorized。
func (r *Resolver) Resolve(token string) (Identity, error) {
	id, ok := r.tokens[strings.TrimSpace(token)]
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}

// RequireRole 校验调用者角色。
func RequireRole(id Identity, role string) error {
	if id.Role != role {
		return ErrForbidden
	}
	return nil
}

// RequireOwner 校验“仅属主雇主可变更职位”。
func RequireOwner(job *model.Job, id Identity) error {
	if id.Role != RoleEmployer || job.EmployerID != id.UserID {
		return ErrForbidden
	}
	return nil
}
