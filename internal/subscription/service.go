package subscription

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"job-board/internal/model"
	"job-board/internal/textutil"

	"gorm.io/datatypes"
)

// Store 定义持久化接口。
type Store interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
}

// Config 控制可用渠道与可选关键词。
// TagCandidates 非空时订阅关键词必须取自候选集。
type Config struct {
	AllowedChannels []string `yaml:"allowed_channels" json:"allowed_channels"`
	TagCandidates   []string `yaml:"tag_candidates" json:"tag_candidates"`
}

// Request 表示订阅请求。
type Request struct {
	Email   string   `json:"email"`
	Channel string   `json:"channel"`
	Tags    []string `json:"tags"`
}

// Service 负责验证与写入职位提醒订阅。
type Service struct {
	store    Store
	channels map[string]struct{}
	tags     map[string]string
}

// NewService 创建订阅服务。
func NewService(store Store, cfg Config) *Service {
	channelMap := make(map[string]struct{})
	for _, ch := range cfg.AllowedChannels {
		if trimmed := strings.ToLower(strings.TrimSpace(ch)); trimmed != "" {
			channelMap[trimmed] = struct{}{}
		}
	}
	if len(channelMap) == 0 {
		channelMap["email"] = struct{}{}
	}
	tagLookup := make(map[string]string)
	for _, tag := range cfg.TagCandidates {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tagLookup[strings.ToLower(trimmed)] = trimmed
		}
	}
	return &Service{store: store, channels: channelMap, tags: tagLookup}
}

// Create 校验请求并写入数据库。
func (s *Service) Create(ctx context.Context, req Request) (model.Subscription, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return model.Subscription{}, fmt.Errorf("email required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Subscription{}, fmt.Errorf("invalid email: %w", err)
	}

	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	if channel == "" {
		channel = "email"
	}
	if _, ok := s.channels[channel]; !ok {
		return model.Subscription{}, fmt.Errorf("unsupported channel %s", channel)
	}

	tagMap := datatypes.JSONMap{}
	for _, tag := range req.Tags {
		key := strings.ToLower(strings.TrimSpace(tag))
		if key == "" {
			continue
		}
		canonical, ok := s.tags[key]
		if !ok && len(s.tags) > 0 {
			return model.Subscription{}, fmt.Errorf("unknown tag %s", tag)
		}
		if canonical == "" {
			canonical = strings.TrimSpace(tag)
		}
		tagMap[canonical] = true
	}

	sub := model.Subscription{
		Email:   email,
		Channel: channel,
		Tags:    tagMap,
	}
	if err := s.store.CreateSubscription(ctx, &sub); err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

// Matches 判断职位是否命中订阅：任一关键词在标题、描述纯文本
// 或地点中以不区分大小写的子串出现即命中；无关键词的订阅全量命中。
func Matches(sub model.Subscription, job model.Job) bool {
	if len(sub.Tags) == 0 {
		return true
	}

	var b strings.Builder
	b.WriteString(job.Title)
	b.WriteByte(' ')
	b.WriteString(textutil.StripHTML(job.Description))
	if job.Location != nil {
		b.WriteByte(' ')
		b.WriteString(*job.Location)
	}
	haystack := strings.ToLower(b.String())

	for tag, v := range sub.Tags {
		if !isTruthy(v) {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.TrimSpace(strings.ToLower(val)) == "true"
	case float64:
		return val != 0
	default:
		return val != nil
	}
}
