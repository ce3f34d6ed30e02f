package model

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription 表示职位提醒订阅
// - Channel: 通知渠道，目前仅 email
// - Tags: 关键词集合，新发布职位命中任一关键词即推送
type Subscription struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Email     string            `gorm:"index" json:"email"`
	Channel   string            `json:"channel"`
	Tags      datatypes.JSONMap `json:"tags"`
	CreatedAt time.Time         `json:"created_at"`
}
