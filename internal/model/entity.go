package model

import (
	"time"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message 会话中的一条消息，按插入顺序排列，不去重不重排
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage 创建消息
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// 设置项 key 与内置默认值
const (
	SettingKeyRobotName = "robotName"
	DefaultRobotName    = "AI助手"
)

// Setting 设置项实体
// 对应数据库表 settings(key TEXT PRIMARY KEY, value TEXT NOT NULL)
type Setting struct {
	Key   string `gorm:"column:key;primaryKey" json:"key"`
	Value string `gorm:"column:value;not null" json:"value"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
