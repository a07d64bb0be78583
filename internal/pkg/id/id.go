package id

import (
	"github.com/google/uuid"
)

// NewSessionID 生成会话 ID（UUID v4）
func NewSessionID() string {
	return uuid.NewString()
}

// NewRequestID 生成请求 ID
func NewRequestID() string {
	return uuid.NewString()
}

// NewLockToken 生成会话锁持有者标识
func NewLockToken() string {
	return uuid.NewString()
}

// IsValidSessionID 校验会话 ID：必须是规范格式的 UUID v4
// 非法值会被丢弃并重新签发，避免客户端伪造任意 key 写入会话存储
func IsValidSessionID(s string) bool {
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.String() == s
}
