// Package session 保存浏览器会话内的对话记录与进行中标记
// 对话记录只存活于会话期间，不写入关系库
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"robochat/internal/model"
)

// Transcript 会话对话记录：按插入顺序只追加
type Transcript struct {
	messages []model.Message
}

// NewTranscript 创建对话记录
func NewTranscript(msgs ...model.Message) *Transcript {
	t := &Transcript{}
	t.Append(msgs...)
	return t
}

// Append 追加消息
func (t *Transcript) Append(msgs ...model.Message) {
	t.messages = append(t.messages, msgs...)
}

// Messages 返回消息副本
func (t *Transcript) Messages() []model.Message {
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len 消息条数
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Since 返回第 n 条之后追加的消息
func (t *Transcript) Since(n int) []model.Message {
	if n < 0 {
		n = 0
	}
	if n >= len(t.messages) {
		return []model.Message{}
	}
	out := make([]model.Message, len(t.messages)-n)
	copy(out, t.messages[n:])
	return out
}

func (t *Transcript) MarshalJSON() ([]byte, error) {
	if t.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.messages)
}

// UnmarshalJSON 还原对话记录，遇到未知角色返回错误
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	t.messages = msgs
	return nil
}

// Store 会话存储
// TryAcquire/Release 实现每个会话同一时刻最多一个进行中的补全请求
type Store interface {
	// Load 读取会话记录，会话不存在时返回空记录
	Load(ctx context.Context, id string) (*Transcript, error)
	Save(ctx context.Context, id string, t *Transcript) error
	// Delete 结束会话并销毁记录
	Delete(ctx context.Context, id string) error
	// TryAcquire 标记会话进入请求中状态；已在请求中时返回 false
	TryAcquire(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
	Close() error
}
