package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"robochat/internal/model"
)

const defaultRelayTimeout = 60 * time.Second

// Relay 补全转发：在对话记录前加系统提示，调用外部接口，把结果或失败提示映射为助手消息
// 不做任何自动重试
type Relay struct {
	completer Completer
	timeout   time.Duration
}

// NewRelay 创建补全转发
func NewRelay(completer Completer, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = defaultRelayTimeout
	}
	return &Relay{
		completer: completer,
		timeout:   timeout,
	}
}

// SystemPrompt 由助手名字生成的系统提示
func SystemPrompt(robotName string) string {
	return fmt.Sprintf("You are an assistant named %s.", robotName)
}

// BuildMessages 构造请求消息：系统提示 + 原样的对话记录
func BuildMessages(robotName string, history []model.Message) []model.Message {
	msgs := make([]model.Message, 0, len(history)+1)
	msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: SystemPrompt(robotName)})
	msgs = append(msgs, history...)
	return msgs
}

// Reply 调用补全接口并返回要追加的助手消息
// 失败时消息为对应失败类型的提示，同时返回 *RelayError 供调用方记录
func (r *Relay) Reply(ctx context.Context, robotName string, history []model.Message) (model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, ex := withExchange(ctx)

	start := time.Now()
	content, err := r.completer.Complete(ctx, BuildMessages(robotName, history))
	if err == nil {
		log.Debug().
			Int("history", len(history)).
			Dur("latency", time.Since(start)).
			Msg("completion succeeded")
		return model.NewMessage(model.RoleAssistant, content), nil
	}

	relayErr := &RelayError{Kind: classify(ctx, ex, err), Err: err}
	log.Warn().
		Err(err).
		Str("kind", relayErr.Kind.String()).
		Dur("latency", time.Since(start)).
		Msg("completion failed")

	return model.NewMessage(model.RoleAssistant, relayErr.Reply()), relayErr
}
