package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"robochat/internal/ai/component"
	"robochat/internal/config"
	"robochat/internal/model"
)

// Completer 对话补全能力
// 输入为完整的有序消息列表，返回第一条补全的内容
type Completer interface {
	Complete(ctx context.Context, msgs []model.Message) (string, error)
}

// NewCompleter 按 provider 创建补全客户端
//   - deepseek / openai-compatible: go-openai 直连 OpenAI 兼容接口
//   - openai / azure / ark: Eino ChatModel
func NewCompleter(ctx context.Context, cfg *config.AIConfig) (Completer, error) {
	httpClient := NewHTTPClient()

	switch cfg.Provider {
	case "deepseek", "openai-compatible", "":
		log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("using OpenAI-compatible completer")
		return NewOpenAICompleter(cfg, httpClient), nil
	case "openai", "azure", "ark":
		chatModel, err := component.NewChatModel(ctx, cfg, httpClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("using eino completer")
		return NewEinoCompleter(chatModel), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
