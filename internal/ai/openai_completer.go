package ai

import (
	"context"
	"net/http"

	openaiapi "github.com/sashabaranov/go-openai"

	"robochat/internal/config"
	"robochat/internal/model"
)

// DefaultDeepSeekBaseURL DeepSeek OpenAI 兼容接口地址
const DefaultDeepSeekBaseURL = "https://api.deepseek.com/v1"

// OpenAICompleter 直接调用 OpenAI 兼容的 /chat/completions 接口
type OpenAICompleter struct {
	api         *openaiapi.Client
	model       string
	temperature float32
	maxTokens   int
	topP        float32
}

// NewOpenAICompleter 创建 OpenAI 兼容补全客户端
func NewOpenAICompleter(cfg *config.AIConfig, httpClient *http.Client) *OpenAICompleter {
	apiCfg := openaiapi.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	if apiCfg.BaseURL == "" {
		apiCfg.BaseURL = DefaultDeepSeekBaseURL
	}
	if httpClient != nil {
		apiCfg.HTTPClient = httpClient
	}

	return &OpenAICompleter{
		api:         openaiapi.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Options.Temperature),
		maxTokens:   cfg.Options.MaxTokens,
		topP:        float32(cfg.Options.TopP),
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, msgs []model.Message) (string, error) {
	req := openaiapi.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toAPIMessages(msgs),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        c.topP,
		Stream:      false,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func toAPIMessages(msgs []model.Message) []openaiapi.ChatCompletionMessage {
	res := make([]openaiapi.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, openaiapi.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return res
}
