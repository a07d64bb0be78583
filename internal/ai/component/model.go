package component

import (
	"context"
	"fmt"
	"net/http"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"robochat/internal/config"
)

const (
	defaultArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultArkModel   = "doubao-seed-1-6-flash-250615"
)

// NewChatModel 创建 Eino ChatModel
// 支持 Provider: openai, azure, ark；httpClient 用于记录每次请求的 HTTP 状态
func NewChatModel(ctx context.Context, cfg *config.AIConfig, httpClient *http.Client) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIChatModel(ctx, cfg, httpClient, false)
	case "azure":
		return newOpenAIChatModel(ctx, cfg, httpClient, true)
	case "ark":
		return newArkChatModel(ctx, cfg, httpClient)
	default:
		return nil, fmt.Errorf("unsupported eino provider: %s", cfg.Provider)
	}
}

// newOpenAIChatModel 创建 OpenAI / Azure OpenAI ChatModel
func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig, httpClient *http.Client, byAzure bool) (model.BaseChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		ByAzure:    byAzure,
		HTTPClient: httpClient,
	}

	if cfg.Options.Temperature > 0 {
		temp := float32(cfg.Options.Temperature)
		modelCfg.Temperature = &temp
	}
	if cfg.Options.MaxTokens > 0 {
		maxTokens := cfg.Options.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	if cfg.Options.TopP > 0 {
		topP := float32(cfg.Options.TopP)
		modelCfg.TopP = &topP
	}

	return openai.NewChatModel(ctx, modelCfg)
}

// newArkChatModel 创建火山方舟 ChatModel
func newArkChatModel(ctx context.Context, cfg *config.AIConfig, httpClient *http.Client) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultArkBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultArkModel
	}

	// 不自动重试，失败由用户手动重新提交
	retryTimes := 0
	modelCfg := &arkext.ChatModelConfig{
		Model:      modelName,
		APIKey:     cfg.APIKey,
		BaseURL:    baseURL,
		RetryTimes: &retryTimes,
		HTTPClient: httpClient,
	}

	if cfg.Options.Temperature > 0 {
		temp := float32(cfg.Options.Temperature)
		modelCfg.Temperature = &temp
	}
	if cfg.Options.MaxTokens > 0 {
		maxTokens := cfg.Options.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	if cfg.Options.TopP > 0 {
		topP := float32(cfg.Options.TopP)
		modelCfg.TopP = &topP
	}

	return arkext.NewChatModel(ctx, modelCfg)
}
