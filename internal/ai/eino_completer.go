package ai

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"robochat/internal/model"
)

// EinoCompleter 通过 Eino ChatModel 调用补全
type EinoCompleter struct {
	chatModel einomodel.BaseChatModel
}

// NewEinoCompleter 创建 Eino 补全客户端
func NewEinoCompleter(chatModel einomodel.BaseChatModel) *EinoCompleter {
	return &EinoCompleter{chatModel: chatModel}
}

func (c *EinoCompleter) Complete(ctx context.Context, msgs []model.Message) (string, error) {
	resp, err := c.chatModel.Generate(ctx, toSchemaMessages(msgs))
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Content, nil
}

func toSchemaMessages(msgs []model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &schema.Message{
			Role:    schema.RoleType(m.Role),
			Content: m.Content,
		})
	}
	return out
}
