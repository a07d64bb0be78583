package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"robochat/internal/ai"
	"robochat/internal/model"
	"robochat/internal/session"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	// ErrBusy 会话已有进行中的请求，本次提交被忽略
	ErrBusy = errors.New("a reply is still in progress")
)

// ChatService 对话服务 - 业务逻辑层
// 流程: 指令识别 -> 追加用户消息 -> 补全转发 -> 追加助手消息
type ChatService struct {
	sessions session.Store
	settings *SettingsService
	relay    *ai.Relay
}

// NewChatService 创建对话服务
func NewChatService(sessions session.Store, settings *SettingsService, relay *ai.Relay) *ChatService {
	return &ChatService{
		sessions: sessions,
		settings: settings,
		relay:    relay,
	}
}

// SubmitResult 一次提交的结果
type SubmitResult struct {
	// Added 本次追加到记录中的消息
	Added []model.Message
	// Command 是否作为改名指令处理
	Command bool
}

// Submit 处理一条用户输入
// 同一会话同一时刻只处理一条；进行中时返回 ErrBusy 且记录不变
func (s *ChatService) Submit(ctx context.Context, sessionID, text string) (*SubmitResult, error) {
	logger := log.With().Str("session_id", sessionID).Logger()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	// 浏览器断开不取消进行中的请求，结果仍写入会话
	ctx = context.WithoutCancel(ctx)

	acquired, err := s.sessions.TryAcquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	if !acquired {
		logger.Debug().Msg("submission rejected, reply in progress")
		return nil, ErrBusy
	}
	defer func() {
		if err := s.sessions.Release(ctx, sessionID); err != nil {
			logger.Error().Err(err).Msg("failed to release session")
		}
	}()

	transcript, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	before := transcript.Len()

	result := &SubmitResult{}
	if name, ok := ParseNameCommand(text); ok {
		result.Command = true
		transcript.Append(s.rename(ctx, name))
	} else {
		transcript.Append(model.NewMessage(model.RoleUser, text))

		robotName := s.settings.RobotName(ctx)
		reply, relayErr := s.relay.Reply(ctx, robotName, transcript.Messages())
		if relayErr != nil {
			logger.Warn().Err(relayErr).Msg("relay failed, error reply appended")
		}
		transcript.Append(reply)
	}

	if err := s.sessions.Save(ctx, sessionID, transcript); err != nil {
		return nil, err
	}

	result.Added = transcript.Since(before)
	logger.Info().
		Bool("command", result.Command).
		Int("transcript_len", transcript.Len()).
		Msg("submission handled")

	return result, nil
}

// rename 执行改名指令，返回确认或失败提示
func (s *ChatService) rename(ctx context.Context, name string) model.Message {
	stored, err := s.settings.SetRobotName(ctx, name)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("rename command failed")
		return model.NewMessage(model.RoleAssistant, renameFailedReply)
	}
	return model.NewMessage(model.RoleAssistant, renameConfirmedReply(stored))
}

// History 返回会话的全部消息
func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	transcript, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return transcript.Messages(), nil
}

// Reset 结束会话并销毁记录
func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}
