package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"robochat/internal/model"
	"robochat/internal/repository"
)

// ErrInvalidInput 用户输入非法（空值或类型错误）
var ErrInvalidInput = errors.New("invalid input")

// 内置默认值；读取失败时返回
var settingDefaults = map[string]string{
	model.SettingKeyRobotName: model.DefaultRobotName,
}

// SettingsService 设置项服务
// 读失败降级为默认值，写失败向调用方返回错误
type SettingsService struct {
	repo *repository.SettingRepo
}

// NewSettingsService 创建设置项服务
func NewSettingsService(repo *repository.SettingRepo) *SettingsService {
	return &SettingsService{repo: repo}
}

// Initialize 建表并写入默认助手名字
// 可重复、可并发调用：建表为 IF NOT EXISTS，默认值为冲突忽略插入，不会覆盖已有值
func (s *SettingsService) Initialize(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}
	log.Debug().Msg("settings table created or already exists")

	for key, value := range settingDefaults {
		if err := s.repo.InsertIfAbsent(ctx, key, value); err != nil {
			return fmt.Errorf("insert default %s: %w", key, err)
		}
	}
	log.Debug().Msg("default settings initialized")

	return nil
}

// GetValue 读取设置项，任何失败都返回内置默认值
func (s *SettingsService) GetValue(ctx context.Context, key string) string {
	value, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("failed to read setting, using default")
		}
		return settingDefaults[key]
	}
	if value == "" {
		return settingDefaults[key]
	}
	return value
}

// SetValue 写入设置项（冲突时覆盖），返回实际存储的值
// 空白值返回 ErrInvalidInput，不访问存储
func (s *SettingsService) SetValue(ctx context.Context, key, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidInput
	}

	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return "", fmt.Errorf("upsert setting %s: %w", key, err)
	}

	log.Info().Str("key", key).Str("value", value).Msg("setting updated")
	return value, nil
}

// RobotName 当前助手名字
func (s *SettingsService) RobotName(ctx context.Context) string {
	return s.GetValue(ctx, model.SettingKeyRobotName)
}

// SetRobotName 修改助手名字
func (s *SettingsService) SetRobotName(ctx context.Context, name string) (string, error) {
	return s.SetValue(ctx, model.SettingKeyRobotName, name)
}
