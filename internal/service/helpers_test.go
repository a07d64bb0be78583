package service

import (
	"testing"

	"gorm.io/gorm"

	"robochat/internal/config"
	"robochat/internal/pkg/database"
	"robochat/internal/repository"
)

// newTestSettings 基于内存 SQLite 创建设置项服务
func newTestSettings(t *testing.T) (*SettingsService, *gorm.DB) {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return NewSettingsService(repository.NewSettingRepo(db)), db
}
