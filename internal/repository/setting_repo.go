package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"robochat/internal/model"
)

// ErrSettingNotFound 设置项不存在
var ErrSettingNotFound = errors.New("setting not found")

// 建表语句按方言区分；均为 IF NOT EXISTS，可重复并发执行
// MySQL 中 TEXT 不能作为主键，key 列使用 VARCHAR(191)
var createSettingsDDL = map[string]string{
	"postgres": `CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	"sqlite":   `CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	"mysql":    "CREATE TABLE IF NOT EXISTS settings (`key` VARCHAR(191) NOT NULL PRIMARY KEY, `value` TEXT NOT NULL)",
}

// SettingRepo 设置项仓库
type SettingRepo struct {
	db *gorm.DB
}

// NewSettingRepo 创建设置项仓库
func NewSettingRepo(db *gorm.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

// EnsureSchema 创建 settings 表（已存在时无操作）
func (r *SettingRepo) EnsureSchema(ctx context.Context) error {
	dialect := r.db.Dialector.Name()
	ddl, ok := createSettingsDDL[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect: %s", dialect)
	}
	return r.db.WithContext(ctx).Exec(ddl).Error
}

// InsertIfAbsent 插入设置项；key 已存在时不做任何修改
func (r *SettingRepo) InsertIfAbsent(ctx context.Context, key, value string) error {
	setting := &model.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(setting).Error
}

// Upsert 插入设置项；key 已存在时覆盖 value
func (r *SettingRepo) Upsert(ctx context.Context, key, value string) error {
	setting := &model.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(setting).Error
}

// Get 读取设置项的值
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Take(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// Count 统计 key 对应的行数
func (r *SettingRepo) Count(ctx context.Context, key string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Setting{}).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Count(&n).Error
	return n, err
}
