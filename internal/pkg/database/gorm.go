package database

import (
	"Parley/internal/api/config"
	"Parley/internal/pkg/logger"
	log "log/slog"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	defaultMaxIdle     = 10
	defaultMaxOpen     = 50
	defaultMaxLifetime = 30
)

// NewGormDB 初始化 MySQL 连接池。wide_rows 的条件写是 SELECT 后带版本号的 UPDATE，
// 关闭默认事务，避免每次写都多一轮 BEGIN/COMMIT。
func NewGormDB(cfg *config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:                 logger.NewGormLogger(),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get underlying DB")
	}

	sqlDB.SetMaxIdleConns(orDefault(cfg.MaxIdle, defaultMaxIdle))
	sqlDB.SetMaxOpenConns(orDefault(cfg.MaxOpen, defaultMaxOpen))
	sqlDB.SetConnMaxLifetime(time.Duration(orDefault(cfg.MaxLifetime, defaultMaxLifetime)) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}

	log.Info("Database connection established successfully.")
	return db, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
