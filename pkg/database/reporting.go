package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"shift-market/backend/config"
)

// NewReportingDB 初始化只读报表连接（sqlx + lib/pq）
// 报表查询使用独立连接池，不与引擎事务共享
func NewReportingDB(cfg *config.ReportingConfig, primary *config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = primary.DSN()
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接报表数据库失败: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)

	logger.Info("报表数据库连接成功", zap.Int("max_open_conns", maxOpen))

	return db, nil
}
