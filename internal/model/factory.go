package model

import (
	"context"
	"fmt"
	"genarchive/internal/config"
	"genarchive/internal/entity"
	"genarchive/internal/model/sql"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DBTypeMySQL    = "mysql"
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
)

const (
	defaultSQLitePath = "datas/genarchive.db"

	// 并发请求的终态写入会争用 sqlite 的单个写锁
	sqliteBusyTimeout  = 5 * time.Second
	sqliteMaxOpenConns = 4

	reconcileTimeout = 30 * time.Second
)

// InitRepository 打开历史账本并迁移表结构，随后把上次进程遗留的
// generating 记录收敛为 failed（StaleGeneratingAfter 为 0 时跳过）。
// DBType 为空时返回 nil。
func InitRepository(cfg *config.Config) (Repository, error) {
	if strings.TrimSpace(cfg.DBType) == "" {
		return nil, nil
	}

	db, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entity.DbHistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history ledger: %w", err)
	}

	repo := sql.NewGormRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	if _, err := ReconcileStaleEntries(ctx, repo, cfg.StaleGeneratingAfter); err != nil {
		// 不阻止启动，遗留记录下次启动再处理
		logrus.WithError(err).Warn("failed to reconcile stale history entries")
	}

	return repo, nil
}

// ledgerDialector 返回对应数据库的 gorm 方言。账本时间统一按 UTC 存取，
// 保证对账截止时间与 created_at 可直接比较。
func ledgerDialector(cfg *config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case DBTypeMySQL:
		dsn := cfg.DSNURL
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				cfg.DBUser, cfg.DBPassword, cfg.DBAddr, cfg.DBPort, cfg.DBName)
		}
		return mysql.Open(dsn), nil
	case DBTypePostgres:
		dsn := cfg.DSNURL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				cfg.DBAddr, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		}
		return postgres.Open(dsn), nil
	case DBTypeSQLite:
		path, err := prepareSQLitePath(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(sqliteDSN(path)), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

// prepareSQLitePath 创建数据库文件所在目录；sqlite 只会自动创建文件本身。
func prepareSQLitePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}
	return path, nil
}

// sqliteDSN 开启 WAL 并设置写锁等待，读历史时不阻塞正在写终态的请求。
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_journal_mode=WAL", path, sep, sqliteBusyTimeout.Milliseconds())
}

func openLedger(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := ledgerDialector(cfg)
	if err != nil {
		return nil, err
	}

	// GORM 日志输出到 logrus
	gormLogger := logger.New(
		log.New(logrus.StandardLogger().WriterLevel(logrus.WarnLevel), "", 0),
		logger.Config{
			SlowThreshold:             time.Second * 5,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialector.Name() == DBTypeSQLite {
		sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
