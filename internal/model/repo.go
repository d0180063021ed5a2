package model

import (
	"context"
	"genarchive/internal/entity"
	"genarchive/internal/model/sql"
	"time"
)

// ErrHistoryEntryTerminal 表示历史记录已处于终态，不能再次迁移。
var ErrHistoryEntryTerminal = sql.ErrHistoryEntryTerminal

// Repository 定义历史记录（账本）的数据库操作接口
type Repository interface {
	// CreateHistoryEntry 写入新记录并回填 ID
	CreateHistoryEntry(ctx context.Context, entry *entity.DbHistoryEntry) error
	// UpdateHistoryEntry 对 generating 状态的记录做一次终态迁移
	UpdateHistoryEntry(ctx context.Context, id string, updates entity.HistoryEntryUpdates) error
	GetHistoryEntry(ctx context.Context, id string) (*entity.DbHistoryEntry, error)
	ListHistoryEntries(ctx context.Context, params *entity.HistoryQuery) ([]entity.DbHistoryEntry, *entity.Meta, error)
	// FailStaleHistoryEntries 将 before 之前创建、仍为 generating 的记录标记为 failed
	FailStaleHistoryEntries(ctx context.Context, before time.Time, message string) (int64, error)
}

var _ Repository = (*sql.GormRepository)(nil)
