package db

import (
	"genarchive/internal/entity/common"
	"time"

	"gorm.io/datatypes"
)

// HistoryEntry 记录一次生成流水线调用的完整生命周期。
type HistoryEntry struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Timestamp time.Time `gorm:"column:timestamp" json:"timestamp"`

	Prompt         string `gorm:"column:prompt;type:text" json:"prompt"`
	Model          string `gorm:"column:model;type:varchar(255);index" json:"model"`
	GenerationType string `gorm:"column:generation_type;type:varchar(64);index" json:"generationType"`
	ImageCount     int    `gorm:"column:image_count" json:"imageCount"`

	Images datatypes.JSONSlice[common.ArtifactRef] `gorm:"column:images" json:"images"`

	Status common.HistoryStatus `gorm:"column:status;type:varchar(32);index" json:"status"`
	Error  string               `gorm:"column:error;type:text" json:"error,omitempty"`
}

// TableName 指定表名
func (HistoryEntry) TableName() string {
	return "history_entries"
}
