package entity

import "gorm.io/datatypes"

// HistoryEntryUpdates 历史记录更新字段
type HistoryEntryUpdates struct {
	Status *HistoryStatus
	Images *[]ArtifactRef
	Error  *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u HistoryEntryUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.Images != nil {
		updates["images"] = datatypes.NewJSONSlice(*u.Images)
	}
	if u.Error != nil {
		updates["error"] = *u.Error
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u HistoryEntryUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// CompletedUpdates 构造进入 completed 终态的更新。
func CompletedUpdates(images []ArtifactRef) HistoryEntryUpdates {
	status := StatusCompleted
	if images == nil {
		images = []ArtifactRef{}
	}
	return HistoryEntryUpdates{Status: &status, Images: &images}
}

// FailedUpdates 构造进入 failed 终态的更新。
func FailedUpdates(message string) HistoryEntryUpdates {
	status := StatusFailed
	return HistoryEntryUpdates{Status: &status, Error: &message}
}
