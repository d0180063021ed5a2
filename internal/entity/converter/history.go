package converter

import (
	"genarchive/internal/entity/common"
	"genarchive/internal/entity/db"
	"genarchive/internal/entity/dto"
)

// HistoryEntryToItem 将 db.HistoryEntry 转换为 dto.HistoryItem。
func HistoryEntryToItem(e *db.HistoryEntry) dto.HistoryItem {
	if e == nil {
		return dto.HistoryItem{}
	}

	images := make([]common.ArtifactRef, len(e.Images))
	copy(images, e.Images)

	return dto.HistoryItem{
		ID:             e.ID,
		Prompt:         e.Prompt,
		Model:          e.Model,
		GenerationType: e.GenerationType,
		ImageCount:     e.ImageCount,
		Images:         images,
		Status:         e.Status,
		Error:          e.Error,
		Timestamp:      e.Timestamp,
		CreatedAt:      e.CreatedAt,
	}
}

// HistoryEntriesToItems converts a slice of db.HistoryEntry to dto.HistoryItem.
func HistoryEntriesToItems(entries []db.HistoryEntry) []dto.HistoryItem {
	items := make([]dto.HistoryItem, len(entries))
	for i := range entries {
		items[i] = HistoryEntryToItem(&entries[i])
	}
	return items
}
