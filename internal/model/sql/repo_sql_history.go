package sql

import (
	"context"
	"fmt"
	"genarchive/internal/entity"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateHistoryEntry inserts a new history entry, assigning its ID when empty.
func (r *GormRepository) CreateHistoryEntry(ctx context.Context, entry *entity.DbHistoryEntry) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if entry == nil {
		return fmt.Errorf("history entry is nil")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = entity.StatusGenerating
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Images == nil {
		entry.Images = datatypes.JSONSlice[entity.ArtifactRef]{}
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// UpdateHistoryEntry applies updates to a history entry. Updates that set a
// terminal status only match entries still generating, so an entry leaves
// that state exactly once.
func (r *GormRepository) UpdateHistoryEntry(ctx context.Context, id string, updates entity.HistoryEntryUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("invalid history entry id")
	}
	if updates.IsEmpty() {
		return fmt.Errorf("no updates provided")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbHistoryEntry{}).Where("id = ?", id)
	terminal := updates.Status != nil && updates.Status.IsTerminal()
	if terminal {
		query = query.Where("status = ?", entity.StatusGenerating)
	}

	result := query.Updates(updates.ToMap())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if !terminal {
			return gorm.ErrRecordNotFound
		}
		var count int64
		if err := r.db.WithContext(ctx).Model(&entity.DbHistoryEntry{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrHistoryEntryTerminal
	}
	return nil
}

// GetHistoryEntry retrieves a single history entry by ID.
func (r *GormRepository) GetHistoryEntry(ctx context.Context, id string) (*entity.DbHistoryEntry, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("invalid history entry id")
	}

	var entry entity.DbHistoryEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load history entry: %w", err)
	}
	return &entry, nil
}

// ListHistoryEntries returns the newest entries matching the filters.
func (r *GormRepository) ListHistoryEntries(ctx context.Context, params *entity.HistoryQuery) ([]entity.DbHistoryEntry, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbHistoryEntry{})
	limit := defaultListLimit
	if params != nil {
		if trimmed := strings.TrimSpace(params.Model); trimmed != "" {
			query = query.Where("model = ?", trimmed)
		}
		if trimmed := strings.TrimSpace(params.Status); trimmed != "" {
			query = query.Where("status = ?", trimmed)
		}
		if trimmed := strings.TrimSpace(params.GenerationType); trimmed != "" {
			query = query.Where("generation_type = ?", trimmed)
		}
		limit = clampLimit(params.Limit)
	}

	var totalCount int64
	if err := query.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	var entries []entity.DbHistoryEntry
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	return entries, &entity.Meta{Limit: limit, Total: totalCount}, nil
}

// FailStaleHistoryEntries marks entries created before the cutoff that are
// still generating as failed, returning how many were changed. created_at is
// stored in UTC, so the cutoff is normalised before comparing.
func (r *GormRepository) FailStaleHistoryEntries(ctx context.Context, before time.Time, message string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}

	result := r.db.WithContext(ctx).
		Model(&entity.DbHistoryEntry{}).
		Where("status = ? AND created_at < ?", entity.StatusGenerating, before.UTC()).
		Updates(entity.FailedUpdates(message).ToMap())
	return result.RowsAffected, result.Error
}
