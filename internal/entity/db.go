package entity

// Re-export common types from the sub packages so callers only import entity.

import (
	"genarchive/internal/entity/common"
	"genarchive/internal/entity/db"
	"genarchive/internal/entity/dto"
)

// Type aliases for persisted types
type DbHistoryEntry = db.HistoryEntry

// Type aliases for common types
type ArtifactRef = common.ArtifactRef
type HistoryStatus = common.HistoryStatus
type Meta = common.Meta

// Type aliases for wire types
type GenerationRequest = dto.GenerationRequest
type GenerationResponse = dto.GenerationResponse
type GenerationFailure = dto.GenerationFailure
type HistoryQuery = dto.HistoryQuery
type HistoryItem = dto.HistoryItem
type HistoryListResponse = dto.HistoryListResponse
type HistoryDetailResponse = dto.HistoryDetailResponse

// Constants
const (
	StatusGenerating = common.StatusGenerating
	StatusCompleted  = common.StatusCompleted
	StatusFailed     = common.StatusFailed
)
