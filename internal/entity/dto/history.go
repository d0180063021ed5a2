package dto

import (
	"genarchive/internal/entity/common"
	"time"
)

// HistoryQuery filters history listings.
type HistoryQuery struct {
	Model          string `form:"model"`
	Status         string `form:"status"`
	GenerationType string `form:"generationType"`
	Limit          int    `form:"limit"`
}

// HistoryItem is the response representation of a history entry.
type HistoryItem struct {
	ID             string               `json:"id"`
	Prompt         string               `json:"prompt"`
	Model          string               `json:"model"`
	GenerationType string               `json:"generationType"`
	ImageCount     int                  `json:"imageCount"`
	Images         []common.ArtifactRef `json:"images"`
	Status         common.HistoryStatus `json:"status"`
	Error          string               `json:"error,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
	CreatedAt      time.Time            `json:"createdAt"`
}

type HistoryListResponse struct {
	History []HistoryItem `json:"history"`
	Meta    common.Meta   `json:"meta"`
}

type HistoryDetailResponse struct {
	Entry HistoryItem `json:"entry"`
}
