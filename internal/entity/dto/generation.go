package dto

import "genarchive/internal/entity/common"

// GenerationRequest is the inbound payload for a local generation route.
type GenerationRequest struct {
	ClientID       string `json:"clientId,omitempty"` // 客户端ID，状态变更时SSE推送使用
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	ImageCount     int    `json:"imageCount,omitempty" binding:"omitempty,min=0"`
	GenerationType string `json:"generationType,omitempty" binding:"omitempty,max=64"`
}

// GenerationResponse is returned when every artifact was generated and stored.
type GenerationResponse struct {
	Success   bool                 `json:"success"`
	HistoryID string               `json:"historyId"`
	Images    []common.ArtifactRef `json:"images"`
	Message   string               `json:"message"`
}

// GenerationFailure is returned for any failed invocation. HistoryID is nil
// when the request never reached the ledger.
type GenerationFailure struct {
	Success   bool    `json:"success"`
	Error     string  `json:"error"`
	HistoryID *string `json:"historyId"`
}
