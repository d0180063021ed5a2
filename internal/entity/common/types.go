package common

import "fmt"

// HistoryStatus 表示一次生成请求在历史记录中的生命周期状态。
type HistoryStatus string

const (
	StatusGenerating HistoryStatus = "generating"
	StatusCompleted  HistoryStatus = "completed"
	StatusFailed     HistoryStatus = "failed"
)

// IsTerminal 报告状态是否为终态（completed 或 failed）。
func (s HistoryStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseHistoryStatus 校验外部输入的状态字符串。
func ParseHistoryStatus(value string) (HistoryStatus, error) {
	switch HistoryStatus(value) {
	case StatusGenerating, StatusCompleted, StatusFailed:
		return HistoryStatus(value), nil
	default:
		return "", fmt.Errorf("unknown history status %q", value)
	}
}

// ArtifactRef 是一个已持久化到对象存储的生成产物。
//
// URL 是唯一可长期对外使用的地址；OriginalURL 保留生成服务返回的临时地址用于排查；
// FirebaseURL 与 URL 相同，供旧客户端读取。
type ArtifactRef struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
	FirebaseURL string `json:"firebaseUrl"`
}

// Meta 包含列表元数据。
type Meta struct {
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
