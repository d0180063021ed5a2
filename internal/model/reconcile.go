package model

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// InterruptedMessage 是启动时被收敛的遗留记录的错误信息。
const InterruptedMessage = "generation interrupted before completion"

// ReconcileStaleEntries 把创建时间早于 now-staleAfter 且仍处于 generating 的记录标记为 failed。
// 这些记录来自处理过程中退出的进程，正常请求不会停留在 generating。
func ReconcileStaleEntries(ctx context.Context, repo Repository, staleAfter time.Duration) (int64, error) {
	if repo == nil || staleAfter <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-staleAfter)
	affected, err := repo.FailStaleHistoryEntries(ctx, cutoff, InterruptedMessage)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		logrus.WithFields(logrus.Fields{
			"count":  affected,
			"cutoff": cutoff.UTC().Format(time.RFC3339),
		}).Warn("marked stale generating history entries as failed")
	}
	return affected, nil
}
