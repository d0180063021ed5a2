package service

import (
	"context"
	"genarchive/internal/entity"
	"genarchive/internal/model"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LifecycleRecorder 维护历史记录的 generating → completed/failed 状态迁移
type LifecycleRecorder struct {
	repo    model.Repository
	timeout time.Duration
}

// NewLifecycleRecorder 创建记录器，timeout 作用于每次账本读写
func NewLifecycleRecorder(repo model.Repository, timeout time.Duration) *LifecycleRecorder {
	return &LifecycleRecorder{repo: repo, timeout: timeout}
}

// Begin creates the entry in generating state and returns its id.
func (l *LifecycleRecorder) Begin(ctx context.Context, entry *entity.DbHistoryEntry) (string, error) {
	if l.repo == nil {
		return "", newError(KindLedger, "history ledger is not configured", nil)
	}

	entry.Status = entity.StatusGenerating
	ledgerCtx, cancel := withOptionalTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.repo.CreateHistoryEntry(ledgerCtx, entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"generation_type": entry.GenerationType,
			"model":           entry.Model,
		}).Error("failed to create history entry")
		return "", newError(KindLedger, "Failed to create history entry", err)
	}
	if strings.TrimSpace(entry.ID) == "" {
		return "", newError(KindLedger, "history ledger returned an empty id", nil)
	}
	return entry.ID, nil
}

// Complete records the completed terminal state. Failures are logged for
// out-of-band repair and returned.
func (l *LifecycleRecorder) Complete(ctx context.Context, id string, images []entity.ArtifactRef) error {
	return l.finish(ctx, id, entity.CompletedUpdates(images), entity.StatusCompleted)
}

// Fail records the failed terminal state with message.
func (l *LifecycleRecorder) Fail(ctx context.Context, id, message string) error {
	return l.finish(ctx, id, entity.FailedUpdates(message), entity.StatusFailed)
}

func (l *LifecycleRecorder) finish(ctx context.Context, id string, updates entity.HistoryEntryUpdates, status entity.HistoryStatus) error {
	if l.repo == nil || strings.TrimSpace(id) == "" {
		return nil
	}

	ledgerCtx, cancel := withOptionalTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.repo.UpdateHistoryEntry(ledgerCtx, id, updates); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"history_id": id,
			"reconcile":  string(status),
		}).Error("failed to update history entry")
		return newError(KindLedger, "Failed to update history entry", err)
	}
	return nil
}
