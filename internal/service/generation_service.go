package service

import (
	"context"
	"errors"
	"fmt"
	"genarchive/internal/entity"
	"genarchive/internal/llm"
	"genarchive/internal/model"
	"genarchive/internal/storage"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// NotifyFunc 状态变更回调（SSE 推送）
type NotifyFunc func(clientID, historyID string, status entity.HistoryStatus, errMsg string)

// Options 生成流水线的超时与限制
type Options struct {
	FetchTimeout  time.Duration
	StoreTimeout  time.Duration
	LedgerTimeout time.Duration
	// MaxImageCount 为 0 时不限制
	MaxImageCount int
	// Fetcher 可选，默认使用 http.DefaultClient
	Fetcher Fetcher
}

// GenerationService 生成服务：调用本地后端、搬运产物、维护历史记录
type GenerationService struct {
	recorder      *LifecycleRecorder
	relocator     *Relocator
	generators    map[string]llm.Generator
	maxImageCount int

	// notifyFunc 用于通知状态变更事件（由调用方设置）
	notifyFunc NotifyFunc
	now        func() time.Time
}

// Result 一次成功或失败调用的结果；失败时仅 HistoryID 可能有值
type Result struct {
	HistoryID string
	Images    []entity.ArtifactRef
	Message   string
}

// NewGenerationService 创建生成服务实例
func NewGenerationService(repo model.Repository, store storage.Storage, generators map[string]llm.Generator, opts Options) *GenerationService {
	return &GenerationService{
		recorder:      NewLifecycleRecorder(repo, opts.LedgerTimeout),
		relocator:     NewRelocator(opts.Fetcher, store, opts.FetchTimeout, opts.StoreTimeout),
		generators:    generators,
		maxImageCount: opts.MaxImageCount,
		now:           time.Now,
	}
}

// SetNotifyFunc 设置通知函数（用于 SSE 推送）
func (s *GenerationService) SetNotifyFunc(fn NotifyFunc) {
	s.notifyFunc = fn
}

// Run executes the pipeline for one request of the given kind. It returns
// only after the history entry, if one was created, reached a terminal state.
func (s *GenerationService) Run(ctx context.Context, kindName string, req entity.GenerationRequest) (*Result, error) {
	kind, ok := LookupKind(kindName)
	if !ok {
		return &Result{}, fmt.Errorf("%w: %s", ErrUnknownKind, kindName)
	}

	// 调用方断开连接也要让记录走到终态
	ctx = context.WithoutCancel(ctx)

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return &Result{}, validationError("Prompt is required")
	}
	imageCount, err := s.normalizeImageCount(req.ImageCount)
	if err != nil {
		return &Result{}, err
	}

	generator := s.generators[kind.Name]
	if generator == nil {
		return &Result{}, newError(KindUpstream, fmt.Sprintf("no generation backend configured for %s", kind.Name), nil)
	}

	generationType := strings.TrimSpace(req.GenerationType)
	if generationType == "" {
		generationType = kind.Name
	}
	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = kind.DefaultModel
	}
	clientID := strings.TrimSpace(req.ClientID)

	entry := &entity.DbHistoryEntry{
		Prompt:         kind.storedPrompt(prompt),
		Model:          modelName,
		GenerationType: generationType,
		ImageCount:     imageCount,
	}
	historyID, err := s.recorder.Begin(ctx, entry)
	if err != nil {
		return &Result{}, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"history_id":      historyID,
		"generation_type": generationType,
		"model":           modelName,
	})
	logger.WithField("image_count", imageCount).Info("generation started")
	s.notify(clientID, historyID, entity.StatusGenerating, "")

	urls, err := generator.Generate(ctx, prompt, imageCount)
	if err != nil {
		return s.fail(ctx, logger, clientID, historyID, classifyGenerateError(err))
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	images, err := s.relocator.RelocateAll(ctx, Batch{Kind: kind, HistoryID: historyID, CreatedAt: createdAt}, urls)
	if err != nil {
		return s.fail(ctx, logger, clientID, historyID, err)
	}

	// 终态写入失败只记录日志，不影响返回结果
	_ = s.recorder.Complete(ctx, historyID, images)
	s.notify(clientID, historyID, entity.StatusCompleted, "")
	logger.WithField("stored_count", len(images)).Info("generation completed")

	return &Result{
		HistoryID: historyID,
		Images:    images,
		Message:   kind.successMessage(imageCount),
	}, nil
}

func (s *GenerationService) fail(ctx context.Context, logger *logrus.Entry, clientID, historyID string, err error) (*Result, error) {
	logger.WithError(err).WithField("kind", string(KindOf(err))).Error("generation failed")
	_ = s.recorder.Fail(ctx, historyID, err.Error())
	s.notify(clientID, historyID, entity.StatusFailed, err.Error())
	return &Result{HistoryID: historyID}, err
}

func (s *GenerationService) normalizeImageCount(count int) (int, error) {
	switch {
	case count < 0:
		return 0, validationError("imageCount must not be negative")
	case count == 0:
		return 1, nil
	case s.maxImageCount > 0 && count > s.maxImageCount:
		return 0, validationError(fmt.Sprintf("imageCount must not exceed %d", s.maxImageCount))
	default:
		return count, nil
	}
}

func classifyGenerateError(err error) error {
	if errors.Is(err, llm.ErrEmptyPrompt) {
		return validationError("Prompt is required")
	}
	return newError(KindUpstream, err.Error(), err)
}

// notify 通知状态变更
func (s *GenerationService) notify(clientID, historyID string, status entity.HistoryStatus, errMsg string) {
	if s.notifyFunc != nil && clientID != "" {
		s.notifyFunc(clientID, historyID, status, errMsg)
	}
}
