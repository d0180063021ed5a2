package api

import (
	"genarchive/internal/config"
	"genarchive/internal/entity"
	"genarchive/internal/model"
	"genarchive/internal/service"
	"genarchive/internal/storage"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultLedgerTimeout = 5 * time.Second

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg     config.Config
	repo    model.Repository
	storage storage.Storage

	// 服务层
	generationService *service.GenerationService

	// SSE 客户端管理
	sseClients map[string][]chan sseMessage
	sseMu      sync.Mutex
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage, generationSvc *service.GenerationService) *HTTPHandler {
	handler := &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		generationService: generationSvc,
		sseClients:        make(map[string][]chan sseMessage),
	}

	// 设置 SSE 通知回调
	if generationSvc != nil {
		generationSvc.SetNotifyFunc(handler.notifyHistoryUpdated)
	}

	return handler
}

// RegisterRoutes 注册 /health 与 /api 路由
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)

	apiGroup := r.Group("/api")
	apiGroup.POST("/local/:kind", h.GenerateLocal)

	history := apiGroup.Group("/history")
	history.GET("", h.ListHistory)
	history.GET("/events", h.StreamHistoryEvents)
	history.GET("/:id", h.GetHistory)

	h.registerLocalFiles(r)
}

// registerLocalFiles 在本地存储使用相对公开前缀时由本进程提供文件
func (h *HTTPHandler) registerLocalFiles(r gin.IRouter) {
	local, ok := h.storage.(storage.LocalFileServer)
	if !ok {
		return
	}
	publicBase := local.PublicBase()
	if !strings.HasPrefix(publicBase, "/") {
		return
	}
	r.Static(publicBase, local.LocalBaseDir())
}

// ledgerTimeout 历史读取的超时，与写入共用 LEDGER_TIMEOUT
func (h *HTTPHandler) ledgerTimeout() time.Duration {
	if h.cfg.LedgerTimeout > 0 {
		return h.cfg.LedgerTimeout
	}
	return defaultLedgerTimeout
}

// notifyHistoryUpdated 推送历史记录状态变更（用于 SSE 推送）
func (h *HTTPHandler) notifyHistoryUpdated(clientID, historyID string, status entity.HistoryStatus, errMsg string) {
	if strings.TrimSpace(clientID) == "" {
		return
	}
	payload := gin.H{
		"historyId": historyID,
		"status":    status,
	}
	if trimmed := strings.TrimSpace(errMsg); trimmed != "" {
		payload["error"] = trimmed
	}
	h.publishSSEMessage(clientID, sseMessage{
		event: "history_updated",
		data:  payload,
	})
}
