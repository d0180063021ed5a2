package api

import (
	"context"
	"errors"
	"genarchive/internal/entity"
	"genarchive/internal/entity/common"
	"genarchive/internal/entity/converter"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func (h *HTTPHandler) ListHistory(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "history repository not configured")
		return
	}

	var params entity.HistoryQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		InvalidPayload(c)
		return
	}

	params.Model = strings.TrimSpace(params.Model)
	params.GenerationType = strings.TrimSpace(params.GenerationType)
	params.Status = strings.ToLower(strings.TrimSpace(params.Status))
	if params.Status != "" {
		if _, err := common.ParseHistoryStatus(params.Status); err != nil {
			BadRequest(c, ErrCodeInvalidStatus, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.ledgerTimeout())
	defer cancel()

	entries, meta, err := h.repo.ListHistoryEntries(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list history entries")
		InternalError(c, "failed to load history")
		return
	}

	items := converter.HistoryEntriesToItems(entries)
	if meta == nil {
		meta = &entity.Meta{Limit: params.Limit, Total: int64(len(items))}
	}

	c.JSON(http.StatusOK, entity.HistoryListResponse{History: items, Meta: *meta})
}

func (h *HTTPHandler) GetHistory(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "history repository not configured")
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		MissingField(c, "id")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.ledgerTimeout())
	defer cancel()

	entry, err := h.repo.GetHistoryEntry(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "history entry not found")
			return
		}
		logrus.WithError(err).WithField("history_id", id).Error("failed to load history entry")
		InternalError(c, "failed to load history entry")
		return
	}

	c.JSON(http.StatusOK, entity.HistoryDetailResponse{Entry: converter.HistoryEntryToItem(entry)})
}
