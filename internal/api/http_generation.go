package api

import (
	"errors"
	"genarchive/internal/entity"
	"genarchive/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GenerateLocal 运行一次本地生成流水线，成功 200，校验失败 400，其余失败 500
func (h *HTTPHandler) GenerateLocal(c *gin.Context) {
	kind := strings.TrimSpace(c.Param("kind"))
	if _, ok := service.LookupKind(kind); !ok {
		generationFailure(c, http.StatusNotFound, "unknown generation kind: "+kind, "")
		return
	}

	if h.generationService == nil {
		generationFailure(c, http.StatusServiceUnavailable, "generation service not configured", "")
		return
	}

	var request entity.GenerationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		generationFailure(c, http.StatusBadRequest, describeBindError(err), "")
		return
	}

	result, err := h.generationService.Run(c.Request.Context(), kind, request)
	if err != nil {
		status := statusForGenerationError(err)
		historyID := ""
		if result != nil {
			historyID = result.HistoryID
		}
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{
				"history_id":      historyID,
				"generation_type": kind,
				"code":            ErrCodeGenerationFailed,
			}).Warn("local generation request failed")
		}
		generationFailure(c, status, err.Error(), historyID)
		return
	}

	images := result.Images
	if images == nil {
		images = []entity.ArtifactRef{}
	}
	c.JSON(http.StatusOK, entity.GenerationResponse{
		Success:   true,
		HistoryID: result.HistoryID,
		Images:    images,
		Message:   result.Message,
	})
}

func generationFailure(c *gin.Context, status int, message, historyID string) {
	body := entity.GenerationFailure{Success: false, Error: message}
	if historyID != "" {
		body.HistoryID = &historyID
	}
	c.JSON(status, body)
}

func statusForGenerationError(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
