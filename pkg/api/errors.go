package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/logging"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindValidation:      http.StatusBadRequest,
	apperror.KindAlreadyExists:   http.StatusConflict,
	apperror.KindDuplicateTicker: http.StatusConflict,
	apperror.KindCompanyNotFound: http.StatusNotFound,
	apperror.KindProfileNotFound: http.StatusNotFound,
	apperror.KindProfileParse:    http.StatusUnprocessableEntity,
	apperror.KindParseFailure:    http.StatusUnprocessableEntity,
	apperror.KindFetchFailure:    http.StatusBadGateway,
}

// respondError 按错误类别写响应，未分类错误返回 500 且不暴露细节
func respondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status, ok := statusByKind[appErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error":      appErr.Kind,
			"message":    appErr.Error(),
			"request_id": c.GetString(requestIDKey),
		})
		return
	}

	logger := logging.FromContext(c.Request.Context(), defaultLogger)
	logger.Error().Err(err).Msg("请求处理失败")

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "INTERNAL_ERROR",
		"message":    "服务内部错误",
		"request_id": c.GetString(requestIDKey),
	})
}
