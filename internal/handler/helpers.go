package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/pkg/errs"
	"github.com/docqa/docqa/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, errs.ErrIndexUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "index_unavailable", "index is not loaded")
	case errors.Is(err, errs.ErrGenerationTimeout):
		response.Error(c, http.StatusGatewayTimeout, "generation_timeout", "answer generation timed out")
	case errors.Is(err, errs.ErrGenerationUnavailable):
		response.Error(c, http.StatusBadGateway, "generation_unavailable", "answer generation failed")
	case errors.Is(err, errs.ErrMalformedPayload):
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
	default:
		response.Error(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
