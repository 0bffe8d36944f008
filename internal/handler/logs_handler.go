package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docqa/docqa/internal/pkg/response"
	"github.com/docqa/docqa/internal/service"
)

type LogsHandler struct {
	msglog *service.MessageLogService
}

func NewLogsHandler(msglog *service.MessageLogService) *LogsHandler {
	return &LogsHandler{msglog: msglog}
}

func (h *LogsHandler) List(c *gin.Context) {
	if !h.msglog.Enabled() {
		response.Error(c, http.StatusNotFound, "not_found", "message logging is not configured")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.msglog.Recent(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entries)
}

func (h *LogsHandler) Stats(c *gin.Context) {
	if !h.msglog.Enabled() {
		response.Error(c, http.StatusNotFound, "not_found", "message logging is not configured")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	stats, err := h.msglog.Stats(c.Request.Context(), days)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
