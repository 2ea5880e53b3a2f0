package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := gin.H{"status": "ok"}

	if h.db != nil {
		dbStatus := "ok"
		if err := h.db.Ping(ctx); err != nil {
			dbStatus = "error"
			h.log.Error().Err(err).Msg("database ping failed")
		}
		response["database"] = dbStatus
	}

	if h.cache != nil {
		cacheStatus := "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			cacheStatus = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
		response["cache"] = cacheStatus
	}

	c.JSON(http.StatusOK, response)
}
