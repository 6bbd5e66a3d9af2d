package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTP serves GET /health: 200 {"status":"ok"} or 503 {"status":"unavailable"}.
func (c *Checker) HTTP(ctx *gin.Context) {
	if err := c.Check(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
