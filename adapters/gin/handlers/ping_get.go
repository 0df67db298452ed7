package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func HandlePingGET(server, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"server":    server,
			"version":   version,
		})
	}
}
