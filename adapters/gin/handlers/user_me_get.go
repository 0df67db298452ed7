package handlers

import (
	"net/http"

	authgin "github.com/PaulFidika/supaguard/adapters/gin"
	"github.com/gin-gonic/gin"
)

// HandleUserMeGET returns the verified caller. Mount behind authgin.AuthRequired.
func HandleUserMeGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := authgin.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		c.JSON(http.StatusOK, u)
	}
}
