package handlers

import (
	"net/http"
	"strings"

	authhttp "github.com/PaulFidika/supaguard/adapters/http"
	"github.com/gin-gonic/gin"
)

type verifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse is the body of a successful POST /auth/verify.
type VerifyResponse struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role,omitempty"`
	Email   string `json:"email,omitempty"`
	Exp     int64  `json:"exp"`
	Message string `json:"message"`
}

// HandleAuthVerifyPOST verifies the token in the JSON body (or the bearer header when
// the body has none) and echoes the caller's identity.
func HandleAuthVerifyPOST(v authhttp.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
				return
			}
		}
		token := strings.TrimSpace(req.Token)
		if token == "" {
			token = authhttp.BearerToken(c.Request)
		}
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_token"})
			return
		}
		claims, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			c.JSON(authhttp.StatusFor(err), gin.H{"error": authhttp.ErrorCode(err)})
			return
		}
		c.JSON(http.StatusOK, VerifyResponse{
			UserID:  claims.Subject(),
			Role:    claims.Role(),
			Email:   claims.Email(),
			Exp:     claims.ExpiresAt().Unix(),
			Message: "token verified",
		})
	}
}
