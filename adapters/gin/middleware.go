package authgin

import (
	"net/http"
	"time"

	authhttp "github.com/PaulFidika/supaguard/adapters/http"
	"github.com/PaulFidika/supaguard/authctx"
	supabasekit "github.com/PaulFidika/supaguard/supabase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Keys set on the gin context by the auth middleware.
const (
	ClaimsKey    = "auth.claims"
	UserIDKey    = "auth.user_id"
	RoleKey      = "auth.role"
	RequestIDKey = "request_id"
)

// AuthRequired aborts with 401 (503 while the key-set is unreachable) unless the request
// carries a valid bearer token.
func AuthRequired(v authhttp.Verifier) gin.HandlerFunc {
	return auth(v, true)
}

// AuthOptional admits anonymous requests; a token that is present must still verify.
func AuthOptional(v authhttp.Verifier) gin.HandlerFunc {
	return auth(v, false)
}

func auth(v authhttp.Verifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := authhttp.BearerToken(c.Request)
		if token == "" {
			if required {
				abort(c, http.StatusUnauthorized, "missing_token")
				return
			}
			c.Next()
			return
		}
		claims, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, authhttp.StatusFor(err), authhttp.ErrorCode(err))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.Subject())
		c.Set(RoleKey, claims.Role())
		c.Request = c.Request.WithContext(authctx.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func abort(c *gin.Context, status int, code string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer error="`+code+`"`)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

// ClaimsFromGin returns the claims stored by AuthRequired/AuthOptional.
func ClaimsFromGin(c *gin.Context) (supabasekit.ClaimSet, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	cl, ok := v.(supabasekit.ClaimSet)
	return cl, ok
}

// RequestID tags each request with X-Request-ID. A client value is kept only when it is
// a UUID; anything else is replaced with a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if parsed, err := uuid.Parse(id); err == nil {
			id = parsed.String()
		} else {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Logger writes one line per request. The Authorization header is never logged.
func Logger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}
		if id := c.GetString(RequestIDKey); id != "" {
			fields["request_id"] = id
		}
		if uid := c.GetString(UserIDKey); uid != "" {
			fields["user_id"] = uid
		}
		entry := log.WithFields(fields)
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Info("request")
	}
}
