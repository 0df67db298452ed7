package handlers

import (
	authgin "github.com/PaulFidika/supaguard/adapters/gin"
	authhttp "github.com/PaulFidika/supaguard/adapters/http"
	"github.com/gin-gonic/gin"
)

// Register mounts the service routes on r.
func Register(r gin.IRouter, v authhttp.Verifier, server, version string) {
	r.GET("/ping", HandlePingGET(server, version))
	r.POST("/auth/verify", HandleAuthVerifyPOST(v))
	r.GET("/auth/me", authgin.AuthRequired(v), HandleUserMeGET())
}
