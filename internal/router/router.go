package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/handler"
)

// New builds the probe surface. The daemon has no API beyond these three
// read-only endpoints.
func New(status handler.StatusProvider) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", handler.Health)
	r.GET("/ready", handler.Ready)
	r.GET("/status", handler.Status(status))
	return r
}
