package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/service"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ticket-sync",
		"time":    time.Now().Unix(),
	})
}

func Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// StatusProvider exposes the last cycle snapshot.
type StatusProvider interface {
	Status() service.CycleStatus
}

func Status(p StatusProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, p.Status())
	}
}
