package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"algo-asset-api/config"
	"algo-asset-api/services"
)

// POST /api/v1/admin/overdue-sweep — manual trigger for the reminder sweep
func RunOverdueSweep(c *gin.Context) {
	sent, err := services.RunOverdueSweep(config.DB, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reminders_sent": sent})
}
