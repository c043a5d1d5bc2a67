package handlers

import (
	"log"
	"net/http"
	"strconv"

	"estate-marketplace/internal/cleanup"
	"estate-marketplace/internal/database"
	"estate-marketplace/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles reviewer-facing admin routes
type AdminHandler struct {
	store     database.Store
	cleanup   *cleanup.Service
	scheduler *scheduler.Scheduler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store database.Store, sweep *cleanup.Service, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{
		store:     store,
		cleanup:   sweep,
		scheduler: sched,
	}
}

// GetStats returns moderation statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	counts, err := h.store.CountListingsByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var total int64
	byStatus := make(map[string]int64, len(counts))
	for status, count := range counts {
		byStatus[string(status)] = count
		total += count
	}
	stats["listings"] = map[string]interface{}{
		"by_status": byStatus,
		"total":     total,
	}

	sweepStats, err := h.cleanup.Stats()
	if err != nil {
		log.Printf("Admin: failed to get sweep stats: %v", err)
	} else {
		stats["sweep"] = sweepStats
	}

	c.JSON(http.StatusOK, stats)
}

// RunSweep manually triggers the deletion sweep
func (h *AdminHandler) RunSweep(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is not available"})
		return
	}

	log.Println("Admin: manual sweep trigger requested")
	result, err := h.scheduler.RunSweepNow()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPurgeLogs returns recent purge log entries
func (h *AdminHandler) GetPurgeLogs(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	logs, err := h.cleanup.RecentLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}
