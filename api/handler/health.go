package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/leadscout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// BrowserProbe reports on the browser without touching the search page.
type BrowserProbe interface {
	Alive(ctx context.Context) bool
	ProfileTabs() int
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when the browser stops answering or the queue is full.
func Health(browser BrowserProbe, jobs *Jobs, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		bs := models.BrowserStats{}
		if browser != nil {
			bs.Alive = browser.Alive(ctx)
			bs.ProfileTabs = browser.ProfileTabs()
		}
		qs := jobs.Stats()

		status := "healthy"
		if !bs.Alive || (qs.Capacity > 0 && qs.Queued >= qs.Capacity) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Browser: bs,
			Queue:   qs,
			Version: Version,
		})
	}
}
