package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/report"
)

// searchJobResponse adds the derived summary to a finished job.
type searchJobResponse struct {
	*models.SearchJob
	Summary *report.Summary `json:"summary,omitempty"`
}

// PostSearch returns a handler for POST /api/v1/search.
// The search runs in the background; poll GET /api/v1/search/:id.
func PostSearch(jobs *Jobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, "invalid request: "+err.Error())
			return
		}
		req.Query = strings.TrimSpace(req.Query)
		if req.Query == "" {
			abortWithError(c, http.StatusBadRequest, models.ErrCodeEmptyQuery, "search query must not be empty")
			return
		}

		job, err := jobs.Submit(req)
		if err != nil {
			if errors.Is(err, ErrQueueFull) {
				abortWithError(c, http.StatusServiceUnavailable, models.ErrCodeRateLimited, err.Error())
				return
			}
			abortWithError(c, http.StatusInternalServerError, models.ErrCodeInternal, err.Error())
			return
		}
		c.JSON(http.StatusAccepted, searchJobResponse{SearchJob: job})
	}
}

// GetSearch returns a handler for GET /api/v1/search/:id.
func GetSearch(jobs *Jobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.Get(c.Param("id"))
		if !ok {
			abortWithError(c, http.StatusNotFound, models.ErrCodeNotFound, "search job not found")
			return
		}
		resp := searchJobResponse{SearchJob: job}
		if job.Output != nil {
			s := report.Summarize(job.Output.Results)
			resp.Summary = &s
		}
		c.JSON(http.StatusOK, resp)
	}
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: msg},
	})
}
