package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/phone"
)

// ExtractPhones returns a handler for POST /api/v1/phones/extract.
// It runs the phone engine on the given bio and links; no browser involved.
func ExtractPhones() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PhonesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, "invalid request: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, phone.Extract(phone.Input{
			Bio:      req.Bio,
			Link:     req.Link,
			BioLinks: req.BioLinks,
		}))
	}
}
