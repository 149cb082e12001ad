package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nepfolio/nepfolio/internal/ipo"
)

// GetCompanies relays the upstream list of checkable IPOs.
func (h *Handler) GetCompanies(c *gin.Context) {
	companies, err := h.ipo.Companies(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", companies)
}

// GetCaptcha fetches a fresh captcha bound to the caller-chosen session ID.
func (h *Handler) GetCaptcha(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
		return
	}

	image, err := h.ipo.Captcha(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "image": image})
}

// CheckResult performs the IPO allotment lookup for one BOID.
func (h *Handler) CheckResult(c *gin.Context) {
	var req ipo.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	result, err := h.ipo.Check(c.Request.Context(), req)
	switch {
	case errors.Is(err, ipo.ErrSessionExpired), errors.Is(err, ipo.ErrCheckRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
