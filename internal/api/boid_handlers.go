package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nepfolio/nepfolio/internal/ipo"
	"github.com/nepfolio/nepfolio/internal/kvstore"
)

type addBOIDRequest struct {
	Name   string `json:"name"`
	Number string `json:"boid"`
}

// AddBOID registers a beneficiary owner ID on the user's account.
func (h *Handler) AddBOID(c *gin.Context) {
	var req addBOIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	rec, err := h.boids.Add(c.Request.Context(), c.Param("uid"), req.Name, req.Number)
	switch {
	case errors.Is(err, ipo.ErrInvalidBOID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetBOIDs lists the user's registered BOIDs with their last known statuses.
func (h *Handler) GetBOIDs(c *gin.Context) {
	recs, err := h.boids.List(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// DeleteBOID removes a registered BOID.
func (h *Handler) DeleteBOID(c *gin.Context) {
	if err := h.boids.Remove(c.Request.Context(), c.Param("uid"), c.Param("id")); err != nil {
		h.internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type checkBOIDRequest struct {
	SessionID   string `json:"id"`
	CompanyID   int    `json:"companyId"`
	CaptchaText string `json:"captcha"`
}

// CheckBOID runs the allotment check for a registered BOID and persists the
// checker's message as the record's status.
func (h *Handler) CheckBOID(c *gin.Context) {
	userID, id := c.Param("uid"), c.Param("id")

	var req checkBOIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	rec, err := h.boids.Get(c.Request.Context(), userID, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown boid"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	result, err := h.ipo.Check(c.Request.Context(), ipo.CheckRequest{
		SessionID:   req.SessionID,
		BOID:        rec.Number,
		CompanyID:   req.CompanyID,
		CaptchaText: req.CaptchaText,
	})
	switch {
	case errors.Is(err, ipo.ErrSessionExpired), errors.Is(err, ipo.ErrCheckRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err)
		return
	}

	updated, err := h.boids.SetStatus(c.Request.Context(), userID, id, result.Message)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": result.Message, "boid": updated})
}
