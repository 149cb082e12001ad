package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nepfolio/nepfolio/internal/ledger"
)

// CreateTransaction records a buy or sell for the user and returns the
// committed state: the transaction, the updated holding (absent when the
// position closed) and the touched quote.
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID := c.Param("uid")

	var req ledger.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	res, err := h.portfolio.ApplyTransaction(c.Request.Context(), userID, req)
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ledger.ErrInsufficientUnits):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction": res.Transaction,
		"holding":     res.Holding,
		"quote":       res.Quote,
	})
}

// GetHoldings returns the user's open positions keyed by symbol.
func (h *Handler) GetHoldings(c *gin.Context) {
	holdings, err := h.portfolio.Holdings(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, holdings)
}

// GetTransactions returns the user's retained history, newest first.
func (h *Handler) GetTransactions(c *gin.Context) {
	txs, err := h.portfolio.Transactions(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
