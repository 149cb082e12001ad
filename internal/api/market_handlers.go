package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/market"
	"github.com/nepfolio/nepfolio/internal/models"
	"github.com/nepfolio/nepfolio/internal/quote"
)

// GetMarket returns the full quote table keyed by symbol.
func (h *Handler) GetMarket(c *gin.Context) {
	snap, err := h.store.List(c.Request.Context(), kvstore.MarketPrefix)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, market.DecodeTable(snap))
}

// GetQuote returns one symbol's quote.
func (h *Handler) GetQuote(c *gin.Context) {
	symbol := quote.CanonicalSymbol(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid symbol"})
		return
	}

	raw, err := h.store.Get(c.Request.Context(), kvstore.MarketPath(symbol))
	if errors.Is(err, kvstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + symbol})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	var q models.Quote
	if err := q.UnmarshalJSON(raw); err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// GetMovers returns the day's top gainers and losers. ?limit= defaults to 5.
func (h *Handler) GetMovers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit < 1 {
		limit = 5
	}

	snap, err := h.store.List(c.Request.Context(), kvstore.MarketPrefix)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, market.TopMovers(market.DecodeTable(snap), limit))
}

// internalError hides transport and storage detail from clients.
func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary failure, retry later"})
}
