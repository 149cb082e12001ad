// Package api exposes the tracker over HTTP: market reads, portfolio
// operations, the CDSC IPO proxy and a websocket bridge onto the change
// subscription layer.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nepfolio/nepfolio/internal/ipo"
	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/portfolio"
)

// Handler carries the dependencies shared by all routes.
type Handler struct {
	store     kvstore.Store
	portfolio *portfolio.Service
	ipo       *ipo.Client
	boids     *ipo.Registry
	logger    *logrus.Logger
}

// NewHandler wires the API handler. ipoClient may be nil to disable the
// proxy routes; the BOID registry and its statuses stay available either way.
func NewHandler(store kvstore.Store, svc *portfolio.Service, ipoClient *ipo.Client, boids *ipo.Registry, logger *logrus.Logger) *Handler {
	return &Handler{store: store, portfolio: svc, ipo: ipoClient, boids: boids, logger: logger}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1")
	{
		api.GET("/market", h.GetMarket)
		api.GET("/market/movers", h.GetMovers)
		api.GET("/market/:symbol", h.GetQuote)

		api.POST("/users/:uid/transactions", h.CreateTransaction)
		api.GET("/users/:uid/transactions", h.GetTransactions)
		api.GET("/users/:uid/holdings", h.GetHoldings)

		api.POST("/users/:uid/boids", h.AddBOID)
		api.GET("/users/:uid/boids", h.GetBOIDs)
		api.DELETE("/users/:uid/boids/:id", h.DeleteBOID)

		api.GET("/stream", h.Stream)

		if h.ipo != nil {
			api.GET("/ipo/companies", h.GetCompanies)
			api.GET("/ipo/captcha/:id", h.GetCaptcha)
			api.POST("/ipo/check", h.CheckResult)
			api.POST("/users/:uid/boids/:id/check", h.CheckBOID)
		}
	}

	return router
}
