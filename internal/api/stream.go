package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nepfolio/nepfolio/internal/kvstore"
)

// streamBuffer bounds pending snapshots per socket; a stalled client keeps
// only the most recent states.
const streamBuffer = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Stream upgrades to a websocket and pushes the subscribed prefix's snapshot
// on connect and after every committed write under it. The ?path= query
// selects the prefix; only the market table and a single user's holdings or
// transactions collections are exposed.
func (h *Handler) Stream(c *gin.Context) {
	prefix := strings.Trim(c.Query("path"), "/")
	if !streamablePrefix(prefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported stream path"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	snapshots := make(chan kvstore.Snapshot, streamBuffer)
	cancel, err := h.store.Subscribe(prefix, func(snap kvstore.Snapshot) {
		select {
		case snapshots <- snap:
		default:
			// Drop the oldest pending snapshot; the newest state wins.
			select {
			case <-snapshots:
			default:
			}
			snapshots <- snap
		}
	})
	if err != nil {
		h.logger.WithError(err).Error("Stream subscription failed")
		conn.Close()
		return
	}

	done := make(chan struct{})

	// Reader loop: we ignore client frames but need the read pump to notice
	// the close handshake.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer cancel()
		defer conn.Close()
		for {
			select {
			case snap := <-snapshots:
				if err := conn.WriteJSON(gin.H{"path": prefix, "data": snap}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

// streamablePrefix allows the market table and single-user collections.
func streamablePrefix(prefix string) bool {
	if prefix == kvstore.MarketPrefix {
		return true
	}
	parts := strings.Split(prefix, "/")
	if len(parts) != 3 || parts[0] != "users" || parts[1] == "" {
		return false
	}
	return parts[2] == "holdings" || parts[2] == "transactions"
}
