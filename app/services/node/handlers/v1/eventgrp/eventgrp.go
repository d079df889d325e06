// Package eventgrp maintains the websocket that streams simulator events.
package eventgrp

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/chainsim/foundation/events"
	"github.com/ardanlabs/chainsim/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the events endpoint.
type Handlers struct {
	Log  *zap.SugaredLogger
	WS   websocket.Upgrader
	Evts *events.Events
}

// Events handles a web socket to provide events to a client. The optional
// filter query value limits the stream to events that mention it, such as a
// chain or node id.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// The upgrade took over the connection.
	v.StatusCode = http.StatusSwitchingProtocols

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query().Get("filter"))
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}
