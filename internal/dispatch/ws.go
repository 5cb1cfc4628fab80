package dispatch

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	readLimit    = 64 << 10
	writeTimeout = 10 * time.Second
)

type WSOptions struct {
	// OriginPatterns lists allowed cross-origin hosts; empty allows same-origin only.
	OriginPatterns []string
	PingInterval   time.Duration
}

// wsConn adapts a websocket connection to pvp.Conn. nhooyr writes are safe
// for concurrent use, so broadcasts from other games' goroutines need no lock.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return w.c.Write(ctx, websocket.MessageText, data)
}

type wsHandler struct {
	d    *Dispatcher
	opts WSOptions
}

// NewWSHandler serves the game WebSocket endpoint. Commands of one
// connection are handled in arrival order.
func NewWSHandler(d *Dispatcher, opts WSOptions) http.Handler {
	return &wsHandler{d: d, opts: opts}
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.d.logger.Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c.SetReadLimit(readLimit)
	conn := &wsConn{c: c}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if h.opts.PingInterval > 0 {
		go h.pingLoop(ctx, c)
	}
	h.d.logger.Info("ws_connected", zap.String("remote", r.RemoteAddr))

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.d.logger.Info("ws_read_ended", zap.String("remote", r.RemoteAddr), zap.Error(err))
			}
			break
		}
		if typ != websocket.MessageText {
			continue
		}
		h.d.Handle(ctx, conn, data)
	}

	h.d.Closed(context.WithoutCancel(ctx), conn)
	_ = c.Close(websocket.StatusNormalClosure, "")
	h.d.logger.Info("ws_disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *wsHandler) pingLoop(ctx context.Context, c *websocket.Conn) {
	t := time.NewTicker(h.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				_ = c.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
