package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// Frame types exchanged with the navigation host.
//
// The client sends "ready" once it can navigate and "link" to route a link
// over the connection. The server sends "navigate" for every navigation,
// "ready" (with the number of replayed links) after the queue drained,
// "result" in answer to "link" and "error" for frames it cannot handle.
const (
	FrameReady    = "ready"
	FrameLink     = "link"
	FrameNavigate = "navigate"
	FrameResult   = "result"
	FrameError    = "error"
)

// Frame is the JSON message exchanged on the host connection.
type Frame struct {
	Type string `json:"type"`

	// link
	URL      string `json:"url,omitempty"`
	Source   string `json:"source,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Referrer string `json:"referrer,omitempty"`

	// navigate
	Destination string         `json:"destination,omitempty"`
	Params      map[string]any `json:"params,omitempty"`

	// ready (server to client)
	Replayed int `json:"replayed,omitempty"`

	Result *dispatch.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

var errHostClosed = errors.New("navigation host disconnected")

var _ dispatch.Host = (*wsHost)(nil)

// wsHost is a dispatch.Host backed by a WebSocket connection. Navigate
// pushes a navigate frame to the client.
type wsHost struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Navigate implements dispatch.Host. Nothing is sent once ctx is done.
func (h *wsHost) Navigate(ctx context.Context, destination string, params map[string]any) error {
	return h.write(ctx, Frame{Type: FrameNavigate, Destination: destination, Params: params})
}

func (h *wsHost) write(ctx context.Context, f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHostClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(h.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = h.conn.SetWriteDeadline(deadline)
	return h.conn.WriteJSON(f)
}

func (h *wsHost) ping() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHostClosed
	}
	return h.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout))
}

// close sends a close frame and closes the connection. It is idempotent.
func (h *wsHost) close(code int, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	msg := websocket.FormatCloseMessage(code, reason)
	_ = h.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeTimeout))
	_ = h.conn.Close()
}

// handleHost upgrades the request and serves the navigation host until the
// client disconnects. The identity on the upgrade request is used for links
// replayed when the host becomes ready.
func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "client_ip", s.clientIP(r))
		return
	}

	h := &wsHost{conn: conn, writeTimeout: s.config.WriteTimeout}
	defer h.close(websocket.CloseNormalClosure, "")

	conn.SetReadLimit(s.config.MaxMessageSize)
	readTimeout := 2 * s.config.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(h, done)
	defer s.detach(h)

	ctx := r.Context()
	s.logger.Info("navigation host connected", "client_ip", s.clientIP(r))

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("navigation host read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch f.Type {
		case FrameReady:
			s.attach(ctx, h)
		case FrameLink:
			s.routeFrame(ctx, h, f)
		default:
			s.reply(h, Frame{Type: FrameError, Error: "unknown frame type " + f.Type})
		}
	}
}

func (s *Server) routeFrame(ctx context.Context, h *wsHost, f Frame) {
	p, err := linkRequest{Source: f.Source, Campaign: f.Campaign, Referrer: f.Referrer}.partial()
	if err != nil {
		s.reply(h, Frame{Type: FrameError, Error: err.Error()})
		return
	}
	if f.URL == "" {
		s.reply(h, Frame{Type: FrameError, Error: "url is required"})
		return
	}
	res := s.manager.Handle(ctx, f.URL, p)
	s.reply(h, Frame{Type: FrameResult, URL: f.URL, Result: &res})
}

func (s *Server) reply(h *wsHost, f Frame) {
	if err := h.write(context.Background(), f); err != nil {
		s.logger.Debug("navigation host write failed", "type", f.Type, "error", err)
	}
}

// attach makes h the navigation host and replays queued links to it. A
// previously attached host is disconnected.
func (s *Server) attach(ctx context.Context, h *wsHost) {
	s.hostMu.Lock()
	prev := s.host
	s.host = h
	if prev != nil && prev != h {
		prev.close(websocket.CloseNormalClosure, "replaced by a newer host")
	}
	replayed := s.manager.SetHost(ctx, h)
	s.hostMu.Unlock()

	s.logger.Info("navigation host ready", "replayed", replayed)
	s.reply(h, Frame{Type: FrameReady, Replayed: replayed})
}

// detach marks the host not ready if h is still the attached host.
func (s *Server) detach(h *wsHost) {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()
	if s.host != h {
		return
	}
	s.host = nil
	s.manager.ClearHost()
	s.logger.Info("navigation host disconnected")
}

func (s *Server) keepalive(h *wsHost, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.ping(); err != nil {
				return
			}
		}
	}
}
