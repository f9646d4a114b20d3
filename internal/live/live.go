// Package live serves a view over HTTP for interactive preview.
//
// The server is a render.Container: every frame the view paints is kept
// as the latest frame and pushed to connected websocket clients. Pointer
// and key messages sent by clients are decoded into events and delivered
// on a channel so the owner can dispatch them on its own goroutine.
package live

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	clientBuffer = 8
)

// ErrNoFrame is returned by Latest before anything was painted.
var ErrNoFrame = errors.New("live: no frame painted")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Outbound is a frame pushed to clients.
type Outbound struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Data   string `json:"data,omitempty"`
}

// Inbound is an input message from a client.
type Inbound struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
	Key    string  `json:"key"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// Event converts the message to an input event.
func (in Inbound) Event() *event.Event {
	e := event.New(event.Type(in.Type), in.X, in.Y)
	e.Button = in.Button
	e.DeltaX, e.DeltaY = in.DeltaX, in.DeltaY
	e.Key = in.Key
	if r := []rune(in.Key); len(r) == 1 {
		e.Rune = r[0]
	}
	e.Width, e.Height = in.Width, in.Height
	return e
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventBuffer sets the capacity of the inbound event channel.
func WithEventBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.events = make(chan *event.Event, n)
		}
	}
}

// Server is a live preview container.
type Server struct {
	mu      sync.Mutex
	latest  Outbound
	seq     uint64
	clients map[chan Outbound]struct{}

	events chan *event.Event
	logger *logging.Logger
}

// NewServer creates a server with no frame.
func NewServer(opts ...Option) *Server {
	s := &Server{
		clients: make(map[chan Outbound]struct{}),
		events:  make(chan *event.Event, 64),
		logger:  logging.NullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("live")
	return s
}

// Events returns decoded client input.
func (s *Server) Events() <-chan *event.Event {
	return s.events
}

// Show implements render.Container.
func (s *Server) Show(f render.Frame) error {
	out, err := encodeFrame(f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.seq++
	out.Seq = s.seq
	s.latest = out
	for ch := range s.clients {
		select {
		case ch <- out:
		default:
			// Slow client; it will catch up with the next frame.
		}
	}
	s.mu.Unlock()
	return nil
}

// Latest returns the most recent frame.
func (s *Server) Latest() (Outbound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == 0 {
		return Outbound{}, ErrNoFrame
	}
	return s.latest, nil
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func encodeFrame(f render.Frame) (Outbound, error) {
	out := Outbound{Type: "frame", Width: f.Width, Height: f.Height}
	switch f.Type {
	case render.FrameSVG:
		out.Format = "svg"
		out.Data = string(f.Data)
	case render.FrameText:
		out.Format = "text"
		out.Data = string(f.Data)
	case render.FrameImage:
		out.Format = "png"
		data := f.Data
		if len(data) == 0 && f.Image != nil {
			var buf bytes.Buffer
			if err := png.Encode(&buf, f.Image); err != nil {
				return Outbound{}, err
			}
			data = buf.Bytes()
		}
		out.Data = base64.StdEncoding.EncodeToString(data)
	default:
		return Outbound{}, errors.New("live: unknown frame type " + string(f.Type))
	}
	return out, nil
}

// Handler returns the HTTP routes:
//
//	GET /          preview page
//	GET /frame     latest frame body with its content type
//	GET /ws        websocket stream
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /frame", s.handleFrame)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("live preview on http://%s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	out, err := s.Latest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	switch out.Format {
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write([]byte(out.Data))
	case "png":
		data, _ := base64.StdEncoding.DecodeString(out.Data)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(out.Data))
	}
}

func (s *Server) subscribe() chan Outbound {
	ch := make(chan Outbound, clientBuffer)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	if s.seq > 0 {
		ch <- s.latest
	}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Outbound) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Warn("ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	frames := s.subscribe()
	defer s.unsubscribe(frames)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-frames:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		if in.Type == "" {
			continue
		}
		select {
		case s.events <- in.Event():
		case <-ctx.Done():
		default:
			s.logger.Debug("dropping %s event, queue full", in.Type)
		}
	}
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>vizview</title></head>
<body style="margin:0">
<div id="view"></div>
<script>
const view = document.getElementById("view");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (m) => {
  const f = JSON.parse(m.data);
  if (f.format === "svg") view.innerHTML = f.data;
  else if (f.format === "png") view.innerHTML = '<img src="data:image/png;base64,' + f.data + '">';
  else view.innerHTML = "<pre>" + f.data.replace(/</g, "&lt;") + "</pre>";
};
const send = (type, e) => {
  const r = view.getBoundingClientRect();
  ws.send(JSON.stringify({type, x: e.clientX - r.left, y: e.clientY - r.top,
    button: e.button || 0, deltaX: e.deltaX || 0, deltaY: e.deltaY || 0}));
};
for (const t of ["click", "dblclick", "pointerdown", "pointerup", "pointermove", "wheel"]) {
  view.addEventListener(t, (e) => send(t, e));
}
document.addEventListener("keydown", (e) => ws.send(JSON.stringify({type: "keydown", key: e.key})));
</script>
</body>
</html>
`
