// Package statusserver exposes update status over HTTP: Prometheus metrics,
// a JSON snapshot and a websocket stream of transitions.
package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pushchain/autoupdate/internal/update"
)

const (
	PathMetrics = "/metrics"
	PathStatus  = "/status"
	PathStream  = "/status/stream"

	subscriberBuffer = 256
	writeWait        = 5 * time.Second
)

// Snapshot is the wire form of a status.
type Snapshot struct {
	Phase           string  `json:"phase" yaml:"phase"`
	Progress        float64 `json:"progress" yaml:"progress"`
	RestartRequired bool    `json:"restart_required" yaml:"restart_required"`
	Candidate       string  `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}

// SnapshotOf converts a status into its wire form.
func SnapshotOf(s update.Status, candidate string) Snapshot {
	return Snapshot{
		Phase:           s.Phase.String(),
		Progress:        s.Progress,
		RestartRequired: s.RestartRequired(),
		Candidate:       candidate,
	}
}

// Options configures a Server.
type Options struct {
	Cell      *update.StatusCell
	Gatherer  prometheus.Gatherer // metrics source; nil disables /metrics
	Candidate func() string       // optional: tag of the selected release
	Logger    *log.Logger
}

// Server serves status for one StatusCell.
type Server struct {
	cell      *update.StatusCell
	gatherer  prometheus.Gatherer
	candidate func() string
	logger    *log.Logger
	upgrader  websocket.Upgrader

	mu     sync.Mutex
	subs   map[chan update.Status]struct{}
	closed bool
}

// New creates a Server and subscribes it to the cell.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Candidate == nil {
		opts.Candidate = func() string { return "" }
	}
	s := &Server{
		cell:      opts.Cell,
		gatherer:  opts.Gatherer,
		candidate: opts.Candidate,
		logger:    opts.Logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		subs: make(map[chan update.Status]struct{}),
	}
	opts.Cell.Observe(s.broadcast)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.gatherer != nil {
		mux.Handle(PathMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc(PathStatus, s.handleStatus)
	mux.HandleFunc(PathStream, s.handleStream)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Printf("status server listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close ends every open stream.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(SnapshotOf(s.cell.Load(), s.candidate()))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, ok := s.subscribe()
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return
	}
	defer s.unsubscribe(ch)

	// reader goroutine: detects client close, gorilla answers pings
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(st update.Status) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(SnapshotOf(st, s.candidate()))
	}

	closeWith := func(code int, text string) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	}

	// a subscriber that arrives after the worker settled gets the final
	// status and a normal close
	cur := s.cell.Load()
	if err := send(cur); err != nil {
		return
	}
	if cur.IsSettled() {
		closeWith(websocket.CloseNormalClosure, "settled")
		return
	}
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				closeWith(websocket.CloseNormalClosure, "")
				return
			}
			if err := send(st); err != nil {
				return
			}
			if st.IsSettled() {
				closeWith(websocket.CloseNormalClosure, "settled")
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) subscribe() (chan update.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	ch := make(chan update.Status, subscriberBuffer)
	s.subs[ch] = struct{}{}
	return ch, true
}

func (s *Server) unsubscribe(ch chan update.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// broadcast never blocks the writer; a subscriber whose buffer is full
// misses the update.
func (s *Server) broadcast(_, next update.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
}
