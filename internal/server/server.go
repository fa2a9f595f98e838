// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator/history"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// Pipeline is the lookup surface the server exposes.
type Pipeline interface {
	Lookup(ctx context.Context, p geometry.Point, d geometry.Display) (string, bool)
	LookupAtCursor(ctx context.Context) (string, bool)
	Define(ctx context.Context, word string) (string, bool)
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

// DisplayJSON is the wire form of geometry.Display.
type DisplayJSON struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}

func (d DisplayJSON) geometry() geometry.Display {
	return geometry.Display{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height, ScaleFactor: d.Scale}
}

// LookupRequest asks for the word at a point. Over WebSocket it carries
// type "lookup".
type LookupRequest struct {
	Type    string      `json:"type,omitempty"`
	X       int         `json:"x"`
	Y       int         `json:"y"`
	Display DisplayJSON `json:"display"`
	TraceID string      `json:"trace_id,omitempty"`
}

func (r LookupRequest) validate() error {
	if r.Display.Width <= 0 || r.Display.Height <= 0 {
		return errors.Newf(errors.InvalidArgument, "display size %dx%d must be positive", r.Display.Width, r.Display.Height)
	}
	return nil
}

// DefineMessage asks for a typed word over WebSocket.
type DefineMessage struct {
	Type    string `json:"type"`
	Word    string `json:"word"`
	TraceID string `json:"trace_id,omitempty"`
}

// ShowDefMessage pushes an entry to every display surface.
type ShowDefMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NoResultMessage answers a WebSocket request that produced nothing.
type NoResultMessage struct {
	Type string `json:"type"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body of failed HTTP requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	pipe    Pipeline
	history *history.Store
	health  func() map[string]any
	ipLimit *ipLimiter

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithHealth adds component details to /health.
func WithHealth(fn func() map[string]any) Option {
	return func(s *Server) { s.health = fn }
}

// New creates a new server and starts the showDef broadcaster, which stops
// when ctx is done.
func New(ctx context.Context, pipe Pipeline, hist *history.Store, opts ...Option) *Server {
	s := &Server{
		pipe:       pipe,
		history:    hist,
		ipLimit:    newIPLimiter(IPRateLimitMessages, IPRateLimitWindow),
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
	for _, o := range opts {
		o(s)
	}

	if hist != nil {
		go s.broadcastLookups(ctx)
	}
	go s.cleanupLoop(ctx)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/lookup", s.ipLimit.middleware(s.handleLookup))
	mux.HandleFunc("POST /api/lookup/cursor", s.ipLimit.middleware(s.handleLookupCursor))
	mux.HandleFunc("GET /api/define/{word}", s.ipLimit.middleware(s.handleDefine))
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/export", s.handleHistoryExport)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		writeError(w, errors.Wrap(err, errors.InvalidArgument, "decode lookup request"), http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	entry, ok := s.pipe.Lookup(r.Context(), geometry.Point{X: req.X, Y: req.Y}, req.Display.geometry())
	writeEntry(w, entry, ok)
}

func (s *Server) handleLookupCursor(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.pipe.LookupAtCursor(r.Context())
	writeEntry(w, entry, ok)
}

func (s *Server) handleDefine(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.pipe.Define(r.Context(), r.PathValue("word"))
	writeEntry(w, entry, ok)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.Record{})
		return
	}
	limit := HistoryDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, errors.Newf(errors.InvalidArgument, "invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = min(n, HistoryMaxLimit)
	}
	writeJSON(w, http.StatusOK, s.history.Recent(limit))
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, errors.New(errors.Unavailable, "history disabled"), http.StatusServiceUnavailable)
		return
	}
	data, err := s.history.ExportXLSX(r.Context())
	if err != nil {
		trace.Logger(r.Context()).Error("history export failed", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	name := "wordlens-history-" + time.Now().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.health != nil {
		for k, v := range s.health() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = newRateLimiter(RateLimitMessages, RateLimitWindow)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		ctx := baseCtx
		if tc, found := trace.ExtractFromJSON(msg); found {
			ctx = trace.WithContext(baseCtx, tc)
		}

		// Results arrive through the showDef broadcast; only misses are
		// answered directly.
		var ok bool
		switch base.Type {
		case "lookup":
			var req LookupRequest
			if err := json.Unmarshal(msg, &req); err != nil || req.validate() != nil {
				continue
			}
			_, ok = s.pipe.Lookup(ctx, geometry.Point{X: req.X, Y: req.Y}, req.Display.geometry())
		case "cursor":
			_, ok = s.pipe.LookupAtCursor(ctx)
		case "define":
			var def DefineMessage
			if err := json.Unmarshal(msg, &def); err != nil {
				continue
			}
			_, ok = s.pipe.Define(ctx, def.Word)
		default:
			continue
		}
		if !ok {
			_ = wsjson.Write(baseCtx, conn, NoResultMessage{Type: "noResult"})
		}
	}
}

func (s *Server) broadcastLookups(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.history.Events():
			if evt.Type != history.EventShowDef {
				continue
			}
			msg := ShowDefMessage{Type: history.EventShowDef, Payload: json.RawMessage(evt.Record.Entry)}

			s.mu.RLock()
			for conn := range s.conns {
				go func(c *websocket.Conn) {
					wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = wsjson.Write(wctx, c, msg)
				}(conn)
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(IPRateLimitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ipLimit.cleanup(IPRateLimitEntryTTL); n > 0 {
				trace.Logger(ctx).Debug("purged idle rate limiters", "count", n)
			}
		}
	}
}

// writeEntry sends an entry, or 204 when the pipeline produced none.
func writeEntry(w http.ResponseWriter, entry string, ok bool) {
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(entry))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error, status int) {
	writeJSON(w, status, ErrorResponse{Error: errors.CodeOf(err).String(), Message: err.Error()})
}
