package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabcast/core"
	"pkt.systems/tabcast/schema"
)

// FrameProvider yields the frame to serve for one request.
type FrameProvider interface {
	Frame(ctx context.Context) (core.Frame, error)
}

// Commander accepts commands for the UI loop without blocking.
type Commander interface {
	Submit(cmd core.Command)
}

// StreamFrame is the /live-stream payload. Frame marshals as base64.
type StreamFrame struct {
	Frame     []byte `json:"frame"`
	URL       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

var errMissingURL = errors.New("missing url parameter")

// Server serves the live stream, remote navigation, and the viewer page.
type Server struct {
	cfg       Config
	frames    FrameProvider
	commander Commander
	recorder  RequestRecorder
	index     []byte
	now       func() time.Time
}

// NewServer constructs a stream server.
func NewServer(cfg Config, frames FrameProvider, commander Commander) *Server {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Server{
		cfg:       cfg,
		frames:    frames,
		commander: commander,
		index:     viewerPage(cfg.PollInterval),
		now:       time.Now,
	}
}

// SetRecorder installs a request recorder for metrics.
func (s *Server) SetRecorder(recorder RequestRecorder) {
	if s == nil {
		return
	}
	s.recorder = recorder
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/live-stream", readOnly(s.handleLiveStream))
	mux.HandleFunc("/navigate", readOnly(s.handleNavigate))
	return withRequestLogging(mux, s.recorder)
}

func readOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readMethod(r) {
			methodNotAllowed(w)
			return
		}
		next(w, r)
	}
}

func readMethod(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w)
		return
	}
	if !readMethod(r) {
		methodNotAllowed(w)
		return
	}
	if s.index == nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(s.index))
}

func (s *Server) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	if s.frames == nil {
		writeError(w, http.StatusServiceUnavailable, schema.ErrUnavailable)
		return
	}
	frame, err := s.frames.Frame(r.Context())
	switch {
	case errors.Is(err, schema.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, schema.ErrUnavailable)
		return
	case err != nil:
		pslog.Ctx(r.Context()).Debug("http live stream capture failed", "err", err)
		writeError(w, http.StatusInternalServerError, schema.ErrCaptureFailed)
		return
	}
	writeJSON(w, http.StatusOK, StreamFrame{
		Frame:     frame.Data,
		URL:       frame.URL,
		Timestamp: s.now().UnixMilli(),
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		writeError(w, http.StatusBadRequest, errMissingURL)
		return
	}
	if s.commander != nil {
		s.commander.Submit(core.Command{Kind: core.CommandNavigate, Input: target, Source: "http"})
	}
	pslog.Ctx(r.Context()).Info("http navigate queued", "input", target)
	writeJSON(w, http.StatusOK, map[string]string{"status": "navigating"})
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not Found"))
}

// writeJSON sends payload with the CORS header every JSON response carries.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
