// Package handlers implements the HTTP front end (C7): the three route
// families a local HLS player actually issues against this proxy.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/laurikarhu/sxmproxy/internal/metrics"
	"github.com/laurikarhu/sxmproxy/internal/middleware"
	"github.com/laurikarhu/sxmproxy/internal/sxm"
)

// aesKeyBase64 encodes the literal 16-byte key vended at /<anything>/key/1. The client
// player performs AES decryption itself; this proxy never touches segment
// plaintext (§9 Non-goals).
const aesKeyBase64 = "0Nsco7MAgxowGvkUT8aYag=="

// Proxy wires the three route families onto a single mux. Go's ServeMux
// pattern syntax has no way to express a suffix wildcard like "{x}.m3u8", so
// all three families are dispatched from one catch-all handler rather than
// three separate registered patterns — the routing logic is still exactly
// the three-way branch spec.md §5 describes.
type Proxy struct {
	resolver *sxm.PlaylistResolver
	metrics  *metrics.Collector
}

// NewProxy builds the HTTP front end around the playlist resolver.
func NewProxy(resolver *sxm.PlaylistResolver, stats *metrics.Collector) *Proxy {
	return &Proxy{resolver: resolver, metrics: stats}
}

// Routes returns the proxy's handler, wrapped in request-ID/logging/
// recovery middleware (teacher's cmd/server/main.go chain).
func (p *Proxy) Routes(debugGuard *middleware.DebugGuard) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{path...}", p.dispatch)
	mux.Handle("GET /debug/metrics", debugGuard.Require(http.HandlerFunc(p.debugMetrics)))

	return middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))
}

func (p *Proxy) dispatch(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	switch {
	case strings.HasSuffix(path, "/key/1"):
		p.serveKey(w, r)
	case strings.HasSuffix(path, ".m3u8"):
		p.servePlaylist(w, r, path)
	case strings.HasSuffix(path, ".aac"):
		p.serveSegment(w, r, path)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (p *Proxy) servePlaylist(w http.ResponseWriter, r *http.Request, path string) {
	last := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		last = path[idx+1:]
	}
	channel := strings.TrimSuffix(last, ".m3u8")

	body, err := p.resolver.GetPlaylist(r.Context(), channel, true)
	if err != nil {
		writeError(w, r, "playlist", err)
		return
	}

	w.Header().Set("Content-Type", "application/x-mpegURL")
	w.Write([]byte(body))
}

func (p *Proxy) serveSegment(w http.ResponseWriter, r *http.Request, path string) {
	body, err := p.resolver.GetSegment(r.Context(), path)
	if err != nil {
		writeError(w, r, "segment", err)
		return
	}

	w.Header().Set("Content-Type", "audio/x-aac")
	w.Write(body)
}

func (p *Proxy) serveKey(w http.ResponseWriter, r *http.Request) {
	key, err := base64.StdEncoding.DecodeString(aesKeyBase64)
	if err != nil {
		// Can only happen if the literal above is ever edited incorrectly.
		writeError(w, r, "key", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write(key)
}

func (p *Proxy) debugMetrics(w http.ResponseWriter, r *http.Request) {
	if p.metrics == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p.metrics.Collect())
}

// writeError maps every C4/C6 error to a 500, per spec.md §5 — richer
// detail belongs in the log line, not the response body.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Error().
		Err(err).
		Str("op", op).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("sxm: request failed")

	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
