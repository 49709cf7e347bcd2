package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"codetyper/internal/relay"
	"codetyper/internal/rooms"
	"codetyper/internal/wshub"
)

const readLimit = 64 << 10

// SnippetFetcher returns practice code for a language. It never fails.
type SnippetFetcher interface {
	Fetch(ctx context.Context, language string) string
}

type Server struct {
	Rooms          *rooms.Store
	Hub            *wshub.Hub
	Router         *relay.Router
	Snippets       SnippetFetcher
	OriginPatterns []string
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := wshub.NewClient(conn)
	s.Router.Connect(client)
	defer s.Router.HandleDisconnect(client.ID)

	go client.WritePump(ctx)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				log.Debug().Err(err).Str("conn_id", client.ID).Msg("websocket read failed")
			}
			return
		}
		if typ != websocket.MessageText {
			log.Debug().Str("conn_id", client.ID).Msg("dropping binary frame")
			continue
		}
		s.Router.HandleFrame(client.ID, data)
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Players     int    `json:"players"`
	Connections int    `json:"connections"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.Rooms.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Rooms:       stats.Rooms,
		Players:     stats.Players,
		Connections: s.Hub.Connections(),
	})
}

type snippetResponse struct {
	Language string `json:"language"`
	Snippet  string `json:"snippet"`
}

func (s *Server) handleSnippet(w http.ResponseWriter, r *http.Request) {
	language := r.PathValue("language")
	writeJSON(w, http.StatusOK, snippetResponse{
		Language: language,
		Snippet:  s.Snippets.Fetch(r.Context(), language),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}

// accessLog logs one line per plain HTTP request. The WebSocket route is
// left unwrapped since it needs the raw ResponseWriter to hijack.
func accessLog(next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
	return hlog.NewHandler(log.Logger)(h)
}
