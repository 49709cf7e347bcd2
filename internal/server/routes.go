package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"codetyper/internal/config"
	"codetyper/internal/relay"
	"codetyper/internal/rooms"
	"codetyper/internal/snippets"
	"codetyper/internal/wshub"
)

// New wires a relay server around fresh in-memory state.
func New(fetcher SnippetFetcher, originPatterns []string) *Server {
	store := rooms.NewStore()
	hub := wshub.NewHub()
	return &Server{
		Rooms:          store,
		Hub:            hub,
		Router:         relay.NewRouter(store, hub),
		Snippets:       fetcher,
		OriginPatterns: originPatterns,
	}
}

// Routes returns the handler for every endpoint, without CORS.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /health", accessLog(http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/snippets/{language}", accessLog(http.HandlerFunc(s.handleSnippet)))
	return mux
}

// Handler wraps Routes with CORS for frontendURL.
func (s *Server) Handler(frontendURL string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodHead},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(s.Routes())
}

// Run serves until ctx is cancelled, then shuts down. Open WebSocket
// connections are closed along with ctx.
func Run(ctx context.Context, cfg config.Config) error {
	sources := snippets.DefaultSources()
	if cfg.SnippetSources != "" {
		var err error
		if sources, err = snippets.LoadSources(cfg.SnippetSources); err != nil {
			return err
		}
	}
	provider := snippets.NewProvider(sources,
		snippets.WithAttempts(cfg.SnippetAttempts),
		snippets.WithHTTPClient(&http.Client{Timeout: cfg.SnippetTimeout}),
	)

	srv := New(provider, OriginPatterns(cfg.FrontendURL))
	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           srv.Handler(cfg.FrontendURL),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpSrv.Addr).
			Str("frontend_url", cfg.FrontendURL).
			Msg("relay server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", httpSrv.Addr, err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down relay server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// OriginPatterns turns the frontend URL into WebSocket origin patterns.
// "*" allows any origin.
func OriginPatterns(frontendURL string) []string {
	if frontendURL == "*" {
		return []string{"*"}
	}
	u, err := url.Parse(frontendURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
