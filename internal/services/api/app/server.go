// Package app wires the API service runtime: storage, domain services, and
// the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/agent/prism"
	"github.com/hyvve/hyvve/internal/auth/token"
	"github.com/hyvve/hyvve/internal/kb"
	"github.com/hyvve/hyvve/internal/mail"
	"github.com/hyvve/hyvve/internal/platform/timeouts"
	"github.com/hyvve/hyvve/internal/ratelimit"
	"github.com/hyvve/hyvve/internal/services/api/rest"
	"github.com/hyvve/hyvve/internal/storage/sqlite"
	wsservice "github.com/hyvve/hyvve/internal/workspace/service"
)

// Config controls API service startup.
type Config struct {
	Addr        string `env:"HYVVE_API_ADDR" envDefault:":8080"`
	DBPath      string `env:"HYVVE_DB_PATH" envDefault:"hyvve.db"`
	TokenSecret string `env:"HYVVE_TOKEN_SECRET"`
	TokenIssuer string `env:"HYVVE_TOKEN_ISSUER" envDefault:"hyvve"`
	// GenAIAPIKey enables semantic knowledge base search; empty falls back
	// to keyword ranking.
	GenAIAPIKey string `env:"HYVVE_GENAI_API_KEY"`

	RatePerMinute int `env:"HYVVE_API_RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	RateBurst     int `env:"HYVVE_API_RATE_LIMIT_BURST" envDefault:"30"`

	Mail mail.Config
}

// Server hosts the API HTTP process.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
}

// NewServer opens storage and assembles the full API dependency graph.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, errors.New("token secret is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8080"
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	hub := activity.NewHub()
	journal := activity.NewJournal(store, hub)

	var mailer wsservice.InvitationMailer
	if cfg.Mail.Enabled() {
		sender, err := mail.NewSMTPSender(cfg.Mail)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("configure mail sender: %w", err)
		}
		mailer = mail.NewInvitationMailer(sender, cfg.Mail.BaseURL)
	} else {
		log.Printf("api: SMTP not configured, invitation emails disabled")
	}

	var embedder kb.Embedder
	if strings.TrimSpace(cfg.GenAIAPIKey) != "" {
		genaiEmbedder, err := kb.NewGenAIEmbedder(ctx, cfg.GenAIAPIKey)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("configure embedder: %w", err)
		}
		embedder = genaiEmbedder
	} else {
		log.Printf("api: GenAI key not configured, knowledge base search falls back to keywords")
	}

	workspaces := wsservice.NewService(store, store, journal, mailer)
	agent := prism.NewAgent(store, store, store, store)

	handler, err := rest.NewHandler(rest.Config{
		Workspaces: workspaces,
		Users:      store,
		Planning:   store,
		Articles:   store,
		Embedder:   embedder,
		Agent:      agent,
		Journal:    journal,
		Hub:        hub,
		Limiter: ratelimit.NewLimiter(ratelimit.Limit{
			PerMinute: cfg.RatePerMinute,
			Burst:     cfg.RateBurst,
		}),
		Tokens: token.Config{
			Issuer: cfg.TokenIssuer,
			Secret: []byte(cfg.TokenSecret),
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("assemble api handler: %w", err)
	}

	return &Server{
		addr:            cfg.Addr,
		shutdownTimeout: timeouts.Shutdown,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler.Routes(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
	}, nil
}

// Run creates and serves an API server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init api server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve api: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("api server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("api server listening on %s", s.addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}
}
