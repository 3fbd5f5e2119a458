package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"

	"github.com/solarroi/solarroi/pkg/calculator"
	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/storage"
	"github.com/solarroi/solarroi/pkg/tariff"
)

type contextKey string

const (
	userContextKey contextKey = "user"
)

// defaultMaxBodyBytes limits JSON request bodies.
const defaultMaxBodyBytes = 8 << 20

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// User is the authenticated caller of a request.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Server handles the HTTP API. It runs calculations and reads and writes
// projects, meter imports and results through storage.
type Server struct {
	calculator *calculator.Calculator
	tariffs    *tariff.Map
	storage    storage.Database

	listenAddr string
	httpServer *http.Server

	oidcVerifier   tokenVerifier
	bypassAuth     bool
	serverName     string
	maxImportBytes int64
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(c *calculator.Calculator, s storage.Database) *Server {
	srv := &Server{
		calculator: c,
		tariffs:    c.Tariffs(),
		storage:    s,
		serverName: "solarroi",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudience := lflag.String("oidc-audience", "", "audience (client ID) bearer ID tokens must be issued for")
	oidcIssuer := lflag.String("oidc-issuer", "https://accounts.google.com", "issuer of bearer ID tokens")
	bypassAuth := lflag.Bool("bypass-auth", false, "disable API authentication (local development only)")
	maxImportBytes := lflag.Int("max-import-bytes", 64<<20, "maximum size of an uploaded meter CSV")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.maxImportBytes = int64(*maxImportBytes)
		if *bypassAuth {
			log.Ctx(context.Background()).Warn("API authentication is disabled")
			srv.bypassAuth = true
			return
		}
		if *oidcAudience == "" {
			log.Ctx(context.Background()).Error("oidc-audience is required unless bypass-auth is set")
			os.Exit(1)
		}
		provider, err := oidc.NewProvider(context.Background(), *oidcIssuer)
		if err != nil {
			log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("issuer", *oidcIssuer), slog.Any("error", err))
			os.Exit(1)
		}
		srv.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/calculate", s.handleCalculate)
	apiMux.HandleFunc("GET /api/projects", s.handleListProjects)
	apiMux.HandleFunc("POST /api/projects", s.handleSaveProject)
	apiMux.HandleFunc("GET /api/projects/{projectID}", s.handleGetProject)
	apiMux.HandleFunc("POST /api/projects/{projectID}/settings", s.handleUpdateSettings)
	apiMux.HandleFunc("POST /api/projects/{projectID}/calculate", s.handleCalculateProject)
	apiMux.HandleFunc("GET /api/projects/{projectID}/results/latest", s.handleLatestResult)
	apiMux.HandleFunc("POST /api/projects/{projectID}/imports", s.handleImport)
	apiMux.HandleFunc("GET /api/projects/{projectID}/meter-matches", s.handleMeterMatches)
	apiMux.HandleFunc("POST /api/projects/{projectID}/meter-matches", s.handleApplyMeterMatches)
	apiMux.HandleFunc("GET /api/list/tariffs", s.handleListTariffs)
	apiMux.HandleFunc("GET /api/list/shopTypes", s.handleListShopTypes)
	apiMux.HandleFunc("GET /api/tariffs/{tariffID}/blocks", s.handleTariffBlocks)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

func (s *Server) getUser(r *http.Request) User {
	if user, ok := r.Context().Value(userContextKey).(User); ok {
		return user
	}
	return User{}
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
