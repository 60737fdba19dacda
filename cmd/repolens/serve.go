package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	serveAPIKey string
	serveCORS   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RepoLens HTTP API",
	Long: `Serves the analysis engine over HTTP: POST /analyze, POST /search,
GET /reports/{app}, GET /apps, DELETE /reports/{app}, GET /health.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "bearer token clients must present (empty disables auth)")
	serveCmd.Flags().StringVar(&serveCORS, "cors", "", "comma-separated allowed CORS origins")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	apiKey := serveAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("REPOLENS_API_KEY")
	}
	corsOrigins := serveCORS
	if corsOrigins == "" {
		corsOrigins = os.Getenv("REPOLENS_CORS_ORIGINS")
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = newServeMux(newHandler(eng))
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         serveAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // analyze requests can run for many minutes
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("serve: listening", "addr", serveAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("serve: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("serve: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	slog.Info("serve: stopped")
	return nil
}

func newServeMux(h *handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("GET /reports/{app}", h.handleGetReport)
	mux.HandleFunc("DELETE /reports/{app}", h.handleDeleteReports)
	mux.HandleFunc("GET /apps", h.handleListApps)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}
