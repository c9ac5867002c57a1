// Command stock-web runs the stock-submission pipeline service: upload a
// batch of images, describe them with Gemini, review the metadata, then
// embed and FTP the files to the agency in one publish call.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/stock-submit/internal/analyze"
	"github.com/fpang/stock-submit/internal/config"
	"github.com/fpang/stock-submit/internal/distribute"
	"github.com/fpang/stock-submit/internal/logging"
	"github.com/fpang/stock-submit/internal/metadata"
	"github.com/fpang/stock-submit/internal/session"
)

// CLI flags
var (
	portFlag   int
	configFlag string
	modelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "stock-web",
	Short: "Web service for AI-assisted stock photography submission",
	Long: `Stock Web starts a local web server that turns a batch of uploaded
images into an annotated, FTP-distributed stock submission. Upload files,
let Gemini draft titles, descriptions, keywords and a category for each,
review the results, then publish: the approved metadata is embedded into
every file with exiftool and the batch is uploaded to the agency.

Examples:
  stock-web
  stock-web --port 9090
  stock-web --config /etc/stock-submit/config.toml`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.Flags().StringVar(&configFlag, "config", "config.toml", "Path to the TOML configuration file")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}

	logging.Init(cfg.Logging.Level)

	store, err := session.NewStore(cfg.Storage.Root)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session storage")
	}

	srv := &server{
		store:    store,
		analyzer: analyze.New(store, cfg.GeminiTimeout()),
		embedder: metadata.NewEmbedder(cfg.Embed.ExifTool),
		uploader: distribute.NewUploader(distribute.FTPDial(cfg.FTP.Host, cfg.FTPDialTimeout())),
		model:    cfg.Gemini.Model,
		newCaptioner: func(ctx context.Context, apiKey, model string) (analyze.Captioner, error) {
			return analyze.NewGeminiCaptioner(ctx, apiKey, model)
		},
	}

	handler := withLogging(withCORS(srv.routes()))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 600 * time.Second, // analysis of a large batch is slow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Int("port", cfg.Server.Port).
		Str("storage_root", cfg.Storage.Root).
		Str("model", cfg.Gemini.Model).
		Msg("Starting stock-web server")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins; the review UI runs beside the server.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
