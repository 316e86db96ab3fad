package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/merge"
	"github.com/sells-group/startup-finder/internal/model"
	"github.com/sells-group/startup-finder/internal/store"
	"github.com/sells-group/startup-finder/pkg/perplexity"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initPerplexity()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		r := buildRouter(ctx, st, client)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{Handler: r}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveUntilDone(ctx, srv, ln)
	},
}

// shutdownGrace bounds how long in-flight requests get to finish after
// a shutdown signal.
const shutdownGrace = 10 * time.Second

// serveUntilDone serves on ln until ctx is cancelled, then drains
// in-flight requests. Shutdown gets a fresh context: the signal context
// is already cancelled by the time it fires, and a cancelled context
// would skip the drain entirely.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	// Serve returns as soon as shutdown starts; wait for the drain.
	<-shutdownDone
	return nil
}

// buildRouter wires the API routes onto a chi router. Split out from
// the command so handlers are testable without a listening server.
func buildRouter(serverCtx context.Context, st store.Store, client perplexity.Client) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/startups", handleListStartups(st))
	r.Get("/startups/{name}", handleGetStartup(st))
	r.Post("/collect", handleCollect(serverCtx, st, client))

	return r
}

func handleListStartups(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := model.Filter{
			Industries:    q["industry"],
			Locations:     q["location"],
			FundingRounds: q["round"],
			Sources:       q["source"],
		}
		if v := q.Get("months"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "months must be an integer"})
				return
			}
			filter.MonthsBack = n
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
				return
			}
			filter.Limit = n
		}

		startups, err := st.List(r.Context(), filter)
		if err != nil {
			zap.L().Error("list startups failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		if startups == nil {
			startups = []model.Startup{}
		}
		writeJSON(w, http.StatusOK, startups)
	}
}

func handleGetStartup(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		startup, err := st.FindByName(r.Context(), name)
		if err != nil {
			zap.L().Error("find startup failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		if startup == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, startup)
	}
}

// handleCollect kicks off a collection run in the background and
// returns immediately. The run uses the server's base context so a
// dropped request does not cancel it.
func handleCollect(serverCtx context.Context, st store.Store, client perplexity.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Months     int      `json:"months"`
			Industries []string `json:"industries"`
			Locations  []string `json:"locations"`
			Rounds     []string `json:"rounds"`
			Limit      int      `json:"limit"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}

		filter := model.Filter{
			MonthsBack:    req.Months,
			Industries:    req.Industries,
			Locations:     req.Locations,
			FundingRounds: req.Rounds,
			Limit:         req.Limit,
		}

		go func() {
			o := buildOrchestrator(client)
			merged := merge.Merge(o.CollectAll(serverCtx, filter), merge.Options{})
			saved, err := st.SaveAll(serverCtx, merged)
			if err != nil {
				zap.L().Error("background collection save failed", zap.Error(err))
				return
			}
			zap.L().Info("background collection complete",
				zap.Int("merged", len(merged)),
				zap.Int("saved", saved),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
