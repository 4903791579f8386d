package main

import (
	"context"
	"encoding/json"
	"fmt"
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

	"github.com/siyada/leadgen-cli/internal/export"
	"github.com/siyada/leadgen-cli/internal/model"
	"github.com/siyada/leadgen-cli/internal/pipeline"
	"github.com/siyada/leadgen-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(env.Store, env.Pipeline),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the HTTP surface. The pipeline run endpoint accepts and
// detaches; everything else is synchronous.
func buildRouter(st store.Store, p *pipeline.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/pipeline/run", handleRunPipeline(st, p))
	r.Get("/api/pipeline/status/{sessionID}", handleSessionStatus(st))
	r.Get("/api/sessions", handleListSessions(st))

	r.Get("/api/leads/{sessionID}", handleListLeads(st))
	r.Patch("/api/leads/{leadID}", handleLeadSelection(st))
	r.Put("/api/leads/{leadID}/email", handleLeadEmailEdit(st))

	r.Post("/api/generate/{sessionID}", handleRegenerate(p))
	r.Get("/api/export/{sessionID}", handleExport(st))

	return r
}

func handleRunPipeline(st store.Store, p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query         string `json:"query"`
			SenderContext string `json:"sender_context"`
			UserID        string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		session, err := st.CreateSession(r.Context(), req.UserID, req.Query, req.SenderContext)
		if err != nil {
			zap.L().Error("create session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		// The run outlives the request: detach from the request context.
		go func() {
			summary := p.Run(context.Background(), session.ID, session.RawQuery, session.SenderContext)
			zap.L().Info("detached run finished",
				zap.String("session_id", session.ID),
				zap.String("status", string(summary.Status)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"session_id": session.ID,
			"status":     string(session.Status),
		})
	}
}

func handleSessionStatus(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := st.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func handleListSessions(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.SessionFilter{
			UserID: r.URL.Query().Get("user_id"),
			Status: model.SessionStatus(r.URL.Query().Get("status")),
		}
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
			filter.Limit = limit
		}
		if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
			filter.Offset = offset
		}

		sessions, err := st.ListSessions(r.Context(), filter)
		if err != nil {
			zap.L().Error("list sessions", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

func handleListLeads(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if _, err := st.GetSession(r.Context(), sessionID); err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		selectedOnly := r.URL.Query().Get("selected") == "true"
		leads, err := st.ListLeads(r.Context(), sessionID, selectedOnly)
		if err != nil {
			zap.L().Error("list leads", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list leads")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "total": len(leads)})
	}
}

func handleLeadSelection(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsSelected *bool `json:"is_selected"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsSelected == nil {
			writeError(w, http.StatusBadRequest, "is_selected is required")
			return
		}

		leadID := chi.URLParam(r, "leadID")
		if err := st.SetLeadSelection(r.Context(), leadID, *req.IsSelected); err != nil {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}

		lead, err := st.GetLead(r.Context(), leadID)
		if err != nil {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func handleLeadEmailEdit(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EmailSubject      string `json:"email_subject"`
			PersonalizedEmail string `json:"personalized_email"`
			SuggestedApproach string `json:"suggested_approach"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.EmailSubject == "" || req.PersonalizedEmail == "" {
			writeError(w, http.StatusBadRequest, "email_subject and personalized_email are required")
			return
		}

		leadID := chi.URLParam(r, "leadID")
		if err := st.UpdateLeadEmail(r.Context(), leadID, req.EmailSubject, req.PersonalizedEmail, req.SuggestedApproach); err != nil {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}

		lead, err := st.GetLead(r.Context(), leadID)
		if err != nil {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func handleRegenerate(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := p.RegenerateEmails(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"total_leads":   summary.TotalLeads,
			"success_count": summary.SuccessCount,
			"error_count":   summary.ErrorCount,
		})
	}
}

func handleExport(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if _, err := st.GetSession(r.Context(), sessionID); err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		leads, err := st.ListLeads(r.Context(), sessionID, true)
		if err != nil {
			zap.L().Error("list leads for export", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list leads")
			return
		}
		if len(leads) == 0 {
			writeError(w, http.StatusBadRequest, "no selected leads for this session")
			return
		}

		out, err := export.GenerateCSV(leads)
		if err != nil {
			zap.L().Error("generate csv", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to generate csv")
			return
		}

		filename := export.Filename(sessionID, time.Now())
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
