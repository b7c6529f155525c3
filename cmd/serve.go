package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verdantiq/esg-cli/internal/carbon"
	"github.com/verdantiq/esg-cli/internal/extractor"
	"github.com/verdantiq/esg-cli/internal/model"
	"github.com/verdantiq/esg-cli/internal/monitoring"
	"github.com/verdantiq/esg-cli/internal/store"
)

var servePort int

// maxUploadBytes bounds the multipart form held in memory per request.
const maxUploadBytes = 50 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		monitor := monitoring.NewMonitor(cfg.Monitoring)
		sampler := monitoring.NewSampler(cfg.Monitoring)
		monitor.AttachSampler(sampler)
		go sampler.Run(ctx)

		svc, err := extractor.NewService(cfg, monitor)
		if err != nil {
			return eris.Wrap(err, "init extractor")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		api := &apiServer{
			svc:     svc,
			monitor: monitor,
			sampler: sampler,
			store:   st,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
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

type apiServer struct {
	svc     *extractor.Service
	monitor *monitoring.Monitor
	sampler *monitoring.Sampler
	store   store.Store

	httpInFlight atomic.Int64
	extractQueue atomic.Int64
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(rateLimit(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst))
	r.Use(s.trackGauges)

	r.Post("/extract", s.handleExtract)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics/performance", s.handlePerformance)
	r.Get("/metrics/qa", s.handleQAMetrics)
	r.Post("/corrections", s.handleCorrection)
	r.Get("/frameworks", s.handleFrameworks)
	r.Get("/carbon/methods", s.handleCarbonMethods)
	r.Post("/carbon/footprint", s.handleCarbonFootprint)
	r.Get("/runs", s.handleRuns)
	r.Get("/runs/{id}", s.handleRun)

	return r
}

// trackGauges keeps the sampler's connection gauge in sync with in-flight
// requests.
func (s *apiServer) trackGauges(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.httpInFlight.Add(1)
		s.publishGauges()
		defer func() {
			s.httpInFlight.Add(-1)
			s.publishGauges()
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) publishGauges() {
	s.sampler.SetGauges(float64(s.httpInFlight.Load()), float64(s.extractQueue.Load()))
}

// rateLimit rejects requests above the configured global rate with 429.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *apiServer) handleExtract(w http.ResponseWriter, r *http.Request) {
	s.extractQueue.Add(1)
	s.publishGauges()
	defer func() {
		s.extractQueue.Add(-1)
		s.publishGauges()
	}()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	run, err := s.store.CreateRun(r.Context(), model.Document{
		FileName: header.Filename,
		FileSize: header.Size,
		MimeType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		zap.L().Error("serve: create run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create run")
		return
	}

	result := s.svc.Extract(r.Context(), content, header.Filename, header.Header.Get("Content-Type"))
	if err := s.store.UpdateRunResult(r.Context(), run.ID, result); err != nil {
		zap.L().Error("serve: save result", zap.String("run_id", run.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"result": result,
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.sampler.Health()
	status := http.StatusOK
	if health.Status == model.HealthCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *apiServer) handlePerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}

func (s *apiServer) handleQAMetrics(w http.ResponseWriter, r *http.Request) {
	log := s.svc.Validator().Corrections()
	writeJSON(w, http.StatusOK, map[string]any{
		"rule_accuracy": log.Accuracy(),
		"corrections":   log.Corrections(),
	})
}

func (s *apiServer) handleCorrection(w http.ResponseWriter, r *http.Request) {
	var c model.Correction
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid correction body")
		return
	}
	if c.Original.ID == "" {
		writeError(w, http.StatusBadRequest, "original metric id is required")
		return
	}
	s.svc.Validator().Corrections().Record(c)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (s *apiServer) handleFrameworks(w http.ResponseWriter, r *http.Request) {
	type frameworkInfo struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Version     string `json:"version"`
		Description string `json:"description,omitempty"`
	}

	var alignment []frameworkInfo
	for _, def := range s.svc.Frameworks().Catalog().Frameworks {
		alignment = append(alignment, frameworkInfo{
			ID: def.ID, Name: def.Name, Version: def.Version, Description: def.Description,
		})
	}

	var scoring []frameworkInfo
	for _, fw := range s.svc.Scorer().Catalog().Frameworks {
		scoring = append(scoring, frameworkInfo{
			ID: fw.ID, Name: fw.Name, Version: fw.Version, Description: fw.Description,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alignment": alignment,
		"scoring":   scoring,
	})
}

func (s *apiServer) handleCarbonMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, carbon.Methods())
}

func (s *apiServer) handleCarbonFootprint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method     string             `json:"method"`
		Activities map[string]float64 `json:"activities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid footprint body")
		return
	}
	if len(req.Activities) == 0 {
		writeError(w, http.StatusBadRequest, "activities are required")
		return
	}

	total, err := carbon.Footprint(req.Activities, req.Method)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"method":        req.Method,
		"total_kg_co2e": total,
	})
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status:   model.RunStatus(r.URL.Query().Get("status")),
		FileName: r.URL.Query().Get("file_name"),
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("serve: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
