package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fetchmill/internal/config"
	"fetchmill/internal/convert"
	"fetchmill/internal/format"
	"fetchmill/internal/logging"
	"fetchmill/internal/task"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger.With(logging.String("component", "api-server")),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", srv.handleTasks)
	mux.HandleFunc("/api/tasks/", srv.handleTaskItem)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/history", srv.handleHistory)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		tasks := s.daemon.orchestrator.List()
		payload := TaskListResponse{Tasks: make([]TaskPayload, 0, len(tasks))}
		for _, t := range tasks {
			payload.Tasks = append(payload.Tasks, fromTask(t))
		}
		s.writeJSON(w, http.StatusOK, payload)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	strategy := task.StrategySimulated
	if req.Strategy != "" {
		strategy = task.Strategy(strings.ToLower(strings.TrimSpace(req.Strategy)))
		if strategy != task.StrategySimulated && strategy != task.StrategyReal {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown strategy %q", req.Strategy))
			return
		}
	}

	started, err := s.daemon.orchestrator.Start(convert.Request{
		SourceID:           req.SourceID,
		SourceURL:          req.SourceURL,
		Title:              req.Title,
		DurationSeconds:    req.DurationSeconds,
		Quality:            req.Quality,
		AudioBitrateKbps:   req.AudioBitrateKbps,
		Available:          available,
		AvailableQualities: req.AvailableQualities,
		Strategy:           strategy,
		TotalBytesEstimate: req.TotalBytesEstimate,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, TaskResponse{Task: fromTask(started)})
}

func (s *apiServer) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		snapshot, err := s.daemon.orchestrator.Get(id)
		if err != nil {
			s.writeErrorFor(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, TaskResponse{Task: fromTask(snapshot)})
	case action == "" && r.Method == http.MethodDelete:
		if err := s.daemon.orchestrator.Cancel(id); err != nil {
			s.writeErrorFor(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "result": "cancelled"})
	case action == "pause" && r.Method == http.MethodPost:
		snapshot, err := s.daemon.orchestrator.Pause(id)
		if err != nil {
			s.writeErrorFor(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, TaskResponse{Task: fromTask(snapshot)})
	case action == "resume" && r.Method == http.MethodPost:
		snapshot, err := s.daemon.orchestrator.Resume(id)
		if err != nil {
			s.writeErrorFor(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, TaskResponse{Task: fromTask(snapshot)})
	case action == "file" && r.Method == http.MethodGet:
		s.handleFile(w, r, id)
	case action == "" || action == "pause" || action == "resume" || action == "file":
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		s.writeError(w, http.StatusNotFound, "unknown action")
	}
}

// handleFile streams the produced file and deletes it afterwards. The stream's
// Close removes the backing file even when the client disconnects mid-body.
func (s *apiServer) handleFile(w http.ResponseWriter, r *http.Request, id string) {
	stream, info, err := s.daemon.orchestrator.OpenResult(id)
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Warn("result stream close failed",
				logging.String(logging.FieldTaskID, id), logging.Error(err))
		}
	}()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Filename))
	if _, err := io.Copy(w, stream); err != nil {
		s.logger.Warn("result stream interrupted",
			logging.String(logging.FieldTaskID, id), logging.Error(err))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := StatusResponse{
		Running:       status.Running,
		PID:           status.PID,
		LockFilePath:  status.LockFilePath,
		HistoryDBPath: status.HistoryDBPath,
		TaskCounts:    status.TaskCounts,
	}
	for _, dep := range status.Dependencies {
		payload.Dependencies = append(payload.Dependencies, DependencyPayload{
			Name:      dep.Name,
			Command:   dep.Command,
			Optional:  dep.Optional,
			Available: dep.Available,
			Detail:    dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.archive == nil {
		s.writeJSON(w, http.StatusOK, HistoryResponse{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.daemon.archive.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := HistoryResponse{Entries: make([]HistoryPayload, 0, len(entries))}
	for _, entry := range entries {
		payload.Entries = append(payload.Entries, HistoryPayload{
			TaskID:          entry.TaskID,
			SourceID:        entry.SourceID,
			Title:           entry.Title,
			Quality:         entry.Quality,
			Container:       entry.Container,
			Strategy:        entry.Strategy,
			Status:          entry.Status,
			Reason:          entry.Reason,
			DownloadedBytes: entry.DownloadedBytes,
			TotalBytes:      entry.TotalBytes,
			CreatedAt:       entry.CreatedAt,
			EndedAt:         entry.EndedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// writeErrorFor maps orchestrator errors onto HTTP statuses.
func (s *apiServer) writeErrorFor(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, task.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, format.ErrQualityUnavailable):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, format.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
