package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/project"
)

// multipart framing allowed on top of the file ceiling
const multipartOverhead = 1 << 20

type server struct {
	service        *project.Service
	maxUploadBytes int64
	logger         *slog.Logger
}

func newServerHandler(service *project.Service, conf config.ServerConfig, maxUploadBytes int64, logger *slog.Logger) http.Handler {
	s := &server{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/messages", s.getMessages).Methods(http.MethodGet)
	router.HandleFunc("/projects/{id}/messages", s.sendMessage).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/files", s.uploadFile).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/assistant-files", s.assistantFiles).Methods(http.MethodGet)
	router.HandleFunc("/projects/{id}/visualizations", s.visualizations).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(conf.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true), handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		router.ServeHTTP(w, r.WithContext(ctx))
	})

	return cors(recovery(handler))
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) createProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return
	}

	p, err := s.service.CreateProject(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *server) getMessages(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Messages(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string   `json:"message"`
		FileIDs []string `json:"fileIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrapf(errors.ErrInvalidParams, "invalid request body: %v", err))
		return
	}

	msg, err := s.service.SendMessage(r.Context(), mux.Vars(r)["id"], req.Message, req.FileIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

func (s *server) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, r, errors.Wrapf(errors.ErrFileTooLarge, "request exceeds %d bytes", maxBytesErr.Limit))
			return
		}
		s.writeError(w, r, errors.Wrapf(errors.ErrInvalidParams, "invalid multipart form: %v", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart files", mylog.Err(err))
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, errors.Wrapf(errors.ErrInvalidParams, "no file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, errors.Wrapf(err, "failed to read uploaded file"))
		return
	}

	f, err := s.service.UploadFile(r.Context(), mux.Vars(r)["id"], header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, f)
}

func (s *server) assistantFiles(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.AssistantFiles(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *server) visualizations(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.SuggestVisualizations(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidParams), errors.Is(err, errors.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errors.ErrRunFailed),
		errors.Is(err, errors.ErrNoValidResponse),
		errors.Is(err, errors.ErrInvalidResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, mylog.Err(err))
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, mylog.Err(err))
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", mylog.Err(err))
	}
}
