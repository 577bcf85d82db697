// Package server exposes the HTTP API: user accounts, AI model
// profiles, and the literature pipeline with its SSE generation
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"litassist/internal/app"
	"litassist/internal/ratelimit"
	"litassist/internal/util"
	"litassist/pkg/ai"
	"litassist/pkg/auth"
	"litassist/pkg/domain"
	"litassist/pkg/extract"
	"litassist/pkg/storage"
	"litassist/pkg/store"
)

const (
	maxMultipartMemory = 32 << 20
	maxBatchFiles      = 20
)

// Config wires the server's collaborators. Limiter is optional.
type Config struct {
	App     *app.App
	Tokens  *auth.TokenManager
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// Server handles all HTTP routes.
type Server struct {
	app     *app.App
	tokens  *auth.TokenManager
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// New validates the configuration and builds the Server.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{app: cfg.App, tokens: cfg.Tokens, limiter: cfg.Limiter, logger: logger}, nil
}

// Router builds the route table with the middleware stack applied.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/literature/health", s.handleHealth)
	mux.HandleFunc("POST /api/user/register", s.handleRegister)
	mux.HandleFunc("POST /api/user/login", s.handleLogin)

	mux.Handle("GET /api/user/me", s.withUser(s.handleMe))

	mux.Handle("POST /api/literature/generate-guide", s.withUser(s.handleGenerateGuide))
	mux.Handle("POST /api/literature/batch-import", s.withUser(s.handleBatchImport))
	mux.Handle("POST /api/literature/page", s.withUser(s.handlePageLiterature))
	mux.Handle("GET /api/literature/experts/list", s.withUser(s.handleExperts))
	mux.Handle("GET /api/literature/{id}", s.withUser(s.handleGetLiterature))
	mux.Handle("GET /api/literature/{id}/download", s.withUser(s.handleDownload))
	mux.Handle("DELETE /api/literature/{id}", s.withUser(s.handleDeleteLiterature))

	mux.Handle("GET /api/ai-models", s.withUser(s.handleListAIModels))
	mux.Handle("POST /api/ai-models", s.withUser(s.handleCreateAIModel))
	mux.Handle("PUT /api/ai-models/{id}", s.withUser(s.handleUpdateAIModel))
	mux.Handle("DELETE /api/ai-models/{id}", s.withUser(s.handleDeleteAIModel))
	mux.Handle("POST /api/ai-models/{id}/default", s.withUser(s.handleSetDefaultAIModel))

	var handler http.Handler = mux
	handler = util.WithSecurityHeaders(handler)
	handler = util.WithCORS(handler)
	handler = util.WithRequestLog(handler)
	handler = util.WithRequestID(handler)
	return handler
}

type userContextKey struct{}

func (s *Server) withUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userContextKey{}).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.app.RegisterUser(req.Username, req.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.app.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.app.GetUser(userID(r))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) allowGeneration(r *http.Request) bool {
	ok, err := s.limiter.Allow(r.Context(), "generate:"+userID(r))
	if err != nil {
		s.logger.Warn("rate limit check", "error", err)
	}
	return ok
}

func (s *Server) handleGenerateGuide(w http.ResponseWriter, r *http.Request) {
	if !s.allowGeneration(r) {
		writeError(w, http.StatusTooManyRequests, "too many generation requests")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	opts := app.GuideOptions{
		AIModelID: r.FormValue("aiModelId"),
		ExpertID:  r.FormValue("expertId"),
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_, err = s.app.GenerateGuide(r.Context(), userID(r), app.Upload{
		Filename: header.Filename,
		Content:  file,
	}, opts, func(ev app.Event) {
		sse.Send(ev.Kind, ev.Data)
	})
	if err != nil {
		s.logger.Warn("generate guide", "error", err, "request_id", util.RequestIDFromContext(r.Context()))
	}
}

func (s *Server) handleBatchImport(w http.ResponseWriter, r *http.Request) {
	if !s.allowGeneration(r) {
		writeError(w, http.StatusTooManyRequests, "too many generation requests")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "files field is required")
		return
	}
	if len(headers) > maxBatchFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per batch", maxBatchFiles))
		return
	}

	uploads := make([]app.Upload, 0, len(headers))
	var open []multipart.File
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("open %s: %v", h.Filename, err))
			return
		}
		open = append(open, f)
		uploads = append(uploads, app.Upload{Filename: h.Filename, Content: f})
	}

	opts := app.GuideOptions{
		AIModelID: r.FormValue("aiModelId"),
		ExpertID:  r.FormValue("expertId"),
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	err = s.app.BatchGenerate(r.Context(), userID(r), uploads, opts, func(ev app.Event) {
		sse.Send(ev.Kind, ev.Data)
	})
	if err != nil {
		s.logger.Warn("batch import", "error", err, "request_id", util.RequestIDFromContext(r.Context()))
	}
}

type pageRequest struct {
	Page        int    `json:"page"`
	PageSize    int    `json:"pageSize"`
	Keyword     string `json:"keyword"`
	Status      string `json:"status"`
	CreatedFrom string `json:"createdFrom"`
	CreatedTo   string `json:"createdTo"`
}

func (s *Server) handlePageLiterature(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := store.LiteratureQuery{
		UserID:   userID(r),
		Keyword:  req.Keyword,
		Status:   domain.LiteratureStatus(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	var err error
	if q.CreatedFrom, err = parseTime(req.CreatedFrom); err != nil {
		writeError(w, http.StatusBadRequest, "invalid createdFrom")
		return
	}
	if q.CreatedTo, err = parseTime(req.CreatedTo); err != nil {
		writeError(w, http.StatusBadRequest, "invalid createdTo")
		return
	}
	items, total, err := s.app.PageLiterature(q)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (s *Server) handleGetLiterature(w http.ResponseWriter, r *http.Request) {
	record, err := s.app.GetLiterature(r.PathValue("id"), userID(r))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, name, err := s.app.DownloadPath(r.PathValue("id"), userID(r))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteLiterature(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteLiterature(r.Context(), r.PathValue("id"), userID(r)); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleExperts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"experts": s.app.Experts()})
}

type aiModelRequest struct {
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	BaseURL     string  `json:"baseUrl"`
	APIKey      string  `json:"apiKey"`
	ModelName   string  `json:"modelName"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	IsDefault   bool    `json:"isDefault"`
	Enabled     *bool   `json:"enabled"`
	Description string  `json:"description"`
}

func (req aiModelRequest) toDomain() domain.AIModel {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return domain.AIModel{
		Name:        req.Name,
		Provider:    req.Provider,
		BaseURL:     req.BaseURL,
		APIKey:      req.APIKey,
		ModelName:   req.ModelName,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		IsDefault:   req.IsDefault,
		Enabled:     enabled,
		Description: req.Description,
	}
}

func (s *Server) handleListAIModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.app.ListAIModels(userID(r))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": models})
}

func (s *Server) handleCreateAIModel(w http.ResponseWriter, r *http.Request) {
	var req aiModelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	model, err := s.app.CreateAIModel(userID(r), req.toDomain())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, model)
}

func (s *Server) handleUpdateAIModel(w http.ResponseWriter, r *http.Request) {
	var req aiModelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	model := req.toDomain()
	model.ID = r.PathValue("id")
	updated, err := s.app.UpdateAIModel(userID(r), model)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAIModel(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteAIModel(r.PathValue("id"), userID(r)); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetDefaultAIModel(w http.ResponseWriter, r *http.Request) {
	model, err := s.app.SetDefaultAIModel(r.PathValue("id"), userID(r))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, app.ErrModelNotConfigured),
		errors.Is(err, app.ErrValidation),
		errors.Is(err, storage.ErrFileInvalid),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, ai.ErrUnknownProvider):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parseTime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
