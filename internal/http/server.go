package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"semaphore/roster/internal/auth"
	"semaphore/roster/internal/export"
	"semaphore/roster/internal/metrics"
	"semaphore/roster/internal/service"
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Register(ctx context.Context, input service.RegisterInput) (*service.Session, error)
	VerifyToken(token string) (*auth.Claims, error)
}

type RosterAPI interface {
	ListActiveStudents(ctx context.Context) ([]service.StudentView, error)
	GetStudent(ctx context.Context, id int64) (*service.StudentView, error)
	CreateStudent(ctx context.Context, input service.StudentInput) (*service.CreatedStudent, error)
	UpdateStudent(ctx context.Context, id int64, input service.StudentInput) error
	DeleteStudent(ctx context.Context, id int64) error
	ListClassesWithCounts(ctx context.Context) ([]service.ClassView, error)
}

// Pinger reports storage reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	auth    AuthAPI
	roster  RosterAPI
	pinger  Pinger
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewServer builds the HTTP layer. pinger and m may be nil.
func NewServer(authAPI AuthAPI, roster RosterAPI, pinger Pinger, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		auth:    authAPI,
		roster:  roster,
		pinger:  pinger,
		metrics: m,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(s.countRequests)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)

	r.Route("/students", func(r chi.Router) {
		r.Get("/", s.handleListStudents)
		r.Post("/", s.handleCreateStudent)
		r.Get("/export", s.handleExportStudents)
		r.Get("/{studentId}", s.handleGetStudent)
		r.Put("/{studentId}", s.handleUpdateStudent)
		r.Delete("/{studentId}", s.handleDeleteStudent)
	})

	r.With(s.authMiddleware).Get("/classes/management", s.handleListClasses)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "login successful", map[string]any{
		"token": session.Token,
		"user":  session.User,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	session, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "account registered", map[string]any{
		"token": session.Token,
		"user":  session.User,
	})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.roster.ListActiveStudents(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "students retrieved", map[string]any{"students": students})
}

func (s *Server) handleExportStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.roster.ListActiveStudents(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteRoster(w, students); err != nil {
		// Headers are already sent; all that is left is to log.
		s.logger.Error("roster export failed", zap.Error(err))
	}
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := studentID(w, r)
	if !ok {
		return
	}
	student, err := s.roster.GetStudent(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "student retrieved", map[string]any{"student": student})
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req service.StudentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	created, err := s.roster.CreateStudent(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "student created", map[string]any{
		"accountId":   created.AccountID,
		"studentCode": created.StudentCode,
	})
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := studentID(w, r)
	if !ok {
		return
	}
	var req service.StudentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if err := s.roster.UpdateStudent(r.Context(), id, req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "student updated", nil)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := studentID(w, r)
	if !ok {
		return
	}
	if err := s.roster.DeleteStudent(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "student deleted", nil)
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := s.roster.ListClassesWithCounts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		s.logger.Debug("class management listed", zap.Int64("account_id", claims.AccountID), zap.Int("classes", len(classes)))
	}
	writeSuccess(w, http.StatusOK, "classes retrieved", map[string]any{"classes": classes})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.VerifyToken(bearerToken(r.Header.Get("Authorization")))
		if err != nil {
			if errors.Is(err, service.ErrForbidden) {
				reason := "invalid"
				if errors.Is(err, auth.ErrTokenExpired) {
					reason = "expired"
				}
				s.logger.Info("bearer token rejected",
					zap.String("request_id", requestIDFromContext(r.Context())),
					zap.String("reason", reason),
				)
			}
			s.writeServiceError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// writeServiceError maps service sentinels onto statuses. Anything unknown is
// logged and reported as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", service.ErrConflict.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "student not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "missing_token", service.ErrUnauthorized.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusForbidden, "token_expired", service.ErrForbidden.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "invalid_token", service.ErrForbidden.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", service.ErrTooManyAttempts.Error())
	default:
		s.logger.Error("request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}

func studentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "studentId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid student id")
		return 0, false
	}
	return id, true
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeSuccess flattens fields next to the success flag and message.
func writeSuccess(w http.ResponseWriter, status int, message string, fields map[string]any) {
	body := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		body[key] = value
	}
	body["success"] = true
	body["message"] = message
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
		"error":   code,
	})
}
