package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"holdingsd/internal/config"
	"holdingsd/internal/domain"
	"holdingsd/internal/exchange"
	"holdingsd/internal/holdings"
	storepkg "holdingsd/internal/store"
)

type contextKey string

const contextKeyAdminSubject contextKey = "admin_subject"

type Server struct {
	cfg      config.Config
	store    storepkg.Store
	holdings *holdings.Service
	creds    *exchange.CredentialCache
}

func NewServer(
	cfg config.Config,
	store storepkg.Store,
	holdingsSvc *holdings.Service,
	creds *exchange.CredentialCache,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		holdings: holdingsSvc,
		creds:    creds,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/holdings", s.handleHoldings)

	r.Post("/admin/login", s.handleAdminLogin)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireAdmin)
		protected.Post("/admin/credentials/refresh", s.handleCredentialRefresh)
		protected.Post("/admin/cache/invalidate", s.handleCacheInvalidate)
		protected.Get("/events", s.handleListEvents)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"name":    s.cfg.AppName,
		"version": s.cfg.AppVersion,
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	refresh := parseBool(r.URL.Query().Get("refresh"))
	userID := s.userID(r)

	result, err := s.holdings.GetHoldings(r.Context(), userID, refresh)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cached":     result.Cached,
		"source":     result.Payload.Source,
		"fetched_at": result.Payload.FetchedAt,
		"count":      result.Payload.Count,
		"items":      result.Payload.Items,
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username != s.cfg.AdminUsername || req.Password != s.cfg.AdminPassword {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := s.signAdminToken(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create admin token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"type":       "Bearer",
	})
}

func (s *Server) handleCredentialRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.creds.Get(r.Context(), true); err != nil {
		writeUpstreamError(w, err)
		return
	}
	event := s.store.AppendEvent(domain.EventCredentialRefreshed, "", map[string]interface{}{
		"secret_name": s.cfg.SecretName,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"event_id": event.ID,
	})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if err := s.holdings.InvalidateCache(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to invalidate cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"user_id": userID,
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	events := s.store.ListEvents(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) userID(r *http.Request) string {
	if v := r.URL.Query().Get("user_id"); v != "" {
		return v
	}
	return s.cfg.DefaultUserID
}

func (s *Server) signAdminToken(subject string) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(12 * time.Hour)
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": expiresAt.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid admin claims")
			return
		}
		sub, _ := claims["sub"].(string)
		ctx := context.WithValue(r.Context(), contextKeyAdminSubject, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeUpstreamError maps the pipeline error taxonomy onto the inbound
// surface. Credential material never appears in these messages.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var configErr *domain.ConfigError
	var httpErr *domain.HTTPError
	var netErr *domain.NetworkError
	switch {
	case errors.As(err, &configErr):
		writeError(w, http.StatusInternalServerError, "credential configuration error")
	case errors.As(err, &httpErr):
		writeError(w, http.StatusBadGateway, fmt.Sprintf("upstream returned HTTP %d", httpErr.Status))
	case errors.As(err, &netErr):
		writeError(w, http.StatusBadGateway, "upstream unreachable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
