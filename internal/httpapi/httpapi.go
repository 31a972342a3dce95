package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/service"
	"warungpos/backend/internal/syncer"
)

const storeHeader = "X-Store-ID"

// SyncController exposes the cloud mirror state of each store.
type SyncController interface {
	Status(storeID string) syncer.Status
	Retry(ctx context.Context, storeID string) error
}

type API struct {
	stores         *service.Registry
	auth           *AuthManager
	sync           SyncController
	defaultStoreID string
	allowedOrigin  string
	loginLimiter   *attemptLimiter
	pinLimiter     *attemptLimiter
	csrfSecret     []byte
}

func New(stores *service.Registry, auth *AuthManager, sync SyncController, defaultStoreID string, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	if strings.TrimSpace(defaultStoreID) == "" {
		defaultStoreID = "main-store"
	}
	return &API{
		stores:         stores,
		auth:           auth,
		sync:           sync,
		defaultStoreID: defaultStoreID,
		allowedOrigin:  allowedOrigin,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		pinLimiter:     newAttemptLimiter(8, time.Minute),
		csrfSecret:     csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(a.withSecurity)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)
		r.Get("/auth/csrf-token", a.handleCSRFToken)

		r.Group(func(r chi.Router) {
			r.Use(a.resolveActor)

			r.Post("/auth/admin-switch", a.requireRole(a.handleAdminSwitch, domain.RoleCashier, domain.RoleAdmin))

			r.Get("/snapshot", a.handleSnapshot)

			r.Get("/products", a.handleListProducts)
			r.Post("/products", a.handleCreateProduct)
			r.Get("/products/low-stock", a.handleLowStock)
			r.Get("/products/expiring", a.handleExpiring)
			r.Patch("/products/{id}", a.handleUpdateProduct)
			r.Delete("/products/{id}", a.handleDeleteProduct)

			r.Get("/sales", a.handleListSales)
			r.Post("/sales", a.handleRecordSale)

			r.Get("/transactions", a.handleListTransactions)
			r.Post("/transactions", a.handleRecordTransaction)
			r.Post("/transactions/void-last", a.handleVoidLast)
			r.Post("/transactions/{id}/void", a.handleVoid)

			r.Get("/settings", a.handleGetSettings)
			r.Patch("/settings", a.requireRole(a.handleUpdateSettings, domain.RoleAdmin))

			r.Get("/reports/daily", a.requireRole(a.handleDailyReport, domain.RoleAdmin))

			r.Get("/sync/status", a.handleSyncStatus)
			r.Post("/sync/retry", a.requireRole(a.handleSyncRetry, domain.RoleCashier, domain.RoleAdmin))
			r.Post("/sync/pull", a.requireRole(a.handleSyncPull, domain.RoleAdmin))

			r.Post("/stores/{id}/switch", a.requireRole(a.handleStoreSwitch, domain.RoleCashier, domain.RoleAdmin))
		})
	})

	return r
}

// resolveActor attaches the token's actor to the request. Requests without a
// bearer token continue as guests; a bad token is rejected.
func (a *API) resolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if authorization == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeLoginRequired(w, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeLoginRequired(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (a *API) requireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := service.RoleFromContext(r.Context())
		if role == domain.RoleGuest {
			writeLoginRequired(w, &domain.AuthorizationError{})
			return
		}
		if len(roles) > 0 && !isRoleAllowed(role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		next(w, r)
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// engineFor opens the store named by the X-Store-ID header, or the default
// store.
// engineFor opens the request's store. Reads and guest requests only view
// it, so unknown store IDs are not kept open.
func (a *API) engineFor(r *http.Request) (*service.Engine, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || service.RoleFromContext(r.Context()) == domain.RoleGuest {
		return a.stores.View(r.Context(), a.storeID(r))
	}
	return a.stores.Open(r.Context(), a.storeID(r))
}

func (a *API) storeID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(storeHeader)); id != "" {
		return id
	}
	return a.defaultStoreID
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour
// bucket. Clients send it in X-CSRF-Token on every mutating request.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, "+storeHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		event.Str("component", "httpapi").
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Str("client_ip", clientKey(r)).
			Dur("latency", time.Since(startedAt)).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// writeDomainError maps service errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.StockError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeLoginRequired(w, err)
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      stockErr.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.Is(err, domain.ErrDuplicateBarcode):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrCloudUnavailable), errors.Is(err, syncer.ErrNothingToSync):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, service.ErrStoreClosed):
		writeError(w, http.StatusConflict, errors.New("store was switched, retry the request"))
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// writeLoginRequired answers 401 with a hint that the client should show the
// login prompt.
func writeLoginRequired(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":  err.Error(),
		"action": "login",
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message so internal details do not leak.
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Str("component", "httpapi").Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
