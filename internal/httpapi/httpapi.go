package httpapi

import (
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

	"go.uber.org/zap"

	"tokoisi/backend/internal/access"
	"tokoisi/backend/internal/cart"
	"tokoisi/backend/internal/checkout"
	"tokoisi/backend/internal/domain"
	"tokoisi/backend/internal/service"
	"tokoisi/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	logger        *zap.Logger
	allowedOrigin string
	loginLimiter  *attemptLimiter
	signupLimiter *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		logger.Warn("crypto/rand unavailable, using fallback csrf secret", zap.Error(err))
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		logger:        logger,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		signupLimiter: newAttemptLimiter(3, time.Minute),
		csrfSecret:    csrfSecret,
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
	return a.csrfTokenForHour(time.Now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts the current and previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

// attemptLimiter is a sliding-window counter per client key. Keys with no
// attempt inside the window are swept at most once per window.
type attemptLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	entries   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time), now: time.Now}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := recentAttempts(l.entries[key], cutoff)
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func (l *attemptLimiter) sweep(cutoff time.Time) {
	for key, history := range l.entries {
		if len(recentAttempts(history, cutoff)) == 0 {
			delete(l.entries, key)
		}
	}
}

func recentAttempts(history []time.Time, cutoff time.Time) []time.Time {
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
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
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/signup", a.handleSignup)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/me", a.requireAuth(a.handleMe, nil))
	mux.HandleFunc("/api/v1/me/permissions", a.requireAuth(a.handleMyPermissions, nil))

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, nil))
	mux.HandleFunc("/api/v1/products/low-stock", a.requireAuth(a.handleLowStock, nil))
	mux.HandleFunc("/api/v1/products/barcode/{code}", a.requireAuth(a.handleProductByBarcode, nil))
	mux.HandleFunc("/api/v1/products/{id}", a.requireAuth(a.handleProductActions, nil))

	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, nil))
	mux.HandleFunc("/api/v1/categories/tree", a.requireAuth(a.handleCategoryTree, nil))
	mux.HandleFunc("/api/v1/categories/{id}", a.requireAuth(a.handleCategoryActions, access.CanManageProducts))
	mux.HandleFunc("/api/v1/brands", a.requireAuth(a.handleBrands, nil))
	mux.HandleFunc("/api/v1/brands/{id}", a.requireAuth(a.handleBrandActions, access.CanManageProducts))
	mux.HandleFunc("/api/v1/discounts", a.requireAuth(a.handleDiscounts, nil))
	mux.HandleFunc("/api/v1/discounts/{id}", a.requireAuth(a.handleDiscountActions, access.CanManageProducts))
	mux.HandleFunc("/api/v1/refill-options", a.requireAuth(a.handleRefillOptions, nil))
	mux.HandleFunc("/api/v1/refill-options/{id}", a.requireAuth(a.handleRefillOptionActions, access.CanManageProducts))

	mux.HandleFunc("/api/v1/cart/quote", a.requireAuth(a.handleQuote, nil))
	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout, nil))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, access.CanViewReports))
	mux.HandleFunc("/api/v1/sales/{id}", a.requireAuth(a.handleSaleDetail, nil))
	mux.HandleFunc("/api/v1/reports/sales", a.requireAuth(a.handleSalesReport, access.CanViewReports))

	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, access.CanManageUsers))
	mux.HandleFunc("/api/v1/users/{id}/role", a.requireAuth(a.handleUserRole, access.CanManageUsers))
	mux.HandleFunc("/api/v1/settings", a.requireAuth(a.handleSettings, access.CanAccessSettings))
	mux.HandleFunc("/api/v1/activity-logs", a.requireAuth(a.handleActivityLogs, access.CanViewActivityLogs))

	return a.withMiddleware(mux)
}

// requireAuth resolves the bearer token to an actor with its current role.
// A non-nil need also gates the route on that capability; the service
// re-checks capabilities on every call.
func (a *API) requireAuth(next http.HandlerFunc, need access.Predicate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			a.fail(w, err)
			return
		}

		if need != nil && !need(access.For(actor.Role)) {
			writeError(w, http.StatusForbidden, domain.ErrPermissionDenied)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.signupLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many signup attempts"))
		return
	}

	var req domain.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, err := a.auth.Signup(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"profile": profile})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		a.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

var csrfExemptPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/signup",
}

// checkCSRF enforces CSRF token validation for state-changing methods.
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

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(startedAt)),
		)
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var stepErr *checkout.StepError
	switch {
	case errors.As(err, &stepErr):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrNoActor):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrInsufficientAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStockConflict),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrHasChildren),
		errors.Is(err, store.ErrReferenced),
		errors.Is(err, checkout.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status from statusFor. Failed checkout steps name
// the step and sale so the partial sale can be reconciled.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var stepErr *checkout.StepError
	if errors.As(err, &stepErr) {
		a.logger.Error("checkout persistence failed",
			zap.String("step", string(stepErr.Step)),
			zap.String("sale_id", stepErr.SaleID),
			zap.Error(stepErr.Err),
		)
		writeJSON(w, status, map[string]any{
			"error":   "checkout could not be saved",
			"step":    stepErr.Step,
			"sale_id": stepErr.SaleID,
		})
		return
	}

	if status >= 500 {
		a.logger.Error("internal error", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
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

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses carry a generic message; details go to the log.
	msg := err.Error()
	if status >= 500 {
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
