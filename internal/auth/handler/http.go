// Package handler exposes the authentication service over HTTP JSON. It
// owns request decoding, field-level validation, and the mapping from
// service sentinel errors to envelope responses.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"campusbook/auth/internal/auth/service"
	"campusbook/auth/internal/security"
	"campusbook/auth/internal/server/middleware"
	"campusbook/auth/internal/server/response"
	userdomain "campusbook/auth/internal/user/domain"
)

// AuthService is the service surface the handler needs.
type AuthService interface {
	Login(ctx context.Context, email, password, ip, userAgent string) (*userdomain.User, *service.TokenPair, error)
	Register(ctx context.Context, in service.RegisterInput, ip, userAgent string) (*userdomain.User, *service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) (bool, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

// Handler serves the /api/auth endpoints.
type Handler struct {
	svc AuthService
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc AuthService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the auth routes on the router.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/register", h.RegisterUser).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	api.Handle("/logout-all", middleware.RequireAuth(http.HandlerFunc(h.LogoutAll))).Methods(http.MethodPost)
}

type userPayload struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber string     `json:"phone_number"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type tokensPayload struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType        string    `json:"token_type"`
	SessionID        string    `json:"session_id"`
}

func toUserPayload(u *userdomain.User) userPayload {
	return userPayload{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func toTokensPayload(p *service.TokenPair) tokensPayload {
	return tokensPayload{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
		TokenType:        "Bearer",
		SessionID:        p.SessionID,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Accepted for compatibility with existing clients. Session lifetime
	// is fixed by the refresh TTL either way.
	RememberMe bool `json:"remember_me"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fieldErrors := map[string][]string{}
	requireField(fieldErrors, "email", req.Email)
	if req.Email != "" && !emailRx.MatchString(strings.TrimSpace(req.Email)) {
		fieldErrors["email"] = append(fieldErrors["email"], "Enter a valid email address")
	}
	requireField(fieldErrors, "password", req.Password)
	if len(fieldErrors) > 0 {
		response.ValidationFail(w, fieldErrors)
		return
	}

	user, pair, err := h.svc.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.Fail(w, http.StatusUnauthorized, "authentication_failed", "No account found with this email")
		case errors.Is(err, service.ErrInvalidPassword):
			response.Fail(w, http.StatusUnauthorized, "authentication_failed", "Incorrect password")
		case errors.Is(err, service.ErrAccountDisabled):
			response.Fail(w, http.StatusUnauthorized, "account_disabled", "This account has been disabled")
		default:
			internalError(w, "login", err)
		}
		return
	}
	response.OK(w, http.StatusOK, "Login successful", map[string]any{
		"user":   toUserPayload(user),
		"tokens": toTokensPayload(pair),
	})
}

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PhoneNumber     string `json:"phone_number"`
}

// RegisterUser handles POST /api/auth/register.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fieldErrors := map[string][]string{}
	requireField(fieldErrors, "email", req.Email)
	if req.Email != "" && !emailRx.MatchString(strings.TrimSpace(req.Email)) {
		fieldErrors["email"] = append(fieldErrors["email"], "Enter a valid email address")
	}
	requireField(fieldErrors, "username", req.Username)
	if n := len(strings.TrimSpace(req.Username)); req.Username != "" && (n < 3 || n > 30) {
		fieldErrors["username"] = append(fieldErrors["username"], "Username must be between 3 and 30 characters")
	}
	requireField(fieldErrors, "password", req.Password)
	if req.Password != "" && len(req.Password) < 8 {
		fieldErrors["password"] = append(fieldErrors["password"], "Password must be at least 8 characters")
	}
	if req.Password != req.PasswordConfirm {
		fieldErrors["password_confirm"] = append(fieldErrors["password_confirm"], "Passwords do not match")
	}
	if len(fieldErrors) > 0 {
		response.ValidationFail(w, fieldErrors)
		return
	}

	user, pair, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			response.ValidationFail(w, map[string][]string{"email": {"A user with this email already exists"}})
		case errors.Is(err, service.ErrUsernameTaken):
			response.ValidationFail(w, map[string][]string{"username": {"This username is already taken"}})
		default:
			internalError(w, "register", err)
		}
		return
	}
	response.OK(w, http.StatusCreated, "Registration successful", map[string]any{
		"user":   toUserPayload(user),
		"tokens": toTokensPayload(pair),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		response.ValidationFail(w, map[string][]string{"refresh_token": {"This field is required"}})
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrTokenExpired):
			response.Fail(w, http.StatusUnauthorized, "token_expired", "Refresh token has expired")
		case errors.Is(err, security.ErrTokenMalformed):
			response.Fail(w, http.StatusBadRequest, "invalid_token", "Refresh token is invalid")
		case errors.Is(err, service.ErrRefreshExpired):
			response.Fail(w, http.StatusUnauthorized, "refresh_expired", "Session has expired, please log in again")
		case errors.Is(err, service.ErrSessionInvalid):
			response.Fail(w, http.StatusUnauthorized, "session_invalid", "Session is invalid or has been revoked")
		default:
			internalError(w, "refresh", err)
		}
		return
	}
	response.OK(w, http.StatusOK, "Token refreshed", map[string]any{
		"access_token":            pair.AccessToken,
		"access_token_expires_at": pair.AccessExpiresAt,
		"token_type":              "Bearer",
	})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		response.ValidationFail(w, map[string][]string{"refresh_token": {"This field is required"}})
		return
	}

	revoked, err := h.svc.Revoke(r.Context(), req.RefreshToken)
	if err != nil {
		internalError(w, "logout", err)
		return
	}
	if !revoked {
		response.Fail(w, http.StatusBadRequest, "invalid_token", "Refresh token is invalid or already revoked")
		return
	}
	response.OK(w, http.StatusOK, "Logout successful", nil)
}

// LogoutAll handles POST /api/auth/logout-all. The route is wrapped in
// RequireAuth, so an identity is always present here.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	n, err := h.svc.RevokeAll(r.Context(), id.UserID)
	if err != nil {
		internalError(w, "logout-all", err)
		return
	}
	response.OK(w, http.StatusOK, "Logged out from all devices", map[string]any{
		"revoked_sessions": n,
	})
}

var emailRx = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func requireField(fieldErrors map[string][]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fieldErrors[name] = append(fieldErrors[name], "This field is required")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Fail(w, http.StatusBadRequest, "invalid_request_body", "Request body must be valid JSON")
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, op string, err error) {
	log.Printf("handler: %s failed: %v", op, err)
	response.Fail(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
