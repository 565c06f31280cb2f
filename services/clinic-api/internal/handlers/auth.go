package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odemir/clinicbook/libs/auth"
	"github.com/odemir/clinicbook/services/clinic-api/internal/sessions"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler verifies staff credentials server-side (bcrypt against the
// stored hash) and issues short-lived access tokens plus rotating refresh
// tokens. Sessions live in the database with explicit expiry and revocation.
type AuthHandler struct {
	users      *storage.AdminUserRepository
	refresh    *sessions.RefreshRepository
	logger     *slog.Logger
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(users *storage.AdminUserRepository, refresh *sessions.RefreshRepository, logger *slog.Logger, secret string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthHandler{
		users:      users,
		refresh:    refresh,
		logger:     logger,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Role         string `json:"role"`
	DoctorID     string `json:"doctor_id,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.users.GetActiveByUsername(r.Context(), req.Username)
	if err != nil {
		if storage.IsNotFound(err) {
			// Same message as a wrong password; no account enumeration.
			respondError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("login lookup failed", "err", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := verifyPassword(user.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	h.issueTokens(w, r, user)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		respondError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	token, err := h.refresh.GetByHash(r.Context(), sessions.HashToken(req.RefreshToken))
	if err != nil {
		if sessions.IsNotFound(err) {
			respondError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		h.logger.Error("refresh lookup failed", "err", err)
		respondError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	if token.RevokedAt != nil || time.Now().After(token.ExpiresAt) {
		respondError(w, http.StatusUnauthorized, "refresh token expired")
		return
	}

	user, err := h.users.GetByID(r.Context(), token.UserID)
	if err != nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "account unavailable")
		return
	}

	// Rotate: each refresh token is single-use.
	if err := h.refresh.Revoke(r.Context(), token.ID); err != nil {
		h.logger.Error("refresh revoke failed", "err", err)
		respondError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	h.issueTokens(w, r, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		respondError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	token, err := h.refresh.GetByHash(r.Context(), sessions.HashToken(req.RefreshToken))
	if err != nil {
		if sessions.IsNotFound(err) {
			// Already unusable; logout is idempotent.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Error("logout lookup failed", "err", err)
		respondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	if err := h.refresh.Revoke(r.Context(), token.ID); err != nil {
		h.logger.Error("logout revoke failed", "err", err)
		respondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	DoctorID string `json:"doctor_id,omitempty"`
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, meResponse{
		UserID:   claims.Sub,
		Username: claims.Username,
		Role:     claims.Role,
		DoctorID: claims.DoctorID,
	})
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	DoctorID string `json:"doctor_id,omitempty"`
	IsActive bool   `json:"is_active"`
}

// Users lists staff accounts for the admin panel. Password hashes never
// leave the storage layer's callers.
func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("user list failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		v := userView{
			ID:       u.ID,
			Username: u.Username,
			Role:     u.Role,
			IsActive: u.IsActive,
		}
		if u.DoctorID != nil {
			v.DoctorID = *u.DoctorID
		}
		out = append(out, v)
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

type setUserActiveRequest struct {
	UserID   string `json:"user_id"`
	IsActive bool   `json:"is_active"`
}

// SetUserActive enables or disables a staff account. Deactivation also
// revokes every live session for the account, so an issued refresh token
// cannot outlive the account it belongs to.
func (h *AuthHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req setUserActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok && !req.IsActive && claims.Sub == req.UserID {
		respondError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	if err := h.users.SetActive(r.Context(), req.UserID, req.IsActive); err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("user activation toggle failed", "err", err, "user_id", req.UserID)
		respondError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if !req.IsActive {
		if err := h.refresh.RevokeAllForUser(r.Context(), req.UserID); err != nil {
			h.logger.Error("session revocation failed", "err", err, "user_id", req.UserID)
			respondError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
	}

	h.logger.Info("user activation toggled", "user_id", req.UserID, "is_active", req.IsActive)
	respondJSON(w, http.StatusOK, map[string]any{"id": req.UserID, "is_active": req.IsActive})
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, user storage.AdminUser) {
	now := time.Now()
	claims := auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		Role:     user.Role,
		Iat:      now.Unix(),
		Exp:      now.Add(h.accessTTL).Unix(),
	}
	if user.DoctorID != nil {
		claims.DoctorID = *user.DoctorID
	}

	accessToken, err := auth.SignHS256(claims, h.secret)
	if err != nil {
		h.logger.Error("token signing failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	rawRefresh, err := newOpaqueToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	if _, err := h.refresh.Create(r.Context(), user.ID, rawRefresh, now.Add(h.refreshTTL)); err != nil {
		h.logger.Error("refresh token store failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	resp := tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		TokenType:    "Bearer",
		Role:         user.Role,
	}
	if user.DoctorID != nil {
		resp.DoctorID = *user.DoctorID
	}
	respondJSON(w, http.StatusOK, resp)
}

func newOpaqueToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
