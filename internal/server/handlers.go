// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeranaias/promptforge/internal/auth"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/store"
	"github.com/jeranaias/promptforge/internal/util"
)

// ============================================================================
// REQUEST TYPES
// ============================================================================

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type generateRequest struct {
	UserInput   string `json:"user_input"`
	TargetTool  string `json:"target_tool"`
	PromptStyle string `json:"prompt_style"`
	// UserID is accepted for compatibility; the session decides ownership.
	UserID      *int64 `json:"user_id,omitempty"`
}

type createPromptRequest struct {
	UserInput       string `json:"user_input"`
	GeneratedPrompt string `json:"generated_prompt"`
	TargetTool      string `json:"target_tool"`
	PromptStyle     string `json:"prompt_style"`
}

type updatePromptRequest struct {
	GeneratedPrompt string `json:"generated_prompt"`
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("HEALTH_DB_UNAVAILABLE")
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"success": false,
			"status":  "degraded",
			"version": s.version,
			"error":   "Database unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"status":  "healthy",
		"version": s.version,
		"stats":   s.stats.Snapshot(),
	})
}

// ============================================================================
// AUTH
// ============================================================================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	for _, problem := range []string{
		auth.ValidateUsername(req.Username),
		auth.ValidateEmail(req.Email),
		auth.ValidatePassword(req.Password),
	} {
		if problem != "" {
			writeError(w, http.StatusBadRequest, problem)
			return
		}
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("PASSWORD_HASH_FAILED")
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "Username or email already exists")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	token, ok := s.startSession(w, user)
	if !ok {
		return
	}
	atomic.AddInt64(&s.stats.Registrations, 1)
	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("USER_REGISTERED")

	writeJSON(w, http.StatusCreated, envelope{"success": true, "user": user, "token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	if remaining, err := s.lockout.Check(email); err != nil {
		writeLocked(w, remaining)
		return
	}

	user, err := s.store.UserByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || s.auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		s.logger.Info().Str("ip", GetClientIP(r)).Msg("LOGIN_FAILED")
		if errors.Is(s.lockout.RecordFailure(email), auth.ErrLocked) {
			remaining, _ := s.lockout.Check(email)
			writeLocked(w, remaining)
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.lockout.RecordSuccess(email)

	token, ok := s.startSession(w, user)
	if !ok {
		return
	}
	atomic.AddInt64(&s.stats.Logins, 1)
	s.logger.Info().Int64("user_id", user.ID).Msg("LOGIN_SUCCESS")

	writeJSON(w, http.StatusOK, envelope{"success": true, "user": user, "token": token})
}

// writeLocked answers 429 with Retry-After rounded up to whole seconds.
func writeLocked(w http.ResponseWriter, remaining time.Duration) {
	secs := int((remaining + time.Second - 1) / time.Second)
	mins := (secs + 59) / 60
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests,
		"Too many failed login attempts. Try again in "+strconv.Itoa(mins)+" minute(s).")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	user, err := s.store.UserByID(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.clearSession(w)
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	writeJSON(w, http.StatusOK, envelope{"success": true})
}

// startSession issues a token and sets the session cookie. On failure it has
// already written the error response.
func (s *Server) startSession(w http.ResponseWriter, user *store.User) (string, bool) {
	token, expires, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("TOKEN_ISSUE_FAILED")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return "", false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, true
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ============================================================================
// GENERATE
// ============================================================================

func (s *Server) handleGeneratePrompt(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TargetTool == "" {
		req.TargetTool = prompt.ToolChatGPT
	}
	if req.PromptStyle == "" {
		req.PromptStyle = prompt.StyleCreative
	}
	if len(req.UserInput) > MaxInputLength {
		writeError(w, http.StatusBadRequest, "user_input is too long")
		return
	}
	if len(req.TargetTool) > 32 || len(req.PromptStyle) > 32 {
		writeError(w, http.StatusBadRequest, "target_tool and prompt_style must be at most 32 characters")
		return
	}

	input := util.NormalizeInput(req.UserInput)
	text, err := s.catalog.Render(input, req.TargetTool, req.PromptStyle)
	if errors.Is(err, prompt.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, "user_input is required")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("TEMPLATE_RENDER_FAILED")
		writeError(w, http.StatusInternalServerError, "Failed to generate prompt")
		return
	}

	p := &store.Prompt{
		UserInput:       input,
		GeneratedPrompt: text,
		TargetTool:      req.TargetTool,
		PromptStyle:     req.PromptStyle,
		UserID:          generationOwner(ClaimsFrom(r.Context())),
	}
	if err := s.store.CreatePrompt(r.Context(), p); err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Failed to generate prompt")
		return
	}

	atomic.AddInt64(&s.stats.Generations, 1)
	s.logger.Info().
		Int64("prompt_id", p.ID).
		Str("tool", p.TargetTool).
		Str("style", p.PromptStyle).
		Bool("anonymous", p.UserID == nil).
		Msg("PROMPT_GENERATED")

	writeJSON(w, http.StatusOK, envelope{"success": true, "prompt": p})
}

// generationOwner attributes a generation to the session's user. A body
// user_id never overrides the session, so callers cannot write into someone
// else's history; anonymous generations stay unowned.
func generationOwner(claims *auth.Claims) *int64 {
	if claims == nil {
		return nil
	}
	id := claims.UserID
	return &id
}

// ============================================================================
// PROMPTS
// ============================================================================

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit > 200 {
		limit = 200
	}

	prompts, err := s.store.ListPrompts(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Failed to load prompts")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "prompts": prompts, "count": len(prompts)})
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createPromptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := util.NormalizeInput(req.UserInput)
	text := strings.TrimSpace(req.GeneratedPrompt)
	switch {
	case input == "" || text == "":
		writeError(w, http.StatusBadRequest, "user_input and generated_prompt are required")
		return
	case len(input) > MaxInputLength || len(text) > MaxInputLength:
		writeError(w, http.StatusBadRequest, "prompt is too long")
		return
	case !prompt.IsKnownTool(req.TargetTool):
		writeError(w, http.StatusBadRequest, "unknown target_tool")
		return
	case !prompt.IsKnownStyle(req.PromptStyle):
		writeError(w, http.StatusBadRequest, "unknown prompt_style")
		return
	}

	uid := claims.UserID
	p := &store.Prompt{
		UserInput:       input,
		GeneratedPrompt: text,
		TargetTool:      req.TargetTool,
		PromptStyle:     req.PromptStyle,
		UserID:          &uid,
	}
	if err := s.store.CreatePrompt(r.Context(), p); err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Failed to save prompt")
		return
	}
	s.logger.Info().Int64("prompt_id", p.ID).Int64("user_id", uid).Msg("PROMPT_SAVED")
	writeJSON(w, http.StatusCreated, envelope{"success": true, "prompt": p})
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPrompt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "prompt": p})
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPrompt(w, r)
	if !ok {
		return
	}
	var req updatePromptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := strings.TrimSpace(req.GeneratedPrompt)
	if text == "" {
		writeError(w, http.StatusBadRequest, "generated_prompt is required")
		return
	}
	if len(text) > MaxInputLength {
		writeError(w, http.StatusBadRequest, "prompt is too long")
		return
	}

	updated, err := s.store.UpdatePromptText(r.Context(), p.ID, text)
	if err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Failed to update prompt")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "prompt": updated})
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPrompt(w, r)
	if !ok {
		return
	}
	if err := s.store.DeletePrompt(r.Context(), p.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Failed to delete prompt")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true})
}

// ownedPrompt loads the {id} prompt for the session user. Prompts owned by
// someone else answer 404 like missing ones.
func (s *Server) ownedPrompt(w http.ResponseWriter, r *http.Request) (*store.Prompt, bool) {
	claims := ClaimsFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid prompt id")
		return nil, false
	}

	p, err := s.store.GetPrompt(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !p.OwnedBy(claims.UserID)) {
		writeError(w, http.StatusNotFound, "Prompt not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("STORE_ERROR")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return p, true
}
