// ABOUTME: JSON route handlers for accounts, notes, and API key management
// ABOUTME: Maps service errors onto the HTTP taxonomy (401/403/404/409/422)

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/hamco/hamco/internal/accounts"
	"github.com/hamco/hamco/internal/apikeys"
	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/notes"
	"github.com/hamco/hamco/internal/store"
)

// maxBodyBytes bounds request bodies; nothing hamco accepts is large.
const maxBodyBytes = 1 << 20

var notePage = template.Must(template.New("note").Parse(`<!doctype html>
<html><head><title>{{.Title}} — hamco</title></head>
<body><article><h1>{{.Title}}</h1>{{.HTML}}</article></body></html>
`))

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	published, err := s.notes.List(r.Context(), true, 20)
	if err != nil {
		s.internalError(w, "listing notes", err)
		return
	}

	type noteSummary struct {
		Slug      string    `json:"slug"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
	}
	summaries := make([]noteSummary, 0, len(published))
	for _, n := range published {
		summaries = append(summaries, noteSummary{Slug: n.Slug, Title: n.Title, CreatedAt: n.CreatedAt})
	}

	slogan := ""
	if sl, err := s.store.RandomSlogan(r.Context()); err == nil {
		slogan = sl.Text
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slogan": slogan,
		"notes":  summaries,
	})
}

func (s *Server) handleNotePage(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.BySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			http.NotFound(w, r)
			return
		}
		s.internalError(w, "loading note", err)
		return
	}

	// Drafts are only visible to their author or an admin.
	if !note.Published {
		p := auth.FromContext(r.Context())
		if p == nil || (p.UserID != note.AuthorID && !p.IsAdmin()) {
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = notePage.Execute(w, map[string]any{
		"Title": note.Title,
		"HTML":  template.HTML(note.HTML),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrWeakPassword):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, accounts.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.internalError(w, "registering user", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.internalError(w, "logging in", err)
		return
	}

	if s.metrics != nil {
		s.metrics.TokenIssued()
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	if err := s.accounts.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, accounts.ErrTokenInvalid) {
			writeError(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		s.internalError(w, "verifying email", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.internalError(w, "requesting password reset", err)
		return
	}
	// Uniform response whether or not the account exists.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, accounts.ErrWeakPassword):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, accounts.ErrTokenInvalid):
			writeError(w, http.StatusBadRequest, "invalid or expired token")
		default:
			s.internalError(w, "resetting password", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleNoteCreate(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var req struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		Published bool   `json:"published"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := s.notes.Create(r.Context(), principal.UserID, req.Title, req.Body, req.Published)
	if err != nil {
		if errors.Is(err, notes.ErrTitleRequired) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.internalError(w, "creating note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleNoteUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		Published bool   `json:"published"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := s.notes.Update(r.Context(), r.PathValue("id"), req.Title, req.Body, req.Published)
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		s.internalError(w, "updating note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleNoteDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		s.internalError(w, "deleting note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeyGenerate(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var req struct {
		Label     string     `json:"label"`
		Elevated  bool       `json:"elevated"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	key, err := s.keys.Generate(r.Context(), principal, req.Label, req.Elevated, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, apikeys.ErrLabelRequired):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, apikeys.ErrNotElevated):
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			s.internalError(w, "generating api key", err)
		}
		return
	}

	// The only response that ever carries the plaintext secret.
	writeJSON(w, http.StatusCreated, key)
}

func (s *Server) handleKeyList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.keys.List(r.Context())
	if err != nil {
		s.internalError(w, "listing api keys", err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleKeyRevoke(w http.ResponseWriter, r *http.Request) {
	if err := s.keys.Revoke(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, apikeys.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "api key not found")
			return
		}
		s.internalError(w, "revoking api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserPromote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.SetUserAdmin(r.Context(), id, true); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.internalError(w, "promoting user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "role": auth.RoleAdmin})
}

// decodeBody parses a JSON request body, replying 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// internalError logs the cause and replies with a generic 500.
func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	s.logger.Error(fmt.Sprintf("%s failed", action), "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
