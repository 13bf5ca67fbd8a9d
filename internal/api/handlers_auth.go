package api

import (
	"net/http"
	"time"
)

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Telephone string `json:"telephone_number"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.Name, req.Email, req.Telephone, req.Password, req.Role)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.setTokenCookie(w, token, claims.ExpiresAt.Time)
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	user, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.setTokenCookie(w, token, claims.ExpiresAt.Time)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	user, err := s.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleLogout revokes the presented token until its natural expiry and
// clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	tokenID := tokenIDFromContext(r.Context())
	if err := s.tokenStore.Revoke(r.Context(), tokenID, s.tokens.TTL()); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
