package fakeapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-sensor-dashboard/token/jwt"
	"github.com/jrsteele09/go-sensor-dashboard/users"
	fakeuserrepo "github.com/jrsteele09/go-sensor-dashboard/users/repofake"
	"github.com/rs/zerolog/log"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokensResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeBody(r, &req); err != nil || req.Username == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"This field is required."}, "password": {"This field is required."}})
			return
		}

		user, err := s.users.GetByUsername(req.Username)
		if err != nil || !users.CheckPasswordHash(req.Password, user.PasswordHash) {
			writeJSON(w, http.StatusUnauthorized, detail("No active account found with the given credentials"))
			return
		}

		pair, err := s.IssueTokens(user.ID)
		if err != nil {
			log.Err(err).Int64("user_id", user.ID).Msg("fakeapi: failed to issue tokens")
			writeJSON(w, http.StatusInternalServerError, errorBody("token issuance failed"))
			return
		}
		writeJSON(w, http.StatusOK, tokensResponse{Access: pair.Access, Refresh: pair.Refresh})
	}
}

func (s *Server) TokenRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		if err := decodeBody(r, &req); err != nil || req.Refresh == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
			return
		}
		if s.shouldFailRefresh() {
			writeJSON(w, http.StatusUnauthorized, tokenNotValid("Token is invalid or expired"))
			return
		}

		claims, err := jwt.Verify(req.Refresh, s.signer)
		if err != nil || claims.TokenType != jwt.TokenTypeRefresh || s.revoked.IsRevoked(claims.JTI) {
			writeJSON(w, http.StatusUnauthorized, tokenNotValid("Token is invalid or expired"))
			return
		}
		if _, err := s.users.GetByID(claims.UserID); err != nil {
			writeJSON(w, http.StatusUnauthorized, tokenNotValid("User not found"))
			return
		}

		access, err := s.creator.CreateAccessToken(claims.UserID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody("token issuance failed"))
			return
		}
		s.trackAccess(access)
		resp := tokensResponse{Access: access}

		if s.rotate {
			refresh, err := s.creator.CreateRefreshToken(claims.UserID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, errorBody("token issuance failed"))
				return
			}
			s.revoked.Add(claims.JTI, claims.ExpiresAt)
			resp.Refresh = refresh
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) TokenVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		if err := decodeBody(r, &req); err != nil || req.Token == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"token": {"This field is required."}})
			return
		}
		claims, err := jwt.Verify(req.Token, s.signer)
		if err != nil || s.expired.IsRevoked(claims.JTI) || s.revoked.IsRevoked(claims.JTI) {
			writeJSON(w, http.StatusUnauthorized, tokenNotValid("Token is invalid or expired"))
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeBody(r, &req); err != nil || req.Username == "" || req.Email == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("username, email and password are required"))
			return
		}

		user, err := s.CreateUser(req.Username, req.Email, req.Password)
		if errors.Is(err, fakeuserrepo.ErrUsernameTaken) {
			writeJSON(w, http.StatusBadRequest, errorBody("username already exists"))
			return
		}
		if err != nil {
			log.Err(err).Str("username", req.Username).Msg("fakeapi: register failed")
			writeJSON(w, http.StatusInternalServerError, errorBody("registration failed"))
			return
		}

		pair, err := s.IssueTokens(user.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody("registration failed"))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "registration complete",
			"user":    publicUser(user, false),
			"tokens":  tokensResponse{Access: pair.Access, Refresh: pair.Refresh},
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.shouldFailLogout() {
			writeJSON(w, http.StatusInternalServerError, errorBody("logout failed"))
			return
		}
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = decodeBody(r, &req)
		if req.RefreshToken != "" {
			if err := s.RevokeRefreshToken(req.RefreshToken); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody("logout failed"))
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(user, true)})
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
			return
		}
		if email := strings.TrimSpace(req.Email); email != "" {
			user.Email = email
			if err := s.users.Update(user); err != nil {
				writeJSON(w, http.StatusInternalServerError, errorBody("profile update failed"))
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "profile updated",
			"user":    publicUser(user, false),
		})
	}
}

// publicUser strips the password hash and, unless withJoined, the join date.
func publicUser(u *users.User, withJoined bool) users.User {
	out := users.User{ID: u.ID, Username: u.Username, Email: u.Email}
	if withJoined {
		out.DateJoined = u.DateJoined
	}
	return out
}
