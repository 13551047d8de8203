package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-sensor-dashboard/token/jwt"
	"github.com/jrsteele09/go-sensor-dashboard/users"
)

type contextKey string

const contextKeyUser contextKey = "user"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// RequireAuth validates the bearer access token and puts its user on the context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, detail("Authentication credentials were not provided."))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeJSON(w, http.StatusUnauthorized, detail("Authorization header must contain two space-delimited values"))
				return
			}

			claims, err := jwt.Verify(parts[1], s.signer)
			if err != nil || claims.TokenType != jwt.TokenTypeAccess || s.expired.IsRevoked(claims.JTI) {
				writeJSON(w, http.StatusUnauthorized, tokenNotValid("Given token not valid for any token type"))
				return
			}

			user, err := s.users.GetByID(claims.UserID)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, tokenNotValid("User not found"))
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

func userFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(contextKeyUser).(*users.User)
	return u
}

// countMiddleware records a hit per method and route template.
func (s *Server) countMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tpl
			}
		}
		s.mu.Lock()
		s.calls[key]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func tokenNotValid(msg string) map[string]string {
	return map[string]string{"detail": msg, "code": "token_not_valid"}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
