package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ContextKey string

const (
	UserContextKey      ContextKey = "currentUser"
	RequestIDContextKey ContextKey = "requestID"

	RequestIDHeader = "X-Request-ID"
)

// Identity is the caller extracted from a verified token
type Identity struct {
	UserID      int64
	ClientID    int64
	WorkspaceID int64
}

// AuthMiddleware verifies the bearer token in the Authorization header
func AuthMiddleware(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}
			serveWithToken(w, r, next, strings.TrimPrefix(authHeader, "Bearer "), secret)
		})
	}
}

// WebSocketAuthMiddleware verifies a token passed as the "token" query
// parameter, since browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := r.URL.Query().Get("token")
			if tokenStr == "" {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}
			serveWithToken(w, r, next, tokenStr, secret)
		})
	}
}

func serveWithToken(w http.ResponseWriter, r *http.Request, next http.Handler, tokenStr, secret string) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		http.Error(w, "Invalid token claims", http.StatusUnauthorized)
		return
	}
	identity, err := identityFromClaims(claims)
	if err != nil {
		http.Error(w, "Invalid token claims", http.StatusUnauthorized)
		return
	}
	ctx := context.WithValue(r.Context(), UserContextKey, identity)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// JWT numbers decode as float64
func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	var id Identity
	for key, dst := range map[string]*int64{
		"user_id":      &id.UserID,
		"client_id":    &id.ClientID,
		"workspace_id": &id.WorkspaceID,
	} {
		v, ok := claims[key].(float64)
		if !ok {
			return Identity{}, fmt.Errorf("claim %s missing or not a number", key)
		}
		*dst = int64(v)
	}
	if id.ClientID <= 0 || id.WorkspaceID <= 0 {
		return Identity{}, errors.New("token is not scoped to a workspace")
	}
	return id, nil
}

// CurrentIdentity returns the identity stored by the auth middlewares
func CurrentIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(UserContextKey).(Identity)
	return id, ok
}

func ResponseWrapperMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one,
// echoes it on the response and stores it in the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
