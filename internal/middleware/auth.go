package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/spf13/viper"
)

type contextKey string

const actorKey contextKey = "actor"

// AuthMiddleware resolves the Bearer token into a role-tagged actor and
// injects it into the request context. Everything behind it receives an
// authenticated, role-resolved identity; the core never sees raw tokens.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		actor, err := resolveActor(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the actor set by AuthMiddleware.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}

func resolveActor(tokenString string) (models.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, fmt.Errorf("unexpected claims type")
	}

	userID, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	actor := models.Actor{UserID: userID, Role: models.Role(roleStr)}
	if actor.UserID == "" || !actor.Role.Valid() {
		return models.Actor{}, fmt.Errorf("missing subject or role claim")
	}
	return actor, nil
}

// RequireRole rejects requests whose actor does not hold one of the given
// roles. The workflow re-checks staff roles in its transition table; this is
// the HTTP-surface guard.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
