package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	log "github.com/sirupsen/logrus"
)

// JWTMiddleware 驗證 bearer token 並將使用者身分 (id, role) 放入 context。
// 驗證方式由注入的 verifier 決定，不直接讀取全域設定。
func JWTMiddleware(verifier utils.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Authorization: Bearer <token>
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			identity, err := verifier.Verify(parts[1])
			if err != nil {
				log.WithFields(log.Fields{"path": r.URL.Path, "error": err}).Info("Rejected bearer token")
				writeError(w, http.StatusUnauthorized, apperror.PublicMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole 只允許指定角色；需放在 JWTMiddleware 之後
func RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := utils.GetIdentityFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, apperror.PublicMessage(err))
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Access denied for role "+string(identity.Role))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Message: message})
}
