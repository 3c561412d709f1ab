package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"gorm.io/gorm"

	"rbacadmin/internal/models"
)

func deny(w http.ResponseWriter, r *http.Request, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"detail": detail})
}

// JWTAuth verifies the bearer token, its backing session and the account
// state, then stores the claims and the loaded user in the request context.
func JWTAuth(db *gorm.DB, tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, r, http.StatusUnauthorized, "not authenticated")
				return
			}
			claims, err := tokens.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				deny(w, r, http.StatusUnauthorized, "could not validate credentials")
				return
			}
			tx := db.WithContext(r.Context())
			var sess models.Session
			if claims.JWTID == "" || tx.First(&sess, "jti = ?", claims.JWTID).Error != nil {
				deny(w, r, http.StatusUnauthorized, "session not found")
				return
			}
			if sess.RevokedAt != nil || time.Now().After(sess.ExpiresAt) {
				deny(w, r, http.StatusUnauthorized, "session expired or revoked")
				return
			}
			var u models.User
			if err := tx.First(&u, "id = ?", claims.UserID).Error; err != nil || u.Username != claims.Subject {
				deny(w, r, http.StatusUnauthorized, "could not validate credentials")
				return
			}
			if !u.IsActive {
				deny(w, r, http.StatusForbidden, "inactive user")
				return
			}
			ctx := WithUser(WithClaims(r.Context(), claims), &u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := CurrentUser(r.Context()); u == nil || !u.IsSuperuser {
			deny(w, r, http.StatusForbidden, "not enough privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}
