package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/dto"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

type contextKey string

const userKey contextKey = "authenticated_user"

// AuthenticatedUser is the per-request view of the caller. It is loaded
// fresh from the database on every request, so role changes and email
// verification take effect without re-issuing the JWT.
type AuthenticatedUser struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Role             models.Role
	OrganizationID   uuid.UUID
	OrganizationSlug string
	EmailVerifiedAt  *time.Time
}

func (u *AuthenticatedUser) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

func Auth(jwtService *auth.JWTService, db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				handleUnauthorized(w, r)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				handleUnauthorized(w, r)
				return
			}

			// Re-read the user so claims never go stale. A deleted
			// account fails here even with a live token.
			var user models.User
			if err := db.WithContext(r.Context()).
				Preload("Organization").
				First(&user, claims.UserID).Error; err != nil {
				handleUnauthorized(w, r)
				return
			}

			authUser := &AuthenticatedUser{
				ID:              user.ID,
				Name:            user.Name,
				Email:           user.Email,
				Role:            user.Role,
				OrganizationID:  user.OrganizationID,
				EmailVerifiedAt: user.EmailVerifiedAt,
			}
			if user.Organization != nil {
				authUser.OrganizationSlug = user.Organization.Slug
			}

			ctx := context.WithValue(r.Context(), userKey, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	// 1. Authorization header (API requests)
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// 2. Cookie (web portal)
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// 3. X-Auth-Token header (localStorage fallback for AJAX)
	return r.Header.Get("X-Auth-Token")
}

// handleUnauthorized returns appropriate response based on request type
func handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	if isWebRequest(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
}

func isWebRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.HasPrefix(r.URL.Path, "/api/")
}

// GetUser returns the authenticated user, or nil outside the Auth middleware.
func GetUser(ctx context.Context) *AuthenticatedUser {
	if u, ok := ctx.Value(userKey).(*AuthenticatedUser); ok {
		return u
	}
	return nil
}

func GetUserID(ctx context.Context) uuid.UUID {
	if u := GetUser(ctx); u != nil {
		return u.ID
	}
	return uuid.Nil
}

func GetOrganizationID(ctx context.Context) uuid.UUID {
	if u := GetUser(ctx); u != nil {
		return u.OrganizationID
	}
	return uuid.Nil
}

func GetUserRole(ctx context.Context) models.Role {
	if u := GetUser(ctx); u != nil {
		return u.Role
	}
	return ""
}

// RequireVerified blocks accounts that have not redeemed their verification
// email yet. Runs after Auth.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			handleUnauthorized(w, r)
			return
		}

		if !user.IsVerified() {
			if isWebRequest(r) {
				http.Redirect(w, r, "/auth-error?error=Verification", http.StatusFound)
				return
			}
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{
				Error: "Please verify your email before logging in",
				Code:  "Verification",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole middleware ensures user has one of the given roles
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r.Context())

			for _, role := range roles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		})
	}
}

// RedirectIfAuthenticated sends signed-in users away from auth pages like
// /login and /register.
func RedirectIfAuthenticated(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if _, err := jwtService.ValidateToken(token); err == nil && isWebRequest(r) {
					http.Redirect(w, r, "/dashboard", http.StatusFound)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
