package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthapi "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/dto"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/middleware"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/mailer"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/tasks"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/token"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/config"
)

// Responses to resend-verification and forgot-password never reveal
// whether the address exists.
const (
	msgVerificationSent  = "If your email is registered, you will receive a verification link"
	msgPasswordResetSent = "If your email is registered, you will receive a password reset link"
)

type AuthHandler struct {
	authService  *auth.Service
	tokenService *token.Service
	mailer       mailer.Mailer
	queue        *asynq.Client
	logger       *slog.Logger
	oauthConfig  *oauth2.Config
	secureCookie bool
}

func NewAuthHandler(
	authService *auth.Service,
	tokenService *token.Service,
	m mailer.Mailer,
	queue *asynq.Client,
	logger *slog.Logger,
	googleCfg config.GoogleOAuthConfig,
	secureCookie bool,
) *AuthHandler {
	var oauthCfg *oauth2.Config
	if googleCfg.ClientID != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			RedirectURL:  googleCfg.RedirectURL,
			Scopes:       []string{oauthapi.UserinfoEmailScope, oauthapi.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		}
	}

	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		mailer:       m,
		queue:        queue,
		logger:       logger,
		oauthConfig:  oauthCfg,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	user, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		OrganizationName: req.OrganizationName,
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "User already exists"})
		case errors.Is(err, auth.ErrOrgExists):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Organization already exists"})
		default:
			h.logger.Error("registration failed", "email", req.Email, "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	// An address typo should not strand the account: the send failure is
	// logged and the user can hit resend-verification.
	h.sendVerificationEmail(r.Context(), user)

	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		ID:      user.ID.String(),
		Name:    user.Name,
		Email:   user.Email,
		Message: "Registration successful. Please check your email to verify your account.",
	})
}

func (h *AuthHandler) sendVerificationEmail(ctx context.Context, user *models.User) {
	vt, err := h.tokenService.Issue(ctx, user.Email, models.PurposeEmailVerification)
	if err != nil {
		h.logger.Error("issuing verification token failed", "email", user.Email, "error", err)
		return
	}

	if err := h.mailer.SendVerification(ctx, user.Email, user.Name, vt.Token); err != nil {
		h.logger.Error("verification email failed", "email", user.Email, "error", err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailNotVerified):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{
				Error: "Please verify your email before logging in",
				Code:  "Verification",
			})
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNoPassword):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		default:
			h.logger.Error("login failed", "email", req.Email, "error", err)
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	h.setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  userToDTO(resp.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// Me returns the caller's account as seen by the Auth middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, dto.UserDTO{
		ID:               user.ID.String(),
		Name:             user.Name,
		Email:            user.Email,
		Role:             string(user.Role),
		OrganizationID:   user.OrganizationID.String(),
		OrganizationSlug: user.OrganizationSlug,
		EmailVerified:    user.IsVerified(),
	})
}

// VerifyEmail handles POST /api/v1/auth/verify-email with a JSON token.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	if err := h.redeemVerification(r.Context(), req.Token); err != nil {
		h.writeVerifyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Email verified successfully"})
}

// VerifyEmailLink handles GET /api/v1/auth/verify?token=..., the path taken
// when the user clicks the link in the email. Outcomes land on portal pages
// rather than JSON.
func (h *AuthHandler) VerifyEmailLink(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("token")
	if value == "" {
		http.Redirect(w, r, "/auth-error?error=MissingToken", http.StatusFound)
		return
	}

	if err := h.redeemVerification(r.Context(), value); err != nil {
		switch {
		case errors.Is(err, token.ErrExpiredToken):
			http.Redirect(w, r, "/auth-error?error=TokenExpired", http.StatusFound)
		case errors.Is(err, token.ErrInvalidToken):
			http.Redirect(w, r, "/auth-error?error=InvalidToken", http.StatusFound)
		default:
			http.Redirect(w, r, "/auth-error?error=ServerError", http.StatusFound)
		}
		return
	}

	http.Redirect(w, r, "/login?verified=1", http.StatusFound)
}

func (h *AuthHandler) redeemVerification(ctx context.Context, value string) error {
	vt, err := h.tokenService.Redeem(ctx, value)
	if err != nil {
		return err
	}
	if vt.Purpose != models.PurposeEmailVerification {
		return token.ErrInvalidToken
	}

	user, err := h.authService.MarkEmailVerified(ctx, vt.Identifier)
	if err != nil {
		return err
	}

	if err := h.tokenService.Delete(ctx, vt); err != nil {
		return err
	}

	h.enqueueWelcomeEmail(ctx, user)
	return nil
}

// enqueueWelcomeEmail hands the welcome mail to the worker; if the queue is
// unavailable it falls back to sending inline.
func (h *AuthHandler) enqueueWelcomeEmail(ctx context.Context, user *models.User) {
	if h.queue != nil {
		task, err := tasks.NewWelcomeEmailTask(tasks.WelcomeEmailPayload{
			Email: user.Email,
			Name:  user.Name,
		})
		if err == nil {
			if _, err := h.queue.EnqueueContext(ctx, task); err == nil {
				return
			}
			h.logger.Warn("enqueueing welcome email failed, sending inline", "email", user.Email, "error", err)
		}
	}

	if err := h.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		h.logger.Error("welcome email failed", "email", user.Email, "error", err)
	}
}

func (h *AuthHandler) writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Token has expired", Code: "TokenExpired"})
	case errors.Is(err, token.ErrInvalidToken):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid token", Code: "InvalidToken"})
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid token", Code: "InvalidToken"})
	default:
		h.logger.Error("email verification failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Verification failed"})
	}
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	user, err := h.authService.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user.IsVerified() {
		// Same response whether the address exists, is unknown, or is
		// already verified.
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: msgVerificationSent})
		return
	}

	h.sendVerificationEmail(r.Context(), user)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: msgVerificationSent})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	user, err := h.authService.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: msgPasswordResetSent})
		return
	}

	vt, err := h.tokenService.Issue(r.Context(), user.Email, models.PurposePasswordReset)
	if err != nil {
		h.logger.Error("issuing reset token failed", "email", user.Email, "error", err)
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: msgPasswordResetSent})
		return
	}

	if err := h.mailer.SendPasswordReset(r.Context(), user.Email, user.Name, vt.Token); err != nil {
		h.logger.Error("password reset email failed", "email", user.Email, "error", err)
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: msgPasswordResetSent})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	vt, err := h.tokenService.Redeem(r.Context(), req.Token)
	if err != nil || vt.Purpose != models.PurposePasswordReset {
		if err == nil {
			err = token.ErrInvalidToken
		}
		h.writeVerifyError(w, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), vt.Identifier, req.Password); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid token", Code: "InvalidToken"})
			return
		}
		h.logger.Error("password reset failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Password reset failed"})
		return
	}

	if err := h.tokenService.Delete(r.Context(), vt); err != nil {
		h.logger.Error("deleting redeemed token failed", "error", err)
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password reset successfully"})
}

// GoogleLogin handles GET /api/v1/auth/google: sends the browser to the
// Google consent screen with a CSRF state cookie.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		writeJSON(w, http.StatusNotImplemented, dto.ErrorResponse{Error: "Google sign-in is not configured"})
		return
	}

	state, err := randomState()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to start sign-in"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /api/v1/auth/google/callback. Only existing
// accounts may sign in with Google; unknown emails are sent back to the
// login page.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthConfig == nil {
		writeJSON(w, http.StatusNotImplemented, dto.ErrorResponse{Error: "Google sign-in is not configured"})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Redirect(w, r, "/login?error=OAuthState", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=OAuthDenied", http.StatusFound)
		return
	}

	oauthToken, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google code exchange failed", "error", err)
		http.Redirect(w, r, "/login?error=OAuthExchange", http.StatusFound)
		return
	}

	svc, err := oauthapi.NewService(r.Context(), option.WithTokenSource(h.oauthConfig.TokenSource(r.Context(), oauthToken)))
	if err != nil {
		h.logger.Error("google userinfo service failed", "error", err)
		http.Redirect(w, r, "/login?error=OAuthProfile", http.StatusFound)
		return
	}

	info, err := svc.Userinfo.Get().Context(r.Context()).Do()
	if err != nil || info.Email == "" {
		h.logger.Error("google userinfo fetch failed", "error", err)
		http.Redirect(w, r, "/login?error=OAuthProfile", http.StatusFound)
		return
	}

	resp, err := h.authService.LoginWithGoogle(r.Context(), info.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			http.Redirect(w, r, "/login?error=AccountNotFound", http.StatusFound)
			return
		}
		h.logger.Error("google login failed", "email", info.Email, "error", err)
		http.Redirect(w, r, "/login?error=ServerError", http.StatusFound)
		return
	}

	h.setSessionCookie(w, resp.Token)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})
}

func userToDTO(user *models.User) dto.UserDTO {
	d := dto.UserDTO{
		ID:             user.ID.String(),
		Name:           user.Name,
		Email:          user.Email,
		Role:           string(user.Role),
		OrganizationID: user.OrganizationID.String(),
		EmailVerified:  user.IsVerified(),
	}
	if user.Organization != nil {
		d.OrganizationName = user.Organization.Name
		d.OrganizationSlug = user.Organization.Slug
	}
	return d
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
