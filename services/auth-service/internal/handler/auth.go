package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/sello-auth-api/shared/auth"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "token"

type contextKey struct{}

var userIDKey = contextKey{}

// UserIDFromContext returns the user id placed in ctx by RequireSession.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// AuthHTTPHandler serves the /api/auth endpoints.
type AuthHTTPHandler struct {
	authUsecase          usecase.AuthUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	jwtAuth              auth.JWTAuthenticator
	authServiceCfg       *config.AuthServiceConfig
}

func NewAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	jwtAuth auth.JWTAuthenticator,
	authServiceCfg *config.AuthServiceConfig,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		authUsecase:          authUsecase,
		passwordResetUsecase: passwordResetUsecase,
		jwtAuth:              jwtAuth,
		authServiceCfg:       authServiceCfg,
	}
}

// Routes mounts the auth endpoints on r.
func (h *AuthHTTPHandler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/verify-otp", h.VerifyOTP)

	r.With(h.RequireSession).Get("/me", h.Me)
}

func (h *AuthHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var params usecase.RegisterParams
	if !decodeJSON(w, r, &params) {
		return
	}

	user, err := h.authUsecase.Register(r.Context(), params)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		Message: "User registered successfully.",
		User:    user,
	})
}

// Login reports an unknown email as 400 rather than 404 so this endpoint
// answers every failed sign-in with the same status.
func (h *AuthHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var params usecase.LoginParams
	if !decodeJSON(w, r, &params) {
		return
	}

	res, err := h.authUsecase.Login(r.Context(), params)
	if err != nil {
		writeError(w, r, err, map[usecase.Kind]int{usecase.KindNotFound: http.StatusBadRequest})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    res.SessionToken,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(h.authServiceCfg.Token.SessionTokenExpiresIn.Seconds()),
		HttpOnly: true,
		Secure:   h.authServiceCfg.Token.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, userResponse{
		Message: "User Logged in Successfully",
		User:    res.User,
	})
}

func (h *AuthHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var params usecase.ForgotPasswordParams
	if !decodeJSON(w, r, &params) {
		return
	}

	if err := h.passwordResetUsecase.ForgotPassword(r.Context(), params); err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeMessage(w, http.StatusOK, "OTP sent to the email")
}

// otpValue is a code sent either as a JSON string or as a JSON number.
type otpValue string

func (v *otpValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = otpValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = otpValue(n.String())
	return nil
}

type verifyOTPRequest struct {
	Email       string   `json:"email"`
	OTP         otpValue `json:"otp"`
	NewPassword string   `json:"newPassword"`
}

func (h *AuthHTTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := usecase.VerifyOTPParams{
		Email:       req.Email,
		OTP:         string(req.OTP),
		NewPassword: req.NewPassword,
	}
	if err := h.passwordResetUsecase.VerifyOTP(r.Context(), params); err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeMessage(w, http.StatusOK, "Password reset successfully.")
}

func (h *AuthHTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	user, err := h.authUsecase.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, map[usecase.Kind]int{usecase.KindNotFound: http.StatusUnauthorized})
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// RequireSession rejects requests without a valid session cookie and stores
// the session's user id in the request context.
func (h *AuthHTTPHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := h.jwtAuth.ParseSessionToken(cookie.Value, h.authServiceCfg.Token.Secret)
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("invalid session token")
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
