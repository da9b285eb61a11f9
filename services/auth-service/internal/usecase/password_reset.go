package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/sello-auth-api/shared/mailer"
	"github.com/vasapolrittideah/sello-auth-api/shared/otp"
	"github.com/vasapolrittideah/sello-auth-api/shared/validation"
)

// PasswordResetUsecase defines the business logic for resetting a password with an emailed one-time code.
type PasswordResetUsecase interface {
	// ForgotPassword issues a new code for the account registered under email and mails it.
	ForgotPassword(ctx context.Context, params ForgotPasswordParams) error

	// VerifyOTP consumes the code and sets the new password.
	VerifyOTP(ctx context.Context, params VerifyOTPParams) error
}

// ForgotPasswordParams defines the parameters for requesting a reset code.
type ForgotPasswordParams struct {
	Email string `json:"email" validate:"required"`
}

// VerifyOTPParams defines the parameters for consuming a reset code.
type VerifyOTPParams struct {
	Email       string `json:"email"       validate:"required"`
	OTP         string `json:"otp"         validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// PasswordResetOption customizes a PasswordResetUsecase.
type PasswordResetOption func(*passwordResetUsecase)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PasswordResetOption {
	return func(u *passwordResetUsecase) { u.now = now }
}

// WithOTPGenerator replaces otp.Generate.
func WithOTPGenerator(generate func(length int) (string, error)) PasswordResetOption {
	return func(u *passwordResetUsecase) { u.generateOTP = generate }
}

type passwordResetUsecase struct {
	userRepo       repository.UserRepository
	hasher         PasswordHasher
	mailer         mailer.Sender
	validator      *validation.Validator
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger

	now         func() time.Time
	generateOTP func(length int) (string, error)
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	mailer mailer.Sender,
	validator *validation.Validator,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
	opts ...PasswordResetOption,
) PasswordResetUsecase {
	u := &passwordResetUsecase{
		userRepo:       userRepo,
		hasher:         hasher,
		mailer:         mailer,
		validator:      validator,
		authServiceCfg: authServiceCfg,
		logger:         logger,
		now:            time.Now,
		generateOTP:    otp.Generate,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *passwordResetUsecase) ForgotPassword(ctx context.Context, params ForgotPasswordParams) error {
	if err := u.validator.Struct(params); err != nil {
		return validationError(err)
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return unexpectedError("get user by email", err)
	}

	code, err := u.generateOTP(u.authServiceCfg.OTP.Length)
	if err != nil {
		return unexpectedError("generate otp", err)
	}

	email, err := renderOTPEmail(user.Email, code, u.authServiceCfg.OTP.ExpiresIn)
	if err != nil {
		return unexpectedError("render otp email", err)
	}

	// The code is stored before it is sent so a user never holds a code the store does not know.
	expiresAt := u.now().Add(u.authServiceCfg.OTP.ExpiresIn)
	if err := u.userRepo.SetOTP(ctx, user.ID.Hex(), code, expiresAt); err != nil {
		return unexpectedError("store otp", err)
	}

	if err := u.mailer.Send(email); err != nil {
		if clearErr := u.userRepo.ClearOTP(ctx, user.ID.Hex(), code); clearErr != nil {
			u.logger.Error().Err(clearErr).Str("user_id", user.ID.Hex()).Msg("failed to clear undelivered otp")
		}
		return unexpectedError("send otp email", err)
	}

	u.logger.Info().Str("user_id", user.ID.Hex()).Time("expires_at", expiresAt).Msg("password reset otp sent")

	return nil
}

func (u *passwordResetUsecase) VerifyOTP(ctx context.Context, params VerifyOTPParams) error {
	if err := u.validator.Struct(params); err != nil {
		return validationError(err)
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOTP
		}
		return unexpectedError("get user by email", err)
	}

	if user.OTP == nil ||
		strings.TrimSpace(*user.OTP) != strings.TrimSpace(params.OTP) ||
		user.OTPExpired(u.now()) {
		return ErrInvalidOTP
	}

	passwordHash, err := u.hasher.HashPassword(params.NewPassword)
	if err != nil {
		return unexpectedError("hash password", err)
	}

	if _, err := u.userRepo.ResetPassword(ctx, user.ID.Hex(), *user.OTP, passwordHash); err != nil {
		// The code was consumed or replaced after we read it.
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOTP
		}
		return unexpectedError("reset password", err)
	}

	u.logger.Info().Str("user_id", user.ID.Hex()).Msg("password reset")

	return nil
}
