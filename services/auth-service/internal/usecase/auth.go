package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/sello-auth-api/shared/auth"
	"github.com/vasapolrittideah/sello-auth-api/shared/validation"
)

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encoded string) (bool, error)
}

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*model.User, error)
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the authenticated user and the session token issued for it.
type LoginResult struct {
	User         *model.User
	SessionToken string
	ExpiresAt    time.Time
}

type authUsecase struct {
	userRepo       repository.UserRepository
	hasher         PasswordHasher
	jwtAuth        auth.JWTAuthenticator
	validator      *validation.Validator
	authServiceCfg *config.AuthServiceConfig
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	jwtAuth auth.JWTAuthenticator,
	validator *validation.Validator,
	authServiceCfg *config.AuthServiceConfig,
) AuthUsecase {
	return &authUsecase{
		userRepo:       userRepo,
		hasher:         hasher,
		jwtAuth:        jwtAuth,
		validator:      validator,
		authServiceCfg: authServiceCfg,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*model.User, error) {
	if err := u.validator.Struct(params); err != nil {
		return nil, validationError(err)
	}

	_, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	switch {
	case err == nil:
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, unexpectedError("get user by email", err)
	}

	passwordHash, err := u.hasher.HashPassword(params.Password)
	if err != nil {
		return nil, unexpectedError("hash password", err)
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: passwordHash,
		Verified:     false,
	})
	if err != nil {
		// Another registration for the same email won the race.
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrUserAlreadyExists
		}
		return nil, unexpectedError("create user", err)
	}

	return user, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if err := u.validator.Struct(params); err != nil {
		return nil, validationError(err)
	}

	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unexpectedError("get user by email", err)
	}

	ok, err := u.hasher.VerifyPassword(params.Password, user.PasswordHash)
	if err != nil {
		return nil, unexpectedError("verify password", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	expiresIn := u.authServiceCfg.Token.SessionTokenExpiresIn
	token, err := u.jwtAuth.IssueSessionToken(user.ID.Hex(), u.authServiceCfg.Token.Secret, expiresIn)
	if err != nil {
		return nil, unexpectedError("issue session token", err)
	}

	return &LoginResult{
		User:         user,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(expiresIn),
	}, nil
}

func (u *authUsecase) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unexpectedError("get user", err)
	}

	return user, nil
}
