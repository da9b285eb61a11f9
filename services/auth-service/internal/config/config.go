package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vasapolrittideah/sello-auth-api/shared/logger"
	"github.com/vasapolrittideah/sello-auth-api/shared/mailer"
	"github.com/vasapolrittideah/sello-auth-api/shared/security"
)

// AuthServiceConfig is the complete configuration of the auth service.
type AuthServiceConfig struct {
	HTTPAddr       string        `env:"HTTP_ADDR"       envDefault:":8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	Mongo    MongoConfig
	Token    TokenConfig
	OTP      OTPConfig
	Password PasswordConfig
	Mailer   mailer.Config
	Log      logger.Config
}

// MongoConfig holds the database connection settings.
type MongoConfig struct {
	URI      string `env:"MONGO_URI,required"`
	Database string `env:"MONGO_DATABASE" envDefault:"sello"`
}

// TokenConfig holds session token settings.
type TokenConfig struct {
	Secret                string        `env:"JWT_SECRET,required"`
	Issuer                string        `env:"JWT_ISSUER"               envDefault:"sello-auth"`
	SessionTokenExpiresIn time.Duration `env:"SESSION_TOKEN_EXPIRES_IN" envDefault:"168h"`
	SecureCookie          bool          `env:"SESSION_COOKIE_SECURE"    envDefault:"false"`
}

// OTPConfig holds password reset code settings.
type OTPConfig struct {
	Length    int           `env:"OTP_LENGTH"     envDefault:"6"`
	ExpiresIn time.Duration `env:"OTP_EXPIRES_IN" envDefault:"10m"`
}

// PasswordConfig selects the password hashing algorithm.
type PasswordConfig struct {
	Hasher     string `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST"     envDefault:"10"`
}

// Load reads an optional .env file and then parses the process environment.
func Load(files ...string) (*AuthServiceConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromMap parses configuration from the given variables instead of the process environment.
func LoadFromMap(vars map[string]string) (*AuthServiceConfig, error) {
	cfg, err := env.ParseAsWithOptions[AuthServiceConfig](env.Options{Environment: vars})
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that struct tags cannot express.
func (c *AuthServiceConfig) Validate() error {
	if c.Token.SessionTokenExpiresIn <= 0 {
		return errors.New("SESSION_TOKEN_EXPIRES_IN must be positive")
	}
	if c.OTP.Length < 1 {
		return errors.New("OTP_LENGTH must be positive")
	}
	if c.OTP.ExpiresIn <= 0 {
		return errors.New("OTP_EXPIRES_IN must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.Password.Hasher != security.AlgorithmBcrypt && c.Password.Hasher != security.AlgorithmArgon2 {
		return fmt.Errorf("PASSWORD_HASHER must be %q or %q", security.AlgorithmBcrypt, security.AlgorithmArgon2)
	}

	return c.Mailer.Validate()
}
