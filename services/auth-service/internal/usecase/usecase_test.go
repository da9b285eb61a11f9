package usecase

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/repository/repositorytest"
	"github.com/vasapolrittideah/sello-auth-api/shared/auth"
	"github.com/vasapolrittideah/sello-auth-api/shared/mailer"
	"github.com/vasapolrittideah/sello-auth-api/shared/security"
	"github.com/vasapolrittideah/sello-auth-api/shared/validation"
)

// --- helpers ---

func testConfig() *config.AuthServiceConfig {
	return &config.AuthServiceConfig{
		RequestTimeout: time.Second,
		Token: config.TokenConfig{
			Secret:                "test-secret",
			Issuer:                "sello-auth",
			SessionTokenExpiresIn: 7 * 24 * time.Hour,
		},
		OTP: config.OTPConfig{
			Length:    6,
			ExpiresIn: 10 * time.Minute,
		},
		Password: config.PasswordConfig{
			Hasher:     security.AlgorithmBcrypt,
			BcryptCost: bcrypt.MinCost,
		},
	}
}

func testHasher(t *testing.T) *security.Hasher {
	t.Helper()
	h, err := security.NewHasher(security.AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func testJWT() auth.JWTAuthenticator {
	return auth.NewJWTAuthenticator("sello-auth", "sello-auth")
}

type sentEmail struct {
	to      []string
	subject string
	text    string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeMailer) Send(email mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: email.To, subject: email.Subject, text: email.Body, body: email.HTMLBody})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentEmail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no email sent")
	return f.sent[len(f.sent)-1]
}

var otpPattern = regexp.MustCompile(`>([0-9]{6})<`)

func otpFromEmail(t *testing.T, e sentEmail) string {
	t.Helper()
	m := otpPattern.FindStringSubmatch(e.body)
	require.Len(t, m, 2, "otp not found in email body")
	return m[1]
}

// faultyRepo wraps a UserRepository and fails selected calls.
type faultyRepo struct {
	repository.UserRepository

	getErr    error
	createErr error
	setErr    error
	clearErr  error
	resetErr  error

	clearCalls int
}

func (f *faultyRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.UserRepository.GetUserByEmail(ctx, email)
}

func (f *faultyRepo) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.UserRepository.CreateUser(ctx, u)
}

func (f *faultyRepo) SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.UserRepository.SetOTP(ctx, id, otp, expiresAt)
}

func (f *faultyRepo) ClearOTP(ctx context.Context, id, otp string) error {
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.UserRepository.ClearOTP(ctx, id, otp)
}

func (f *faultyRepo) ResetPassword(ctx context.Context, id, otp, hash string) (*model.User, error) {
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	return f.UserRepository.ResetPassword(ctx, id, otp, hash)
}

type fixture struct {
	repo    *faultyRepo
	mailer  *fakeMailer
	auth    AuthUsecase
	reset   PasswordResetUsecase
	cfg     *config.AuthServiceConfig
	hasher  *security.Hasher
	now     time.Time
	clockMu sync.Mutex
}

func (f *fixture) clock() time.Time {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T, opts ...PasswordResetOption) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	f := &fixture{
		repo:   &faultyRepo{UserRepository: repositorytest.NewUserRepository()},
		mailer: &fakeMailer{},
		cfg:    testConfig(),
		hasher: testHasher(t),
		now:    time.Now(),
	}
	v := validation.New()

	f.auth = NewAuthUsecase(f.repo, f.hasher, testJWT(), v, f.cfg)
	opts = append([]PasswordResetOption{WithClock(f.clock)}, opts...)
	f.reset = NewPasswordResetUsecase(f.repo, f.hasher, f.mailer, v, f.cfg, &logger, opts...)

	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *model.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterParams{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func (f *fixture) stored(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.repo.UserRepository.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")
