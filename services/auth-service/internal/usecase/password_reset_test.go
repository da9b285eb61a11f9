package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForgotPassword_StoresAndSendsOTP(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "Ana", "ana@x.com", "Secret123")

	err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"})
	require.NoError(t, err)

	email := f.mailer.last(t)
	assert.Equal(t, []string{"ana@x.com"}, email.to)
	assert.Equal(t, "Welcome to SELLO!", email.subject)
	code := otpFromEmail(t, email)
	assert.Contains(t, email.text, code)

	stored := f.stored(t, "ana@x.com")
	require.True(t, stored.HasPendingReset())
	assert.Equal(t, code, *stored.OTP)
	assert.WithinDuration(t, f.clock().Add(10*time.Minute), *stored.OTPExpiry, time.Millisecond)
}

func TestForgotPassword_ReissueReplacesCode(t *testing.T) {
	t.Parallel()

	codes := []string{"111111", "222222"}
	var mu sync.Mutex
	gen := func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	f := newFixture(t, WithOTPGenerator(gen))
	f.register(t, "Ana", "ana@x.com", "Secret123")

	require.NoError(t, f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"}))
	require.NoError(t, f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"}))

	assert.Equal(t, "222222", *f.stored(t, "ana@x.com").OTP)

	err := f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: "111111", NewPassword: "n"})
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestForgotPassword_Failures(t *testing.T) {
	t.Parallel()

	t.Run("missing email", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{})
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "bob@x.com"})
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("store failure on lookup", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.getErr = errBoom
		err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"})
		assert.Equal(t, KindUnexpected, KindOf(err))
	})

	t.Run("store failure on save sends nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.register(t, "Ana", "ana@x.com", "Secret123")
		f.repo.setErr = errBoom

		err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"})
		assert.Equal(t, KindUnexpected, KindOf(err))
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("generator failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, WithOTPGenerator(func(int) (string, error) { return "", errBoom }))
		f.register(t, "Ana", "ana@x.com", "Secret123")

		err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"})
		assert.ErrorIs(t, err, errBoom)
		assert.False(t, f.stored(t, "ana@x.com").HasPendingReset())
	})
}

func TestForgotPassword_SendFailureLeavesNoCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "Ana", "ana@x.com", "Secret123")
	f.mailer.err = errBoom

	err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"})
	assert.Equal(t, KindUnexpected, KindOf(err))
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, 1, f.repo.clearCalls)
	assert.False(t, f.stored(t, "ana@x.com").HasPendingReset())
}

func TestForgotPassword_SendAndClearFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "Ana", "ana@x.com", "Secret123")
	f.mailer.err = errBoom
	f.repo.clearErr = errBoom

	err := f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"})
	assert.Equal(t, KindUnexpected, KindOf(err))
	assert.Equal(t, 1, f.repo.clearCalls)
}

// requestCode registers Ana, asks for a reset and returns the mailed code.
func requestCode(t *testing.T, f *fixture) string {
	t.Helper()
	f.register(t, "Ana", "ana@x.com", "Secret123")
	require.NoError(t, f.reset.ForgotPassword(context.Background(), ForgotPasswordParams{Email: "ana@x.com"}))
	return otpFromEmail(t, f.mailer.last(t))
}

func TestVerifyOTP_Success(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	code := requestCode(t, f)

	err := f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "NewPass1"})
	require.NoError(t, err)

	stored := f.stored(t, "ana@x.com")
	assert.False(t, stored.HasPendingReset())
	assert.Nil(t, stored.OTP)
	assert.Nil(t, stored.OTPExpiry)

	ok, err := f.hasher.VerifyPassword("NewPass1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.hasher.VerifyPassword("Secret123", stored.PasswordHash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.auth.Login(context.Background(), LoginParams{Email: "ana@x.com", Password: "NewPass1"})
	assert.NoError(t, err)
	_, err = f.auth.Login(context.Background(), LoginParams{Email: "ana@x.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyOTP_TrimsWhitespace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	code := requestCode(t, f)

	err := f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: "  " + code + "\n", NewPassword: "NewPass1"})
	assert.NoError(t, err)
}

func TestVerifyOTP_CodeIsSingleUse(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	code := requestCode(t, f)

	params := VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "NewPass1"}
	require.NoError(t, f.reset.VerifyOTP(context.Background(), params))

	params.NewPassword = "Another2"
	assert.ErrorIs(t, f.reset.VerifyOTP(context.Background(), params), ErrInvalidOTP)
}

func TestVerifyOTP_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	t.Run("just before expiry", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		code := requestCode(t, f)
		f.advance(10*time.Minute - time.Second)

		err := f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "n"})
		assert.NoError(t, err)
	})

	t.Run("after expiry", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		code := requestCode(t, f)
		f.advance(10*time.Minute + time.Second)

		err := f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "n"})
		assert.ErrorIs(t, err, ErrInvalidOTP)

		// An expired code is rejected but not cleared.
		assert.True(t, f.stored(t, "ana@x.com").HasPendingReset())
	})
}

func TestVerifyOTP_UniformFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) VerifyOTPParams
	}{
		{
			name: "unknown user",
			setup: func(t *testing.T, f *fixture) VerifyOTPParams {
				requestCode(t, f)
				return VerifyOTPParams{Email: "bob@x.com", OTP: "123456", NewPassword: "n"}
			},
		},
		{
			name: "wrong code",
			setup: func(t *testing.T, f *fixture) VerifyOTPParams {
				code := requestCode(t, f)
				wrong := "000000"
				if code == wrong {
					wrong = "111111"
				}
				return VerifyOTPParams{Email: "ana@x.com", OTP: wrong, NewPassword: "n"}
			},
		},
		{
			name: "no reset pending",
			setup: func(t *testing.T, f *fixture) VerifyOTPParams {
				f.register(t, "Ana", "ana@x.com", "Secret123")
				return VerifyOTPParams{Email: "ana@x.com", OTP: "123456", NewPassword: "n"}
			},
		},
		{
			name: "whitespace-only code",
			setup: func(t *testing.T, f *fixture) VerifyOTPParams {
				requestCode(t, f)
				return VerifyOTPParams{Email: "ana@x.com", OTP: "   ", NewPassword: "n"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			params := tt.setup(t, f)

			err := f.reset.VerifyOTP(context.Background(), params)
			assert.ErrorIs(t, err, ErrInvalidOTP)
			assert.Equal(t, KindAuth, KindOf(err))
			assert.Equal(t, "Invalid or expired OTP", MessageOf(err))
		})
	}
}

func TestVerifyOTP_Validation(t *testing.T) {
	t.Parallel()

	tests := []VerifyOTPParams{
		{OTP: "1", NewPassword: "n"},
		{Email: "ana@x.com", NewPassword: "n"},
		{Email: "ana@x.com", OTP: "1"},
	}

	for _, params := range tests {
		f := newFixture(t)
		err := f.reset.VerifyOTP(context.Background(), params)
		assert.Equal(t, KindValidation, KindOf(err))
	}
}

func TestVerifyOTP_StoreFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	code := requestCode(t, f)
	f.repo.resetErr = errBoom

	err := f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "n"})
	assert.Equal(t, KindUnexpected, KindOf(err))
	assert.True(t, f.stored(t, "ana@x.com").HasPendingReset())

	f.repo.resetErr = nil
	f.repo.getErr = errBoom
	err = f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "n"})
	assert.Equal(t, KindUnexpected, KindOf(err))
}

func TestVerifyOTP_ConcurrentUseSucceedsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	code := requestCode(t, f)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.reset.VerifyOTP(context.Background(), VerifyOTPParams{Email: "ana@x.com", OTP: code, NewPassword: "NewPass1"})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	assert.Equal(t, 1, succeeded)
}
