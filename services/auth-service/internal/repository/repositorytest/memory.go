package repositorytest

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/repository"
)

type userMemoryRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User
}

// NewUserRepository returns a repository.UserRepository held in process memory, for tests.
// It enforces the same unique-email rule as the Mongo repository.
func NewUserRepository() repository.UserRepository {
	return &userMemoryRepository{users: make(map[bson.ObjectID]*model.User)}
}

func (r *userMemoryRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, repository.ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)

	return user, nil
}

func (r *userMemoryRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(user), nil
}

func (r *userMemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userMemoryRepository) SetOTP(_ context.Context, id string, otp string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return err
	}

	expiry := expiresAt.UTC()
	user.OTP = &otp
	user.OTPExpiry = &expiry
	user.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *userMemoryRepository) ClearOTP(_ context.Context, id string, otp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return err
	}

	if user.OTP != nil && *user.OTP == otp {
		user.OTP = nil
		user.OTPExpiry = nil
		user.UpdatedAt = time.Now().UTC()
	}

	return nil
}

func (r *userMemoryRepository) ResetPassword(
	_ context.Context,
	id string,
	otp string,
	passwordHash string,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	if user.OTP == nil || *user.OTP != otp {
		return nil, repository.ErrUserNotFound
	}

	user.PasswordHash = passwordHash
	user.OTP = nil
	user.OTPExpiry = nil
	user.UpdatedAt = time.Now().UTC()

	return cloneUser(user), nil
}

func (r *userMemoryRepository) lookup(id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	user, ok := r.users[objectID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func cloneUser(u *model.User) *model.User {
	c := *u
	if u.OTP != nil {
		code := *u.OTP
		c.OTP = &code
	}
	if u.OTPExpiry != nil {
		expiry := *u.OTPExpiry
		c.OTPExpiry = &expiry
	}
	return &c
}
