package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a registered account.
// OTP and OTPExpiry are set together while a password reset is pending and cleared together.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"        json:"_id"`
	Name         string        `bson:"name"                 json:"name"`
	Email        string        `bson:"email"                json:"email"`
	PasswordHash string        `bson:"password_hash"        json:"-"`
	OTP          *string       `bson:"otp,omitempty"        json:"-"`
	OTPExpiry    *time.Time    `bson:"otp_expiry,omitempty" json:"-"`
	Verified     bool          `bson:"verified"             json:"verified"`
	CreatedAt    time.Time     `bson:"created_at"           json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updated_at"           json:"updatedAt"`
}

// HasPendingReset reports whether a password reset code has been issued and not yet consumed.
func (u *User) HasPendingReset() bool {
	return u.OTP != nil && u.OTPExpiry != nil
}

// OTPExpired reports whether the pending code, if any, is no longer usable at now.
func (u *User) OTPExpired(now time.Time) bool {
	return u.OTPExpiry == nil || u.OTPExpiry.Before(now)
}
