package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// OAuth-only accounts carry an empty PasswordHash; such users can
// never authenticate with a password because bcrypt verification
// against an empty hash always fails.
//
// Fields:
//  ID                  – primary key identifier of the user.
//  Email               – unique email address (stored lowercase).
//  Username            – unique username.
//  PasswordHash        – bcrypt hashed password, empty for OAuth-only accounts.
//  FullName            – display name.
//  EmailVerified       – whether the email address has been confirmed.
//  VerificationToken   – pending email-verification token (null when none).
//  VerificationExpires – expiry of the pending verification token.
//  LastLoginAt         – timestamp of the most recent successful login.
//  CreatedAt           – timestamp of creation.
//  UpdatedAt           – timestamp of last update.
type User struct {
	ID                  uint64     // users.id
	Email               string     // users.email
	Username            string     // users.username
	PasswordHash        string     // users.password_hash
	FullName            string     // users.full_name
	EmailVerified       bool       // users.email_verified
	VerificationToken   *string    // users.verification_token (nullable)
	VerificationExpires *time.Time // users.verification_expires_at (nullable)
	LastLoginAt         *time.Time // users.last_login_at (nullable)
	CreatedAt           time.Time  // users.created_at
	UpdatedAt           time.Time  // users.updated_at
}
