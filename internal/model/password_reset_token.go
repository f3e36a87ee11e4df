package model

import "time"

// PasswordResetToken models a single-use credential-reset capability
// in the `password_reset_tokens` table.  Only the SHA-256 hash of the
// random token is stored; the plaintext is returned exactly once for
// out-of-band delivery.  A row is valid while it is unexpired and
// UsedAt is null.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the plaintext token.
//  ExpiresAt – expiration timestamp (short window).
//  UsedAt    – when the token was consumed (null while unused).
//  CreatedAt – timestamp of creation.
type PasswordResetToken struct {
	ID        uint64     // password_reset_tokens.id
	UserID    uint64     // password_reset_tokens.user_id
	TokenHash string     // password_reset_tokens.token_hash
	ExpiresAt time.Time  // password_reset_tokens.expires_at
	UsedAt    *time.Time // password_reset_tokens.used_at (nullable)
	CreatedAt time.Time  // password_reset_tokens.created_at
}
