package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  A row
// holds the SHA-256 hash of a refresh token's rotation-id, never the
// rotation-id itself.  At most one live row exists per user: storing
// a new token deletes all prior rows for that user.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the rotation-id.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
