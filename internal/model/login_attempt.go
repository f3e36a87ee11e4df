package model

import "time"

// LoginAttempt tallies failed logins per (identifier, ip) pair in the
// `login_attempts` table.  A row is created on the first failure,
// incremented on each further failure and deleted on a successful
// login.  BlockedUntil is set once the attempt count reaches the
// lockout threshold and is extended while attempts continue during
// the lockout window.
//
// Fields:
//  Identifier    – email or username that was attempted.
//  IPAddress     – source address of the attempt.
//  AttemptCount  – consecutive failures since the last success.
//  BlockedUntil  – end of the lockout window (null while not locked).
//  LastAttemptAt – timestamp of the most recent failure.
type LoginAttempt struct {
	Identifier    string     // login_attempts.identifier
	IPAddress     string     // login_attempts.ip_address
	AttemptCount  int        // login_attempts.attempt_count
	BlockedUntil  *time.Time // login_attempts.blocked_until (nullable)
	LastAttemptAt time.Time  // login_attempts.last_attempt_at
}
