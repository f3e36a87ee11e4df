// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between failure scenarios
// without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Services
// decide whether this surfaces to the client or is masked for
// anti-enumeration reasons.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as unlinking an OAuth provider that is not
// linked. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
