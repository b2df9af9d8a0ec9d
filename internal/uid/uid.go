// Package uid provides unique identifier generation for request tracing.
package uid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns a random (version 4) UUID string suitable for use as a
// request ID.
func New() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback: timestamp-based ID if the random source fails.
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return id.String()
}

// Valid reports whether s parses as a UUID. Incoming request IDs that do not
// are replaced.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
