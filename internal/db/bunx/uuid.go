package bunx

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUIDv7 string. Primary keys are assigned
// in Go rather than by gen_random_uuid() so the same models work on SQLite.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
