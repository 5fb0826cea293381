package app

import (
	"strings"

	"github.com/google/uuid"
)

func newID() string { return uuid.NewString() }

// newBookingNumber returns a short human-facing reference like
// BK-9F3A21D0. Collisions are caught by the unique column.
func newBookingNumber() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}
