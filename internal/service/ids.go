package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces booking ids. Implementations must be safe for concurrent use.
type IDGenerator interface {
	NewBookingID(now time.Time) string
}

// UUIDGenerator builds ids of the form BK-20250314-1a2b3c4d5e6f.
type UUIDGenerator struct{}

func (UUIDGenerator) NewBookingID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BK-" + now.UTC().Format("20060102") + "-" + hex[:12]
}
