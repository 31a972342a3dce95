package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

// NewAt derives an id from the given instant plus a random suffix, so ids
// sort by creation time.
func NewAt(prefix string, at time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, at.UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, at.UnixNano(), hex.EncodeToString(buf))
}
