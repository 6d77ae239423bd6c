// Package token provides unique job token generation. Tokens namespace
// every temporary path a job creates, so concurrent jobs sharing one
// workspace root never collide.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate creates a fresh job token.
// Example: 9f8c1a2e-3b4d-4c5e-8f6a-7b8c9d0e1f2a
func Generate() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback if the entropy source fails
		random := make([]byte, 4)
		_, _ = rand.Read(random)
		return fmt.Sprintf("job-%d-%s", time.Now().UnixNano(), hex.EncodeToString(random))
	}
	return id.String()
}
