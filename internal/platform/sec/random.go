// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RevocationIDLength is the byte length of a refresh-token revocation id (128 bits).
const RevocationIDLength = 16

// GenerateSecureToken returns length random bytes from the OS CSPRNG, hex encoded.
func GenerateSecureToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("auth: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}
