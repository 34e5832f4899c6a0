/*
Package randx provides functions for generating cryptographically secure random identifiers.

Room identifiers are short Base62 codes that participants can share by hand;
participant and connection identifiers are UUID v4 strings.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// RoomCodeLength is the fixed length of a generated room identifier.
	RoomCodeLength = 8
)

// RoomCode generates a Base62 room identifier using crypto/rand.
func RoomCode() (string, error) {
	result := make([]byte, RoomCodeLength)

	for i := range RoomCodeLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ParticipantID returns a fresh identifier for one room membership.
func ParticipantID() string {
	return uuid.NewString()
}

// ConnectionID returns a fresh identifier for one transport connection.
func ConnectionID() string {
	return uuid.NewString()
}

// IsValidRoomCode checks that code has RoomCodeLength Base62 characters.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
