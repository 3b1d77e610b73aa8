package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateTicketID returns a printable ticket identifier like TKT-3F2A9C4D1B.
// The identifier is what attendees see on their ticket page and email.
func GenerateTicketID() (string, error) {
	code, err := GenerateCode(5)
	if err != nil {
		return "", err
	}
	return "TKT-" + code, nil
}
