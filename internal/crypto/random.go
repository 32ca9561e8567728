package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

const passphraseLength = 18

// GeneratePassphrase returns a random URL-safe password for secrets whose
// creator asked the server to pick one.
func GeneratePassphrase() string {
	bytes := make([]byte, passphraseLength)
	if _, err := rand.Read(bytes); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
