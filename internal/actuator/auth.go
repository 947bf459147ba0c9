package actuator

import (
	"crypto/sha256"
	"encoding/base64"
)

// GenerateAuthHash answers the agent's challenge:
// Base64(SHA256(SHA256(password + salt) + challenge))
func GenerateAuthHash(password, salt, challenge string) string {
	firstHash := sha256.Sum256([]byte(password + salt))
	combined := append(firstHash[:], []byte(challenge)...)
	secondHash := sha256.Sum256(combined)
	return base64.StdEncoding.EncodeToString(secondHash[:])
}
