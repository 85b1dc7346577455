package invitations

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NewToken genera el token crudo (32 bytes aleatorios, hex) y su hash.
// Guardamos solo el hash: si el link se pierde, se emite otra invitación.
func NewToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken produce el SHA-256 hex del token. Determinístico a propósito:
// el canje busca por igualdad indexada sobre token_hash.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
