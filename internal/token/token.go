// Package token issues the unguessable bearer credentials that gate
// submission and share-link access.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind is the logical namespace of a token. Each kind carries its own prefix
// so a share token can never be resolved as an access token or vice versa.
type Kind string

const (
	Access Kind = "sub_"
	Share  Kind = "shr_"
)

// entropyBytes is 256 bits; the encoded body is 43 base64url characters.
const entropyBytes = 32

var encodedLen = base64.RawURLEncoding.EncodedLen(entropyBytes)

// New returns a fresh token of kind k.
func New(k Kind) (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return string(k) + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Valid reports whether s is well-formed for kind k. It does not consult any store.
func Valid(k Kind, s string) bool {
	body, ok := strings.CutPrefix(s, string(k))
	if !ok || len(body) != encodedLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil
}

// Redact shortens a token for logs.
func Redact(s string) string {
	if len(s) <= 12 {
		return "***"
	}
	return s[:12] + "…"
}
