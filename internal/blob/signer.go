package blob

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signedAudience = "blob-download"

// Signer issues and verifies download tokens for backends that cannot
// presign natively. Tokens are served by the /blobs/{token} route.
type Signer struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

type downloadClaims struct {
	Key      string `json:"key"`
	Filename string `json:"fn,omitempty"`
	jwt.RegisteredClaims
}

// NewSigner returns a signer whose URLs point at baseURL + "/api/v1/blobs/".
func NewSigner(secret, baseURL string) *Signer {
	return &Signer{secret: []byte(secret), baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *Signer) URL(key, filename string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := downloadClaims{
		Key:      key,
		Filename: filename,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{signedAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign download: %w", err)
	}
	return s.baseURL + "/api/v1/blobs/" + url.PathEscape(tok), nil
}

// Verify returns the key and filename carried by a download token.
func (s *Signer) Verify(token string) (key, filename string, err error) {
	var claims downloadClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithAudience(signedAudience), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", "", err
	}
	if !parsed.Valid || claims.Key == "" {
		return "", "", errors.New("invalid download token")
	}
	return claims.Key, claims.Filename, nil
}
