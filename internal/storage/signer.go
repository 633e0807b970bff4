package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fileClaims are carried by server-issued file tokens.
type fileClaims struct {
	Key         string      `json:"key"`
	Disposition Disposition `json:"disp"`
	FileName    string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// FileToken is a verified file token.
type FileToken struct {
	Key         string
	Disposition Disposition
	FileName    string
	ExpiresAt   time.Time
}

// URLSigner mints and verifies the short-lived tokens behind
// /api/v1/files/{token} for backends that cannot presign on their own.
type URLSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

func NewURLSigner(secret, publicBaseURL string) *URLSigner {
	return &URLSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
	}
}

// WithClock returns a copy of s that reads time from now.
func (s *URLSigner) WithClock(now func() time.Time) *URLSigner {
	c := *s
	c.now = now
	return &c
}

func (s *URLSigner) Token(key string, opts URLOptions) (string, error) {
	if opts.TTL <= 0 {
		return "", fmt.Errorf("signed url ttl must be positive")
	}
	now := s.now()
	claims := fileClaims{
		Key:         key,
		Disposition: opts.Disposition,
		FileName:    opts.FileName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// URL returns the public URL for a fresh token.
func (s *URLSigner) URL(key string, opts URLOptions) (string, error) {
	token, err := s.Token(key, opts)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/api/v1/files/" + url.PathEscape(token), nil
}

// Verify checks signature and expiry. Any failure wraps ErrForbidden.
func (s *URLSigner) Verify(token string) (*FileToken, error) {
	claims := &fileClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: file link expired", ErrForbidden)
		}
		return nil, fmt.Errorf("%w: invalid file token", ErrForbidden)
	}
	if claims.Key == "" {
		return nil, fmt.Errorf("%w: invalid file token", ErrForbidden)
	}
	return &FileToken{
		Key:         claims.Key,
		Disposition: claims.Disposition,
		FileName:    claims.FileName,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
