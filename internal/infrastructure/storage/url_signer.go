package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/golang-jwt/jwt/v5"
)

// ImageTokenParam is the query parameter carrying the signed token
const ImageTokenParam = "token"

// imageClaims grants read access to the image named in Subject
type imageClaims struct {
	jwt.RegisteredClaims
}

// JWTImageSigner signs image links with an HS256 token
type JWTImageSigner struct {
	key     []byte
	baseURL string
	now     func() time.Time
}

// NewJWTImageSigner creates a signer. Links have the form
// <baseURL>/<name>?token=<jwt>.
func NewJWTImageSigner(key []byte, baseURL string) (*JWTImageSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("image signing key is empty")
	}
	return &JWTImageSigner{
		key:     key,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// SignURL implements port.ImageURLSigner
func (s *JWTImageSigner) SignURL(name string, lifetime time.Duration) (string, error) {
	now := s.now()
	claims := imageClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign image url: %w", err)
	}

	return fmt.Sprintf("%s/%s?%s=%s", s.baseURL, url.PathEscape(name), ImageTokenParam, url.QueryEscape(token)), nil
}

// Verify implements port.ImageURLSigner
func (s *JWTImageSigner) Verify(token string) (string, error) {
	if token == "" {
		return "", port.ErrInvalidImageToken
	}

	parsed, err := jwt.ParseWithClaims(token, &imageClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrInvalidImageToken, err)
	}

	claims, ok := parsed.Claims.(*imageClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", port.ErrInvalidImageToken
	}
	return claims.Subject, nil
}

// Verify interface compliance
var _ port.ImageURLSigner = (*JWTImageSigner)(nil)
