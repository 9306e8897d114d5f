// Package token signs and verifies session tokens.
//
// Tokens are HS256 JWTs. The signing key is injected at construction and is
// never part of an error message or log attribute.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-school-portal/internal/model"
)

type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(secret string, issuer string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token signing key is required")
	}

	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode signs claims with an expiry of now+ttl and returns the token and that expiry.
// Registered claims already present on the input are overwritten.
func (c *Codec) Encode(claims model.SessionClaims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := c.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies the signature before the expiry, so an expired token always
// carries an authentic payload. It fails with model.ErrExpiredToken or model.ErrInvalidToken.
func (c *Codec) Decode(tokenString string) (*model.SessionClaims, error) {
	claims := &model.SessionClaims{}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, parserOpts...)

	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, model.ErrExpiredToken
	default:
		return nil, model.ErrInvalidToken
	}

	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, model.ErrInvalidToken
	}

	return claims, nil
}
