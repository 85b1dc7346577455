// Package jwtlocal implementa auth.AuthVerifier validando JWTs HS256
// firmados por el servicio de identidad con un secret compartido. Es el
// verifier por defecto cuando hay JWT_SECRET pero no identity remoto.
package jwtlocal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pro-client-access/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenEmpty   = errors.New("token is empty")
	ErrTokenInvalid = errors.New("token invalid")
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parsea y valida el token. Claims esperados: sub (user id),
// email, admin y verified (booleanos opcionales).
func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	tok, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return auth.Claims{}, ErrTokenInvalid
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Claims{}, ErrTokenInvalid
	}

	sub, _ := mc["sub"].(string)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return auth.Claims{}, ErrTokenInvalid
	}

	email, _ := mc["email"].(string)
	return auth.Claims{
		UserID:   sub,
		Email:    strings.TrimSpace(email),
		Admin:    boolClaim(mc, "admin"),
		Verified: boolClaim(mc, "verified"),
	}, nil
}

func boolClaim(mc jwt.MapClaims, key string) bool {
	switch v := mc[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
