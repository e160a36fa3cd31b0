// Package auth carries the caller identity through the core. Every mutating
// operation takes a Context explicitly; the HTTP layer builds it from a
// verified token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RolePerformer Role = "performer"
	RoleAdmin     Role = "admin"
)

const systemAccountID = "system"

var ErrInvalidToken = errors.New("invalid token")

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RolePerformer, RoleAdmin:
		return true
	}
	return false
}

type Context struct {
	AccountID string
	Role      Role
}

func New(accountID string, role Role) Context {
	return Context{AccountID: accountID, Role: role}
}

// System is the identity scheduled jobs act under.
func System() Context {
	return Context{AccountID: systemAccountID, Role: RoleAdmin}
}

func (c Context) IsAdmin() bool {
	return c.Role == RoleAdmin
}

func (c Context) Owns(accountID string) bool {
	return accountID != "" && c.AccountID == accountID
}

// OwnsOrAdmin reports whether the caller may act on a resource owned by accountID.
func (c Context) OwnsOrAdmin(accountID string) bool {
	return c.IsAdmin() || c.Owns(accountID)
}

func (c Context) Anonymous() bool {
	return c.AccountID == ""
}

type ctxKey struct{}

func WithContext(ctx context.Context, a Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the caller stored by the auth middleware, if any.
func FromContext(ctx context.Context) (Context, bool) {
	a, ok := ctx.Value(ctxKey{}).(Context)
	return a, ok
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns the caller it names.
func ParseToken(tokenStr, secret string) (Context, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Context{}, ErrInvalidToken
	}
	role := Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return Context{}, ErrInvalidToken
	}
	return New(claims.Subject, role), nil
}

// IssueToken signs a token for the caller. Used by tooling and tests.
func IssueToken(a Context, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(a.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
