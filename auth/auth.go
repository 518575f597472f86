// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid session token")
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	// no 0/O or 1/I: officer tokens get read off paper
	tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	officerCodeLen = 10
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateAdminKey compares the presented key with the configured one.
// Both are HMAC'd first so the comparison time does not leak length.
func ValidateAdminKey(presented, expected string) error {
	if presented == "" || expected == "" {
		return ErrInvalidAdminKey
	}
	mac := func(s string) []byte {
		h := hmac.New(sha256.New, []byte("admin-key"))
		h.Write([]byte(s))
		return h.Sum(nil)
	}
	if !hmac.Equal(mac(presented), mac(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// NormalizeCode canonicalizes a voter code for lookup. Codes are
// case-insensitive and stored upper-case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateDelegateCode returns a code shaped like "AB1234".
func GenerateDelegateCode() (string, error) {
	var sb strings.Builder
	for i := 0; i < 2; i++ {
		c, err := pick(letters)
		if err != nil {
			return "", err
		}
		sb.WriteByte(c)
	}
	for i := 0; i < 4; i++ {
		c, err := pick(digits)
		if err != nil {
			return "", err
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}

// GenerateOfficerCode returns an opaque random token for officer-group codes.
func GenerateOfficerCode() (string, error) {
	b := make([]byte, officerCodeLen)
	for i := range b {
		c, err := pick(tokenAlphabet)
		if err != nil {
			return "", err
		}
		b[i] = c
	}
	return string(b), nil
}

// IsDelegateCode reports whether code has the delegate shape (2 letters + 4 digits).
func IsDelegateCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < 2; i++ {
		if !strings.ContainsRune(letters, rune(code[i])) {
			return false
		}
	}
	for i := 2; i < 6; i++ {
		if !strings.ContainsRune(digits, rune(code[i])) {
			return false
		}
	}
	return true
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("failed to generate code: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// SessionToken is a signed voter session bound to one voter code.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// NewSessionToken signs an HS256 JWT whose subject is the voter code id.
func NewSessionToken(secret, codeID string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   codeID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken validates raw and returns the voter code id it carries.
func ParseSessionToken(secret, raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
