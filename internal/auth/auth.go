package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadToken = errors.New("invalid token")

const (
	RoleUser     = "user"
	RoleNotifier = "notifier"
)

const DefaultTTL = 15 * time.Minute

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleNotifier
}

// HashSecret bcrypt-hashes a client secret for the config file.
func HashSecret(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(b), err
}

func CheckSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

type Claims struct {
	UserID   int64  `json:"uid"`
	Role     string `json:"role"`
	ClientID string `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// MakeToken signs a short-lived HS256 token acting as uid with role.
// Notifier tokens do not act as a user and may carry uid 0.
func MakeToken(uid int64, role, clientID, secret string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	exp := now.Add(ttl)
	c := Claims{
		UserID:   uid,
		Role:     role,
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func ParseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrBadToken
	}
	if !ValidRole(c.Role) || (c.Role == RoleUser && c.UserID <= 0) {
		return nil, ErrBadToken
	}
	return c, nil
}
