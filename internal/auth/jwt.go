package auth

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("bearer token missing")
	ErrTokenInvalid = errors.New("invalid token")
)

// Verifier resolves a bearer token to the user id it was issued for.
type Verifier interface {
	Verify(token string) (string, error)
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseBearer strips the "Bearer " scheme from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrTokenInvalid
	}
	return parts[1], nil
}

type JWTVerifier struct {
	secret []byte
	pub    *rsa.PublicKey
}

func NewHS256Verifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func NewRS256Verifier(publicKeyPath string) (*JWTVerifier, error) {
	pem, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, err
	}
	return &JWTVerifier{pub: pub}, nil
}

func (v *JWTVerifier) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrTokenMissing
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

func (v *JWTVerifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if v.pub != nil {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.pub, nil
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return v.secret, nil
}
