package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Token type markers. Each audience is signed with its own secret and
// additionally carries its type, so neither token can satisfy the other's check.
const (
	TokenTypeOperator = "operator"
	TokenTypeInstance = "instance_sync"
)

var (
	errSecretNotSet = errors.New("JWT secret not set")
	errInvalidToken = errors.New("invalid or expired token")
	errWrongType    = errors.New("token type not accepted here")
)

// OperatorClaims is the payload of an operator session token.
type OperatorClaims struct {
	OperatorID string `json:"operator_id"`
	Role       string `json:"role"`
	Type       string `json:"type"`
	jwt.RegisteredClaims
}

// InstanceClaims is the payload of a token the control plane presents to a tenant instance.
type InstanceClaims struct {
	TenantID    string   `json:"tenant_id"`
	Type        string   `json:"type"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// signer holds one HMAC key. Operator and instance tokens never share one.
type signer struct {
	secret []byte
	now    func() time.Time
}

func newSigner(secret string) (*signer, error) {
	if secret == "" {
		return nil, errSecretNotSet
	}
	return &signer{secret: []byte(secret), now: time.Now}, nil
}

func (s *signer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *signer) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return errInvalidToken
	}
	return nil
}
