package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// InstanceTokenTTL bounds how long a leaked instance token stays usable.
const InstanceTokenTTL = time.Hour

// InstancePermissions is the fixed scope granted to every instance token.
var InstancePermissions = []string{"sync", "module_management"}

// InstanceIssuer mints tokens the control plane uses to call a tenant instance.
// Minting is stateless: every outbound call gets a fresh token.
type InstanceIssuer struct {
	signer *signer
}

func NewInstanceIssuer(secret string) (*InstanceIssuer, error) {
	s, err := newSigner(secret)
	if err != nil {
		return nil, errors.Wrap(err, "instance issuer")
	}
	return &InstanceIssuer{signer: s}, nil
}

// Mint signs a token scoped to exactly one tenant.
func (i *InstanceIssuer) Mint(tenantID uuid.UUID) (string, error) {
	if tenantID == uuid.Nil {
		return "", errors.New("tenant id required")
	}
	now := i.signer.now()
	claims := InstanceClaims{
		TenantID:    tenantID.String(),
		Type:        TokenTypeInstance,
		Permissions: append([]string(nil), InstancePermissions...),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   tenantID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(InstanceTokenTTL)),
		},
	}
	return i.signer.sign(claims)
}

// Validate checks a token the way a tenant instance would.
func (i *InstanceIssuer) Validate(tokenStr string) (*InstanceClaims, error) {
	claims := &InstanceClaims{}
	if err := i.signer.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeInstance {
		return nil, errWrongType
	}
	return claims, nil
}
