package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

// OperatorStore is the read side of the credential store.
type OperatorStore interface {
	GetOperatorByEmail(ctx context.Context, email string) (*model.Operator, error)
	GetOperatorByID(ctx context.Context, id uuid.UUID) (*model.Operator, error)
}

// LoginResult is returned to the operator UI on successful login.
type LoginResult struct {
	Token    string          `json:"token"`
	Operator *model.Operator `json:"superAdmin"`
}

// Authenticator verifies operator credentials and session tokens.
type Authenticator struct {
	store   OperatorStore
	signer  *signer
	ttl     time.Duration
	logger  *zap.Logger
	compare func(password, hash string) bool
}

func NewAuthenticator(store OperatorStore, secret string, ttl time.Duration, logger *zap.Logger) (*Authenticator, error) {
	s, err := newSigner(secret)
	if err != nil {
		return nil, errors.Wrap(err, "operator authenticator")
	}
	decoy()
	return &Authenticator{store: store, signer: s, ttl: ttl, logger: logger, compare: CheckPassword}, nil
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	op, err := a.store.GetOperatorByEmail(ctx, email)
	if errors.Is(err, apperr.ErrOperatorNotFound) {
		a.compare(password, decoy())
		a.logger.Info("login rejected: unknown operator", zap.String("email", email))
		return nil, apperr.ErrAuthenticationFailure
	}
	if err != nil {
		return nil, err
	}
	if !a.compare(password, op.PasswordHash) || !op.IsActive {
		a.logger.Info("login rejected", zap.String("email", email), zap.Bool("active", op.IsActive))
		return nil, apperr.ErrAuthenticationFailure
	}

	token, err := a.IssueToken(op)
	if err != nil {
		return nil, err
	}
	a.logger.Info("operator logged in", zap.String("operator_id", op.ID.String()))
	return &LoginResult{Token: token, Operator: op}, nil
}

// IssueToken signs a session token for op.
func (a *Authenticator) IssueToken(op *model.Operator) (string, error) {
	now := a.signer.now()
	claims := OperatorClaims{
		OperatorID: op.ID.String(),
		Role:       op.Role,
		Type:       TokenTypeOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := a.signer.sign(claims)
	return token, errors.Wrap(err, "failed to sign operator token")
}

// Authenticate validates a session token and re-reads the operator, so a
// deactivated operator is rejected on the very next request.
func (a *Authenticator) Authenticate(ctx context.Context, tokenStr string) (*model.Operator, error) {
	if tokenStr == "" {
		return nil, errors.Wrap(apperr.ErrAuthenticationFailure, "missing token")
	}
	claims, err := a.ValidateToken(tokenStr)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrAuthenticationFailure, err.Error())
	}

	id, err := uuid.Parse(claims.OperatorID)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrAuthenticationFailure, "malformed operator id")
	}
	op, err := a.store.GetOperatorByID(ctx, id)
	if errors.Is(err, apperr.ErrOperatorNotFound) {
		return nil, errors.Wrap(apperr.ErrAuthenticationFailure, "operator no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !op.IsActive {
		return nil, errors.Wrap(apperr.ErrAuthenticationFailure, "operator deactivated")
	}
	return op, nil
}

// ValidateToken checks signature, expiry and type of an operator token.
func (a *Authenticator) ValidateToken(tokenStr string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	if err := a.signer.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeOperator {
		return nil, errWrongType
	}
	return claims, nil
}
