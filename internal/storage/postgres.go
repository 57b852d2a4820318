// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"school-controlplane/internal/apperr"
	"school-controlplane/internal/model"
)

const uniqueViolation = "23505"

type Storage struct {
	DB *sqlx.DB
}

func NewStorage(dsn string) (*Storage, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to db")
	}
	return &Storage{DB: db}, nil
}

// NewFromDB wraps an already opened handle, e.g. a sqlmock connection.
func NewFromDB(db *sql.DB) *Storage {
	return &Storage{DB: sqlx.NewDb(db, "postgres")}
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

const operatorColumns = `id, email, password_hash, name, role, is_active, created_at`

func (s *Storage) GetOperatorByEmail(ctx context.Context, email string) (*model.Operator, error) {
	var op model.Operator
	err := s.DB.GetContext(ctx, &op,
		`SELECT `+operatorColumns+` FROM operators WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	if err != nil {
		return nil, operatorErr(err)
	}
	return &op, nil
}

func (s *Storage) GetOperatorByID(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	var op model.Operator
	err := s.DB.GetContext(ctx, &op, `SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id)
	if err != nil {
		return nil, operatorErr(err)
	}
	return &op, nil
}

// CreateOperator provisions an operator account. PasswordHash must already be hashed.
func (s *Storage) CreateOperator(ctx context.Context, op *model.Operator) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	op.CreatedAt = time.Now().UTC()
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO operators (id, email, password_hash, name, role, is_active, created_at)
		VALUES (:id, :email, :password_hash, :name, :role, :is_active, :created_at)`, op)
	if isUniqueViolation(err) {
		return errors.Wrapf(apperr.ErrValidation, "operator %s already exists", op.Email)
	}
	return errors.Wrap(err, "failed to insert operator")
}

func operatorErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrOperatorNotFound
	}
	return errors.Wrap(err, "operator query failed")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
