package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ampet/importer/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrAccountNotFound is returned when no account matches the lookup.
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicateEmail is returned when an account with the same email
// already exists.
var ErrDuplicateEmail = errors.New("an account with this email already exists")

type accountRepository struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
}

// NewAccountRepository wires an account repository backed by pgxpool.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{
		pool:     pool,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	if r.pool == nil {
		return domain.Account{}, fmt.Errorf("account repository not initialized")
	}

	var account domain.Account
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, full_name, email, COALESCE(phone, ''), role, created_at, updated_at
		 FROM profiles
		 WHERE email = $1`,
		email,
	).Scan(
		&account.ID,
		&account.FullName,
		&account.Email,
		&account.Phone,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("failed to look up account: %w", err)
	}

	return account, nil
}

func (r *accountRepository) Create(ctx context.Context, account domain.Account, temporaryCredential string) (domain.Account, error) {
	if r.pool == nil {
		return domain.Account{}, fmt.Errorf("account repository not initialized")
	}

	if err := r.validate.Var(account.Email, "required,email"); err != nil {
		return domain.Account{}, fmt.Errorf("invalid email %q", account.Email)
	}

	credentialHash, err := bcrypt.GenerateFromPassword([]byte(temporaryCredential), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash credential: %w", err)
	}

	err = r.pool.QueryRow(
		ctx,
		`INSERT INTO profiles (id, full_name, email, role, credential_hash, must_reset_credential)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, full_name, email, COALESCE(phone, ''), role, created_at, updated_at`,
		account.ID,
		account.FullName,
		account.Email,
		account.Role,
		string(credentialHash),
	).Scan(
		&account.ID,
		&account.FullName,
		&account.Email,
		&account.Phone,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (r *accountRepository) UpdatePhone(ctx context.Context, accountID uuid.UUID, phone string) error {
	if r.pool == nil {
		return fmt.Errorf("account repository not initialized")
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE profiles SET phone = $2, updated_at = NOW() WHERE id = $1`,
		accountID,
		phone,
	)
	if err != nil {
		return fmt.Errorf("failed to update account phone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}
