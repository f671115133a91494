package repository

import (
	"context"

	"github.com/ampet/importer/internal/domain"

	"github.com/google/uuid"
)

// AccountRepository defines the account-store operations the importer
// depends on. FindByEmail returns ErrAccountNotFound to distinguish
// absence from failure.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	Create(ctx context.Context, account domain.Account, temporaryCredential string) (domain.Account, error)
	UpdatePhone(ctx context.Context, accountID uuid.UUID, phone string) error
}

// PetRepository defines the record-store operations the importer depends on.
type PetRepository interface {
	Create(ctx context.Context, pet domain.Pet) (domain.Pet, error)
}

// ImportLogRepository records per-row import failures for later review.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, clinicID uuid.UUID, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error)
}
