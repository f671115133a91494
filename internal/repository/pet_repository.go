package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ampet/importer/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTutorNotFound is returned when a pet references a missing tutor.
var ErrTutorNotFound = errors.New("tutor account not found")

type petRepository struct {
	pool *pgxpool.Pool
}

// NewPetRepository wires a pet repository backed by pgxpool.
func NewPetRepository(pool *pgxpool.Pool) PetRepository {
	return &petRepository{pool: pool}
}

func (r *petRepository) Create(ctx context.Context, pet domain.Pet) (domain.Pet, error) {
	if r.pool == nil {
		return domain.Pet{}, fmt.Errorf("pet repository not initialized")
	}

	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO pets (id, tutor_id, name, species, breed, microchip_id, registration_source)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		 RETURNING id, created_at, updated_at`,
		pet.ID,
		pet.TutorID,
		pet.Name,
		pet.Species,
		pet.Breed,
		pet.MicrochipID,
		pet.RegistrationSource,
	).Scan(&pet.ID, &pet.CreatedAt, &pet.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Pet{}, ErrTutorNotFound
		}
		return domain.Pet{}, fmt.Errorf("failed to create pet: %w", err)
	}

	return pet, nil
}
