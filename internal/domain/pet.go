package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Species is the fixed species enumeration used by the platform.
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesBird  Species = "bird"
	SpeciesOther Species = "other"
)

// RegistrationSourceImport marks records created by the bulk-import
// pipeline rather than manual entry.
const RegistrationSourceImport = "CSV Import"

// Pet is a patient record, foreign-keyed to its tutor's account.
type Pet struct {
	ID                 uuid.UUID `json:"id"`
	TutorID            uuid.UUID `json:"tutor_id"`
	Name               string    `json:"name"`
	Species            Species   `json:"species"`
	Breed              string    `json:"breed,omitempty"`
	MicrochipID        string    `json:"microchip_id,omitempty"`
	RegistrationSource string    `json:"registration_source,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewPet builds a pet record ready for persistence.
func NewPet(tutorID uuid.UUID, name string, species Species) Pet {
	now := time.Now()
	return Pet{
		ID:        uuid.New(),
		TutorID:   tutorID,
		Name:      name,
		Species:   species,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeSpecies maps free-text species values onto the enumeration.
// Exact enum values pass through; otherwise recognizable tokens decide,
// and anything else defaults to dog.
func NormalizeSpecies(raw string) Species {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch Species(value) {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesOther:
		return Species(value)
	}
	switch {
	case strings.Contains(value, "gato") || strings.Contains(value, "cat"):
		return SpeciesCat
	case strings.Contains(value, "ave") || strings.Contains(value, "bird") || strings.Contains(value, "passaro"):
		return SpeciesBird
	default:
		return SpeciesDog
	}
}
