package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type contextKey string

const clinicIDKey contextKey = "clinicID"

// ContextWithClinicID returns a new context that carries the
// authenticated clinic scope.
func ContextWithClinicID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clinicIDKey, id)
}

// ClinicIDFromContext retrieves the authenticated clinic scope from the
// context, if any.
func ClinicIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	value := ctx.Value(clinicIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	if id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EnforceClinicScope ensures the provided clinic matches the
// authenticated scope when present. Requests without an authenticated
// scope pass through; session handling itself lives upstream.
func EnforceClinicScope(ctx context.Context, clinicID uuid.UUID) error {
	if clinicID == uuid.Nil {
		return fmt.Errorf("clinicId is required")
	}
	scopedID, ok := ClinicIDFromContext(ctx)
	if !ok {
		return nil
	}
	if scopedID != clinicID {
		return fmt.Errorf("clinicId %s does not match authenticated scope", clinicID)
	}
	return nil
}
