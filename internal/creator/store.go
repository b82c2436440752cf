package creator

import "context"

// Lookup is the read side used by identity matching. Finders return every
// candidate so callers can detect ambiguity; getters return nil when absent.
type Lookup interface {
	GetByExternalUserID(ctx context.Context, externalUserID string) (*Creator, error)
	GetByHandle(ctx context.Context, handle string) (*Creator, error)
	FindByPhone(ctx context.Context, e164 string) ([]*Creator, error)
	FindByPhonePattern(ctx context.Context, likePattern string) ([]*Creator, error)
	FindByName(ctx context.Context, nameKey string) ([]*Creator, error)
}

// Store persists creators. Create and Update are atomic on a single record; a
// uniqueness violation surfaces as services.ErrValidation.
type Store interface {
	Lookup
	GetByID(ctx context.Context, id int64) (*Creator, error)
	Create(ctx context.Context, c *Creator) (*Creator, error)
	Update(ctx context.Context, id int64, patch Patch) error
}
