package memory

import (
	"context"

	"github.com/xenking/bazaar/internal/domain/profile"
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository.
type ProfileRepository struct {
	s *Store
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*profile.Profile, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	defer r.s.lock(ctx)()
	r.s.profiles[p.UserID] = *p
	return nil
}
