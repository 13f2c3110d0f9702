package inmemdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) QueryProfiles(_ context.Context, ordering ...core.DBOrdering) ([]user.Profile, error) {
	repo.db.mu.RLock()
	profiles := make([]user.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		profiles = append(profiles, p)
	}
	repo.db.mu.RUnlock()

	for _, ord := range ordering {
		switch ord.Field {
		case "name", "email", "role", "created_at":
		default:
			return nil, fmt.Errorf("cannot order users by %q", ord.Field)
		}
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareProfiles(profiles[i], profiles[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return profiles[i].ID < profiles[j].ID
	})
	return profiles, nil
}

func compareProfiles(a, b user.Profile, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(a.Role, b.Role)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (repo *userRepository) GetProfile(_ context.Context, id string) (user.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.profiles[id]; ok {
		return p, nil
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *userRepository) CreateProfile(_ context.Context, p user.Profile) (user.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.profiles[p.ID]; ok {
		return user.Profile{}, fmt.Errorf("duplicate profile %s", p.ID)
	}
	repo.db.profiles[p.ID] = p
	return p, nil
}

func (repo *userRepository) UpdateProfile(_ context.Context, id string, upd user.ProfileUpdate, updatedAt time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p, ok := repo.db.profiles[id]
	if !ok {
		return user.ErrNotFound
	}
	upd.Apply(&p)
	p.UpdatedAt = updatedAt
	repo.db.profiles[id] = p
	return nil
}

func (repo *userRepository) DeleteProfile(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.profiles[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.profiles, id)
	return nil
}
