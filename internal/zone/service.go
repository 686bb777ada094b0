package zone

import (
	"context"
	"strings"
)

type Service interface {
	List(ctx context.Context) ([]*Zone, error)
	GetByID(ctx context.Context, id int64) (*Zone, error)
	// EnsureSeeded inserts every zone whose name is not yet present and
	// returns how many were created.
	EnsureSeeded(ctx context.Context, zones []Zone) (int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]*Zone, error) {
	return s.repo.List(ctx)
}

func (s *service) GetByID(ctx context.Context, id int64) (*Zone, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) EnsureSeeded(ctx context.Context, zones []Zone) (int, error) {
	created := 0
	for i := range zones {
		z := zones[i]
		z.Name = strings.TrimSpace(z.Name)
		if z.Name == "" {
			return created, ErrNameRequired
		}
		if z.PricePerHour < 0 {
			return created, ErrInvalidPrice
		}
		inserted, err := s.repo.CreateIfMissing(ctx, &z)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}
