package stats

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service computes profile stats on demand. Nothing is stored.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

type aggregateReader interface {
	Aggregates(ctx context.Context, userID uuid.UUID) (*Aggregates, error)
}

type service struct {
	repo aggregateReader
}

func NewService(repo aggregateReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	agg, err := s.repo.Aggregates(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to compute stats")
	}
	profile := Rollup(*agg)
	return &profile, nil
}
