package friends

import (
	"context"
	"strings"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
)

// Recommend sends one of the caller's wines to an accepted friend.
func (s *service) Recommend(ctx context.Context, userID uuid.UUID, req RecommendRequest) (*RecommendationDTO, error) {
	if req.ToUserID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot recommend a wine to yourself")
	}
	friends, err := s.repo.AreFriends(ctx, userID, req.ToUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check friendship")
	}
	if !friends {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not friends")
	}
	owned, err := s.wines.Exists(ctx, userID, req.WineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load wine")
	}
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}

	var message *string
	if req.Message != nil {
		if trimmed := strings.TrimSpace(*req.Message); trimmed != "" {
			message = &trimmed
		}
	}
	rec := &models.WineRecommendation{
		FromUserID: userID,
		ToUserID:   req.ToUserID,
		WineID:     req.WineID,
		Message:    message,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateRecommendation(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to save recommendation")
	}

	row, err := s.repo.FindRecommendation(ctx, req.ToUserID, rec.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load recommendation")
	}
	dto := row.toDTO()
	return &dto, nil
}

// ListRecommendations returns the caller's inbox and marks it read. Each item
// reports the read state it had before this call.
func (s *service) ListRecommendations(ctx context.Context, userID uuid.UUID) ([]RecommendationDTO, error) {
	rows, err := s.repo.ListRecommendations(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list recommendations")
	}
	if _, err := s.repo.MarkAllRecommendationsRead(ctx, userID, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mark recommendations read")
	}
	out := make([]RecommendationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}

func (s *service) MarkRecommendationRead(ctx context.Context, userID, recommendationID uuid.UUID) error {
	ok, err := s.repo.MarkRecommendationRead(ctx, userID, recommendationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mark recommendation read")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "recommendation not found")
	}
	return nil
}
