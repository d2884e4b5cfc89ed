package friends

import (
	"context"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
)

func shareDTO(share *models.CellarShare) *ShareDTO {
	return &ShareDTO{
		OwnerID:   share.OwnerID,
		FriendID:  share.FriendID,
		GrantedAt: share.GrantedAt,
		RevokedAt: share.RevokedAt,
	}
}

// Share grants friendID read access to the caller's cellar. Sharing twice
// returns the existing grant.
func (s *service) Share(ctx context.Context, userID, friendID uuid.UUID) (*ShareDTO, error) {
	if friendID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot share a cellar with yourself")
	}
	friends, err := s.repo.AreFriends(ctx, userID, friendID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check friendship")
	}
	if !friends {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not friends")
	}

	existing, err := s.repo.ActiveShare(ctx, userID, friendID)
	switch {
	case err == nil:
		return shareDTO(existing), nil
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cellar share")
	}

	share := &models.CellarShare{
		OwnerID:   userID,
		FriendID:  friendID,
		GrantedAt: s.now().UTC(),
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to share cellar")
	}
	return shareDTO(share), nil
}

// Unshare revokes the caller's grant to friendID, if any.
func (s *service) Unshare(ctx context.Context, userID, friendID uuid.UUID) error {
	if _, err := s.repo.RevokeShare(ctx, userID, friendID, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke cellar share")
	}
	return nil
}

// FriendCellar returns friendID's inventory when friendID has an active share
// with the caller.
func (s *service) FriendCellar(ctx context.Context, userID, friendID uuid.UUID) (*FriendCellarDTO, error) {
	if _, err := s.repo.ActiveShare(ctx, friendID, userID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cellar share")
	}

	owner, err := s.users.FindByID(ctx, friendID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load friend")
	}

	rows, err := s.repo.SharedCellar(ctx, friendID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load shared cellar")
	}
	out := &FriendCellarDTO{
		FriendID:   owner.ID,
		FriendName: owner.Name,
		Wines:      make([]CellarWineDTO, 0, len(rows)),
	}
	for _, row := range rows {
		out.Wines = append(out.Wines, CellarWineDTO{
			EntryID:  row.EntryID,
			Quantity: row.Quantity,
			Wine:     row.Summary(),
		})
	}
	return out, nil
}
