package friends

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *service) inviteDTO(invite *models.InviteLink) *InviteDTO {
	return &InviteDTO{
		Code:      invite.Code,
		URL:       s.appBaseURL + "/invite/" + invite.Code,
		ExpiresAt: invite.ExpiresAt,
	}
}

// CreateInvite mints a new single-use invite code. Older invites stay valid
// until they expire.
func (s *service) CreateInvite(ctx context.Context, userID uuid.UUID) (*InviteDTO, error) {
	now := s.now().UTC()
	var lastErr error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate invite code")
		}
		invite := &models.InviteLink{
			OwnerID:   userID,
			Code:      code,
			ExpiresAt: now.Add(s.inviteTTL),
			CreatedAt: now,
		}
		err = s.repo.CreateInvite(ctx, invite)
		if err == nil {
			return s.inviteDTO(invite), nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create invite")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "failed to allocate a unique invite code")
}

// ActiveInvite returns the newest usable invite, or nil when there is none.
func (s *service) ActiveInvite(ctx context.Context, userID uuid.UUID) (*InviteDTO, error) {
	invite, err := s.repo.LatestActiveInvite(ctx, userID, s.now().UTC())
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load invite")
	}
	return s.inviteDTO(invite), nil
}

func (s *service) loadUsableInvite(ctx context.Context, code string, now time.Time) (*models.InviteLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
	}
	invite, err := s.repo.FindInviteByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load invite")
	}
	if invite.Used() {
		return nil, inviteUsedError()
	}
	if invite.Expired(now) {
		return nil, pkgerrors.New(pkgerrors.CodeGone, "this invite has expired").
			WithReason(ReasonInviteExpired)
	}
	return invite, nil
}

func inviteUsedError() error {
	return pkgerrors.New(pkgerrors.CodeGone, "this invite has already been used").
		WithReason(ReasonInviteUsed)
}

// ResolveInvite describes a usable invite to a visitor who may not be signed in.
func (s *service) ResolveInvite(ctx context.Context, code string) (*InviteInfo, error) {
	invite, err := s.loadUsableInvite(ctx, code, s.now().UTC())
	if err != nil {
		return nil, err
	}
	info := &InviteInfo{
		Code:      invite.Code,
		InviterID: invite.OwnerID,
		ExpiresAt: invite.ExpiresAt,
	}
	if invite.Owner != nil {
		info.InviterName = invite.Owner.Name
	}
	return info, nil
}

// RedeemInvite consumes the invite and makes the redeemer and the inviter
// friends. An existing pending or declined row between them is accepted in
// place.
func (s *service) RedeemInvite(ctx context.Context, userID uuid.UUID, code string) (*RedeemResult, error) {
	now := s.now().UTC()
	invite, err := s.loadUsableInvite(ctx, code, now)
	if err != nil {
		return nil, err
	}
	if invite.OwnerID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot redeem your own invite")
	}

	var friendshipID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		claimed, err := repo.MarkInviteUsed(ctx, invite.ID, userID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to redeem invite")
		}
		if !claimed {
			return inviteUsedError()
		}

		existing, err := repo.FindPair(ctx, invite.OwnerID, userID)
		switch {
		case err == nil:
			friendshipID = existing.ID
			if existing.Status == enums.FriendshipStatusAccepted {
				return nil
			}
			_, err = repo.TransitionFriendship(ctx, existing.ID,
				[]enums.FriendshipStatus{enums.FriendshipStatusPending, enums.FriendshipStatusDeclined},
				enums.FriendshipStatusAccepted, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to accept friendship")
			}
			return nil
		case !db.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load friendship")
		}

		friendship := &models.Friendship{
			RequesterID: invite.OwnerID,
			AddresseeID: userID,
			Status:      enums.FriendshipStatusAccepted,
			CreatedAt:   now,
			RespondedAt: &now,
		}
		if err := repo.CreateFriendship(ctx, friendship); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create friendship")
		}
		friendshipID = friendship.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &RedeemResult{
		FriendshipID: friendshipID,
		Friend:       PartyDTO{ID: invite.OwnerID},
	}
	if invite.Owner != nil {
		result.Friend.Name = invite.Owner.Name
		result.Friend.Email = invite.Owner.Email
	}
	return result, nil
}
