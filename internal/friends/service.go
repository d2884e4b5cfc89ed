package friends

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultInviteTTL   = 7 * 24 * time.Hour
	inviteCodeAttempts = 3
)

// Service is the social graph: friendships, cellar shares, invite links, and
// recommendations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]FriendDTO, error)
	Request(ctx context.Context, userID uuid.UUID, email string) (*RequestResult, error)
	Respond(ctx context.Context, userID, friendshipID uuid.UUID, action string) (*FriendDTO, error)
	Unfriend(ctx context.Context, userID, friendshipID uuid.UUID) error

	Share(ctx context.Context, userID, friendID uuid.UUID) (*ShareDTO, error)
	Unshare(ctx context.Context, userID, friendID uuid.UUID) error
	FriendCellar(ctx context.Context, userID, friendID uuid.UUID) (*FriendCellarDTO, error)

	CreateInvite(ctx context.Context, userID uuid.UUID) (*InviteDTO, error)
	ActiveInvite(ctx context.Context, userID uuid.UUID) (*InviteDTO, error)
	ResolveInvite(ctx context.Context, code string) (*InviteInfo, error)
	RedeemInvite(ctx context.Context, userID uuid.UUID, code string) (*RedeemResult, error)

	Recommend(ctx context.Context, userID uuid.UUID, req RecommendRequest) (*RecommendationDTO, error)
	ListRecommendations(ctx context.Context, userID uuid.UUID) ([]RecommendationDTO, error)
	MarkRecommendationRead(ctx context.Context, userID, recommendationID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type socialRepository interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]friendRow, error)
	FindFriendship(ctx context.Context, id uuid.UUID) (*models.Friendship, error)
	FindPair(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error)
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	CreateFriendship(ctx context.Context, f *models.Friendship) error
	TransitionFriendship(ctx context.Context, id uuid.UUID, from []enums.FriendshipStatus, to enums.FriendshipStatus, at time.Time) (bool, error)
	ReopenFriendship(ctx context.Context, id, requesterID, addresseeID uuid.UUID, at time.Time) (bool, error)
	DeleteFriendship(ctx context.Context, id uuid.UUID) error

	ActiveShare(ctx context.Context, ownerID, friendID uuid.UUID) (*models.CellarShare, error)
	CreateShare(ctx context.Context, share *models.CellarShare) error
	RevokeShare(ctx context.Context, ownerID, friendID uuid.UUID, at time.Time) (int64, error)
	RevokeSharesBetween(ctx context.Context, a, b uuid.UUID, at time.Time) (int64, error)
	SharedCellar(ctx context.Context, ownerID uuid.UUID) ([]cellarRow, error)

	CreateInvite(ctx context.Context, invite *models.InviteLink) error
	FindInviteByCode(ctx context.Context, code string) (*models.InviteLink, error)
	LatestActiveInvite(ctx context.Context, ownerID uuid.UUID, now time.Time) (*models.InviteLink, error)
	MarkInviteUsed(ctx context.Context, id, usedBy uuid.UUID, at time.Time) (bool, error)

	CreateRecommendation(ctx context.Context, rec *models.WineRecommendation) error
	ListRecommendations(ctx context.Context, toUserID uuid.UUID) ([]recommendationRow, error)
	FindRecommendation(ctx context.Context, toUserID, id uuid.UUID) (*recommendationRow, error)
	MarkAllRecommendationsRead(ctx context.Context, toUserID uuid.UUID, at time.Time) (int64, error)
	MarkRecommendationRead(ctx context.Context, toUserID, id uuid.UUID, at time.Time) (bool, error)
}

type userLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type wineOwnership interface {
	Exists(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	TxRunner    txRunner
	Repo        socialRepository
	RepoFactory func(tx *gorm.DB) socialRepository
	Users       userLookup
	Wines       wineOwnership
	InviteTTL   time.Duration
	AppBaseURL  string
	NewCode     func() (string, error)
	Now         func() time.Time
}

type service struct {
	tx         txRunner
	repo       socialRepository
	txRepo     func(tx *gorm.DB) socialRepository
	users      userLookup
	wines      wineOwnership
	inviteTTL  time.Duration
	appBaseURL string
	newCode    func() (string, error)
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("social repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Wines == nil {
		return nil, fmt.Errorf("wine repository is required")
	}
	svc := &service{
		tx:         params.TxRunner,
		repo:       params.Repo,
		txRepo:     params.RepoFactory,
		users:      params.Users,
		wines:      params.Wines,
		inviteTTL:  params.InviteTTL,
		appBaseURL: strings.TrimRight(params.AppBaseURL, "/"),
		newCode:    params.NewCode,
		now:        params.Now,
	}
	if svc.txRepo == nil {
		svc.txRepo = func(tx *gorm.DB) socialRepository { return NewRepository(tx) }
	}
	if svc.inviteTTL <= 0 {
		svc.inviteTTL = defaultInviteTTL
	}
	if svc.newCode == nil {
		svc.newCode = func() (string, error) { return security.GenerateInviteCode(security.InviteCodeLength) }
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]FriendDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list friends")
	}
	out := make([]FriendDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO(userID))
	}
	return out, nil
}

// Request sends a friend request by email. The result never reveals whether
// the address belongs to an account or what state the pair was in.
func (s *service) Request(ctx context.Context, userID uuid.UUID, email string) (*RequestResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	sent := &RequestResult{Message: RequestSentMessage}

	target, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if db.IsNotFound(err) {
			return sent, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up user")
	}
	if target.ID == userID {
		return sent, nil
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		existing, err := repo.FindPair(ctx, userID, target.ID)
		if err != nil && !db.IsNotFound(err) {
			return err
		}
		if existing == nil {
			return repo.CreateFriendship(ctx, &models.Friendship{
				RequesterID: userID,
				AddresseeID: target.ID,
				Status:      enums.FriendshipStatusPending,
				CreatedAt:   now,
			})
		}

		switch {
		case existing.Status == enums.FriendshipStatusPending && existing.RequesterID == target.ID:
			_, err = repo.TransitionFriendship(ctx, existing.ID,
				[]enums.FriendshipStatus{enums.FriendshipStatusPending}, enums.FriendshipStatusAccepted, now)
		case existing.Status == enums.FriendshipStatusDeclined:
			_, err = repo.ReopenFriendship(ctx, existing.ID, userID, target.ID, now)
		}
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return sent, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to send friend request")
	}
	return sent, nil
}

// Respond lets the addressee of a pending request accept or decline it.
// Everything else looks like a missing request.
func (s *service) Respond(ctx context.Context, userID, friendshipID uuid.UUID, action string) (*FriendDTO, error) {
	parsed, err := enums.ParseFriendshipAction(action)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "action must be accept or decline")
	}

	notFound := pkgerrors.New(pkgerrors.CodeNotFound, "friend request not found")
	friendship, err := s.repo.FindFriendship(ctx, friendshipID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load friend request")
	}
	if friendship.AddresseeID != userID || friendship.Status != enums.FriendshipStatusPending {
		return nil, notFound
	}

	now := s.now().UTC()
	ok, err := s.repo.TransitionFriendship(ctx, friendship.ID,
		[]enums.FriendshipStatus{enums.FriendshipStatusPending}, parsed.Status(), now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to respond to friend request")
	}
	if !ok {
		return nil, notFound
	}

	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load friendship")
	}
	for _, row := range rows {
		if row.ID == friendship.ID {
			dto := row.toDTO(userID)
			return &dto, nil
		}
	}
	// Declined rows drop out of the listing.
	requester, err := s.users.FindByID(ctx, friendship.RequesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load requester")
	}
	return &FriendDTO{
		ID:          friendship.ID,
		Status:      parsed.Status(),
		Direction:   enums.FriendshipDirectionReceived,
		Friend:      PartyDTO{ID: requester.ID, Name: requester.Name, Email: requester.Email},
		CreatedAt:   friendship.CreatedAt,
		RespondedAt: &now,
	}, nil
}

// Unfriend deletes the friendship and revokes every active share between the
// two users in the same transaction.
func (s *service) Unfriend(ctx context.Context, userID, friendshipID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		friendship, err := repo.FindFriendship(ctx, friendshipID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "friendship not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load friendship")
		}
		if !friendship.Involves(userID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "friendship not found")
		}

		if err := repo.DeleteFriendship(ctx, friendship.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete friendship")
		}
		if _, err := repo.RevokeSharesBetween(ctx, friendship.RequesterID, friendship.AddresseeID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke cellar shares")
		}
		return nil
	})
}
