package friends

import (
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/enums"
	"github.com/google/uuid"
)

// RequestSentMessage is returned for every friend request, whatever happened.
const RequestSentMessage = "Request sent"

const (
	ReasonInviteUsed    = "INVITE_USED"
	ReasonInviteExpired = "INVITE_EXPIRED"
)

type PartyDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type FriendDTO struct {
	ID                   uuid.UUID                 `json:"id"`
	Status               enums.FriendshipStatus    `json:"status"`
	Direction            enums.FriendshipDirection `json:"direction"`
	Friend               PartyDTO                  `json:"friend"`
	IShareMyCellar       bool                      `json:"i_share_my_cellar"`
	TheyShareTheirCellar bool                      `json:"they_share_their_cellar"`
	CreatedAt            time.Time                 `json:"created_at"`
	RespondedAt          *time.Time                `json:"responded_at"`
}

func (r friendRow) toDTO(viewer uuid.UUID) FriendDTO {
	direction := enums.FriendshipDirectionReceived
	if r.RequesterID == viewer {
		direction = enums.FriendshipDirectionSent
	}
	return FriendDTO{
		ID:                   r.ID,
		Status:               r.Status,
		Direction:            direction,
		Friend:               PartyDTO{ID: r.OtherID, Name: r.OtherName, Email: r.OtherEmail},
		IShareMyCellar:       r.IShareMyCellar,
		TheyShareTheirCellar: r.TheyShareTheirCellar,
		CreatedAt:            r.CreatedAt,
		RespondedAt:          r.RespondedAt,
	}
}

type FriendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RequestResult struct {
	Message string `json:"message"`
}

type RespondRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
}

type ShareRequest struct {
	FriendID uuid.UUID `json:"friend_id" validate:"required"`
}

type ShareDTO struct {
	OwnerID   uuid.UUID  `json:"owner_id"`
	FriendID  uuid.UUID  `json:"friend_id"`
	GrantedAt time.Time  `json:"granted_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

type CellarWineDTO struct {
	EntryID  uuid.UUID     `json:"entry_id"`
	Quantity int           `json:"quantity"`
	Wine     wines.Summary `json:"wine"`
}

// FriendCellarDTO is the read-only view of a friend's cellar.
type FriendCellarDTO struct {
	FriendID   uuid.UUID       `json:"friend_id"`
	FriendName string          `json:"friend_name"`
	Wines      []CellarWineDTO `json:"wines"`
}

type InviteDTO struct {
	Code      string    `json:"code"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InviteInfo is what an unauthenticated visitor learns from an invite code.
type InviteInfo struct {
	Code        string    `json:"code"`
	InviterID   uuid.UUID `json:"inviter_id"`
	InviterName string    `json:"inviter_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RedeemResult struct {
	FriendshipID uuid.UUID `json:"friendship_id"`
	Friend       PartyDTO  `json:"friend"`
}

type RecommendRequest struct {
	ToUserID uuid.UUID `json:"to_user_id" validate:"required"`
	WineID   uuid.UUID `json:"wine_id" validate:"required"`
	Message  *string   `json:"message" validate:"omitempty,max=500"`
}

type RecommendationDTO struct {
	ID        uuid.UUID     `json:"id"`
	FromUser  PartyRef      `json:"from_user"`
	Message   *string       `json:"message"`
	ReadAt    *time.Time    `json:"read_at"`
	CreatedAt time.Time     `json:"created_at"`
	Wine      wines.Summary `json:"wine"`
}

type PartyRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (r recommendationRow) toDTO() RecommendationDTO {
	return RecommendationDTO{
		ID:        r.ID,
		FromUser:  PartyRef{ID: r.FromUserID, Name: r.FromName},
		Message:   r.Message,
		ReadAt:    r.ReadAt,
		CreatedAt: r.CreatedAt,
		Wine:      r.Summary(),
	}
}
