package models

import (
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/enums"
	"github.com/google/uuid"
)

// Friendship is a directed requester -> addressee request and its outcome.
type Friendship struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	RequesterID uuid.UUID              `gorm:"column:requester_id;type:uuid;not null;index:friendships_requester_id_idx"`
	AddresseeID uuid.UUID              `gorm:"column:addressee_id;type:uuid;not null;index:friendships_addressee_id_idx"`
	Requester   *User                  `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE"`
	Addressee   *User                  `gorm:"foreignKey:AddresseeID;constraint:OnDelete:CASCADE"`
	Status      enums.FriendshipStatus `gorm:"column:status;type:text;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	RespondedAt *time.Time             `gorm:"column:responded_at"`
}

// OtherParty returns the id of the participant that is not userID.
func (f Friendship) OtherParty(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// Involves reports whether userID is one of the two participants.
func (f Friendship) Involves(userID uuid.UUID) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}
