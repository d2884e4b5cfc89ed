package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use secret mailed to a user.
type PasswordResetToken struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:password_reset_tokens_user_id_idx"`
	Token     string     `gorm:"column:token;type:text;not null;uniqueIndex:password_reset_tokens_token_key"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
