package models

// All lists every persisted model. Tests use it to build throwaway schemas.
func All() []any {
	return []any{
		&User{},
		&Wine{},
		&InventoryEntry{},
		&WishlistEntry{},
		&ConsumedRecord{},
		&Friendship{},
		&CellarShare{},
		&InviteLink{},
		&WineRecommendation{},
		&PasswordResetToken{},
	}
}
