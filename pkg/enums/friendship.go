package enums

import (
	"fmt"
	"strings"
)

// FriendshipStatus is the lifecycle state of a friend request.
type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusDeclined FriendshipStatus = "declined"
)

var validFriendshipStatuses = []FriendshipStatus{
	FriendshipStatusPending,
	FriendshipStatusAccepted,
	FriendshipStatusDeclined,
}

// String returns the literal string for the status.
func (s FriendshipStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s FriendshipStatus) IsValid() bool {
	for _, candidate := range validFriendshipStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseFriendshipStatus converts raw input into a FriendshipStatus.
func ParseFriendshipStatus(value string) (FriendshipStatus, error) {
	for _, candidate := range validFriendshipStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid friendship status %q", value)
}

// FriendshipDirection tells the viewer whether they sent or received a request.
type FriendshipDirection string

const (
	FriendshipDirectionSent     FriendshipDirection = "sent"
	FriendshipDirectionReceived FriendshipDirection = "received"
)

func (d FriendshipDirection) String() string {
	return string(d)
}

// FriendshipAction is the addressee's response to a pending request.
type FriendshipAction string

const (
	FriendshipActionAccept  FriendshipAction = "accept"
	FriendshipActionDecline FriendshipAction = "decline"
)

var validFriendshipActions = []FriendshipAction{
	FriendshipActionAccept,
	FriendshipActionDecline,
}

func (a FriendshipAction) String() string {
	return string(a)
}

func (a FriendshipAction) IsValid() bool {
	for _, candidate := range validFriendshipActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseFriendshipAction accepts case-insensitive input.
func ParseFriendshipAction(value string) (FriendshipAction, error) {
	normalized := FriendshipAction(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid friendship action %q", value)
}

// Status maps an action onto the status it produces.
func (a FriendshipAction) Status() FriendshipStatus {
	if a == FriendshipActionAccept {
		return FriendshipStatusAccepted
	}
	return FriendshipStatusDeclined
}
