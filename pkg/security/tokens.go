package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const inviteCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ResetTokenBytes is the entropy of a password reset token before hex encoding.
const ResetTokenBytes = 32

// InviteCodeLength is the length of generated invite codes.
const InviteCodeLength = 12

// GenerateResetToken returns a random hex token for password reset links.
func GenerateResetToken() (string, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateInviteCode produces an alphanumeric invite code of the given length.
func GenerateInviteCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	max := big.NewInt(int64(len(inviteCodeCharset)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		out[i] = inviteCodeCharset[idx.Int64()]
	}
	return string(out), nil
}
