package entity

import (
	"crypto/rand"
	"math/big"
)

const (
	ReferralCodeLength = 8
	referralAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewReferralCode returns a random alphanumeric code. Uniqueness is enforced
// by the users.referral_code index; callers retry on collision.
func NewReferralCode() (string, error) {
	b := make([]byte, ReferralCodeLength)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralAlphabet[n.Int64()]
	}
	return string(b), nil
}
