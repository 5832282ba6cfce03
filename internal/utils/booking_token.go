package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// BookingToken is the guest's proof of ownership for booking id.  It is
// an HMAC-SHA256 of the id under secret, so nothing is stored.
func BookingToken(secret string, id uint64) string {
	mac := hmac.New(sha256.New, []byte("booking:"+secret))
	mac.Write([]byte(strconv.FormatUint(id, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBookingToken compares in constant time.
func VerifyBookingToken(secret string, id uint64, token string) bool {
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(BookingToken(secret, id)), []byte(token))
}
