package booking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// randomToken returns n cryptographically secure random bytes encoded as
// a hexadecimal string of length n*2.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewHoldToken generates the opaque token returned to the client when a
// hold is created.
func NewHoldToken() (string, error) {
	return randomToken(32)
}

// NewBookingRef builds a human-presentable booking reference of the form
// PNR-<unix seconds>-<6 hex chars>.  The reference column carries a
// unique index; on the remote chance of a collision the insert fails and
// the whole booking transaction is rolled back rather than overwriting.
func NewBookingRef(t time.Time) (string, error) {
	suffix, err := randomToken(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PNR-%d-%s", t.UTC().Unix(), strings.ToUpper(suffix)), nil
}
