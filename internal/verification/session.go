package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channel is the only delivery channel the storefront verifies through.
const Channel = "whatsapp"

// Session is one OTP verification attempt for a phone number. It lives in
// Redis for the code's lifetime; the code itself never crosses the API
// boundary.
type Session struct {
	ID                uuid.UUID `json:"id"`
	ProjectID         string    `json:"project_id"`
	Phone             string    `json:"phone"`
	Code              string    `json:"code"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its validity window. The boundary
// instant counts as expired.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

var codeSpace = big.NewInt(1_000_000)

// GenerateCode draws a 6-digit code from crypto/rand, zero-padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// PhoneHash derives the key material for phone-scoped locks and counters.
// Raw numbers never become Redis keys.
func PhoneHash(phone string) string {
	sum := sha256.Sum256([]byte(NormalizePhone(phone)))
	return hex.EncodeToString(sum[:])
}

// NormalizePhone strips spacing and punctuation, keeping digits and a leading
// plus sign.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeCode keeps only digits from user input.
func SanitizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
