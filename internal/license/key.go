package license

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	// keyAlphabet is the 36-symbol set keys are minted from.
	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// KeyLength is the presentable length: 4 groups of 4, dash-separated.
	KeyLength = 19
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// GenerateKey mints a random key in XXXX-XXXX-XXXX-XXXX form.
func GenerateKey() (string, error) {
	segments := make([]string, 4)
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.Reset()
		for j := 0; j < 4; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
		segments[i] = b.String()
	}
	return strings.Join(segments, "-"), nil
}

// NormalizeKey uppercases and trims user input. It does not insert dashes:
// a 16-char undashed key is rejected by ValidKey even if the characters
// themselves are fine.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidKey reports whether key (already normalized) is exactly
// XXXX-XXXX-XXXX-XXXX.
func ValidKey(key string) bool {
	return len(key) == KeyLength && keyPattern.MatchString(key)
}

// KeyPrefix returns the first two groups ("XXXX-XXXX"), the fragment
// embedded in playback watermarks.
func KeyPrefix(key string) string {
	if len(key) < 9 {
		return key
	}
	return key[:9]
}

// RemainingDays is the display value for time left on a license:
// ceil((expiresAt - now) / 24h), floored at 0. A license expiring in
// 23h59m still shows 1 day; an expired one shows 0, never negative.
func RemainingDays(expiresAt, now time.Time) int {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}
