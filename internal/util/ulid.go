package util

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID generates a new ULID string. ulid.Make draws from a process-wide
// monotonic entropy source, so IDs sort by creation time.
func NewULID() string {
	return ulid.Make().String()
}

// IsULID reports whether s parses as a ULID.
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomBase36 returns n random lowercase base36 characters.
func RandomBase36(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		buf[i] = base36Alphabet[idx.Int64()]
	}
	return string(buf)
}

// NewPlaceholderRunID builds the run id handed out in degraded mode:
// mock_<unix millis>_<9 base36 chars>.
func NewPlaceholderRunID(now time.Time) string {
	return NewTaggedRunID("mock", now)
}

// NewTaggedRunID builds <tag>_<unix millis>_<9 base36 chars>.
func NewTaggedRunID(tag string, now time.Time) string {
	return tag + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + RandomBase36(9)
}
