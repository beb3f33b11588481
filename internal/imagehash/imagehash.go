// Package imagehash derives stable content keys from image payloads.
package imagehash

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

var dataURLPrefix = regexp.MustCompile(`^data:[\w/.+-]*;base64,`)

// Sum returns a hex digest of the image payload. Any data-URL prefix is
// stripped first so the same bytes hash the same regardless of how the
// client framed them. A payload with no usable bytes gets a time/random
// seeded digest, which degrades to a guaranteed cache miss instead of an
// error.
func Sum(payload string) string {
	body := strings.TrimSpace(payload)
	body = dataURLPrefix.ReplaceAllString(body, "")
	if body == "" {
		seed := uint64(time.Now().UnixNano()) ^ rand.Uint64()
		return fmt.Sprintf("r%016x", seed)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(body))
}

// HasPrefix reports whether the payload carries a data-URL prefix.
func HasPrefix(payload string) bool {
	return dataURLPrefix.MatchString(strings.TrimSpace(payload))
}

// Strip removes a data-URL prefix if present, returning the raw base64 body.
func Strip(payload string) string {
	return dataURLPrefix.ReplaceAllString(strings.TrimSpace(payload), "")
}
