package identifier

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Prefix tags every merchant identifier.
const Prefix = "MP"

const randomChars = 6

// segment widths for display formatting: MP-XXXX-XXXX-rest.
var segments = []int{2, 4, 4}

// Generate returns a new merchant identifier: the prefix, a base-36
// millisecond timestamp and a base-36 random tail, upper-cased. The timestamp
// component makes identifiers sortable by creation time; the random tail makes
// collisions within the same millisecond overwhelmingly unlikely.
func Generate() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)

	var tail strings.Builder
	for i := 0; i < randomChars; i++ {
		tail.WriteByte(base36Digit(rand.Intn(36)))
	}

	return strings.ToUpper(Prefix + ts + tail.String())
}

// Format regroups an identifier into dash-separated segments (2-4-4-rest) for
// human display. It is total over any input: identifiers shorter than the
// expected width simply produce fewer or truncated segments, and an already
// short string is returned unharmed.
func Format(id string) string {
	if id == "" {
		return ""
	}

	var parts []string
	rest := id
	for _, width := range segments {
		if len(rest) == 0 {
			break
		}
		if width > len(rest) {
			width = len(rest)
		}
		parts = append(parts, rest[:width])
		rest = rest[width:]
	}
	if len(rest) > 0 {
		parts = append(parts, rest)
	}

	return strings.Join(parts, "-")
}

// Compact strips the display dashes, recovering the raw identifier.
func Compact(display string) string {
	return strings.ReplaceAll(display, "-", "")
}

func base36Digit(n int) byte {
	if n < 10 {
		return byte('0' + n)
	}
	return byte('a' + n - 10)
}
