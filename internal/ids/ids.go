// Package ids generates identifiers: prefix+zero-padded sequences for
// knowledge entries and time-ordered ULIDs for deliveries and feedback.
package ids

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// Sequence returns the next id for a collection: prefix plus a zero-padded
// sequence one past the highest existing sequence. Removing an entry does not
// shift later ids because the scan keys off the maximum, not the count.
func Sequence(prefix string, existing []string) string {
	max := 0
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, prefix+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, max+1)
}

// Delivery returns a time-ordered delivery id.
func Delivery(t time.Time) string {
	return "del-" + newULID(t)
}

// Feedback returns a time-ordered feedback event id.
func Feedback(t time.Time) string {
	return "fb-" + newULID(t)
}

func newULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
