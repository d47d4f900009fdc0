// Package ids generates the opaque, prefixed identifiers used as primary keys.
package ids

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity prefixes. Every row ID carries one so an identifier is
// self-describing in logs and API payloads.
const (
	Organization = "org"
	User         = "usr"
	Session      = "ses"
	APIKey       = "key"
	Link         = "link"
	Connection   = "conn"
)

// New returns an identifier of the form "<prefix>_<ulid>". The ULID entropy
// comes from crypto/rand: these IDs show up in unauthenticated-adjacent
// contexts and must not be guessable.
func New(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return prefix + "_" + strings.ToLower(id.String())
}

// HasPrefix reports whether id carries the given entity prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}
