package cache

import (
	"fmt"
	"hash/fnv"

	"github.com/taskpilot/llm-router/internal/utils"
)

// Purpose namespaces for cache keys. Keys built for different purposes never
// collide even when the underlying content is identical.
const (
	PurposeRoute   = "route"
	PurposeComment = "comment"
	PurposeEmail   = "email"
)

// keyContentLimit bounds how much of the input participates in the digest so
// that very long inputs hash in constant time.
const keyContentLimit = 200

// Key builds a deterministic cache key of the form "<purpose>:<16-hex-digest>".
// Content is lowercased and trimmed before hashing, so inputs differing only
// in case or surrounding whitespace share an entry. Extra parts (recipient,
// tone and the like) are folded into the digest in order.
func Key(purpose, content string, extra ...string) string {
	h := fnv.New64a()
	h.Write([]byte(purpose))
	h.Write([]byte{0})
	h.Write([]byte(utils.Normalize(content, keyContentLimit)))
	for _, part := range extra {
		h.Write([]byte{0})
		h.Write([]byte(utils.Normalize(part, 0)))
	}

	return fmt.Sprintf("%s:%016x", purpose, h.Sum64())
}
