package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	maildomain "mailvault/internal/mail/domain"
)

// ResolveKey computes the stable identity of a raw message within its
// account. Gmail supplies one verbatim; IMAP messages are keyed by a hash
// of the normalized Message-ID header, falling back to a hash over
// from+subject+date. The same physical message fetched twice yields the
// same key. When no identity can be derived at all the message is treated
// as unique (duplicate risk accepted) rather than dropped.
func ResolveKey(raw maildomain.RawMessage) string {
	if raw.ExternalID != "" {
		return raw.ExternalID
	}

	if id := normalizeMessageID(raw.MessageID); id != "" {
		return hashKey("mid:" + id)
	}

	if raw.From != "" || raw.Subject != "" {
		return hashKey("fsd:" + raw.From + "\x00" + raw.Subject + "\x00" + raw.Date.UTC().Format(time.RFC3339))
	}

	return uuid.New().String()
}

func normalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.ToLower(id)
}

func hashKey(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
