package usecase

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	maildomain "mailvault/internal/mail/domain"
)

func TestResolveKeyUsesGmailIDVerbatim(t *testing.T) {
	raw := maildomain.RawMessage{
		ExternalID: "18c2f4a9e0b7d1c3",
		MessageID:  "<abc@mail.example>",
		Subject:    "hello",
	}
	if got := ResolveKey(raw); got != "18c2f4a9e0b7d1c3" {
		t.Fatalf("expected verbatim gmail id, got %q", got)
	}
}

func TestResolveKeyNormalizesMessageID(t *testing.T) {
	variants := []string{
		"<ABC123@Mail.Example>",
		"abc123@mail.example",
		"  <abc123@mail.example>  ",
		"ABC123@MAIL.EXAMPLE",
	}

	first := ResolveKey(maildomain.RawMessage{MessageID: variants[0]})
	for _, v := range variants[1:] {
		if got := ResolveKey(maildomain.RawMessage{MessageID: v}); got != first {
			t.Fatalf("Message-ID variant %q produced different key: %q vs %q", v, got, first)
		}
	}
}

func TestResolveKeyFallbackIsDeterministic(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	raw := maildomain.RawMessage{
		From:    "sender@example.com",
		Subject: "weekly report",
		Date:    date,
	}

	a := ResolveKey(raw)
	b := ResolveKey(raw)
	if a != b {
		t.Fatalf("fallback key not deterministic: %q vs %q", a, b)
	}

	other := raw
	other.Subject = "weekly report v2"
	if ResolveKey(other) == a {
		t.Fatal("different subject produced the same fallback key")
	}
}

func TestResolveKeyFallbackDistinguishesFieldBoundaries(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	a := ResolveKey(maildomain.RawMessage{From: "ab", Subject: "c", Date: date})
	b := ResolveKey(maildomain.RawMessage{From: "a", Subject: "bc", Date: date})
	if a == b {
		t.Fatal("field boundary not preserved in fallback key")
	}
}

func TestResolveKeyEmptyMessageIsUnique(t *testing.T) {
	a := ResolveKey(maildomain.RawMessage{})
	b := ResolveKey(maildomain.RawMessage{})
	if a == "" || b == "" {
		t.Fatal("empty message must still get a key")
	}
	if a == b {
		t.Fatal("identity-free messages must not collide")
	}
}

func TestProperty_ResolveKeyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same_input_same_key", prop.ForAll(
		func(messageID, from, subject string, unix int64) bool {
			raw := maildomain.RawMessage{
				MessageID: messageID,
				From:      from,
				Subject:   subject,
				Date:      time.Unix(unix%4102444800, 0),
			}
			// Identity-free messages are deliberately unique each time.
			if normalizeMessageID(messageID) == "" && from == "" && subject == "" {
				return true
			}
			return ResolveKey(raw) == ResolveKey(raw)
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.AnyString(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
